package scm

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

const (
	historyAuthorName  = "TaskForge"
	historyAuthorEmail = "noreply@taskforge.local"
)

// History versions generated scripts in a local git repository rooted at the
// scripts directory. The repository lives inside the output volume, so the
// history survives container restarts.
type History struct {
	dir string
}

// NewHistory creates a History for the given scripts directory.
func NewHistory(dir string) *History {
	return &History{dir: dir}
}

// openOrInit opens the history repository, initializing it on first use.
func (h *History) openOrInit() (*git.Repository, error) {
	repo, err := git.PlainOpen(h.dir)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("failed to open history repository: %w", err)
	}

	repo, err = git.PlainInit(h.dir, false)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history repository: %w", err)
	}

	slog.Info("Initialized script history repository", "directory", h.dir)
	return repo, nil
}

// CommitScript stages the named script file and commits it with the task
// prompt recorded in the commit message.
func (h *History) CommitScript(scriptName, prompt string) error {
	repo, err := h.openOrInit()
	if err != nil {
		return err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}

	if _, err := worktree.Add(scriptName); err != nil {
		return fmt.Errorf("failed to stage script %s: %w", scriptName, err)
	}

	message := fmt.Sprintf("Add %s\n\nTask: %s", scriptName, prompt)
	commit, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  historyAuthorName,
			Email: historyAuthorEmail,
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to commit script %s: %w", scriptName, err)
	}

	slog.Info("Committed script to history", "script", scriptName, "commit", commit.String())
	return nil
}
