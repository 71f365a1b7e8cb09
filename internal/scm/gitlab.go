package scm

import (
	"fmt"
	"log/slog"
	"os"

	git "github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitlab "github.com/xanzy/go-gitlab"
)

// Publisher pushes the script history repository to a remote host.
type Publisher interface {
	Publish(opts PublishOptions) error
}

// PublishOptions describe the remote project the history is pushed to.
type PublishOptions struct {
	Name        string
	Namespace   string
	Description string
	Visibility  string
}

// GitLabPublisher implements the Publisher interface for GitLab.
type GitLabPublisher struct {
	client  *gitlab.Client
	token   string
	history *History
}

// NewGitLabPublisher creates a publisher authenticated from
// GITLAB_PRIVATE_TOKEN.
func NewGitLabPublisher(history *History) (*GitLabPublisher, error) {
	token := os.Getenv("GITLAB_PRIVATE_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("GITLAB_PRIVATE_TOKEN environment variable is required")
	}

	baseURL := os.Getenv("GITLAB_BASE_URL")
	if baseURL == "" {
		baseURL = "https://gitlab.com/api/v4"
	}

	client, err := gitlab.NewClient(token, gitlab.WithBaseURL(baseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	return &GitLabPublisher{
		client:  client,
		token:   token,
		history: history,
	}, nil
}

// Publish creates the GitLab project (unless it already exists) and pushes
// the local script history repository to it.
func (g *GitLabPublisher) Publish(opts PublishOptions) error {
	slog.Info("Publishing script history", "name", opts.Name, "namespace", opts.Namespace)

	repoURL, err := g.ensureProject(opts)
	if err != nil {
		return err
	}

	if err := g.pushHistory(repoURL); err != nil {
		return fmt.Errorf("failed to push script history: %w", err)
	}

	slog.Info("Script history published", "url", repoURL)
	return nil
}

// ensureProject returns the HTTP repo URL of the target project, creating it
// when absent.
func (g *GitLabPublisher) ensureProject(opts PublishOptions) (string, error) {
	repoPath := opts.Name
	if opts.Namespace != "" {
		repoPath = fmt.Sprintf("%s/%s", opts.Namespace, opts.Name)
	}

	existing, _, err := g.client.Projects.GetProject(repoPath, nil)
	if err == nil && existing != nil {
		slog.Warn("Project already exists, pushing to it", "path", repoPath)
		return existing.HTTPURLToRepo, nil
	}

	visibility := gitlab.PrivateVisibility
	switch opts.Visibility {
	case "public":
		visibility = gitlab.PublicVisibility
	case "internal":
		visibility = gitlab.InternalVisibility
	}

	createOpts := &gitlab.CreateProjectOptions{
		Name:                 &opts.Name,
		Path:                 &opts.Name,
		Description:          &opts.Description,
		Visibility:           &visibility,
		InitializeWithReadme: gitlab.Bool(false),
	}

	project, _, err := g.client.Projects.CreateProject(createOpts)
	if err != nil {
		return "", fmt.Errorf("failed to create GitLab project: %w", err)
	}

	slog.Info("GitLab project created", "id", project.ID, "url", project.HTTPURLToRepo)
	return project.HTTPURLToRepo, nil
}

// pushHistory pushes the history repository's current branch to the remote.
func (g *GitLabPublisher) pushHistory(repoURL string) error {
	repo, err := git.PlainOpen(g.history.dir)
	if err != nil {
		return fmt.Errorf("no script history to publish at %s: %w", g.history.dir, err)
	}

	// Re-point the remote on every publish so a recreated project still works.
	_ = repo.DeleteRemote("origin")
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{
		Name: "origin",
		URLs: []string{repoURL},
	})
	if err != nil {
		return fmt.Errorf("failed to configure remote: %w", err)
	}

	err = repo.Push(&git.PushOptions{
		RemoteName: "origin",
		Auth: &githttp.BasicAuth{
			Username: "oauth2",
			Password: g.token,
		},
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return fmt.Errorf("failed to push to remote: %w", err)
	}

	return nil
}
