package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	forgeerrors "taskforge/internal/errors"
	"taskforge/internal/executor"
	"taskforge/internal/generator"
	"taskforge/internal/llm"
	"taskforge/internal/store"
	"taskforge/pkg/task"
)

// ScriptHistory records saved scripts in version control.
type ScriptHistory interface {
	CommitScript(scriptName, prompt string) error
}

// Pipeline orchestrates the task stages: generate, sanitize, save, execute,
// collect. This is the Facade over the generation and sandbox components.
type Pipeline struct {
	generator llm.Generator
	executor  executor.Executor
	store     *store.Store
	history   ScriptHistory
}

// NewPipeline wires the pipeline from its collaborators. history may be nil,
// in which case scripts are not versioned.
func NewPipeline(gen llm.Generator, exec executor.Executor, st *store.Store, history ScriptHistory) *Pipeline {
	return &Pipeline{
		generator: gen,
		executor:  exec,
		store:     st,
		history:   history,
	}
}

// ProcessTask runs the full pipeline for one task. The returned record is
// always persisted, whether the task succeeded or failed mid-stage; the error
// carries the stage failure for the caller to map.
func (p *Pipeline) ProcessTask(ctx context.Context, prompt string) (*task.Record, error) {
	record := task.NewRecord(uuid.New().String(), prompt)
	slog.Info("Starting task pipeline", "taskId", record.ID)

	if err := p.store.SaveRecord(record); err != nil {
		return nil, forgeerrors.NewStorageError(
			"Could not persist the task record",
			err.Error(),
			"Check that the output directory is writable",
			err)
	}

	err := p.runStages(ctx, record)
	if err != nil {
		record.Fail(err)
	} else {
		record.Complete()
	}

	if saveErr := p.store.SaveRecord(record); saveErr != nil {
		slog.Error("Failed to persist final task record", "taskId", record.ID, "error", saveErr)
	}

	if err != nil {
		slog.Warn("Task pipeline failed", "taskId", record.ID, "stage", record.Stage, "error", err)
		return record, err
	}

	slog.Info("Task pipeline completed", "taskId", record.ID, "script", record.ScriptName)
	return record, nil
}

// runStages advances the record through each stage, saving progress between
// stages so a crash leaves an accurate trail.
func (p *Pipeline) runStages(ctx context.Context, record *task.Record) error {
	// Stage 1: generate
	record.Stage = task.StageGenerate
	raw, err := p.generator.Generate(ctx, generator.BuildPrompt(record.Prompt))
	if err != nil {
		return forgeerrors.NewGenerationError(
			"The language model request failed",
			err.Error(),
			"Verify the API key and base URL, then retry",
			err)
	}

	// Stage 2: sanitize
	record.Stage = task.StageSanitize
	code, err := generator.Sanitize(raw)
	if err != nil {
		return forgeerrors.NewSanitizeError(
			"The model response could not be used as a script",
			err.Error(),
			"Rephrase the task to ask for plain Python code",
			err)
	}
	record.Requirements = generator.Requirements(code)

	// Stage 3: save
	record.Stage = task.StageSave
	scriptName, err := p.store.SaveScript(record.ID, code)
	if err != nil {
		return forgeerrors.NewStorageError(
			"Could not save the generated script",
			err.Error(),
			"Check that the output directory is writable",
			err)
	}
	record.ScriptName = scriptName
	p.saveProgress(record)

	if p.history != nil {
		// History is bookkeeping; a commit failure must not fail the task.
		if err := p.history.CommitScript(scriptName, record.Prompt); err != nil {
			slog.Warn("Failed to commit script to history", "script", scriptName, "error", err)
		}
	}

	// Stage 4: execute
	record.Stage = task.StageExecute
	scriptPath, err := p.store.ScriptPath(scriptName)
	if err != nil {
		return forgeerrors.NewStorageError(
			"Saved script went missing before execution",
			err.Error(),
			"Check the output volume for concurrent modification",
			err)
	}

	execution, err := p.executor.Execute(ctx, scriptPath, record.Requirements)
	record.Execution = execution
	if err != nil {
		if errors.Is(err, executor.ErrTimeout) {
			return forgeerrors.NewTimeoutError(
				"The script did not finish in time",
				"execution exceeded the configured timeout",
				"Simplify the task or raise the sandbox timeout",
				err)
		}
		return forgeerrors.NewSandboxError(
			"The sandbox could not run the script",
			err.Error(),
			"Check that the Docker daemon is reachable and the sandbox image exists",
			err)
	}
	p.saveProgress(record)

	// Stage 5: collect
	record.Stage = task.StageCollect
	artifacts, err := p.store.ListArtifacts()
	if err != nil {
		return forgeerrors.NewStorageError(
			"Could not list artifact files",
			err.Error(),
			"Check that the output directory is readable",
			err)
	}
	for _, artifact := range artifacts {
		record.Artifacts = append(record.Artifacts, artifact.Name)
	}

	return nil
}

// saveProgress persists intermediate stage state, logging instead of failing.
func (p *Pipeline) saveProgress(record *task.Record) {
	if err := p.store.SaveRecord(record); err != nil {
		slog.Warn("Failed to persist task progress", "taskId", record.ID, "stage", record.Stage, "error", err)
	}
}
