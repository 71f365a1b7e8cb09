package app

import (
	"fmt"

	"taskforge/internal/config"
	"taskforge/internal/executor"
	"taskforge/internal/llm"
	"taskforge/internal/runtime"
	"taskforge/internal/scm"
	"taskforge/internal/store"
)

// BuildPipeline assembles a production Pipeline from configuration: OpenAI
// client, Docker sandbox, filesystem store and local git history. The store's
// layout must already exist (the caller ensures it during startup).
func BuildPipeline(cfg *config.Config, st *store.Store) (*Pipeline, error) {
	gen, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	dockerRuntime, err := runtime.NewDockerRuntime()
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker runtime: %w", err)
	}

	exec := executor.NewPythonDockerExecutor(dockerRuntime, st.Root(), cfg.Sandbox.Image, cfg.Sandbox.Timeout)
	history := scm.NewHistory(st.ScriptsDir())

	return NewPipeline(gen, exec, st, history), nil
}
