package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"taskforge/pkg/runtime"
	"taskforge/pkg/task"
)

// Workspace is the mount point of the output directory inside the sandbox.
const Workspace = "/workspace"

// ErrTimeout reports that the script exceeded the execution deadline.
var ErrTimeout = errors.New("script execution exceeded timeout")

// Executor runs a saved script and reports its outcome.
type Executor interface {
	Execute(ctx context.Context, scriptPath string, requirements []string) (*task.Execution, error)
}

// PythonDockerExecutor runs generated Python scripts inside a disposable
// container with the output directory bind-mounted at the workspace.
type PythonDockerExecutor struct {
	containerRuntime runtime.ContainerRuntime
	outputDir        string
	image            string
	timeout          time.Duration

	pullMu sync.Mutex
	pulled bool
}

// NewPythonDockerExecutor creates an executor using the given runtime.
func NewPythonDockerExecutor(containerRuntime runtime.ContainerRuntime, outputDir, image string, timeout time.Duration) *PythonDockerExecutor {
	return &PythonDockerExecutor{
		containerRuntime: containerRuntime,
		outputDir:        outputDir,
		image:            image,
		timeout:          timeout,
	}
}

// Execute runs the script at scriptPath. Declared requirements are installed
// with pip before the script starts; the whole run shares one wall-clock
// timeout. Network access is only granted when packages must be installed.
func (e *PythonDockerExecutor) Execute(ctx context.Context, scriptPath string, requirements []string) (*task.Execution, error) {
	if _, err := os.Stat(scriptPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("script does not exist: %s", scriptPath)
	}

	absOutputDir, err := filepath.Abs(e.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output directory: %w", err)
	}

	relScript, err := filepath.Rel(absOutputDir, scriptPath)
	if err != nil || strings.HasPrefix(relScript, "..") {
		return nil, fmt.Errorf("script %s is outside the output directory", scriptPath)
	}

	if err := e.ensureImage(ctx); err != nil {
		return nil, fmt.Errorf("failed to pull sandbox image: %w", err)
	}

	slog.Info("Executing script", "script", relScript, "image", e.image, "timeout", e.timeout)

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	opts := runtime.RunOptions{
		Image:            e.image,
		Command:          e.buildCommand(relScript, requirements),
		VolumeMounts:     map[string]string{absOutputDir: Workspace},
		WorkingDirectory: Workspace,
		DisableNetwork:   len(requirements) == 0,
	}

	result, err := e.containerRuntime.RunToCompletion(runCtx, opts)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			execution := &task.Execution{ExitCode: -1, TimedOut: true}
			if result != nil {
				execution.Stdout = result.Stdout
				execution.Stderr = result.Stderr
			}
			return execution, ErrTimeout
		}
		return nil, fmt.Errorf("sandbox run failed: %w", err)
	}

	slog.Info("Script execution finished", "script", relScript, "exitCode", result.ExitCode)

	return &task.Execution{
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	}, nil
}

// ensureImage pulls the sandbox image on first use. Only a successful pull is
// latched, so a transient registry error does not poison later tasks.
func (e *PythonDockerExecutor) ensureImage(ctx context.Context) error {
	e.pullMu.Lock()
	defer e.pullMu.Unlock()

	if e.pulled {
		return nil
	}
	if err := e.containerRuntime.PullImage(ctx, e.image); err != nil {
		return err
	}
	e.pulled = true
	return nil
}

// buildCommand produces the container command: optional pip install followed
// by the unbuffered interpreter run, joined so both share the same container.
func (e *PythonDockerExecutor) buildCommand(relScript string, requirements []string) []string {
	runScript := fmt.Sprintf("python -u %s", shellQuote(filepath.ToSlash(relScript)))
	if len(requirements) == 0 {
		return []string{"sh", "-c", runScript}
	}

	quoted := make([]string, 0, len(requirements))
	for _, pkg := range requirements {
		quoted = append(quoted, shellQuote(pkg))
	}
	install := fmt.Sprintf("pip install --quiet %s", strings.Join(quoted, " "))

	return []string{"sh", "-c", install + " && " + runScript}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
