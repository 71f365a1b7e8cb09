package runtime

import "context"

// RunOptions defines the parameters for running a container.
type RunOptions struct {
	Image            string
	Command          []string
	VolumeMounts     map[string]string
	EnvVars          map[string]string
	WorkingDirectory string
	// DisableNetwork detaches the container from all networks. Script
	// sandboxes that only need the mounted workspace should set this.
	DisableNetwork bool
}

// RunResult carries the outcome of a finished container run. Stdout and
// Stderr are demultiplexed from the container log stream.
type RunResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// ContainerRuntime defines the contract for container operations.
type ContainerRuntime interface {
	PullImage(ctx context.Context, image string) error
	// RunToCompletion runs a container, drains its output and waits for it to
	// exit. The context deadline bounds the whole run; when it fires the
	// container is killed and ctx.Err is returned alongside partial output.
	RunToCompletion(ctx context.Context, opts RunOptions) (*RunResult, error)
}
