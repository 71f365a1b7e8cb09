package runtime

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"taskforge/pkg/runtime"
)

// DockerRuntime implements the ContainerRuntime interface using Docker client.
type DockerRuntime struct {
	client *client.Client
}

// NewDockerRuntime creates a new DockerRuntime instance using client.FromEnv.
func NewDockerRuntime() (*DockerRuntime, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	// Check if Docker daemon is accessible
	ctx := context.Background()
	_, err = dockerClient.Ping(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Docker daemon: %w", err)
	}

	return &DockerRuntime{
		client: dockerClient,
	}, nil
}

// PullImage pulls a Docker image.
func (d *DockerRuntime) PullImage(ctx context.Context, imageName string) error {
	slog.Info("Pulling Docker image", "image", imageName)

	reader, err := d.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", imageName, err)
	}
	defer reader.Close()

	// Stream the pull output (but don't print it to avoid clutter)
	_, err = io.Copy(io.Discard, reader)
	if err != nil {
		return fmt.Errorf("failed to stream image pull output: %w", err)
	}

	slog.Info("Successfully pulled Docker image", "image", imageName)
	return nil
}

// RunToCompletion runs a container, drains the demultiplexed output and waits
// for the exit code. The container is force-removed in every outcome.
func (d *DockerRuntime) RunToCompletion(ctx context.Context, opts runtime.RunOptions) (*runtime.RunResult, error) {
	containerID, err := d.createAndStart(ctx, opts)
	if err != nil {
		return nil, err
	}
	defer func() {
		// Removal must not be tied to a possibly-expired context.
		if err := d.client.ContainerRemove(context.Background(), containerID, container.RemoveOptions{Force: true}); err != nil {
			slog.Error("Failed to remove container", "containerID", containerID, "error", err)
		}
	}()

	logs, err := d.client.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get container logs: %w", err)
	}
	defer logs.Close()

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, logs); err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("failed to stream container output: %w", err)
	}

	statusCh, errCh := d.client.ContainerWait(ctx, containerID, container.WaitConditionNotRunning)
	select {
	case status := <-statusCh:
		return &runtime.RunResult{ExitCode: int(status.StatusCode), Stdout: stdout.String(), Stderr: stderr.String()}, nil
	case err := <-errCh:
		if ctx.Err() != nil {
			// Deadline hit mid-run: kill the container and surface the timeout.
			if killErr := d.client.ContainerKill(context.Background(), containerID, "SIGKILL"); killErr != nil {
				slog.Error("Failed to kill timed-out container", "containerID", containerID, "error", killErr)
			}
			return &runtime.RunResult{ExitCode: -1, Stdout: stdout.String(), Stderr: stderr.String()}, ctx.Err()
		}
		return nil, fmt.Errorf("failed to wait for container: %w", err)
	}
}

// createAndStart creates and starts a container from the run options, cleaning
// up on start failure.
func (d *DockerRuntime) createAndStart(ctx context.Context, opts runtime.RunOptions) (string, error) {
	slog.Info("Running container", "image", opts.Image, "command", opts.Command)

	// Create volume mounts
	var mounts []mount.Mount
	for hostPath, containerPath := range opts.VolumeMounts {
		mounts = append(mounts, mount.Mount{
			Type:   mount.TypeBind,
			Source: hostPath,
			Target: containerPath,
		})
	}

	// Convert env vars to slice format
	var envVars []string
	for key, value := range opts.EnvVars {
		envVars = append(envVars, fmt.Sprintf("%s=%s", key, value))
	}

	containerConfig := &container.Config{
		Image:      opts.Image,
		Cmd:        opts.Command,
		Env:        envVars,
		WorkingDir: opts.WorkingDirectory,
	}

	hostConfig := &container.HostConfig{
		Mounts: mounts,
	}
	if opts.DisableNetwork {
		hostConfig.NetworkMode = container.NetworkMode(network.NetworkNone)
	}

	resp, err := d.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, "")
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}

	containerID := resp.ID

	if err := d.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		// Clean up on start failure
		if removeErr := d.client.ContainerRemove(ctx, containerID, container.RemoveOptions{Force: true}); removeErr != nil {
			slog.Error("Failed to remove container after start failure", "containerID", containerID, "error", removeErr)
		}
		return "", fmt.Errorf("failed to start container: %w", err)
	}

	return containerID, nil
}
