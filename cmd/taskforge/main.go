package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"taskforge/internal/app"
	"taskforge/internal/config"
	forgeerrors "taskforge/internal/errors"
	"taskforge/internal/scm"
	"taskforge/internal/server"
	"taskforge/internal/store"
	"taskforge/internal/ui"
)

// version is set at build time via ldflags
var version = "dev"

var logLevel = new(slog.LevelVar)

var rootCmd = &cobra.Command{
	Use:     "taskforge",
	Short:   "TaskForge - AI script generation and execution service",
	Version: version,
	Long: `TaskForge turns natural-language task descriptions into Python scripts:
it generates code through an OpenAI-compatible API, stores every script under
a persistent output directory, executes it in a Docker sandbox and reports the
run log together with the artifact files the script produced.`,
	// main prints the error; without this cobra would print it a second time.
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP service (container entry point)",
	Long: `Serve starts the long-lived service runner: it binds the configured port
(7860 by default), ensures the output directory exists and handles task
submissions until a termination signal arrives, then drains in-flight
requests before exiting.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		setupLogger(cfg, true)

		st := store.New(cfg.OutputDir)
		if err := st.EnsureLayout(); err != nil {
			return fmt.Errorf("output directory unavailable: %w", err)
		}

		pipeline, err := app.BuildPipeline(cfg, st)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		srv := server.New(cfg, pipeline, st, logLevel, version)
		return srv.Run(ctx)
	},
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a single task from the command line",
	Long: `Run executes the full pipeline once for the given prompt and prints the
execution log and artifact listing to the terminal.`,
	Run: func(cmd *cobra.Command, args []string) {
		prompt, _ := cmd.Flags().GetString("prompt")
		if prompt == "" {
			fmt.Fprintln(os.Stderr, "Error: --prompt flag is required")
			os.Exit(1)
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

		setupLogger(cfg, false)
		console := ui.NewConsole()

		st := store.New(cfg.OutputDir)
		if err := st.EnsureLayout(); err != nil {
			forgeerrors.NewHandler().Handle(err)
			os.Exit(1)
		}

		pipeline, err := app.BuildPipeline(cfg, st)
		if err != nil {
			forgeerrors.NewHandler().Handle(err)
			os.Exit(1)
		}

		record, err := pipeline.ProcessTask(cmd.Context(), prompt)
		if err != nil {
			forgeerrors.NewHandler().Handle(err)
			os.Exit(1)
		}

		console.PrintSuccess(fmt.Sprintf("Task completed: %s", record.ScriptName))
		if record.Execution != nil {
			console.PrintSection("Console Output", record.Execution.Stdout)
			if record.Execution.Stderr != "" {
				console.PrintSection("Error Log", record.Execution.Stderr)
			}
			console.PrintInfo(fmt.Sprintf("Exit code: %d", record.Execution.ExitCode))
		}
		if len(record.Artifacts) > 0 {
			console.PrintSection("Artifacts", strings.Join(record.Artifacts, "\n"))
		}
	},
}

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Push the script history to a GitLab repository",
	Long: `Publish creates a GitLab project (unless it already exists) and pushes the
local script history repository to it. Authentication uses the
GITLAB_PRIVATE_TOKEN environment variable.`,
	Run: func(cmd *cobra.Command, args []string) {
		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			fmt.Fprintln(os.Stderr, "Error: --name flag is required")
			os.Exit(1)
		}
		namespace, _ := cmd.Flags().GetString("namespace")
		visibility, _ := cmd.Flags().GetString("visibility")

		cfg, err := loadConfig(cmd)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

		setupLogger(cfg, false)

		st := store.New(cfg.OutputDir)
		history := scm.NewHistory(st.ScriptsDir())

		publisher, err := scm.NewGitLabPublisher(history)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
			os.Exit(1)
		}

		err = publisher.Publish(scm.PublishOptions{
			Name:        name,
			Namespace:   namespace,
			Description: "Scripts generated by TaskForge",
			Visibility:  visibility,
		})
		if err != nil {
			forgeerrors.NewHandler().Handle(
				forgeerrors.NewSCMError("Publishing the script history failed", err.Error(),
					"Check the GitLab token and project settings", err))
			os.Exit(1)
		}

		ui.NewConsole().PrintSuccess(fmt.Sprintf("Script history published to %s", name))
	},
}

// loadConfig reads configuration honoring the optional --config flag.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	file, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(file)
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// setupLogger installs the process-wide slog handler on stderr: JSON for the
// server, text for CLI use.
func setupLogger(cfg *config.Config, jsonOutput bool) {
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	if jsonOutput {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to the YAML config file (optional)")

	rootCmd.AddCommand(serveCmd)

	runCmd.Flags().StringP("prompt", "p", "", "Task description to process (required)")
	if err := runCmd.MarkFlagRequired("prompt"); err != nil {
		slog.Error("Failed to mark prompt flag as required for run command", "error", err)
	}
	rootCmd.AddCommand(runCmd)

	publishCmd.Flags().StringP("name", "n", "", "GitLab project name (required)")
	publishCmd.Flags().String("namespace", "", "GitLab namespace to create the project in")
	publishCmd.Flags().String("visibility", "private", "Project visibility: private, internal or public")
	if err := publishCmd.MarkFlagRequired("name"); err != nil {
		slog.Error("Failed to mark name flag as required for publish command", "error", err)
	}
	rootCmd.AddCommand(publishCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
