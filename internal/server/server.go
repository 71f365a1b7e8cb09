package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskforge/internal/config"
	"taskforge/internal/store"
	"taskforge/pkg/task"
)

// TaskRunner executes the task pipeline for one prompt.
type TaskRunner interface {
	ProcessTask(ctx context.Context, prompt string) (*task.Record, error)
}

// Server is the long-lived service runner: it owns the listener, the HTTP
// engine and the lifecycle state machine.
type Server struct {
	cfg       *config.Config
	runner    TaskRunner
	store     *store.Store
	lifecycle *lifecycle
	logLevel  *slog.LevelVar
	version   string
	startedAt time.Time

	httpServer *http.Server
}

// New creates a Server. logLevel may be nil when runtime level changes are
// not needed (tests).
func New(cfg *config.Config, runner TaskRunner, st *store.Store, logLevel *slog.LevelVar, version string) *Server {
	s := &Server{
		cfg:       cfg,
		runner:    runner,
		store:     st,
		lifecycle: newLifecycle(),
		logLevel:  logLevel,
		version:   version,
		startedAt: time.Now(),
	}

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	s.registerRoutes(engine)

	s.httpServer = &http.Server{
		Addr:    cfg.Addr(),
		Handler: engine,
	}

	return s
}

// State exposes the current lifecycle state.
func (s *Server) State() State {
	return s.lifecycle.Current()
}

// Run binds the listener, serves until ctx is cancelled, then drains within
// the configured grace period. Bind failure and an inaccessible output
// directory are fatal startup errors; both leave the process with a non-zero
// exit through the returned error.
func (s *Server) Run(ctx context.Context) error {
	// The output directory must exist before any request can write to it.
	if err := s.store.EnsureLayout(); err != nil {
		_ = s.lifecycle.Transition(StateStopped)
		return fmt.Errorf("output directory unavailable: %w", err)
	}

	// Bind explicitly so a taken port fails fast instead of surfacing later
	// from inside Serve.
	listener, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		_ = s.lifecycle.Transition(StateStopped)
		return fmt.Errorf("failed to bind %s: %w", s.cfg.Addr(), err)
	}

	if err := s.lifecycle.Transition(StateServing); err != nil {
		listener.Close()
		return err
	}

	slog.Info("Server listening", "addr", listener.Addr().String(), "outputDir", s.store.Root())

	serveErr := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		_ = s.lifecycle.Transition(StateDraining)
		_ = s.lifecycle.Transition(StateStopped)
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	return s.shutdown(serveErr)
}

// shutdown drains in-flight requests for the grace period, then stops.
func (s *Server) shutdown(serveErr chan error) error {
	if err := s.lifecycle.Transition(StateDraining); err != nil {
		return err
	}
	slog.Info("Draining connections", "grace", s.cfg.DrainGrace)

	drainCtx, cancel := context.WithTimeout(context.Background(), s.cfg.DrainGrace)
	defer cancel()

	err := s.httpServer.Shutdown(drainCtx)
	<-serveErr

	if transitionErr := s.lifecycle.Transition(StateStopped); transitionErr != nil {
		return transitionErr
	}

	if err != nil {
		slog.Warn("Drain period elapsed with requests in flight", "error", err)
		return fmt.Errorf("shutdown incomplete: %w", err)
	}

	slog.Info("Server stopped")
	return nil
}
