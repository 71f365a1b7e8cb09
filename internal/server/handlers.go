package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"taskforge/internal/config"
	forgeerrors "taskforge/internal/errors"
	"taskforge/pkg/task"
)

// createTask runs the pipeline synchronously and returns the finished record.
// A failed pipeline still produced a persisted record, so the error response
// carries the taxonomy category while the record remains queryable.
func (s *Server) createTask(c *gin.Context) {
	var req task.Request
	if err := c.BindJSON(&req); err != nil {
		_ = c.Error(forgeerrors.NewForgeError(forgeerrors.ErrInvalidRequest,
			"The request body could not be parsed", err.Error(),
			`Send {"prompt": "..."}`, err))
		return
	}
	if err := config.Validator().Struct(&req); err != nil {
		_ = c.Error(forgeerrors.NewForgeError(forgeerrors.ErrInvalidRequest,
			"The request failed validation", err.Error(),
			"The prompt must be between 3 and 4000 characters", err))
		return
	}

	record, err := s.runner.ProcessTask(c.Request.Context(), req.Prompt)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

func (s *Server) listTasks(c *gin.Context) {
	records, err := s.store.ListRecords()
	if err != nil {
		_ = c.Error(err)
		return
	}
	if records == nil {
		records = []*task.Record{}
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) getTask(c *gin.Context) {
	id := c.Param("id")

	record, err := s.store.LoadRecord(id)
	if err != nil {
		_ = c.Error(forgeerrors.NewForgeError(forgeerrors.ErrInvalidRequest,
			"The task id is not valid", err.Error(), "", err))
		return
	}
	if record == nil {
		_ = c.Error(forgeerrors.NewForgeError(forgeerrors.ErrTaskNotFound,
			"No task with this id exists", fmt.Sprintf("unknown task: %s", id), "", forgeerrors.ErrTaskNotFound))
		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) listScripts(c *gin.Context) {
	files, err := s.store.ListScripts()
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, files)
}

func (s *Server) downloadScript(c *gin.Context) {
	path, err := s.store.ScriptPath(c.Param("name"))
	if err != nil {
		_ = c.Error(forgeerrors.NewForgeError(forgeerrors.ErrFileNotFound,
			"The script could not be served", err.Error(), "", err))
		return
	}
	c.FileAttachment(path, c.Param("name"))
}

func (s *Server) listArtifacts(c *gin.Context) {
	files, err := s.store.ListArtifacts()
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, files)
}

func (s *Server) downloadArtifact(c *gin.Context) {
	path, err := s.store.ArtifactPath(c.Param("name"))
	if err != nil {
		_ = c.Error(forgeerrors.NewForgeError(forgeerrors.ErrFileNotFound,
			"The artifact could not be served", err.Error(), "", err))
		return
	}
	c.FileAttachment(path, c.Param("name"))
}

// health reports liveness. While draining the endpoint turns 503 so the
// orchestrator stops routing new work here.
func (s *Server) health(c *gin.Context) {
	state := s.lifecycle.Current()
	status := http.StatusOK
	if state != StateServing {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"state": state})
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"version":    s.version,
		"state":      s.lifecycle.Current(),
		"uptime":     time.Since(s.startedAt).Round(time.Second).String(),
		"output_dir": s.store.Root(),
	})
}

// logLevelReq mirrors the runtime log level change request.
type logLevelReq struct {
	Level string `json:"level"`
}

// setLogLevel changes the process log level dynamically.
func (s *Server) setLogLevel(c *gin.Context) {
	req := logLevelReq{Level: "info"}
	if err := c.BindJSON(&req); err != nil {
		_ = c.Error(forgeerrors.NewForgeError(forgeerrors.ErrInvalidRequest,
			"The log level request could not be parsed", err.Error(), "", err))
		return
	}

	if s.logLevel == nil {
		_ = c.Error(forgeerrors.NewForgeError(forgeerrors.ErrInvalidRequest,
			"Runtime log level changes are not enabled", "", "", forgeerrors.ErrInvalidRequest))
		return
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(req.Level)); err != nil {
		_ = c.Error(forgeerrors.NewForgeError(forgeerrors.ErrInvalidRequest,
			"Unknown log level", fmt.Sprintf("invalid level: %s", req.Level),
			"Use debug, info, warn or error", err))
		return
	}

	s.logLevel.Set(level)
	slog.Warn("Log level changed", "level", level.String())
	c.JSON(http.StatusOK, gin.H{"level": level.String()})
}
