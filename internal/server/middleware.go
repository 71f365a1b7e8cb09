package server

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	forgeerrors "taskforge/internal/errors"
)

// errorBody is the wire shape of an API error.
type errorBody struct {
	Type       string `json:"type"`
	Message    string `json:"message"`
	Context    string `json:"context,omitempty"`
	Cause      string `json:"cause,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

// logMiddleware emits one structured log line per request.
func logMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		slog.Info("Request handled",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
			"clientIP", c.ClientIP(),
		)
	}
}

// errorHandleMiddleware maps errors attached by handlers onto the taxonomy's
// HTTP status codes and a structured JSON body.
func errorHandleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		body := errorBody{
			Type:    forgeerrors.TypeName(err),
			Message: err.Error(),
		}

		var forgeErr *forgeerrors.ForgeError
		if errors.As(err, &forgeErr) {
			body.Context = forgeErr.Context
			body.Cause = forgeErr.Cause
			body.Suggestion = forgeErr.Suggestion
		}

		c.JSON(forgeerrors.HTTPStatus(err), gin.H{"error": body})
	}
}
