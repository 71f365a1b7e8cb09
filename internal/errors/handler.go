package errors

import (
	"errors"
	"log/slog"

	"taskforge/internal/ui"
)

// Handler renders errors for the CLI path: structured log entry plus a
// human-readable console message with cause and suggestion.
type Handler struct {
	console *ui.Console
}

func NewHandler() *Handler {
	return &Handler{console: ui.NewConsole()}
}

func (h *Handler) Handle(err error) {
	if err == nil {
		return
	}

	var forgeErr *ForgeError
	if errors.As(err, &forgeErr) {
		h.handleForgeError(forgeErr)
	} else {
		h.handleGenericError(err)
	}
}

func (h *Handler) handleForgeError(err *ForgeError) {
	attrs := []any{
		"error", err.OriginalErr.Error(),
		"type", TypeName(err.Type),
		"context", err.Context,
	}
	if err.Cause != "" {
		attrs = append(attrs, "cause", err.Cause)
	}
	if err.Suggestion != "" {
		attrs = append(attrs, "suggestion", err.Suggestion)
	}
	slog.Error("Task pipeline error", attrs...)

	message := h.console.FormatErrorMessage(err.Context, err.Cause, err.Suggestion)
	h.console.PrintError(message)
}

func (h *Handler) handleGenericError(err error) {
	slog.Error("Unhandled error occurred", "error", err.Error(), "type", "generic")
	h.console.PrintError(err.Error())
}
