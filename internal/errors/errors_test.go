package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestForgeError_WrappingAndCategory(t *testing.T) {
	original := errors.New("connection refused")
	err := NewGenerationError("The model request failed", "connection refused", "retry later", original)

	if !errors.Is(err, ErrGenerationFailed) {
		t.Error("Expected errors.Is to match the category sentinel")
	}
	if !errors.Is(err, original) {
		t.Error("Expected errors.Is to match the original error")
	}

	var forgeErr *ForgeError
	if !errors.As(err, &forgeErr) {
		t.Fatal("Expected errors.As to extract ForgeError")
	}
	if forgeErr.Suggestion != "retry later" {
		t.Errorf("Suggestion not preserved: %s", forgeErr.Suggestion)
	}
	if err.Error() != "connection refused" {
		t.Errorf("Error() should surface the original message, got %q", err.Error())
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"invalid request", NewForgeError(ErrInvalidRequest, "", "", "", ErrInvalidRequest), http.StatusBadRequest},
		{"task not found", NewForgeError(ErrTaskNotFound, "", "", "", ErrTaskNotFound), http.StatusNotFound},
		{"file not found", NewForgeError(ErrFileNotFound, "", "", "", ErrFileNotFound), http.StatusNotFound},
		{"sanitize failed", NewSanitizeError("", "", "", errors.New("x")), http.StatusUnprocessableEntity},
		{"timeout", NewTimeoutError("", "", "", errors.New("x")), http.StatusGatewayTimeout},
		{"generation failed", NewGenerationError("", "", "", errors.New("x")), http.StatusBadGateway},
		{"sandbox failed", NewSandboxError("", "", "", errors.New("x")), http.StatusInternalServerError},
		{"storage failed", NewStorageError("", "", "", errors.New("x")), http.StatusInternalServerError},
		{"plain error", errors.New("anything"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.expected {
				t.Errorf("Expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func TestTypeName(t *testing.T) {
	if got := TypeName(NewSCMError("", "", "", errors.New("x"))); got != "scm_failed" {
		t.Errorf("Expected 'scm_failed', got %q", got)
	}
	if got := TypeName(errors.New("mystery")); got != "internal" {
		t.Errorf("Expected 'internal' for unknown errors, got %q", got)
	}
}
