package errors

import (
	"errors"
	"net/http"
)

// HTTPStatus maps an error to the response status the API should return.
// Unknown errors map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.Is(err, ErrConfigInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrTaskNotFound), errors.Is(err, ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSanitizeFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrExecutionTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, ErrGenerationFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// TypeName returns a stable machine-readable name for the error category,
// used in API payloads and structured logs.
func TypeName(err error) string {
	switch {
	case errors.Is(err, ErrConfigInvalid):
		return "config_invalid"
	case errors.Is(err, ErrGenerationFailed):
		return "generation_failed"
	case errors.Is(err, ErrSanitizeFailed):
		return "sanitize_failed"
	case errors.Is(err, ErrStorageFailed):
		return "storage_failed"
	case errors.Is(err, ErrSandboxFailed):
		return "sandbox_failed"
	case errors.Is(err, ErrExecutionTimeout):
		return "execution_timeout"
	case errors.Is(err, ErrSCMFailed):
		return "scm_failed"
	case errors.Is(err, ErrTaskNotFound):
		return "task_not_found"
	case errors.Is(err, ErrFileNotFound):
		return "file_not_found"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	default:
		return "internal"
	}
}
