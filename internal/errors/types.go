package errors

import "errors"

var (
	ErrConfigInvalid    = errors.New("configuration invalid")
	ErrGenerationFailed = errors.New("code generation failed")
	ErrSanitizeFailed   = errors.New("generated code rejected")
	ErrStorageFailed    = errors.New("storage operation failed")
	ErrSandboxFailed    = errors.New("sandbox execution failed")
	ErrExecutionTimeout = errors.New("script execution timed out")
	ErrSCMFailed        = errors.New("SCM operation failed")
	ErrTaskNotFound     = errors.New("task not found")
	ErrFileNotFound     = errors.New("file not found")
	ErrInvalidRequest   = errors.New("invalid request")
)

type ForgeError struct {
	Type        error
	Context     string
	Cause       string
	Suggestion  string
	OriginalErr error
}

func (e *ForgeError) Error() string {
	return e.OriginalErr.Error()
}

func (e *ForgeError) Unwrap() error {
	return e.OriginalErr
}

// Is lets errors.Is match a ForgeError against its sentinel category.
func (e *ForgeError) Is(target error) bool {
	return errors.Is(e.Type, target)
}

func NewForgeError(errorType error, context, cause, suggestion string, originalErr error) *ForgeError {
	return &ForgeError{
		Type:        errorType,
		Context:     context,
		Cause:       cause,
		Suggestion:  suggestion,
		OriginalErr: originalErr,
	}
}

func NewConfigError(context, cause, suggestion string, originalErr error) *ForgeError {
	return NewForgeError(ErrConfigInvalid, context, cause, suggestion, originalErr)
}

func NewGenerationError(context, cause, suggestion string, originalErr error) *ForgeError {
	return NewForgeError(ErrGenerationFailed, context, cause, suggestion, originalErr)
}

func NewSanitizeError(context, cause, suggestion string, originalErr error) *ForgeError {
	return NewForgeError(ErrSanitizeFailed, context, cause, suggestion, originalErr)
}

func NewStorageError(context, cause, suggestion string, originalErr error) *ForgeError {
	return NewForgeError(ErrStorageFailed, context, cause, suggestion, originalErr)
}

func NewSandboxError(context, cause, suggestion string, originalErr error) *ForgeError {
	return NewForgeError(ErrSandboxFailed, context, cause, suggestion, originalErr)
}

func NewTimeoutError(context, cause, suggestion string, originalErr error) *ForgeError {
	return NewForgeError(ErrExecutionTimeout, context, cause, suggestion, originalErr)
}

func NewSCMError(context, cause, suggestion string, originalErr error) *ForgeError {
	return NewForgeError(ErrSCMFailed, context, cause, suggestion, originalErr)
}
