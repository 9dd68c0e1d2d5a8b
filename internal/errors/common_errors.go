package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeValidation ErrorType = "VALIDATION"
	ErrTypeNotFound   ErrorType = "NOT_FOUND"
	ErrTypeStorage    ErrorType = "STORAGE"
	ErrTypeConflict   ErrorType = "CONFLICT"

	// Validation run taxonomy
	ErrTypeConfigMissing           ErrorType = "CONFIG_MISSING"
	ErrTypePollTimeout             ErrorType = "POLL_TIMEOUT"
	ErrTypeJobFailed               ErrorType = "JOB_FAILED"
	ErrTypeUnexpectedTerminalState ErrorType = "UNEXPECTED_TERMINAL_STATE"
	ErrTypeEmptyArtifact           ErrorType = "EMPTY_ARTIFACT"
	ErrTypeMalformedArtifact       ErrorType = "MALFORMED_ARTIFACT"
	ErrTypeHeaderNotFound          ErrorType = "HEADER_NOT_FOUND"
	ErrTypeAutomation              ErrorType = "AUTOMATION"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// Fatal reports whether the error aborts a validation run.
// A missing desired column only degrades completeness.
func (e *AppError) Fatal() bool {
	return e.Type != ErrTypeHeaderNotFound
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// AsAppError extracts the first AppError in the chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether any AppError in the chain has the given type.
func IsType(err error, errType ErrorType) bool {
	for err != nil {
		var appErr *AppError
		if !stderrors.As(err, &appErr) {
			return false
		}
		if appErr.Type == errType {
			return true
		}
		err = appErr.Cause
	}
	return false
}

// IsFatal reports whether err should abort a run. Errors outside the
// taxonomy are treated as fatal.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr.Fatal()
	}
	return true
}

// Helper functions for common error types

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewConflictError creates a conflict error
func NewConflictError(message string) *AppError {
	return NewAppError(ErrTypeConflict, message, nil)
}

// NewConfigMissingError reports an absent locator or URL.
func NewConfigMissingError(section, key string) *AppError {
	return NewAppError(ErrTypeConfigMissing,
		fmt.Sprintf("config value [%s] %s is not set", section, key), nil).
		WithContext("section", section).
		WithContext("key", key)
}

// NewPollTimeoutError reports an exhausted observation budget.
func NewPollTimeoutError(attempts int) *AppError {
	return NewAppError(ErrTypePollTimeout,
		fmt.Sprintf("export job did not reach a terminal state after %d observations", attempts), nil).
		WithContext("attempts", attempts)
}

// NewJobFailedError reports a terminal non-success job status.
func NewJobFailedError(status string) *AppError {
	return NewAppError(ErrTypeJobFailed,
		fmt.Sprintf("export ended in terminal state: %s", status), nil).
		WithContext("job_status", status)
}

// NewUnexpectedTerminalStateError reports an unknown status at 100%.
func NewUnexpectedTerminalStateError(status string) *AppError {
	return NewAppError(ErrTypeUnexpectedTerminalState,
		fmt.Sprintf("unexpected end status %q at 100%%", status), nil).
		WithContext("job_status", status)
}

// NewEmptyArtifactError reports empty or unreadable artifact content.
func NewEmptyArtifactError(cause error) *AppError {
	return NewAppError(ErrTypeEmptyArtifact, "artifact is empty or unreadable", cause)
}

// NewMalformedArtifactError reports artifact content that cannot be parsed.
func NewMalformedArtifactError(message string, cause error) *AppError {
	return NewAppError(ErrTypeMalformedArtifact, message, cause)
}

// NewHeaderNotFoundError reports a desired column absent from the header row.
func NewHeaderNotFoundError(name string) *AppError {
	return NewAppError(ErrTypeHeaderNotFound,
		fmt.Sprintf("desired header %q not found", name), nil).
		WithContext("header", name)
}

// NewAutomationError wraps a failure of the browser session surface.
func NewAutomationError(step string, cause error) *AppError {
	return NewAppError(ErrTypeAutomation, fmt.Sprintf("automation step %q failed", step), cause).
		WithContext("step", step)
}
