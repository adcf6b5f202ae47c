package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// --- Constructors ---

// ConfigError reports invalid construction arguments for field.
func ConfigError(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeConfig, Message: fmt.Sprintf("invalid configuration: %s", reason),
		Details: details,
	}
}

// QueueStateError reports a submission call that the engine can no longer accept.
func QueueStateError(reason string) *AppError {
	return &AppError{Code: ErrCodeQueueState, Message: reason}
}

// ResolveError reports that an item could not be opened as a byte stream.
func ResolveError(reason string, cause error) *AppError {
	return &AppError{Code: ErrCodeResolve, Message: reason, Cause: cause}
}

// StreamError reports a resolved source that failed while being drained.
func StreamError(cause error) *AppError {
	return &AppError{
		Code: ErrCodeStream, Message: "source stream failed while draining",
		Cause: cause,
	}
}

// Validation creates a new AppError for configuration validation failures.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// Internal creates a new AppError for an unexpected failure.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "an unexpected error occurred",
		Cause: cause,
	}
}

// --- Inspection ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err is an AppError with the given code.
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// IsConfigError reports whether err is a CONFIG_ERROR.
func IsConfigError(err error) bool { return HasCode(err, ErrCodeConfig) }

// IsQueueState reports whether err is a QUEUE_STATE error.
func IsQueueState(err error) bool { return HasCode(err, ErrCodeQueueState) }

// IsResolveError reports whether err is a RESOLVE_FAILED error.
func IsResolveError(err error) bool { return HasCode(err, ErrCodeResolve) }

// IsStreamError reports whether err is a STREAM_FAILED error.
func IsStreamError(err error) bool { return HasCode(err, ErrCodeStream) }

// Wrap converts any error to an AppError. Returns nil for nil input and
// passes AppErrors (including wrapped ones) through unchanged.
func Wrap(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return Internal(err)
}
