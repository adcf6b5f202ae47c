package httpclient

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies HTTP client errors.
type ErrorCode int

const (
	// ErrCodeTimeout indicates a connect or header timeout.
	ErrCodeTimeout ErrorCode = iota
	// ErrCodeConnection indicates a connection failure (refused, DNS, etc).
	ErrCodeConnection
	// ErrCodeStatus indicates a response other than 200.
	ErrCodeStatus
	// ErrCodeCircuitOpen indicates the host's circuit breaker rejected the call.
	ErrCodeCircuitOpen
	// ErrCodeValidation indicates the request could not be built.
	ErrCodeValidation
)

// String returns the error code name.
func (c ErrorCode) String() string {
	switch c {
	case ErrCodeTimeout:
		return "timeout"
	case ErrCodeConnection:
		return "connection"
	case ErrCodeStatus:
		return "status"
	case ErrCodeCircuitOpen:
		return "circuit_open"
	case ErrCodeValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// maxErrorBody caps how much of a rejected response body is kept.
const maxErrorBody = 512

// Error is a structured HTTP client error with classification.
type Error struct {
	// Code classifies the error.
	Code ErrorCode
	// URL is the requested location.
	URL string
	// Message describes the error.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("httpclient: %s: %s: %s", e.Code, e.URL, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// StatusError is returned by Open for any response other than 200.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
	Header     http.Header
	// Body holds at most the first 512 bytes of the response body.
	Body []byte
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("httpclient: %s: unexpected status %s", e.URL, e.Status)
}

// serverSide reports whether the status should count against the host's breaker.
func (e *StatusError) serverSide() bool {
	return e.StatusCode >= 500
}

func newTimeoutError(url string, err error) *Error {
	return &Error{Code: ErrCodeTimeout, URL: url, Message: err.Error(), Err: err}
}

func newConnectionError(url string, err error) *Error {
	return &Error{Code: ErrCodeConnection, URL: url, Message: err.Error(), Err: err}
}

func newValidationError(url string, err error) *Error {
	return &Error{Code: ErrCodeValidation, URL: url, Message: err.Error(), Err: err}
}

func newCircuitOpenError(url string, err error) *Error {
	return &Error{Code: ErrCodeCircuitOpen, URL: url, Message: "host temporarily rejected", Err: err}
}

// AsStatusError extracts a *StatusError from err.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeTimeout
}

// IsConnection checks if an error is a connection error.
func IsConnection(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeConnection
}

// IsCircuitOpen checks if an error came from an open circuit breaker.
func IsCircuitOpen(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Code == ErrCodeCircuitOpen
}
