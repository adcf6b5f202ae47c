package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Construction errors
const (
	// ErrCodeConfig indicates invalid construction arguments.
	ErrCodeConfig ErrorCode = "CONFIG_ERROR"
	// ErrCodeInvalidInput indicates a configuration value failed validation.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Sequencing errors
const (
	// ErrCodeQueueState indicates a submission call made in the wrong engine state.
	ErrCodeQueueState ErrorCode = "QUEUE_STATE"
	// ErrCodeResolve indicates an item could not be turned into a byte stream.
	ErrCodeResolve ErrorCode = "RESOLVE_FAILED"
	// ErrCodeStream indicates a resolved stream failed while being drained.
	ErrCodeStream ErrorCode = "STREAM_FAILED"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// ReasonUnknownSource is the resolve failure reason for items that are
// neither a URL, an existing path, nor a readable stream.
const ReasonUnknownSource = "cannot identify source type"

// Nothing in this module retries automatically; the table exists so callers
// that wrap the engine can still ask.
var retryableCodes = map[ErrorCode]bool{
	ErrCodeConfig:       false,
	ErrCodeInvalidInput: false,
	ErrCodeQueueState:   false,
	ErrCodeResolve:      false,
	ErrCodeStream:       false,
	ErrCodeInternal:     false,
}

// IsRetryableCode returns true if the error code indicates a retryable error.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
