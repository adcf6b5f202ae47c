package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeQueueState, "queue ended")
	if err.Code != ErrCodeQueueState {
		t.Errorf("expected code %s, got %s", ErrCodeQueueState, err.Code)
	}
	if err.Message != "queue ended" {
		t.Errorf("expected message 'queue ended', got %q", err.Message)
	}
	if err.Retryable {
		t.Error("QUEUE_STATE should not be retryable")
	}
}

func TestAppError_ConfigError_Field(t *testing.T) {
	err := ConfigError("binary", "command must be a non-empty executable name")
	if err.Code != ErrCodeConfig {
		t.Errorf("expected CONFIG_ERROR, got %s", err.Code)
	}
	if err.Details["field"] != "binary" {
		t.Errorf("expected field=binary, got %v", err.Details["field"])
	}
	if !strings.Contains(err.Message, "non-empty executable") {
		t.Errorf("expected reason in message, got %q", err.Message)
	}
}

func TestAppError_ConfigError_EmptyField(t *testing.T) {
	err := ConfigError("", "bad")
	if _, ok := err.Details["field"]; ok {
		t.Error("expected no 'field' key in details when field is empty")
	}
}

func TestAppError_ResolveError_Cause(t *testing.T) {
	cause := fmt.Errorf("dial tcp: refused")
	err := ResolveError(ReasonUnknownSource, cause)
	if err.Message != ReasonUnknownSource {
		t.Errorf("expected reason as message, got %q", err.Message)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected cause in error chain")
	}
	if !strings.Contains(err.Error(), "refused") {
		t.Errorf("Error() should contain cause, got %q", err.Error())
	}
}

func TestAppError_StreamError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("broken pipe")
	err := StreamError(cause)
	if err.Unwrap() != cause {
		t.Error("Unwrap should return the cause")
	}
	if QueueStateError("x").Unwrap() != nil {
		t.Error("Unwrap should return nil when no cause")
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := ConfigError("binary", "empty").WithDetails(map[string]any{
		"extra": "info",
	})
	if err.Details["extra"] != "info" {
		t.Errorf("expected extra=info in details")
	}
	if err.Details["field"] != "binary" {
		t.Error("expected original details to be preserved")
	}

	err.WithDetails(map[string]any{"another": "detail"})
	if err.Details["another"] != "detail" {
		t.Error("expected another=detail to be merged")
	}
	if err.Details["extra"] != "info" {
		t.Error("expected extra=info to be preserved after second merge")
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := &AppError{}
	err.WithDetail("seq", 3)
	if err.Details == nil {
		t.Fatal("expected Details map to be initialized")
	}
	if err.Details["seq"] != 3 {
		t.Errorf("expected seq=3, got %v", err.Details["seq"])
	}
}

func TestAppError_WithCause_Chain(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := QueueStateError("closed").WithCause(cause)
	if err.Cause != cause {
		t.Error("expected cause to be set via WithCause")
	}
}

func TestAppError_Predicates_Table(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{"ConfigError", ConfigError("binary", "empty"), IsConfigError},
		{"QueueStateError", QueueStateError("ended"), IsQueueState},
		{"ResolveError", ResolveError("nope", nil), IsResolveError},
		{"StreamError", StreamError(nil), IsStreamError},
		{"wrapped QueueStateError", fmt.Errorf("submit: %w", QueueStateError("ended")), IsQueueState},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if !tc.check(tc.err) {
				t.Errorf("predicate did not match %v", tc.err)
			}
		})
	}

	if IsQueueState(ResolveError("x", nil)) {
		t.Error("IsQueueState should not match a resolve error")
	}
	if IsStreamError(fmt.Errorf("plain")) {
		t.Error("IsStreamError should not match a plain error")
	}
}

func TestErrorCode_NothingRetryable(t *testing.T) {
	codes := []ErrorCode{ErrCodeConfig, ErrCodeInvalidInput, ErrCodeQueueState, ErrCodeResolve, ErrCodeStream, ErrCodeInternal}
	for _, code := range codes {
		if IsRetryableCode(code) {
			t.Errorf("expected %s to NOT be retryable", code)
		}
	}
}

func TestAppError_AsAppError_Success(t *testing.T) {
	wrapped := fmt.Errorf("wrap: %w", Internal(nil))

	got, ok := AsAppError(wrapped)
	if !ok {
		t.Fatal("expected AsAppError to succeed for wrapped AppError")
	}
	if got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got.Code)
	}

	if _, ok := AsAppError(fmt.Errorf("not an app error")); ok {
		t.Error("expected AsAppError to return false for non-AppError")
	}
	if IsAppError(fmt.Errorf("plain")) {
		t.Error("expected IsAppError to return false for plain error")
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil) != nil {
		t.Error("Wrap(nil) should return nil")
	}

	orig := StreamError(nil)
	if Wrap(fmt.Errorf("outer: %w", orig)) != orig {
		t.Error("Wrap should return the wrapped AppError unchanged")
	}

	plain := fmt.Errorf("something broke")
	got := Wrap(plain)
	if got.Code != ErrCodeInternal {
		t.Errorf("expected INTERNAL_ERROR, got %s", got.Code)
	}
	if got.Cause != plain {
		t.Error("expected cause to be the original error")
	}
}
