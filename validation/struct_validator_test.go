package validation

import (
	"strings"
	"testing"
	"time"

	"github.com/kbukum/cmdstream/errors"
)

type sampleProcess struct {
	Binary      string        `mapstructure:"binary" validate:"required"`
	GracePeriod time.Duration `mapstructure:"grace_period" validate:"gte=0"`
}

type sampleConfig struct {
	Mode    string        `mapstructure:"mode" validate:"oneof=skip abort"`
	Process sampleProcess `mapstructure:"process"`
}

func TestValidate_Valid(t *testing.T) {
	cfg := sampleConfig{Mode: "skip", Process: sampleProcess{Binary: "cat"}}
	if err := Validate(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_FieldErrors(t *testing.T) {
	cfg := sampleConfig{Mode: "retry", Process: sampleProcess{GracePeriod: -time.Second}}
	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}

	appErr, ok := errors.AsAppError(err)
	if !ok {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", appErr.Code)
	}

	fields, ok := appErr.Details["fields"].([]FieldError)
	if !ok {
		t.Fatalf("expected []FieldError details, got %T", appErr.Details["fields"])
	}
	if len(fields) != 3 {
		t.Fatalf("expected 3 field errors, got %d: %+v", len(fields), fields)
	}

	for _, want := range []string{"mode: must be one of: skip abort", "process.binary: is required", "process.grace_period: must be greater than or equal to 0"} {
		if !strings.Contains(appErr.Message, want) {
			t.Errorf("expected message to contain %q, got %q", want, appErr.Message)
		}
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := map[string]string{
		"Binary":      "binary",
		"GracePeriod": "grace_period",
		"a":           "a",
	}
	for in, want := range tests {
		if got := toSnakeCase(in); got != want {
			t.Errorf("toSnakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
