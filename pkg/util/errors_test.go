package util

import (
	"errors"
	"strings"
	"testing"
)

func TestValidationBuilder_Empty(t *testing.T) {
	v := &ValidationBuilder{}
	if v.HasErrors() {
		t.Error("fresh builder should have no errors")
	}
	if err := v.Build(); err != nil {
		t.Errorf("Build() = %v, want nil", err)
	}
}

func TestValidationBuilder_Add(t *testing.T) {
	v := &ValidationBuilder{}
	v.Add(true, "should not appear")
	v.Add(false, "host is required")
	v.AddErrorf("port %d out of range", 99999)

	if !v.HasErrors() {
		t.Fatal("expected errors")
	}

	err := v.Build()
	if err == nil {
		t.Fatal("Build() = nil")
	}
	if !errors.Is(err, ErrValidationFailed) {
		t.Error("validation error should unwrap to ErrValidationFailed")
	}

	msg := err.Error()
	if strings.Contains(msg, "should not appear") {
		t.Errorf("true condition produced an error: %s", msg)
	}
	if !strings.Contains(msg, "host is required") || !strings.Contains(msg, "port 99999 out of range") {
		t.Errorf("missing expected messages: %s", msg)
	}
}

func TestValidationError_SingleMessage(t *testing.T) {
	err := (&ValidationBuilder{}).Add(false, "only one").Build()
	if got := err.Error(); got != "validation failed: only one" {
		t.Errorf("Error() = %q", got)
	}
}
