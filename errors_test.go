package bmos

import (
	"errors"
	"testing"
)

func TestStructuredError(t *testing.T) {
	err := NewError("TaskCreate", CodeBadParam, "priority out of range")

	if err.Op != "TaskCreate" {
		t.Errorf("Op = %q, want TaskCreate", err.Op)
	}
	if err.Code != CodeBadParam {
		t.Errorf("Code = %q, want %q", err.Code, CodeBadParam)
	}

	expected := "bmos: TaskCreate: priority out of range (BADPARAM)"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestWrapError(t *testing.T) {
	inner := errors.New("stack allocation failed")
	err := WrapError("TaskCreate", CodeNoMem, inner)

	if err.Code != CodeNoMem {
		t.Errorf("Code = %q, want %q", err.Code, CodeNoMem)
	}
	if !errors.Is(err, inner) {
		t.Error("wrapped error should satisfy errors.Is for the inner error")
	}
}

func TestWrapErrorNilIsNil(t *testing.T) {
	if err := WrapError("TaskCreate", CodeNoMem, nil); err != nil {
		t.Errorf("WrapError(nil) = %v, want nil", err)
	}
}

func TestErrorIsComparesByCode(t *testing.T) {
	a := &Error{Op: "TaskCreate", Code: CodeNoMem, Msg: "x"}
	b := &Error{Op: "SemaphoreCreateBinary", Code: CodeNoMem, Msg: "y"}
	c := &Error{Op: "TaskCreate", Code: CodeBadParam, Msg: "z"}

	if !errors.Is(a, b) {
		t.Error("errors with the same Code should compare equal via errors.Is")
	}
	if errors.Is(a, c) {
		t.Error("errors with different Codes should not compare equal")
	}
}

func TestIsCode(t *testing.T) {
	err := NewError("SemaphorePend", CodeTimeout, "pend timed out")

	if !IsCode(err, CodeTimeout) {
		t.Error("IsCode should return true for a matching code")
	}
	if IsCode(err, CodeScheduler) {
		t.Error("IsCode should return false for a non-matching code")
	}
	if IsCode(nil, CodeTimeout) {
		t.Error("IsCode should return false for a nil error")
	}
}
