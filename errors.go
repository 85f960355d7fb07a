// Package bmos implements a small preemptive, priority-based real-time
// kernel core for a single logical CPU: task creation and scheduling, a
// tick-driven delay/preemption path, and binary/counting semaphores.
package bmos

import (
	"errors"
	"fmt"
)

// Code is a kernel error category.
type Code string

const (
	CodeBadParam  Code = "BADPARAM"
	CodeNoMem     Code = "NOMEM"
	CodeScheduler Code = "SCHEDULER"
	CodeTimeout   Code = "TIMEOUT"
)

// Error is the kernel's structured error type.
type Error struct {
	Op    string // operation that failed, e.g. "TaskCreate", "SemaphorePend"
	Code  Code
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("bmos: %s: %s (%s)", e.Op, e.Msg, e.Code)
	}
	return fmt.Sprintf("bmos: %s (%s)", e.Msg, e.Code)
}

func (e *Error) Unwrap() error { return e.Inner }

// Is reports whether target is an *Error with the same Code, so callers
// can write errors.Is(err, &bmos.Error{Code: bmos.CodeNoMem}).
func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// NewError constructs a structured error for op.
func NewError(op string, code Code, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

// WrapError wraps inner (from internal/sched or internal/sem, whose error
// types are unexported-package-local) with a kernel Code and the public
// operation name that surfaced it.
func WrapError(op string, code Code, inner error) *Error {
	if inner == nil {
		return nil
	}
	return &Error{Op: op, Code: code, Msg: inner.Error(), Inner: inner}
}

// IsCode reports whether err is a *bmos.Error carrying code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
