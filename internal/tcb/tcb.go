// Package tcb defines the task control block, the kernel's per-task
// record, and its lifecycle enums.
package tcb

import (
	"github.com/danieldegrasse/bmos-go/internal/arch"
	"github.com/danieldegrasse/bmos-go/internal/list"
)

// State is a task's scheduling state.
type State int

const (
	Exited State = iota
	Delayed
	Blocked
	Ready
	Active
)

func (s State) String() string {
	switch s {
	case Exited:
		return "EXITED"
	case Delayed:
		return "DELAYED"
	case Blocked:
		return "BLOCKED"
	case Ready:
		return "READY"
	case Active:
		return "ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// BlockReason records why a task is Blocked. While a task is Delayed the
// remaining tick count is kept in a separate TCB field instead, and the
// block reason is ReasonNone — see RemainingTicks/SetRemainingTicks below.
type BlockReason int

const (
	ReasonNone BlockReason = iota
	ReasonSemaphore
)

// TCB is the kernel's per-task record. SavedSP is declared first to
// mirror the source layout the spec describes (assembly dereferences the
// TCB pointer to load/store the stack pointer); this module's context
// switch instead hands off through arch.TaskHandle, so no code relies on
// the field's offset.
type TCB struct {
	SavedSP uintptr // top of the saved frame; meaningless while Active

	StackStart   uintptr // highest address (exclusive of alignment pad)
	StackEnd     uintptr // lowest address
	StackSoftEnd uintptr // StackEnd + StackProtectionSize

	Entry func(arg any)
	Arg   any

	// Frame is the synthetic initial frame from spec.md §4.3. It is never
	// dereferenced by this module's simulated context switch (the Go
	// goroutine backing each task already carries its own real call
	// stack); it exists so the record shape and the "frame valid except
	// while Active" invariant match the source exactly, and so a real
	// arch.Switcher backend (internal/arch/cortexm.go) has somewhere to
	// read it from.
	Frame arch.Frame

	State       State
	blockReason BlockReason
	remaining   int // valid only while State == Delayed

	Priority int
	Name     string

	StackOwned bool
	Stack      []byte // retained so it can be released exactly once

	Node list.Node[*TCB]
}

// BlockReason returns the block reason; only meaningful while Blocked.
func (t *TCB) BlockReason() BlockReason { return t.blockReason }

// SetBlockReason sets the block reason and clears any delay count.
func (t *TCB) SetBlockReason(r BlockReason) {
	t.blockReason = r
	t.remaining = 0
}

// RemainingTicks returns the remaining-tick counter; only meaningful
// while State == Delayed.
func (t *TCB) RemainingTicks() int { return t.remaining }

// SetRemainingTicks sets the delayed task's remaining-tick counter and
// resets the block reason to ReasonNone.
func (t *TCB) SetRemainingTicks(n int) {
	t.remaining = n
	t.blockReason = ReasonNone
}

// DecrementTick decrements the remaining-tick counter by one and reports
// whether it has reached zero.
func (t *TCB) DecrementTick() (expired bool) {
	if t.remaining > 0 {
		t.remaining--
	}
	return t.remaining <= 0
}

// Overflowed reports whether sp is at or below the stack's soft-end,
// i.e. whether the protection band has been breached.
func (t *TCB) Overflowed(sp uintptr) bool {
	return sp <= t.StackSoftEnd
}
