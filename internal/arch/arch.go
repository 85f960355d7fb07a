// Package arch isolates architecture-dependent kernel primitives —
// context switch, the semaphore lock's exclusive-access protocol, and the
// synthetic initial stack frame — behind an interface with two
// implementations: a default, host-runnable simulation (this file and its
// siblings without a build tag) that every test in this module exercises,
// and a build-tag-gated real backend for the target architecture
// (cortexm.go) that is never compiled on the host that builds this
// module's tests.
package arch

// TaskHandle is the scheduler's handle onto a single task's backing
// goroutine. It replaces literal register-bank save/restore: Suspend
// parks the calling goroutine (the task itself, when it stops being
// active) and Resume un-parks it (when the scheduler selects it again).
type TaskHandle interface {
	// Resume lets the task's goroutine proceed. Must not block.
	Resume()
	// Suspend blocks the calling goroutine until a later Resume.
	Suspend()
}

// Switcher performs the two architectural handlers from the spec: Start
// (the one-time SVC entry) and Switch (the recurring PendSV entry).
//
// Switch must be called with the scheduler's critical section already
// held by the caller and must not allocate or block beyond the handoff
// itself — the Go analogue of "no function prologue perturbs the stack",
// since naked functions have no equivalent here.
type Switcher interface {
	// Start begins executing first. The simulated backend returns once
	// first has been released to run.
	Start(first TaskHandle)

	// Switch hands control from outgoing (nil if none, e.g. the previous
	// active task already exited) to incoming.
	Switch(outgoing, incoming TaskHandle)
}
