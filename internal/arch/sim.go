package arch

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// simHandle is the default TaskHandle: a size-1 gate channel. Sending to
// resume wakes exactly one blocked Suspend call.
type simHandle struct {
	resume chan struct{}
}

// NewTaskHandle creates the gate a task's backing goroutine parks on
// between Resume calls.
func NewTaskHandle() TaskHandle {
	return &simHandle{resume: make(chan struct{}, 1)}
}

func (h *simHandle) Resume() {
	DataMemoryBarrier()
	select {
	case h.resume <- struct{}{}:
	default:
		// Already has a pending resume; Resume is idempotent.
	}
}

func (h *simHandle) Suspend() {
	<-h.resume
	DataMemoryBarrier()
}

// simSwitcher is the host-runnable Switcher backend. It pins the calling
// goroutine to a single OS thread so the kernel's run loop — which is
// the only goroutine allowed to mutate scheduler state — behaves as if
// it were the single core the spec assumes, immune to host multi-core
// scheduling noise during tests.
type simSwitcher struct{}

// NewSimSwitcher returns the default, host-runnable Switcher.
func NewSimSwitcher() Switcher {
	return simSwitcher{}
}

func (simSwitcher) Start(first TaskHandle) {
	pinToOneCPU()
	first.Resume()
}

func (simSwitcher) Switch(outgoing, incoming TaskHandle) {
	if incoming != nil {
		incoming.Resume()
	}
	// outgoing's own goroutine is responsible for calling Suspend on
	// itself after requesting the switch (see internal/sched); Switch
	// only performs the "reload new task" half of the handoff, matching
	// the self-destroy and overflow-kill paths in internal/sched that call
	// it without an outgoing task of their own to suspend.
	_ = outgoing
}

// pinToOneCPU locks the calling goroutine to its current OS thread and
// restricts that thread's affinity to a single logical CPU, modeling the
// single-core Non-goal structurally rather than by convention alone.
// Best effort: failure to set affinity is not fatal, since it only
// affects host scheduling fairness, never kernel correctness.
func pinToOneCPU() {
	runtime.LockOSThread()
	var set unix.CPUSet
	set.Zero()
	set.Set(0)
	_ = unix.SchedSetaffinity(0, &set)
}

// simInterruptController is the host-runnable InterruptController. The
// global mask delegates to the caller-supplied mutex — the same
// critical section Scheduler already holds around every list mutation —
// so MaskIRQ/UnmaskIRQ are not a second lock layered on top of the
// scheduler's, they are its lock under the architectural name spec.md §9
// gives it. Vector and software-trigger state is counted rather than
// acted on, the same documentary-fidelity trade-off Frame makes: there
// is no real NVIC on the host to enable a vector in or pend an
// exception on, but the calls are real and their effects observable.
type simInterruptController struct {
	mu *sync.Mutex

	vecMu   sync.Mutex
	enabled map[int]bool

	switchCount atomic.Uint64
	startCount  atomic.Uint64
}

// NewInterruptController returns the default, host-runnable
// InterruptController, its global mask backed by mu.
func NewInterruptController(mu *sync.Mutex) InterruptController {
	return &simInterruptController{mu: mu, enabled: make(map[int]bool)}
}

func (c *simInterruptController) MaskIRQ()   { c.mu.Lock() }
func (c *simInterruptController) UnmaskIRQ() { c.mu.Unlock() }

func (c *simInterruptController) EnableIRQ(irq int) {
	c.vecMu.Lock()
	defer c.vecMu.Unlock()
	c.enabled[irq] = true
}

func (c *simInterruptController) DisableIRQ(irq int) {
	c.vecMu.Lock()
	defer c.vecMu.Unlock()
	c.enabled[irq] = false
}

// IRQEnabled reports whether irq was last left enabled; for tests.
func (c *simInterruptController) IRQEnabled(irq int) bool {
	c.vecMu.Lock()
	defer c.vecMu.Unlock()
	return c.enabled[irq]
}

func (c *simInterruptController) TriggerSwitch() { c.switchCount.Add(1) }
func (c *simInterruptController) TriggerStart()  { c.startCount.Add(1) }

// SwitchCount and StartCount report how many times TriggerSwitch/
// TriggerStart fired; for tests and diagnostics, mirroring the way
// internal/metrics counts scheduler events.
func (c *simInterruptController) SwitchCount() uint64 { return c.switchCount.Load() }
func (c *simInterruptController) StartCount() uint64  { return c.startCount.Load() }

// WaitForInterrupt simulates the WFI instruction the idle task executes:
// a short, interruptible sleep rather than the host's uninterruptible
// time.Sleep, bounded so the idle task still notices shutdown promptly.
func WaitForInterrupt() {
	ts := unix.Timespec{Sec: 0, Nsec: int64(time.Millisecond) * 1}
	_ = unix.Nanosleep(&ts, nil)
}
