// Package sched implements the scheduler core: task creation and
// destruction, the priority-based ready/blocked/delayed/exited-reap
// lists, the context-switch selection algorithm, and the periodic tick
// handler, per spec.md §4.2, §4.4, and §4.6.
//
// The real target expresses a context switch as two naked interrupt
// handlers (SVC and PendSV) that save/restore CPU registers directly.
// Go has no naked functions and no portable way to manipulate another
// goroutine's call stack, so this package models the switch as a
// synchronous hand-off performed by whichever goroutine requests it,
// guarded by an internal/arch.InterruptController whose MaskIRQ/UnmaskIRQ
// are this scheduler's own mutex under its architectural name: the
// outgoing task parks on its own gate channel via internal/arch.TaskHandle.
// Suspend, and the incoming task is released via Resume. See DESIGN.md
// for the full mapping.
package sched

import (
	"reflect"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/danieldegrasse/bmos-go/internal/arch"
	"github.com/danieldegrasse/bmos-go/internal/config"
	"github.com/danieldegrasse/bmos-go/internal/list"
	"github.com/danieldegrasse/bmos-go/internal/logging"
	"github.com/danieldegrasse/bmos-go/internal/metrics"
	"github.com/danieldegrasse/bmos-go/internal/tcb"
)

// tcbAllocSize is a nominal size charged against the configured Allocator
// for the TCB itself, step 1 of spec.md §4.2's task_create. The actual Go
// allocation (the TCB struct literal) is never rolled back on a later
// stack-allocation failure, since Go's GC reclaims it the moment nothing
// references it — there is no explicit free to issue.
const tcbAllocSize = 96

// ErrBadParam is returned for invalid task-creation parameters.
type ErrBadParam struct{ Msg string }

func (e *ErrBadParam) Error() string { return e.Msg }

// ErrNoMem is returned when the configured Allocator reports failure.
type ErrNoMem struct{ Msg string }

func (e *ErrNoMem) Error() string { return e.Msg }

// ErrScheduler reports a scheduler-invariant violation (e.g. Start called
// with no tasks registered).
type ErrScheduler struct{ Msg string }

func (e *ErrScheduler) Error() string { return e.Msg }

// TaskConfig configures a created task. A nil Stack means the scheduler
// allocates StackSize+1 bytes itself; StackSize defaults to
// config.DefaultStackSize when zero.
type TaskConfig struct {
	Priority  int
	StackSize int
	Stack     []byte
	Name      string
}

// Scheduler holds all process-wide scheduling state: the per-priority
// ready lists, the blocked/delayed/exited-reap lists, and the active-task
// pointer. Exactly one instance exists per Kernel.
type Scheduler struct {
	mu sync.Mutex

	ready      [config.PriorityCount]list.List[*tcb.TCB]
	blocked    list.List[*tcb.TCB]
	delayed    list.List[*tcb.TCB]
	exitedReap list.List[*tcb.TCB]

	active *tcb.TCB
	idle   *tcb.TCB

	handles map[*tcb.TCB]arch.TaskHandle

	irq arch.InterruptController

	switcher   arch.Switcher
	alloc      config.Allocator
	preemption config.Preemption

	// switchPending records that a higher-priority task became ready
	// while another task was running. Since Go cannot forcibly suspend a
	// running goroutine, preemption is cooperative: the active task
	// observes this flag at a suspension point (Yield, Delay, Pend, or an
	// explicit CheckPreempt call) and yields if it is set.
	switchPending atomic.Bool

	metrics *metrics.Metrics
	logger  *logging.Logger
}

// New creates a Scheduler and its idle task (priority 0). alloc, m, and lg
// default to config.RuntimeAllocator{}, metrics.New(), and
// logging.Default() respectively when nil.
func New(switcher arch.Switcher, alloc config.Allocator, preemption config.Preemption, m *metrics.Metrics, lg *logging.Logger) (*Scheduler, error) {
	if alloc == nil {
		alloc = config.RuntimeAllocator{}
	}
	if m == nil {
		m = metrics.New()
	}
	if lg == nil {
		lg = logging.Default()
	}
	s := &Scheduler{
		switcher:   switcher,
		alloc:      alloc,
		preemption: preemption,
		metrics:    m,
		logger:     lg,
		handles:    make(map[*tcb.TCB]arch.TaskHandle),
	}
	s.irq = arch.NewInterruptController(&s.mu)

	idle, err := s.createTask(s.idleLoop, nil, &TaskConfig{Name: "idle", StackSize: config.IdleTaskStackSize}, true)
	if err != nil {
		return nil, err
	}
	s.idle = idle
	return s, nil
}

// CreateTask implements spec.md §4.2's task_create.
func (s *Scheduler) CreateTask(entry func(arg any), arg any, cfg *TaskConfig) (*tcb.TCB, error) {
	return s.createTask(entry, arg, cfg, false)
}

func (s *Scheduler) createTask(entry func(arg any), arg any, cfg *TaskConfig, isIdle bool) (*tcb.TCB, error) {
	if entry == nil {
		return nil, &ErrBadParam{Msg: "sched: task entry is nil"}
	}
	if cfg == nil {
		cfg = &TaskConfig{}
	}
	priority := cfg.Priority
	if isIdle {
		priority = 0
	} else {
		if priority == 0 {
			priority = config.DefaultPriority
		}
		if priority <= 0 || priority >= config.PriorityCount {
			return nil, &ErrBadParam{Msg: "sched: priority out of range"}
		}
	}

	// Step 1: allocate the TCB. A nominal charge against the allocator
	// seam, so fault injection can exercise this failure path in tests
	// even though the Go struct itself is allocated later unconditionally.
	if _, ok := s.alloc.Alloc(tcbAllocSize); !ok {
		return nil, &ErrNoMem{Msg: "sched: TCB allocation failed"}
	}

	// Step 2: stack acquisition.
	var stack []byte
	stackOwned := false
	if cfg.Stack != nil {
		stack = cfg.Stack
	} else {
		size := cfg.StackSize
		if size <= 0 {
			size = config.DefaultStackSize
		}
		buf, ok := s.alloc.Alloc(size + 1)
		if !ok {
			// Partial allocation rolled back: the TCB charge above has no
			// corresponding free in a GC'd runtime, but nothing keeps it
			// alive past this return, so it is reclaimed regardless.
			return nil, &ErrNoMem{Msg: "sched: stack allocation failed"}
		}
		stack = buf
		stackOwned = true
	}
	if len(stack) < config.StackProtectionSize+1 {
		return nil, &ErrBadParam{Msg: "sched: stack too small for protection band"}
	}

	// Step 3: stack_start (highest address, exclusive of the alignment
	// pad byte) and stack_end (lowest address).
	stackEnd := uintptr(unsafe.Pointer(&stack[0]))
	stackStart := uintptr(unsafe.Pointer(&stack[len(stack)-2]))

	// Step 4: sentinel fill and soft-end.
	for i := 0; i < config.StackProtectionSize; i++ {
		stack[i] = config.StackSentinel
	}
	stackSoftEnd := stackEnd + uintptr(config.StackProtectionSize)

	// Step 5: synthetic initial frame. entryAddr is the real code-segment
	// address of the entry closure (reflect.Value.Pointer is well-defined
	// for func values); it is recorded for documentation fidelity only and
	// never dereferenced by the simulated switcher.
	entryAddr := uint32(reflect.ValueOf(entry).Pointer())
	const simExitTrampoline = 0xE000E000 // placeholder; real destroy path is runtime.Goexit
	frame := arch.BuildInitialFrame(entryAddr, simExitTrampoline)

	t := &tcb.TCB{
		SavedSP:      stackStart,
		StackStart:   stackStart,
		StackEnd:     stackEnd,
		StackSoftEnd: stackSoftEnd,
		Entry:        entry,
		Arg:          arg,
		Frame:        frame,
		Priority:     priority,
		Name:         cfg.Name,
		StackOwned:   stackOwned,
		Stack:        stack,
	}
	// Step 6: ready, no block reason.
	t.State = tcb.Ready
	t.SetBlockReason(tcb.ReasonNone)

	handle := arch.NewTaskHandle()

	s.irq.MaskIRQ()
	s.handles[t] = handle
	// Step 7: append to ready-queue[priority].
	s.ready[priority].Append(t, &t.Node)
	s.irq.UnmaskIRQ()

	s.metrics.RecordTaskCreated()
	s.logger.Debugf("SCHED", "task %q created at priority %d", t.Name, priority)

	go s.runTask(t, handle)

	// Step 8: return the TCB pointer as an opaque handle.
	return t, nil
}

// runTask is the backing goroutine for every task, including idle. It
// parks until first scheduled, runs the task's entry, and then behaves
// exactly like an explicit self-destroy once entry returns (the Go
// analogue of falling through the exit trampoline).
func (s *Scheduler) runTask(t *tcb.TCB, handle arch.TaskHandle) {
	handle.Suspend()
	t.Entry(t.Arg)
	s.destroyTask(t, true)
}

// DestroyTask implements spec.md §4.2's task_destroy. Destroying the
// active task does not return: once the scheduler has switched away from
// it, the calling goroutine ends via runtime.Goexit.
func (s *Scheduler) DestroyTask(h *tcb.TCB) {
	s.destroyTask(h, false)
}

func (s *Scheduler) destroyTask(h *tcb.TCB, selfExit bool) {
	s.irq.MaskIRQ()
	if h == s.active {
		s.active = nil
		h.State = tcb.Exited
		s.exitedReap.Append(h, &h.Node)
		s.metrics.RecordTaskDestroyed()
		s.logger.Debugf("SCHED", "task %q destroyed (self=%v)", h.Name, selfExit)
		s.doSwitch(nil)
		s.irq.UnmaskIRQ()
		runtime.Goexit()
		return
	}

	switch h.State {
	case tcb.Blocked:
		s.blocked.Remove(&h.Node)
	case tcb.Delayed:
		s.delayed.Remove(&h.Node)
	case tcb.Ready:
		s.ready[h.Priority].Remove(&h.Node)
	}
	h.State = tcb.Exited
	if h.StackOwned {
		h.Stack = nil
	}
	delete(s.handles, h)
	s.metrics.RecordTaskDestroyed()
	s.logger.Debugf("SCHED", "task %q destroyed", h.Name)
	s.irq.UnmaskIRQ()
}

// killOverflowed implements spec.md §5's stack-protection check: fatal to
// the offending task only, never to the kernel. Must be called with s.mu
// held, with outgoing still set as s.active. The sim backend never moves
// a task's SavedSP itself (there is no real stack pointer to track), so
// in practice this fires only when a test sets SavedSP directly; a real
// arch.cortexm backend would update it on every PendSV entry.
func (s *Scheduler) killOverflowed(outgoing *tcb.TCB) {
	s.active = nil
	outgoing.State = tcb.Exited
	s.exitedReap.Append(outgoing, &outgoing.Node)
	delete(s.handles, outgoing)
	s.metrics.RecordOverflow()
	s.logger.Warnf("SCHED", "task %q killed: stack overflow detected at context switch", outgoing.Name)
}

// Yield implements spec.md §4.2's task_yield.
func (s *Scheduler) Yield() {
	s.irq.MaskIRQ()
	t := s.active
	if t == nil {
		s.irq.UnmaskIRQ()
		return
	}
	t.State = tcb.Ready
	s.doSwitch(t)
	s.irq.UnmaskIRQ()
}

// Delay implements spec.md §4.2's task_delay: a zero delay, or no active
// task, is a no-op.
func (s *Scheduler) Delay(ms int) {
	s.irq.MaskIRQ()
	t := s.active
	if ms <= 0 || t == nil {
		s.irq.UnmaskIRQ()
		return
	}
	t.State = tcb.Delayed
	t.SetRemainingTicks(ms)
	s.doSwitch(t)
	s.irq.UnmaskIRQ()
}

// ActiveTask returns the currently active task, or nil before Start.
func (s *Scheduler) ActiveTask() *tcb.TCB {
	s.irq.MaskIRQ()
	defer s.irq.UnmaskIRQ()
	return s.active
}

// BlockActiveTask blocks the active task with the given reason, matching
// the block step used by internal/sem's Pend algorithm.
func (s *Scheduler) BlockActiveTask(reason tcb.BlockReason) {
	s.irq.MaskIRQ()
	t := s.active
	if t == nil {
		s.irq.UnmaskIRQ()
		return
	}
	t.State = tcb.Blocked
	t.SetBlockReason(reason)
	s.doSwitch(t)
	s.irq.UnmaskIRQ()
}

// UnblockTask moves h from the blocked list to the tail of its priority's
// ready queue, matching unblock_task. A stale call (h is not Blocked with
// the given reason) is ignored.
func (s *Scheduler) UnblockTask(h *tcb.TCB, reason tcb.BlockReason) {
	s.irq.MaskIRQ()
	defer s.irq.UnmaskIRQ()
	if h.State != tcb.Blocked || h.BlockReason() != reason {
		return
	}
	s.blocked.Remove(&h.Node)
	h.State = tcb.Ready
	h.SetBlockReason(tcb.ReasonNone)
	s.ready[h.Priority].Append(h, &h.Node)
	s.maybeRequestPreempt(h)
}

// UnblockDelayedTask cancels h's delay early and moves it to the tail of
// its priority's ready queue, matching unblock_delayed_task.
func (s *Scheduler) UnblockDelayedTask(h *tcb.TCB) {
	s.irq.MaskIRQ()
	defer s.irq.UnmaskIRQ()
	if h.State != tcb.Delayed {
		return
	}
	s.delayed.Remove(&h.Node)
	h.State = tcb.Ready
	h.SetBlockReason(tcb.ReasonNone)
	s.ready[h.Priority].Append(h, &h.Node)
	s.maybeRequestPreempt(h)
}

// maybeRequestPreempt must be called with s.mu held. It records that a
// pending switch should happen at the active task's next suspension
// point, when preemption is enabled and newlyReady outranks it.
func (s *Scheduler) maybeRequestPreempt(newlyReady *tcb.TCB) {
	if s.preemption != config.PreemptionEnabled {
		return
	}
	if s.active != nil && newlyReady.Priority > s.active.Priority {
		s.switchPending.Store(true)
		s.metrics.RecordPreemption()
	}
}

// CheckPreempt lets a task voluntarily honor a pending preemption request
// at a safe point of its own choosing. Go provides no supported way to
// forcibly suspend another goroutine at an arbitrary instruction the way
// a hardware timer interrupt stops a CPU mid-instruction, so a task body
// that runs a tight loop without calling Yield/Delay/Pend must call this
// periodically to remain preemptible.
func (s *Scheduler) CheckPreempt() {
	if !s.switchPending.Load() {
		return
	}
	s.irq.MaskIRQ()
	t := s.active
	if t == nil || !s.switchPending.Load() {
		s.irq.UnmaskIRQ()
		return
	}
	t.State = tcb.Ready
	s.doSwitch(t)
	s.irq.UnmaskIRQ()
}

// Tick implements spec.md §4.6's three-step tick handler.
func (s *Scheduler) Tick() {
	s.irq.MaskIRQ()
	defer s.irq.UnmaskIRQ()
	s.metrics.RecordTick()

	// Step 1 & 2: decrement every delayed task, release expired ones.
	var expired []*tcb.TCB
	s.delayed.Iterate(func(t *tcb.TCB) list.Decision {
		if t.DecrementTick() {
			expired = append(expired, t)
		}
		return list.Continue
	})
	for _, t := range expired {
		s.delayed.Remove(&t.Node)
		t.State = tcb.Ready
		t.SetBlockReason(tcb.ReasonNone)
		s.ready[t.Priority].Append(t, &t.Node)
		// Step 3: request a switch if this newly-ready task outranks the
		// active one and preemption is enabled.
		s.maybeRequestPreempt(t)
	}
}

// selectActiveTask implements spec.md §4.4's five-step algorithm. Must be
// called with s.mu held. The previously active task, if any, is
// dispatched to the list matching whatever state its caller already set
// (Blocked/Delayed/otherwise-Ready); callers that clear s.active
// themselves first (task self-destroy) skip this dispatch entirely,
// matching "if an ACTIVE task was pre-empted (not null)".
//
// The source's step 5 micro-optimization ("if only idle is ready and
// already active, leave it") is folded into the plain descending scan:
// since idle is the sole occupant of ready[0] whenever nothing else is
// runnable, scanning down to and including priority 0 produces the same
// externally observable task as the short-circuit, without a special
// case — Go gains nothing from avoiding the redundant pointer write the
// way the original avoids a redundant memory access.
func (s *Scheduler) selectActiveTask() *tcb.TCB {
	if prev := s.active; prev != nil {
		switch prev.State {
		case tcb.Blocked:
			s.blocked.Append(prev, &prev.Node)
		case tcb.Delayed:
			s.delayed.Append(prev, &prev.Node)
		default:
			s.ready[prev.Priority].Append(prev, &prev.Node)
		}
	}
	for p := config.PriorityCount - 1; p >= 0; p-- {
		head := s.ready[p].HeadNode()
		if head == nil {
			continue
		}
		next := head.Elem()
		s.ready[p].Remove(head)
		next.State = tcb.Active
		s.active = next
		return next
	}
	s.active = nil
	return nil
}

// doSwitch must be called with s.mu held; it returns with s.mu held.
// outgoing is nil when there is no caller goroutine to park (the very
// first dispatch from Start, or a self-destroying task that is about to
// call runtime.Goexit instead of continuing).
func (s *Scheduler) doSwitch(outgoing *tcb.TCB) {
	killed := false
	if outgoing != nil && outgoing.Overflowed(outgoing.SavedSP) {
		s.killOverflowed(outgoing)
		outgoing = nil
		killed = true
	}

	start := time.Now()
	next := s.selectActiveTask()
	s.switchPending.Store(false)

	var outHandle, nextHandle arch.TaskHandle
	if outgoing != nil {
		outHandle = s.handles[outgoing]
	}
	if next != nil {
		nextHandle = s.handles[next]
	}
	s.irq.TriggerSwitch()
	s.switcher.Switch(outHandle, nextHandle)
	s.metrics.RecordContextSwitch(uint64(time.Since(start).Nanoseconds()))

	if killed {
		// The calling goroutine's own task was just destroyed for a stack
		// overflow; it never regains control, matching the kernel
		// continuing to run everything else while only the offending task
		// dies (spec.md §7's "fatal for the offending task").
		s.irq.UnmaskIRQ()
		runtime.Goexit()
	}

	if outHandle == nil {
		return
	}
	s.irq.UnmaskIRQ()
	outHandle.Suspend()
	s.irq.MaskIRQ()
}

// Start dispatches the first task (the highest-priority task registered,
// typically idle plus whatever was created before Start), matching the
// source's rtos_start / SVC start handler. It returns once the first
// task's goroutine has been released to run; the caller (Kernel.Start) is
// expected to drive the system tick from here on and never return on
// success, matching spec.md §4.5's "invoked once, from rtos_start".
func (s *Scheduler) Start() error {
	s.irq.MaskIRQ()
	next := s.selectActiveTask()
	if next == nil {
		s.irq.UnmaskIRQ()
		return &ErrScheduler{Msg: "sched: no tasks registered"}
	}
	handle := s.handles[next]
	s.irq.UnmaskIRQ()

	s.irq.TriggerStart()
	s.switcher.Start(handle)
	s.logger.Infof("SCHED", "started, first task %q", next.Name)
	return nil
}

// Interrupts exposes the scheduler's InterruptController so Kernel.Start
// can enable/disable the vectors it owns (the system tick) without the
// scheduler needing to know anything about Kernel's tick loop.
func (s *Scheduler) Interrupts() arch.InterruptController { return s.irq }

// idleLoop is the idle task's body: reap exited tasks, flush the log,
// wait for an interrupt, then yield. It never exits, per spec.md §4.4.
func (s *Scheduler) idleLoop(_ any) {
	for {
		s.reapExited()
		_ = s.logger.Sync()
		arch.WaitForInterrupt()
		s.Yield()
	}
}

func (s *Scheduler) reapExited() {
	s.irq.MaskIRQ()
	var dead []*tcb.TCB
	s.exitedReap.Iterate(func(t *tcb.TCB) list.Decision {
		dead = append(dead, t)
		return list.Continue
	})
	for _, t := range dead {
		s.exitedReap.Remove(&t.Node)
		delete(s.handles, t)
	}
	s.irq.UnmaskIRQ()
}

// Metrics exposes the scheduler's operational counters.
func (s *Scheduler) Metrics() *metrics.Metrics { return s.metrics }
