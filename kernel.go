package bmos

import (
	"os"
	"time"

	"github.com/danieldegrasse/bmos-go/drivers/clock"
	"github.com/danieldegrasse/bmos-go/internal/arch"
	"github.com/danieldegrasse/bmos-go/internal/config"
	"github.com/danieldegrasse/bmos-go/internal/logging"
	"github.com/danieldegrasse/bmos-go/internal/metrics"
	"github.com/danieldegrasse/bmos-go/internal/sched"
	"github.com/danieldegrasse/bmos-go/internal/sem"
	"github.com/danieldegrasse/bmos-go/internal/tcb"
)

// defaultSystickDivider is the SysTick clock-source divider: 1 means the
// timer is clocked directly from HCLK, the common STM32L4xx configuration
// when the SysTick control register's CLKSOURCE bit selects the core
// clock rather than HCLK/8.
const defaultSystickDivider = 1

// TaskHandle is the opaque handle TaskCreate returns and the other task
// operations accept, matching spec.md §4.2's TCB-pointer handle.
type TaskHandle = *tcb.TCB

// BlockReason records why a task is blocked.
type BlockReason = tcb.BlockReason

const (
	ReasonNone      = tcb.ReasonNone
	ReasonSemaphore = tcb.ReasonSemaphore
)

// TaskConfig configures a created task.
type TaskConfig = sched.TaskConfig

// KernelConfig configures a Kernel. The zero value is a usable default:
// a host-runnable simulated switcher, the real Go allocator, preemption
// disabled (the zero value of Preemption), and the package default logger.
type KernelConfig struct {
	// Switcher selects the context-switch backend; defaults to the
	// host-runnable simulation (arch.NewSimSwitcher()).
	Switcher arch.Switcher

	// Allocator is the memory seam task/stack creation goes through;
	// defaults to config.RuntimeAllocator{}.
	Allocator config.Allocator

	// Preemption selects whether the tick handler and unblock paths may
	// request preemption of a lower-priority active task.
	Preemption Preemption

	// Logger receives kernel log lines; defaults to logging.Default().
	Logger *logging.Logger

	// Observer, if set, additionally receives task creation through
	// TaskCreate, destruction of another task through TaskDestroy, tick
	// processing, and semaphore pend/post/timeout events. Context-switch,
	// preemption and overflow events are recorded only in the kernel's
	// own counters. Defaults to NoOpObserver{}.
	Observer Observer

	// ExitFunc is called by Panic for an irrecoverable kernel
	// condition; defaults to os.Exit. Tests override it to observe the
	// panic code without killing the test binary.
	ExitFunc func(code int)

	// TickSource drives Start's system-tick loop; defaults to a real
	// time.Ticker at config.SystickFreq Hz. Tests supply a MockClock
	// instead, so a scenario can drive exactly N ticks without racing
	// wall-clock sleeps.
	TickSource TickSource

	// Clock reports the core clock frequency Start uses to compute the
	// SysTick reload value; defaults to clock.NewFixed(0) (72MHz).
	Clock clock.Clock

	// SystickDivider is the SysTick clock-source divider used in the
	// reload-value formula; defaults to defaultSystickDivider.
	SystickDivider uint32
}

// TickSource abstracts the system tick timer, standing in for the
// hardware SysTick peripheral so tests can drive ticks deterministically
// instead of sleeping past wall-clock boundaries.
type TickSource interface {
	C() <-chan time.Time
	Stop()
}

type realTicker struct{ t *time.Ticker }

func newRealTicker(d time.Duration) *realTicker { return &realTicker{t: time.NewTicker(d)} }
func (r *realTicker) C() <-chan time.Time       { return r.t.C }
func (r *realTicker) Stop()                     { r.t.Stop() }

// Kernel is the top-level handle on a running RTOS instance: one
// Scheduler, its Metrics, and the system tick driving them. Kernels share
// no state, so one process may hold several (cmd/demo's "all" scenario
// runs one per scenario).
type Kernel struct {
	sched    *sched.Scheduler
	metrics  *metrics.Metrics
	logger   *logging.Logger
	observer Observer
	exitFunc func(code int)

	clock          clock.Clock
	systickDivider uint32

	tickSource TickSource
	stop       chan struct{}
}

// New creates a Kernel and its idle task. cfg may be nil for all
// defaults, matching spec.md §4.2's rtos_init.
func New(cfg *KernelConfig) (*Kernel, error) {
	if cfg == nil {
		cfg = &KernelConfig{}
	}
	switcher := cfg.Switcher
	if switcher == nil {
		switcher = arch.NewSimSwitcher()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = NoOpObserver{}
	}
	exitFunc := cfg.ExitFunc
	if exitFunc == nil {
		exitFunc = os.Exit
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.NewFixed(0)
	}
	divider := cfg.SystickDivider
	if divider == 0 {
		divider = defaultSystickDivider
	}
	m := metrics.New()

	s, err := sched.New(switcher, cfg.Allocator, cfg.Preemption, m, logger)
	if err != nil {
		return nil, WrapError("KernelNew", codeFor(err), err)
	}

	return &Kernel{
		sched:          s,
		metrics:        m,
		logger:         logger,
		observer:       observer,
		exitFunc:       exitFunc,
		clock:          clk,
		systickDivider: divider,
		tickSource:     cfg.TickSource,
		stop:           make(chan struct{}),
	}, nil
}

// codeFor maps an internal/sched or internal/sem error type to the
// public Code it should surface as.
func codeFor(err error) Code {
	switch err.(type) {
	case *sched.ErrBadParam, *sem.ErrBadParam:
		return CodeBadParam
	case *sched.ErrNoMem:
		return CodeNoMem
	case *sched.ErrScheduler:
		return CodeScheduler
	case *sem.ErrTimeout:
		return CodeTimeout
	default:
		return CodeScheduler
	}
}

// TaskCreate implements spec.md §4.2's task_create.
func (k *Kernel) TaskCreate(entry func(arg any), arg any, cfg *TaskConfig) (TaskHandle, error) {
	t, err := k.sched.CreateTask(entry, arg, cfg)
	if err != nil {
		return nil, WrapError("TaskCreate", codeFor(err), err)
	}
	k.observer.ObserveTaskCreated()
	return t, nil
}

// TaskYield implements spec.md §4.2's task_yield.
func (k *Kernel) TaskYield() { k.sched.Yield() }

// TaskDelay implements spec.md §4.2's task_delay.
func (k *Kernel) TaskDelay(ms int) { k.sched.Delay(ms) }

// TaskDestroy implements spec.md §4.2's task_destroy. Destroying the
// active task does not return.
func (k *Kernel) TaskDestroy(h TaskHandle) {
	k.sched.DestroyTask(h)
	k.observer.ObserveTaskDestroyed()
}

// ActiveTask returns the currently active task, or nil before Start.
func (k *Kernel) ActiveTask() TaskHandle { return k.sched.ActiveTask() }

// BlockActiveTask blocks the active task with the given reason.
func (k *Kernel) BlockActiveTask(reason BlockReason) { k.sched.BlockActiveTask(reason) }

// UnblockTask moves h from blocked to ready, requesting preemption if it
// now outranks the active task and preemption is enabled.
func (k *Kernel) UnblockTask(h TaskHandle, reason BlockReason) { k.sched.UnblockTask(h, reason) }

// UnblockDelayedTask cancels h's delay early and moves it to ready.
func (k *Kernel) UnblockDelayedTask(h TaskHandle) { k.sched.UnblockDelayedTask(h) }

// CheckPreempt lets a busy-looping task honor a pending preemption
// request at a safe point of its own choosing; see DESIGN.md Open
// Question 7 for why this checkpoint exists at all.
func (k *Kernel) CheckPreempt() { k.sched.CheckPreempt() }

// Semaphore is a binary or counting semaphore created by a Kernel.
type Semaphore struct {
	inner    *sem.Semaphore
	observer Observer
}

// SemaphoreCreateBinary creates a binary semaphore starting unavailable.
func (k *Kernel) SemaphoreCreateBinary() (*Semaphore, error) {
	return &Semaphore{inner: sem.NewBinary(k.sched), observer: k.observer}, nil
}

// SemaphoreCreateCounting creates a counting semaphore starting at init.
func (k *Kernel) SemaphoreCreateCounting(init int32) (*Semaphore, error) {
	if init < 0 {
		return nil, NewError("SemaphoreCreateCounting", CodeBadParam, "initial value must be >= 0")
	}
	return &Semaphore{inner: sem.NewCounting(k.sched, init), observer: k.observer}, nil
}

// Pend acquires the semaphore, blocking the active task for up to
// timeout. TimeoutNone(0) returns immediately; TimeoutInfinite(-1) blocks
// until a matching Post.
func (s *Semaphore) Pend(timeout time.Duration) error {
	s.observer.ObserveSemaphorePend()
	if err := s.inner.Pend(timeout); err != nil {
		s.observer.ObserveSemaphoreTimeout()
		return WrapError("SemaphorePend", CodeTimeout, err)
	}
	return nil
}

// Post releases the semaphore, waking the longest-waiting task if any.
func (s *Semaphore) Post() {
	s.inner.Post()
	s.observer.ObserveSemaphorePost()
}

// Destroy releases the semaphore's resources. Fails if tasks are still
// waiting.
func (s *Semaphore) Destroy() error {
	if err := s.inner.Destroy(); err != nil {
		return WrapError("SemaphoreDestroy", CodeBadParam, err)
	}
	return nil
}

// Value reports the semaphore's current value; for tests and
// diagnostics only.
func (s *Semaphore) Value() int32 { return s.inner.Value() }

// Start dispatches the first task and blocks, driving the system tick at
// config.SystickFreq Hz, until Stop is called. The real target's
// rtos_start never returns at all; this host loop exits exactly once,
// for test and demo teardown, which the bare-metal source has no
// equivalent need for.
func (k *Kernel) Start() error {
	// vectors stands in for the linker-provided vector table: StartHandler
	// and TickHandler are the two entries Kernel actually fires (SVC once,
	// SysTick every tick); SwitchHandler is documentary only, the same
	// fidelity trade-off arch.Frame makes, since the simulated backend
	// performs a switch synchronously inside whichever goroutine requested
	// it rather than through a separately callable handler.
	vectors := arch.NewVectorTable(0, k.sched.Start, func() {}, k.sched.Tick)

	if err := vectors.StartHandler(); err != nil {
		return WrapError("Start", CodeScheduler, err)
	}
	reload := clock.ReloadValue(k.clock, k.systickDivider, config.SystickFreq)
	k.logger.Infof("KERNEL", "tick timer armed at %d Hz (reload=%d, hclk=%d Hz, divider=%d)",
		config.SystickFreq, reload, k.clock.HCLKFreq(), k.systickDivider)
	if k.tickSource == nil {
		k.tickSource = newRealTicker(time.Second / config.SystickFreq)
	}
	defer k.tickSource.Stop()
	k.sched.Interrupts().EnableIRQ(arch.IRQSysTick)
	for {
		select {
		case <-k.tickSource.C():
			vectors.TickHandler()
			k.observer.ObserveTick()
		case <-k.stop:
			return nil
		}
	}
}

// Stop halts the system tick and returns control to whatever called
// Start.
func (k *Kernel) Stop() {
	k.sched.Interrupts().DisableIRQ(arch.IRQSysTick)
	close(k.stop)
}

// Metrics returns a snapshot of the kernel's operational counters.
func (k *Kernel) Metrics() MetricsSnapshot { return k.metrics.Snapshot() }

// Panic logs code via LOG_E and then calls the configured exit hook
// (os.Exit by default), matching spec.md §7's policy for irrecoverable
// in-kernel conditions: a broken invariant, an OOM detected inside an
// interrupt context, or the idle loop returning.
func (k *Kernel) Panic(code Code) {
	k.logger.Errorf("KERNEL", "fatal: %s", code)
	k.exitFunc(1)
}
