// Package sem implements binary and counting semaphores per spec.md
// §4.7: an atomic lock over a small critical section, a FIFO waiting
// list, and pend/post/destroy built on top of the scheduler's block/wake
// and delay primitives.
package sem

import (
	"time"

	"github.com/danieldegrasse/bmos-go/internal/arch"
	"github.com/danieldegrasse/bmos-go/internal/list"
	"github.com/danieldegrasse/bmos-go/internal/tcb"
)

// Scheduler is the subset of scheduler operations a semaphore needs to
// block and wake tasks. internal/sem depends only on this interface, not
// on internal/sched directly, so the two packages don't form an import
// cycle — the root package wires the concrete *sched.Scheduler in.
type Scheduler interface {
	ActiveTask() *tcb.TCB
	BlockActiveTask(reason tcb.BlockReason)
	Delay(ms int)
	UnblockTask(h *tcb.TCB, reason tcb.BlockReason)
	UnblockDelayedTask(h *tcb.TCB)
}

// Kind distinguishes binary from counting semaphores.
type Kind int

const (
	Counting Kind = iota
	Binary
)

// waiter is one entry in a semaphore's FIFO waiting list: the blocked
// task plus the timeout it pended with.
type waiter struct {
	task    *tcb.TCB
	timeout time.Duration
	node    list.Node[*waiter]
}

// Semaphore is a binary or counting semaphore.
type Semaphore struct {
	lock  arch.Lock
	value int32
	kind  Kind

	waiting list.List[*waiter]

	sched Scheduler

	// freelist avoids allocating a waiter on every pend in the common
	// (uncontended) path; only consulted while the lock is held.
	free []*waiter
}

// ErrBadParam is returned by Destroy when waiters remain.
type ErrBadParam struct{ Msg string }

func (e *ErrBadParam) Error() string { return e.Msg }

// ErrTimeout is returned by Pend when a finite timeout expires.
type ErrTimeout struct{}

func (*ErrTimeout) Error() string { return "semaphore: pend timed out" }

// NewCounting creates a counting semaphore starting at start.
func NewCounting(sched Scheduler, start int32) *Semaphore {
	return &Semaphore{kind: Counting, value: start, sched: sched}
}

// NewBinary creates a binary semaphore starting unavailable (value 0).
func NewBinary(sched Scheduler) *Semaphore {
	return &Semaphore{kind: Binary, value: 0, sched: sched}
}

func (s *Semaphore) allocWaiter() *waiter {
	if n := len(s.free); n > 0 {
		w := s.free[n-1]
		s.free = s.free[:n-1]
		*w = waiter{}
		return w
	}
	return &waiter{}
}

func (s *Semaphore) releaseWaiter(w *waiter) {
	s.free = append(s.free, w)
}

// Pend acquires the semaphore, blocking the active task for up to
// timeout. config.TimeoutNone returns immediately; config.TimeoutInfinite
// (or any negative duration) blocks until a matching Post.
func (s *Semaphore) Pend(timeout time.Duration) error {
	s.lock.Acquire()
	if s.value > 0 {
		s.value--
		s.lock.Release()
		return nil
	}

	active := s.sched.ActiveTask()
	w := s.allocWaiter()
	w.task = active
	w.timeout = timeout
	s.waiting.Append(w, &w.node)
	s.lock.Release()

	// config.TimeoutNone takes this same path: Delay(0) is specified as a
	// no-op, so the task never actually blocks and falls straight through
	// to the timeout check below.
	infinite := timeout < 0
	timedOut := false
	if infinite {
		for {
			s.sched.BlockActiveTask(tcb.ReasonSemaphore)
			s.lock.Acquire()
			if s.value > 0 {
				s.value--
				break
			}
			s.lock.Release()
		}
	} else {
		s.sched.Delay(int(timeout / time.Millisecond))
		s.lock.Acquire()
		if s.value > 0 {
			s.value--
		} else {
			timedOut = true
		}
	}

	s.waiting.Remove(&w.node)
	s.releaseWaiter(w)
	s.lock.Release()

	if timedOut {
		return &ErrTimeout{}
	}
	return nil
}

// Post releases the semaphore, waking the longest-waiting task if any.
// A post on an available (value==1) binary semaphore is a no-op.
func (s *Semaphore) Post() {
	s.lock.Acquire()
	if s.kind == Binary && s.value == 1 {
		s.lock.Release()
		return
	}
	s.value++

	head, ok := s.waiting.Head()
	s.lock.Release()
	if !ok {
		return
	}

	if head.timeout < 0 {
		s.sched.UnblockTask(head.task, tcb.ReasonSemaphore)
	} else {
		s.sched.UnblockDelayedTask(head.task)
	}
}

// Destroy releases the semaphore's resources. Fails with ErrBadParam if
// tasks are still waiting.
func (s *Semaphore) Destroy() error {
	s.lock.Acquire()
	defer s.lock.Release()
	if !s.waiting.Empty() {
		return &ErrBadParam{Msg: "semaphore: destroy with waiters present"}
	}
	return nil
}

// Value returns the current value, for tests and diagnostics. Takes the
// lock, so callers must not hold it.
func (s *Semaphore) Value() int32 {
	s.lock.Acquire()
	defer s.lock.Release()
	return s.value
}
