package sem

import (
	"sync"
	"testing"
	"time"

	"github.com/danieldegrasse/bmos-go/internal/config"
	"github.com/danieldegrasse/bmos-go/internal/tcb"
)

// fakeSched is a minimal Scheduler double driven directly by the test, so
// internal/sem can be exercised without internal/sched existing yet.
type fakeSched struct {
	mu     sync.Mutex
	active *tcb.TCB

	blocked  map[*tcb.TCB]chan struct{}
	delayed  map[*tcb.TCB]chan struct{}
	delayMs  []int
}

func newFakeSched(active *tcb.TCB) *fakeSched {
	return &fakeSched{
		active:  active,
		blocked: make(map[*tcb.TCB]chan struct{}),
		delayed: make(map[*tcb.TCB]chan struct{}),
	}
}

func (f *fakeSched) ActiveTask() *tcb.TCB { return f.active }

func (f *fakeSched) BlockActiveTask(reason tcb.BlockReason) {
	f.mu.Lock()
	ch := make(chan struct{})
	f.blocked[f.active] = ch
	f.mu.Unlock()
	<-ch
}

func (f *fakeSched) Delay(ms int) {
	f.mu.Lock()
	f.delayMs = append(f.delayMs, ms)
	if ms == 0 {
		f.mu.Unlock()
		return
	}
	ch := make(chan struct{})
	f.delayed[f.active] = ch
	f.mu.Unlock()

	if ms < 0 {
		<-ch
		return
	}
	select {
	case <-ch:
	case <-time.After(time.Duration(ms) * time.Millisecond):
	}
}

func (f *fakeSched) UnblockTask(h *tcb.TCB, reason tcb.BlockReason) {
	f.mu.Lock()
	ch, ok := f.blocked[h]
	if ok {
		delete(f.blocked, h)
	}
	f.mu.Unlock()
	if ok {
		close(ch)
	}
}

func (f *fakeSched) UnblockDelayedTask(h *tcb.TCB) {
	f.mu.Lock()
	ch, ok := f.delayed[h]
	if ok {
		delete(f.delayed, h)
	}
	f.mu.Unlock()
	if ok {
		close(ch)
	}
}

func TestBinarySemaphorePostNoopWhenAvailable(t *testing.T) {
	sched := newFakeSched(&tcb.TCB{Name: "t1"})
	s := NewBinary(sched)

	s.Post()
	s.Post() // second post while value==1 must be a no-op

	if got := s.Value(); got != 1 {
		t.Fatalf("Value() = %d, want 1", got)
	}
	if err := s.Pend(config.TimeoutNone); err != nil {
		t.Fatalf("Pend() on available binary sem: %v", err)
	}
	if got := s.Value(); got != 0 {
		t.Fatalf("Value() after pend = %d, want 0", got)
	}
}

func TestCountingSemaphoreFastPath(t *testing.T) {
	sched := newFakeSched(&tcb.TCB{Name: "t1"})
	s := NewCounting(sched, 2)

	if err := s.Pend(config.TimeoutNone); err != nil {
		t.Fatalf("Pend() #1: %v", err)
	}
	if err := s.Pend(config.TimeoutNone); err != nil {
		t.Fatalf("Pend() #2: %v", err)
	}
	if got := s.Value(); got != 0 {
		t.Fatalf("Value() = %d, want 0", got)
	}
}

func TestPendTimeoutNoneReturnsImmediatelyWhenEmpty(t *testing.T) {
	sched := newFakeSched(&tcb.TCB{Name: "t1"})
	s := NewCounting(sched, 0)

	err := s.Pend(config.TimeoutNone)
	if _, ok := err.(*ErrTimeout); !ok {
		t.Fatalf("Pend(TimeoutNone) on empty sem = %v, want ErrTimeout", err)
	}
	if !s.waiting.Empty() {
		t.Fatal("waiting list should be empty after the timed-out pend returns")
	}
}

func TestPendFiniteTimeoutExpires(t *testing.T) {
	sched := newFakeSched(&tcb.TCB{Name: "t1"})
	s := NewCounting(sched, 0)

	start := time.Now()
	err := s.Pend(20 * time.Millisecond)
	if _, ok := err.(*ErrTimeout); !ok {
		t.Fatalf("Pend() = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Fatalf("Pend() returned too early: %v", elapsed)
	}
}

func TestPendWokenByPostBeforeTimeout(t *testing.T) {
	waiter := &tcb.TCB{Name: "waiter"}
	sched := newFakeSched(waiter)
	s := NewCounting(sched, 0)

	done := make(chan error, 1)
	go func() {
		done <- s.Pend(500 * time.Millisecond)
	}()

	// Give the pending goroutine time to register its waiter, then post.
	time.Sleep(20 * time.Millisecond)
	s.Post()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Pend() = %v, want nil (woken by post)", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Pend() did not return after Post()")
	}
}

func TestPendInfiniteBlocksUntilPost(t *testing.T) {
	waiter := &tcb.TCB{Name: "waiter"}
	sched := newFakeSched(waiter)
	s := NewCounting(sched, 0)

	done := make(chan error, 1)
	go func() {
		done <- s.Pend(config.TimeoutInfinite)
	}()

	select {
	case <-done:
		t.Fatal("Pend() returned before Post()")
	case <-time.After(30 * time.Millisecond):
	}

	s.Post()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Pend() = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Pend() did not return after Post()")
	}
}

func TestDestroyFailsWithWaitersPresent(t *testing.T) {
	waiter := &tcb.TCB{Name: "waiter"}
	sched := newFakeSched(waiter)
	s := NewCounting(sched, 0)

	started := make(chan struct{})
	go func() {
		close(started)
		_ = s.Pend(config.TimeoutInfinite)
	}()
	<-started
	time.Sleep(20 * time.Millisecond)

	err := s.Destroy()
	if _, ok := err.(*ErrBadParam); !ok {
		t.Fatalf("Destroy() = %v, want ErrBadParam", err)
	}

	s.Post() // unblock the leaked goroutine so the test doesn't leave it running
}
