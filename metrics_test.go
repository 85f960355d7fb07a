package bmos

import (
	"testing"

	"github.com/danieldegrasse/bmos-go/internal/metrics"
)

func TestMetricsObserverForwardsToUnderlyingMetrics(t *testing.T) {
	m := metrics.New()
	o := NewMetricsObserver(m)

	o.ObserveSemaphorePend()
	o.ObserveSemaphorePost()
	o.ObserveSemaphoreTimeout()
	o.ObserveTick()

	snap := m.Snapshot()
	if snap.SemaphorePends != 1 || snap.SemaphorePosts != 1 || snap.SemaphoreTimeouts != 1 {
		t.Fatalf("unexpected snapshot after observer forwarding: %+v", snap)
	}
	if snap.TicksProcessed != 1 {
		t.Fatalf("TicksProcessed = %d, want 1", snap.TicksProcessed)
	}
}

func TestNoOpObserverDoesNothing(t *testing.T) {
	// NoOpObserver must satisfy Observer and never panic regardless of
	// call pattern; this is the default a Kernel uses when no Observer
	// is configured.
	var o Observer = NoOpObserver{}
	o.ObserveContextSwitch(123)
	o.ObservePreemption()
	o.ObserveTaskCreated()
	o.ObserveTaskDestroyed()
	o.ObserveTaskOverflowed()
	o.ObserveTick()
	o.ObserveSemaphorePend()
	o.ObserveSemaphorePost()
	o.ObserveSemaphoreTimeout()
}

func TestKernelSemaphoreObserverWiring(t *testing.T) {
	pends, posts, timeouts := 0, 0, 0
	spy := &spyObserver{
		pend:    func() { pends++ },
		post:    func() { posts++ },
		timeout: func() { timeouts++ },
	}

	k, err := New(&KernelConfig{Observer: spy})
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	s, err := k.SemaphoreCreateBinary()
	if err != nil {
		t.Fatalf("SemaphoreCreateBinary() = %v", err)
	}

	if err := s.Pend(TimeoutNone); err == nil {
		t.Fatal("Pend(TimeoutNone) on an empty binary semaphore should time out")
	}
	s.Post()

	if pends != 1 || posts != 1 || timeouts != 1 {
		t.Fatalf("pends=%d posts=%d timeouts=%d, want 1/1/1", pends, posts, timeouts)
	}
}

// spyObserver implements Observer, recording only the semaphore events
// TestKernelSemaphoreObserverWiring cares about.
type spyObserver struct {
	pend, post, timeout func()
}

func (spyObserver) ObserveContextSwitch(uint64) {}
func (spyObserver) ObservePreemption()          {}
func (spyObserver) ObserveTaskCreated()         {}
func (spyObserver) ObserveTaskDestroyed()       {}
func (spyObserver) ObserveTaskOverflowed()      {}
func (spyObserver) ObserveTick()                {}
func (o *spyObserver) ObserveSemaphorePend()    { o.pend() }
func (o *spyObserver) ObserveSemaphorePost()    { o.post() }
func (o *spyObserver) ObserveSemaphoreTimeout() { o.timeout() }
