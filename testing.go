package bmos

import "time"

// MockClock is a TickSource a test drives explicitly via Tick, instead
// of waiting on real SystickFreq wall-clock ticks — the host stand-in
// for stepping the hardware SysTick peripheral by hand.
type MockClock struct {
	ch chan time.Time
}

// NewMockClock creates a MockClock with no ticks pending.
func NewMockClock() *MockClock {
	return &MockClock{ch: make(chan time.Time, 1)}
}

func (m *MockClock) C() <-chan time.Time { return m.ch }
func (m *MockClock) Stop()               {}

// Tick delivers one synthetic tick to a Kernel's Start loop.
func (m *MockClock) Tick() { m.ch <- time.Now() }

// NewTestKernel creates a Kernel wired for deterministic tests: the
// host-runnable simulated switcher, preemption enabled, and a MockClock
// the caller drives explicitly rather than a real ticker. Returns the
// Kernel and the clock used to step it.
func NewTestKernel() (*Kernel, *MockClock, error) {
	clock := NewMockClock()
	k, err := New(&KernelConfig{
		Preemption: PreemptionEnabled,
		TickSource: clock,
	})
	if err != nil {
		return nil, nil, err
	}
	return k, clock, nil
}
