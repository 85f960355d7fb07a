// Package metrics tracks scheduler and semaphore operational statistics,
// in the same atomic-counter-plus-latency-histogram style the teacher
// repo's I/O metrics used, repurposed here for context switches and
// semaphore waits instead of block I/O.
package metrics

import "sync/atomic"

// LatencyBuckets defines the context-switch/pend latency histogram
// buckets in nanoseconds, logarithmically spaced from 1us to 1s.
var LatencyBuckets = []uint64{
	1_000,
	10_000,
	100_000,
	1_000_000,
	10_000_000,
	100_000_000,
	1_000_000_000,
}

const numLatencyBuckets = 7

// Metrics tracks kernel-wide operational counters. All fields are safe
// for concurrent use; the scheduler's run loop and semaphore pend/post
// paths update them without taking the scheduler's own lock.
type Metrics struct {
	ContextSwitches atomic.Uint64
	Preemptions     atomic.Uint64
	TasksCreated    atomic.Uint64
	TasksDestroyed  atomic.Uint64
	TasksOverflowed atomic.Uint64
	TicksProcessed  atomic.Uint64

	SemaphorePends    atomic.Uint64
	SemaphorePosts    atomic.Uint64
	SemaphoreTimeouts atomic.Uint64

	ContextSwitchLatencyBuckets [numLatencyBuckets]atomic.Uint64
}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// RecordContextSwitch records a completed context switch and its latency.
func (m *Metrics) RecordContextSwitch(latencyNs uint64) {
	m.ContextSwitches.Add(1)
	for i, bound := range LatencyBuckets {
		if latencyNs <= bound {
			m.ContextSwitchLatencyBuckets[i].Add(1)
		}
	}
}

func (m *Metrics) RecordPreemption()     { m.Preemptions.Add(1) }
func (m *Metrics) RecordTaskCreated()    { m.TasksCreated.Add(1) }
func (m *Metrics) RecordTaskDestroyed()  { m.TasksDestroyed.Add(1) }
func (m *Metrics) RecordOverflow()       { m.TasksOverflowed.Add(1) }
func (m *Metrics) RecordTick()           { m.TicksProcessed.Add(1) }
func (m *Metrics) RecordSemaphorePend()  { m.SemaphorePends.Add(1) }
func (m *Metrics) RecordSemaphorePost()  { m.SemaphorePosts.Add(1) }
func (m *Metrics) RecordSemaphoreTimeout() { m.SemaphoreTimeouts.Add(1) }

// Snapshot is a point-in-time copy of the counters, safe to log or
// compare in tests without racing further updates.
type Snapshot struct {
	ContextSwitches   uint64
	Preemptions       uint64
	TasksCreated      uint64
	TasksDestroyed    uint64
	TasksOverflowed   uint64
	TicksProcessed    uint64
	SemaphorePends    uint64
	SemaphorePosts    uint64
	SemaphoreTimeouts uint64
}

func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		ContextSwitches:   m.ContextSwitches.Load(),
		Preemptions:       m.Preemptions.Load(),
		TasksCreated:      m.TasksCreated.Load(),
		TasksDestroyed:    m.TasksDestroyed.Load(),
		TasksOverflowed:   m.TasksOverflowed.Load(),
		TicksProcessed:    m.TicksProcessed.Load(),
		SemaphorePends:    m.SemaphorePends.Load(),
		SemaphorePosts:    m.SemaphorePosts.Load(),
		SemaphoreTimeouts: m.SemaphoreTimeouts.Load(),
	}
}
