package bmos

import "github.com/danieldegrasse/bmos-go/internal/metrics"

// MetricsSnapshot is a point-in-time, race-free copy of the kernel's
// operational counters.
type MetricsSnapshot = metrics.Snapshot

// Observer allows pluggable collection of kernel events, in addition to
// the built-in counters a Kernel always records for itself.
type Observer interface {
	ObserveContextSwitch(latencyNs uint64)
	ObservePreemption()
	ObserveTaskCreated()
	ObserveTaskDestroyed()
	ObserveTaskOverflowed()
	ObserveTick()
	ObserveSemaphorePend()
	ObserveSemaphorePost()
	ObserveSemaphoreTimeout()
}

// NoOpObserver discards every event. It is the Observer a Kernel uses
// when none is supplied.
type NoOpObserver struct{}

func (NoOpObserver) ObserveContextSwitch(uint64) {}
func (NoOpObserver) ObservePreemption()          {}
func (NoOpObserver) ObserveTaskCreated()         {}
func (NoOpObserver) ObserveTaskDestroyed()       {}
func (NoOpObserver) ObserveTaskOverflowed()      {}
func (NoOpObserver) ObserveTick()                {}
func (NoOpObserver) ObserveSemaphorePend()       {}
func (NoOpObserver) ObserveSemaphorePost()       {}
func (NoOpObserver) ObserveSemaphoreTimeout()    {}

// MetricsObserver forwards events to an internal/metrics.Metrics
// instance. A Kernel does not install it by default (it uses
// NoOpObserver); a caller passes one as KernelConfig.Observer to record
// semaphore events into a Metrics instance.
type MetricsObserver struct {
	metrics *metrics.Metrics
}

// NewMetricsObserver creates an Observer that records to m.
func NewMetricsObserver(m *metrics.Metrics) *MetricsObserver {
	return &MetricsObserver{metrics: m}
}

func (o *MetricsObserver) ObserveContextSwitch(latencyNs uint64) {
	o.metrics.RecordContextSwitch(latencyNs)
}
func (o *MetricsObserver) ObservePreemption()       { o.metrics.RecordPreemption() }
func (o *MetricsObserver) ObserveTaskCreated()      { o.metrics.RecordTaskCreated() }
func (o *MetricsObserver) ObserveTaskDestroyed()    { o.metrics.RecordTaskDestroyed() }
func (o *MetricsObserver) ObserveTaskOverflowed()   { o.metrics.RecordOverflow() }
func (o *MetricsObserver) ObserveTick()             { o.metrics.RecordTick() }
func (o *MetricsObserver) ObserveSemaphorePend()    { o.metrics.RecordSemaphorePend() }
func (o *MetricsObserver) ObserveSemaphorePost()    { o.metrics.RecordSemaphorePost() }
func (o *MetricsObserver) ObserveSemaphoreTimeout() { o.metrics.RecordSemaphoreTimeout() }

// Compile-time interface checks.
var (
	_ Observer = (*MetricsObserver)(nil)
	_ Observer = NoOpObserver{}
)
