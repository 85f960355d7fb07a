// +build integration

// Package integration drives full Kernels against a real wall-clock
// tick timer (production's realTicker, not test MockClock) and real
// driver I/O (drivers/uart), the way the unit suite's simulated time
// deliberately does not. These tests are slower and timing-sensitive,
// hence the separate build tag.
package integration

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bmos "github.com/danieldegrasse/bmos-go"
	"github.com/danieldegrasse/bmos-go/drivers/uart"
)

// TestIntegrationPriorityPreemption exercises scenario S2 end-to-end
// against the real system tick: a low-priority task spins on
// CheckPreempt while a high-priority task delays itself twice,
// recording the time of its first wake. With preemption enabled that
// first wake must come well within a handful of ticks of the 50ms delay
// expiring.
func TestIntegrationPriorityPreemption(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping real-tick preemption timing test in short mode")
	}

	k, err := bmos.New(&bmos.KernelConfig{Preemption: bmos.PreemptionEnabled})
	require.NoError(t, err)

	firstH := make(chan time.Time, 1)
	done := make(chan struct{})

	low := func(any) {
		for {
			k.CheckPreempt()
			select {
			case <-done:
				return
			default:
			}
		}
	}
	high := func(any) {
		k.TaskDelay(50)
		select {
		case firstH <- time.Now():
		default:
		}
		k.TaskDelay(50)
		close(done)
	}

	start := time.Now()
	_, err = k.TaskCreate(low, nil, &bmos.TaskConfig{Priority: 3, Name: "low"})
	require.NoError(t, err)
	_, err = k.TaskCreate(high, nil, &bmos.TaskConfig{Priority: 5, Name: "high"})
	require.NoError(t, err)

	go k.Start()
	defer k.Stop()

	select {
	case at := <-firstH:
		elapsed := at.Sub(start)
		assert.True(t, elapsed >= 40*time.Millisecond && elapsed <= 150*time.Millisecond,
			"first H arrived at %v, want near 50ms", elapsed)
	case <-time.After(2 * time.Second):
		t.Fatal("high-priority task never ran")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("high-priority task never completed its second delay")
	}
}

// TestIntegrationPreemptionDisabledNeverRuns mirrors S2's negative
// case: with preemption disabled, the high-priority task's delay
// release never interrupts the low-priority busy loop, so it must not
// run until the low-priority task voluntarily yields.
func TestIntegrationPreemptionDisabledNeverRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping real-tick preemption timing test in short mode")
	}

	k, err := bmos.New(&bmos.KernelConfig{Preemption: bmos.PreemptionDisabled})
	require.NoError(t, err)

	highRan := make(chan struct{})
	stopLow := make(chan struct{})
	lowYielded := make(chan struct{})

	low := func(any) {
		for i := 0; i < 1000; i++ {
			k.CheckPreempt()
			select {
			case <-stopLow:
				close(lowYielded)
				return
			default:
			}
			time.Sleep(time.Millisecond)
		}
		close(lowYielded)
	}
	high := func(any) {
		k.TaskDelay(50)
		close(highRan)
	}

	_, err = k.TaskCreate(low, nil, &bmos.TaskConfig{Priority: 3, Name: "low"})
	require.NoError(t, err)
	_, err = k.TaskCreate(high, nil, &bmos.TaskConfig{Priority: 5, Name: "high"})
	require.NoError(t, err)

	go k.Start()
	defer k.Stop()

	select {
	case <-highRan:
		t.Fatal("high-priority task ran before the low-priority task yielded, preemption should be disabled")
	case <-time.After(100 * time.Millisecond):
	}

	close(stopLow)
	<-lowYielded

	select {
	case <-highRan:
	case <-time.After(2 * time.Second):
		t.Fatal("high-priority task never ran after low-priority task yielded")
	}
}

// TestIntegrationUARTSemaphoreHandshake exercises scenario S4 against
// real loopback UART I/O and a real tick-driven Kernel: a producer
// posts on a fixed cadence and a consumer must observe exactly one
// wakeup per post.
func TestIntegrationUARTSemaphoreHandshake(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping real-tick UART handshake test in short mode")
	}

	a, b, err := uart.Pair()
	require.NoError(t, err)
	defer a.Close()
	defer b.Close()

	k, err := bmos.New(nil)
	require.NoError(t, err)

	sem, err := k.SemaphoreCreateBinary()
	require.NoError(t, err)

	const posts = 5
	wakeups := make(chan string, posts)

	producer := func(any) {
		for i := 0; i < posts; i++ {
			k.TaskDelay(100)
			assert.NoError(t, a.WriteString("tick\n"))
			sem.Post()
		}
	}
	consumer := func(any) {
		for i := 0; i < posts; i++ {
			if err := sem.Pend(bmos.TimeoutInfinite); err != nil {
				return
			}
			line, err := b.ReadLine()
			if err != nil {
				return
			}
			wakeups <- strings.TrimSuffix(line, "\n")
		}
	}

	_, err = k.TaskCreate(consumer, nil, &bmos.TaskConfig{Priority: 5, Name: "consumer"})
	require.NoError(t, err)
	_, err = k.TaskCreate(producer, nil, &bmos.TaskConfig{Priority: 4, Name: "producer"})
	require.NoError(t, err)

	go k.Start()
	defer k.Stop()

	for i := 0; i < posts; i++ {
		select {
		case line := <-wakeups:
			assert.Equal(t, "tick", line)
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d of %d wakeups observed", i, posts)
		}
	}
	assert.EqualValues(t, 0, sem.Value())
}

// TestIntegrationMetricsTrackRealTickLoop exercises the Kernel's
// observability surface against the production tick source: over a
// short real-time window the metrics snapshot must show at least as
// many ticks as the systick frequency implies.
func TestIntegrationMetricsTrackRealTickLoop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping real-tick metrics test in short mode")
	}

	k, err := bmos.New(nil)
	require.NoError(t, err)

	go k.Start()
	defer k.Stop()

	time.Sleep(200 * time.Millisecond)

	snap := k.Metrics()
	assert.True(t, snap.TicksProcessed >= 100, "TicksProcessed = %d, want >= 100 after 200ms at 1kHz", snap.TicksProcessed)
}
