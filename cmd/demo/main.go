// Command demo drives a Kernel through the scenarios spec.md §8
// describes as acceptance criteria: S1 (round-robin dispatch within a
// priority), S2 (priority preemption of a busy-looping low-priority
// task), and S4 (a semaphore handshake carrying real UART I/O) — plus a
// blinky task toggling a simulated GPIO pin, proving the scheduler runs
// an ordinary periodic task alongside the semaphore- and
// preemption-driven ones.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	bmos "github.com/danieldegrasse/bmos-go"
	"github.com/danieldegrasse/bmos-go/internal/logging"

	"github.com/danieldegrasse/bmos-go/drivers/gpio"
	"github.com/danieldegrasse/bmos-go/drivers/uart"
)

func main() {
	var (
		scenario = flag.String("scenario", "all", "scenario to run: s1, s2, s4, blink, or all")
		verbose  = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	logCfg := logging.DefaultConfig()
	if *verbose {
		logCfg.Level = logging.LevelDebug
	}
	logger := logging.NewLogger(logCfg)
	logging.SetDefault(logger)

	k, err := bmos.New(&bmos.KernelConfig{
		Preemption: bmos.PreemptionEnabled,
		Logger:     logger,
	})
	if err != nil {
		logger.Errorf("DEMO", "failed to create kernel: %v", err)
		os.Exit(1)
	}

	done := make(chan struct{})
	switch *scenario {
	case "s1":
		runS1(k, logger, done)
	case "s2":
		runS2(k, logger, done)
	case "s4":
		runS4(k, logger, done)
	case "blink":
		runBlink(k, logger, done)
	case "all":
		runAll(k, logger, done)
	default:
		fmt.Fprintf(os.Stderr, "unknown scenario %q (want s1, s2, s4, blink, or all)\n", *scenario)
		os.Exit(1)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := k.Start(); err != nil {
			logger.Errorf("DEMO", "kernel start failed: %v", err)
			os.Exit(1)
		}
	}()

	select {
	case <-done:
		logger.Infof("DEMO", "scenario %q completed", *scenario)
	case <-sigCh:
		logger.Infof("DEMO", "received shutdown signal")
	case <-time.After(10 * time.Second):
		logger.Warnf("DEMO", "scenario %q timed out", *scenario)
	}
	k.Stop()
}

// runS1 demonstrates round-robin dispatch: two equal-priority tasks take
// turns, each yielding back to the other several times before exiting.
func runS1(k *bmos.Kernel, logger *logging.Logger, done chan struct{}) {
	const rounds = 3
	makeTask := func(name string, last bool) func(any) {
		return func(any) {
			for i := 0; i < rounds; i++ {
				logger.Infof("S1", "%s round %d", name, i)
				k.TaskYield()
			}
			if last {
				close(done)
			}
		}
	}
	mustCreate(k, logger, makeTask("alpha", false), &bmos.TaskConfig{Priority: 1, Name: "alpha"})
	mustCreate(k, logger, makeTask("beta", true), &bmos.TaskConfig{Priority: 1, Name: "beta"})
}

// runS2 demonstrates priority preemption the way spec.md §8's S2
// actually triggers it: the tick handler's delay-release path, which
// is the one place maybeRequestPreempt is wired up outside of unblock
// and semaphore post. T_high delays itself twice (mirroring the spec's
// "sleeps 50 ms, prints H, sleeps 50 ms, prints H, exits"); each
// release makes it the highest-priority ready task and arms
// switchPending. T_low never yields or delays, so it only notices the
// pending switch at its own CheckPreempt checkpoint (the cooperative
// substitute for a hardware timer interrupt, documented in DESIGN.md
// Open Question 7).
func runS2(k *bmos.Kernel, logger *logging.Logger, done chan struct{}) {
	const delayTicks = 50 // ticks at SystickFreq=1kHz == 50ms
	highDone := make(chan struct{})

	low := func(any) {
		for {
			k.CheckPreempt()
			select {
			case <-highDone:
				logger.Infof("S2", "low-priority task resumed after high-priority task exited")
				close(done)
				return
			default:
			}
		}
	}
	high := func(any) {
		k.TaskDelay(delayTicks)
		logger.Infof("S2", "high-priority task preempted the busy loop (1st)")
		k.TaskDelay(delayTicks)
		logger.Infof("S2", "high-priority task preempted the busy loop (2nd)")
		close(highDone)
	}

	mustCreate(k, logger, low, &bmos.TaskConfig{Priority: 3, Name: "busy-low"})
	mustCreate(k, logger, high, &bmos.TaskConfig{Priority: 5, Name: "important-high"})
}

// runS4 demonstrates a semaphore handshake carrying real I/O: a producer
// task writes a line over a simulated UART loopback and posts a binary
// semaphore; a consumer task pends on it before reading the line, so the
// wakeup provably happened after the data was available.
func runS4(k *bmos.Kernel, logger *logging.Logger, done chan struct{}) {
	a, b, err := uart.Pair()
	if err != nil {
		logger.Errorf("S4", "failed to create UART pair: %v", err)
		close(done)
		return
	}
	ready, err := k.SemaphoreCreateBinary()
	if err != nil {
		logger.Errorf("S4", "failed to create semaphore: %v", err)
		close(done)
		return
	}

	producer := func(any) {
		if err := a.WriteString("hello from the producer\n"); err != nil {
			logger.Errorf("S4", "UART write failed: %v", err)
		}
		ready.Post()
	}
	consumer := func(any) {
		if err := ready.Pend(bmos.TimeoutInfinite); err != nil {
			logger.Errorf("S4", "Pend failed: %v", err)
			close(done)
			return
		}
		line, err := b.ReadLine()
		if err != nil {
			logger.Errorf("S4", "UART read failed: %v", err)
		} else {
			logger.Infof("S4", "consumer received: %q", line)
		}
		close(done)
	}
	mustCreate(k, logger, consumer, &bmos.TaskConfig{Priority: 1, Name: "uart-consumer"})
	mustCreate(k, logger, producer, &bmos.TaskConfig{Priority: 2, Name: "uart-producer"})
}

// runBlink demonstrates an ordinary periodic task running alongside the
// scheduler's other primitives: it toggles a simulated GPIO pin every
// 10 ticks, the way a real blinky LED task would, delaying itself between
// toggles rather than busy-looping or waiting on a semaphore.
func runBlink(k *bmos.Kernel, logger *logging.Logger, done chan struct{}) {
	const toggles = 6
	const delayTicks = 10 // ticks at SystickFreq=1kHz == 10ms

	var port gpio.Port
	led := port.Pin(0)

	blink := func(any) {
		for i := 0; i < toggles; i++ {
			state := led.Toggle()
			logger.Infof("BLINK", "LED pin = %v", state)
			k.TaskDelay(delayTicks)
		}
		close(done)
	}
	mustCreate(k, logger, blink, &bmos.TaskConfig{Priority: 1, Name: "blinky"})
}

// runAll chains S1, S2, S4, and blink sequentially against separate
// Kernels, closing done once the last one finishes.
func runAll(k *bmos.Kernel, logger *logging.Logger, done chan struct{}) {
	// The supplied Kernel runs S1; S2 and S4 get their own Kernel
	// instances so each scenario's tick-driven run loop is independent.
	s1Done := make(chan struct{})
	runS1(k, logger, s1Done)

	go func() {
		<-s1Done

		k2, err := bmos.New(&bmos.KernelConfig{Preemption: bmos.PreemptionEnabled, Logger: logger})
		if err != nil {
			logger.Errorf("DEMO", "failed to create kernel for S2: %v", err)
			close(done)
			return
		}
		s2Done := make(chan struct{})
		runS2(k2, logger, s2Done)
		go k2.Start()
		<-s2Done
		k2.Stop()

		k3, err := bmos.New(&bmos.KernelConfig{Preemption: bmos.PreemptionEnabled, Logger: logger})
		if err != nil {
			logger.Errorf("DEMO", "failed to create kernel for S4: %v", err)
			close(done)
			return
		}
		s4Done := make(chan struct{})
		runS4(k3, logger, s4Done)
		go k3.Start()
		<-s4Done
		k3.Stop()

		k4, err := bmos.New(&bmos.KernelConfig{Preemption: bmos.PreemptionEnabled, Logger: logger})
		if err != nil {
			logger.Errorf("DEMO", "failed to create kernel for blink: %v", err)
			close(done)
			return
		}
		blinkDone := make(chan struct{})
		runBlink(k4, logger, blinkDone)
		go k4.Start()
		<-blinkDone
		k4.Stop()

		close(done)
	}()
}

func mustCreate(k *bmos.Kernel, logger *logging.Logger, entry func(any), cfg *bmos.TaskConfig) {
	if _, err := k.TaskCreate(entry, nil, cfg); err != nil {
		logger.Errorf("DEMO", "failed to create task %q: %v", cfg.Name, err)
		os.Exit(1)
	}
}
