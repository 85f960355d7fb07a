package bmos

import (
	"time"

	"github.com/danieldegrasse/bmos-go/internal/config"
)

// Re-exported tunables for callers that only need the public API surface
// and shouldn't have to import internal/config directly.
const (
	DefaultStackSize    = config.DefaultStackSize
	DefaultPriority     = config.DefaultPriority
	PriorityCount       = config.PriorityCount
	IdleTaskStackSize   = config.IdleTaskStackSize
	SystickFreq         = config.SystickFreq
	StackProtectionSize = config.StackProtectionSize
	StackSentinel       = config.StackSentinel

	TimeoutNone     time.Duration = config.TimeoutNone
	TimeoutInfinite time.Duration = config.TimeoutInfinite
)

// Preemption selects whether the tick handler may preempt the active
// task in favor of a newly-ready higher-priority one.
type Preemption = config.Preemption

const (
	PreemptionEnabled  = config.PreemptionEnabled
	PreemptionDisabled = config.PreemptionDisabled
)
