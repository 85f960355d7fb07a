package arch

// InterruptController models the two layers of interrupt control
// spec.md §6 and §9 name: a global mask (PRIMASK, gating every maskable
// exception at once — the "disable interrupts" half of a critical
// section) and per-vector enable/disable (NVIC ISER/ICER, gating one IRQ
// line), plus the two software-triggered exceptions the scheduler fires
// to request a switch (PendSV) and the very first dispatch (SVC).
type InterruptController interface {
	// MaskIRQ disables all maskable interrupts (CPSID I).
	MaskIRQ()
	// UnmaskIRQ re-enables them (CPSIE I).
	UnmaskIRQ()

	// EnableIRQ/DisableIRQ gate a single NVIC vector by number.
	EnableIRQ(irq int)
	DisableIRQ(irq int)

	// TriggerSwitch pends the PendSV-equivalent context-switch exception.
	TriggerSwitch()
	// TriggerStart pends the SVC-equivalent first-dispatch exception.
	TriggerStart()
}

// IRQ numbers for the vectors this module's simulated backend tracks.
// The real target would assign these per its NVIC layout; the sim
// backend only needs them as map keys for EnableIRQ/DisableIRQ.
const (
	IRQSysTick = 0
)
