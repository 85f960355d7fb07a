package arch

// Frame models the synthetic initial stack frame spec.md §4.3 describes:
// the hardware-popped half (R0-R3, R12, LR, return address, xPSR) plus
// the software half (R4-R11 and the exception-return cookie) that the
// context-switch path restores uniformly for every task, including ones
// that have never run yet.
//
// On the real target this is a byte layout at the top of the task's
// stack that the hardware and the PendSV handler interpret directly; on
// the host simulation backend nothing ever parses these bytes (Go code
// cannot jump into an arbitrary program counter), so Frame exists for
// documentation fidelity, for overflow-detection bookkeeping, and so
// tests can assert the construction recipe without a real CPU.
type Frame struct {
	// Hardware-popped on exception return.
	R0, R1, R2, R3, R12 uint32
	LR                  uint32 // exit trampoline address
	ReturnAddress       uint32 // entry function address
	XPSR                uint32 // thumb bit set

	// Software-saved, restored by the switch handler before the hardware
	// frame is popped.
	R4, R5, R6, R7, R8, R9, R10, R11 uint32
	ExcReturn                        uint32
}

// Debug register-fill patterns, chosen to be recognizable in a memory
// dump without colliding with common valid addresses.
const (
	debugPattern32  = 0xDEADBEEF
	thumbBit        = 1 << 24 // xPSR bit 24 (T), not bit 0
	excReturnThread = 0xFFFFFFFD // return to thread mode, use PSP
)

// BuildInitialFrame constructs the synthetic frame for a freshly created
// task per spec.md §4.3: xPSR has the thumb bit set, the return address
// is entry, LR is the exit trampoline, R0 carries arg (here represented
// by its presence — the host backend passes arg through the closure
// instead of a register), and the remaining general-purpose registers
// get a benign debug pattern.
func BuildInitialFrame(entry, exitTrampoline uint32) Frame {
	return Frame{
		R0:            0, // arg travels through the Go closure, not a register
		R1:            debugPattern32,
		R2:            debugPattern32,
		R3:            debugPattern32,
		R12:           debugPattern32,
		LR:            exitTrampoline,
		ReturnAddress: entry,
		XPSR:          thumbBit,

		R4: debugPattern32, R5: debugPattern32, R6: debugPattern32, R7: debugPattern32,
		R8: debugPattern32, R9: debugPattern32, R10: debugPattern32, R11: debugPattern32,
		ExcReturn: excReturnThread,
	}
}
