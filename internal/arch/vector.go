package arch

// VectorTable is a small struct of function values standing in for the
// real target's linker-provided vector table entries: the boot-time
// main-stack-pointer value plus the three handlers the kernel installs —
// SVC for the one-time first dispatch, PendSV for the recurring
// context-switch request, and SysTick for the periodic tick. Kernel.Start
// assembles exactly one of these, matching spec.md §9's "invoked once,
// from rtos_start".
type VectorTable struct {
	InitialMSP uint32

	StartHandler  func() error
	SwitchHandler func()
	TickHandler   func()
}

// NewVectorTable assembles a VectorTable from the handlers Kernel.Start
// already has in hand. initialMSP is documentary only on the host
// simulation backend — there is no boot stack to seed, since every
// task's stack is its own Go slice — but is recorded for the same
// fidelity reason Frame's register fields are.
func NewVectorTable(initialMSP uint32, start func() error, sw, tick func()) VectorTable {
	return VectorTable{
		InitialMSP:    initialMSP,
		StartHandler:  start,
		SwitchHandler: sw,
		TickHandler:   tick,
	}
}
