//go:build arm

package arch

// cortexMSwitcher is the Cortex-M backend: Start and Switch call the
// assembly symbols svcStart and pendSVSwitch (switch_arm.s), which are
// placeholders that return immediately. TaskHandle.Resume/Suspend are not
// called, and no register state or TCB SavedSP field is saved or
// restored by this backend.
type cortexMSwitcher struct{}

// NewCortexMSwitcher returns the Cortex-M Switcher.
func NewCortexMSwitcher() (Switcher, error) {
	return cortexMSwitcher{}, nil
}

// svcStart and pendSVSwitch are implemented in switch_arm.s. Their Go
// signatures exist only so the linker keeps them reachable; neither is
// meant to be called from Go code directly.
func svcStart()
func pendSVSwitch()

func (cortexMSwitcher) Start(first TaskHandle) {
	// The real vector table calls svcStart directly on SVC entry; nothing
	// in Go ever invokes Start on this backend. It exists to satisfy the
	// Switcher interface so internal/sched can be built for GOARCH=arm
	// without a separate code path.
	svcStart()
}

func (cortexMSwitcher) Switch(outgoing, incoming TaskHandle) {
	pendSVSwitch()
}
