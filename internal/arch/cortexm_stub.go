//go:build !arm

package arch

import "fmt"

// NewCortexMSwitcher is unavailable outside GOARCH=arm builds. This
// module's entire test suite runs against NewSimSwitcher instead; the
// real backend (cortexm.go) exists to satisfy the architecture-isolation
// design in spec.md §9, not to be exercised on the host that builds and
// tests this module.
func NewCortexMSwitcher() (Switcher, error) {
	return nil, fmt.Errorf("arch: cortexm backend requires GOARCH=arm")
}
