// Package gpio provides a host-backed GPIO driver: an in-memory pin
// register standing in for a real port's ODR/IDR, so a demo task can
// toggle a "pin" the same way a blinky task toggles a real LED.
package gpio

import "sync"

// Pin is a single GPIO line's state.
type Pin struct {
	mu  sync.Mutex
	set bool
}

// Set drives the pin high or low.
func (p *Pin) Set(high bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set = high
}

// Toggle flips the pin's state and returns the new state.
func (p *Pin) Toggle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.set = !p.set
	return p.set
}

// Get reads the pin's current state.
func (p *Pin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.set
}

// Port is a fixed-width bank of pins, standing in for a real GPIO port
// register (e.g. GPIOA on a Cortex-M part).
type Port struct {
	pins [16]Pin
}

// Pin returns the pin at the given index, panicking if out of range —
// matching an out-of-bounds register access being a programmer error,
// not a runtime condition to recover from.
func (p *Port) Pin(i int) *Pin {
	return &p.pins[i]
}
