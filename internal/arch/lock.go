package arch

import "sync/atomic"

const (
	lockUnlocked uint32 = 0x00
	lockLocked   uint32 = 0xFF
)

// Lock is the semaphore's per-instance byte lock, simulating the
// load-linked/store-exclusive protocol from spec.md §4.7: load the byte,
// and on UNLOCKED attempt an exclusive store of LOCKED, retrying on
// contention or if already locked. Unlock performs an exclusive store of
// UNLOCKED; unlocking an already-unlocked Lock is a programmer error and,
// per spec, spins forever rather than silently succeeding — that
// condition must never occur in correct kernel code.
type Lock struct {
	state atomic.Uint32
}

// Acquire spins until the lock is taken.
func (l *Lock) Acquire() {
	for {
		if l.state.Load() == lockUnlocked && l.state.CompareAndSwap(lockUnlocked, lockLocked) {
			DataMemoryBarrier()
			return
		}
	}
}

// Release frees the lock. Spins forever if the lock was not held — a
// deliberate hang that surfaces a kernel bug rather than masking it.
func (l *Lock) Release() {
	DataMemoryBarrier()
	if l.state.CompareAndSwap(lockLocked, lockUnlocked) {
		return
	}
	for {
		// Programmer error: unlocking an already-unlocked lock.
	}
}
