//go:build cgo

package arch

/*
#include <stdint.h>

static inline void dmb_impl(void) {
#if defined(__aarch64__) || defined(__arm__)
    __asm__ __volatile__("dmb sy" ::: "memory");
#elif defined(__x86_64__) || defined(__i386__)
    __asm__ __volatile__("mfence" ::: "memory");
#else
    __sync_synchronize();
#endif
}
*/
import "C"

// DataMemoryBarrier issues a full memory barrier, standing in for the
// Cortex-M DMB instruction the real context-switch and semaphore lock
// paths use to order a task's descriptor/register writes against
// concurrent observers (the tick handler, another core's view in a
// future port). The host simulation backend calls this around the same
// points the real backend would, so the two stay lockstep even though
// the host has no DMB of its own.
func DataMemoryBarrier() {
	C.dmb_impl()
}
