//go:build !cgo

package arch

import "sync/atomic"

var barrierSeq atomic.Uint64

// DataMemoryBarrier is the cgo-free fallback used when the module is
// built without cgo (CGO_ENABLED=0). An atomic read-modify-write forces
// the Go memory model's happens-before edge, which is the closest a
// portable build gets to a hardware fence.
func DataMemoryBarrier() {
	barrierSeq.Add(1)
}
