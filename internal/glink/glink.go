// Package glink exposes the small slice of the Go runtime's own goroutine
// scheduler that the rest of this module needs in order to park and ready
// goroutines without going through a channel or a sync.Cond. It is lifted
// from the //go:linkname trick alphadose/zenq uses to schedule goroutines
// "in userland" with minimal latency, generalized so callers outside the
// mailbox package can park/ready an arbitrary goroutine.
//
// This is runtime-internal and therefore only as portable as the Go
// toolchain's unexported ABI: it must be revisited on major Go version
// bumps. See DESIGN.md for why this tradeoff was made instead of a
// channel-based rendezvous.
package glink

import (
	"runtime"
	"unsafe"
)

//go:linkname getg runtime.getg
func getg() unsafe.Pointer

// GetG returns the runtime *g of the calling goroutine.
func GetG() unsafe.Pointer {
	return getg()
}

//go:linkname mcall runtime.mcall
func mcall(fn func(unsafe.Pointer))

//go:linkname readgstatus runtime.readgstatus
func readgstatus(gp unsafe.Pointer) uint32

//go:linkname casgstatus runtime.casgstatus
func casgstatus(gp unsafe.Pointer, oldval, newval uint32)

//go:linkname dropg runtime.dropg
func dropg()

//go:linkname schedule runtime.schedule
func schedule()

//go:linkname goready runtime.goready
func goready(gp unsafe.Pointer, traceskip int)

//go:linkname runtimeCanSpin sync.runtime_canSpin
func runtimeCanSpin(i int) bool

//go:linkname runtimeDoSpin sync.runtime_doSpin
func runtimeDoSpin()

// goroutine status values this package cares about, mirrored from
// runtime2.go. Only _Grunning and _Gwaiting are used here.
const (
	gRunning = 2
	gWaiting = 4
)

func fastPark(gp unsafe.Pointer) {
	dropg()
	casgstatus(gp, gRunning, gWaiting)
	schedule()
}

// ParkSelf parks the calling goroutine immediately, after first publishing
// its *g into slot so a concurrent Ready call has something to wait on.
// It does not return until some other goroutine calls Ready with the same
// slot.
func ParkSelf(slot *unsafe.Pointer) {
	*slot = GetG()
	mcall(fastPark)
}

// Ready blocks until the goroutine published into slot (by a ParkSelf
// call that may still be racing to store it) has actually reached the
// parked state, then wakes it. Mirrors ThreadParker.Ready in
// alphadose/zenq's thread_parker.go.
func Ready(slot *unsafe.Pointer) {
	iter := 0
	for *slot == nil {
		if runtimeCanSpin(iter) {
			iter++
			runtimeDoSpin()
		} else {
			runtime.Gosched()
		}
	}
	gp := *slot
	iter = 0
	for readgstatus(gp) != gWaiting {
		if runtimeCanSpin(iter) {
			iter++
			runtimeDoSpin()
		} else {
			runtime.Gosched()
		}
	}
	*slot = nil
	goready(gp, 1)
}
