package process

import "sync/atomic"

// pidCounter is the process-wide monotonic PID source (spec §3: "a
// unique 64-bit identity (monotonically assigned from a process-wide
// atomic counter starting at 1)"). Per the §9 "global mutable
// singletons" note, this stays a single package-level counter rather
// than being threaded through a scheduler handle, since a reimplemented
// handle-based PID allocator would still need exactly one counter per
// process and gains nothing from indirection here; the Scheduler
// singleton itself, by contrast, is gathered into one owned value in
// package sched.
var pidCounter atomic.Uint64

func nextPID() uint64 {
	return pidCounter.Add(1)
}
