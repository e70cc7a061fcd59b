package sched

import (
	"sync/atomic"
	"unsafe"

	"github.com/mouuuuaad/arnm-runtime/process"
	"github.com/mouuuuaad/arnm-runtime/runqueue"
)

// Worker is the per-OS-thread record spec §3 describes: a local FIFO
// run queue, the scheduler-context park slot used to hand control to
// and reclaim it from whichever process is currently running, and the
// bookkeeping counters §8's work-stealing liveness property checks.
type Worker struct {
	ID int

	local *runqueue.Queue

	running atomic.Bool
	current atomic.Pointer[process.Process]

	runCount   atomic.Uint64
	stealCount atomic.Uint64

	// gslot is this worker loop goroutine's own park slot, used by the
	// context-switch baton pass in context.go.
	gslot unsafe.Pointer
}

func newWorker(id int) *Worker {
	return &Worker{ID: id, local: runqueue.New()}
}

// RunCount reports how many times this worker has dispatched a process,
// the counter spec §8 property 7 (work-stealing liveness) inspects.
func (w *Worker) RunCount() uint64 { return w.runCount.Load() }

// StealCount reports how many processes this worker has picked up from
// another worker's local queue.
func (w *Worker) StealCount() uint64 { return w.stealCount.Load() }
