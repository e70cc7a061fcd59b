package sched

import (
	"github.com/mouuuuaad/arnm-runtime/internal/glink"
	"github.com/mouuuuaad/arnm-runtime/process"
)

// switchToProcess hands control from the calling worker-loop goroutine
// to p's dedicated goroutine, and blocks the worker loop until p yields
// (voluntarily, via a blocking receive, or by exiting) back to it. This
// is spec §4.A's context_switch(scheduler_ctx, process.context), ported
// from alphadose/zenq's ThreadParker park/ready dance
// (lib_runtime_linkage.go) instead of hand-written per-architecture
// assembly — see SPEC_FULL.md's redesign note for why.
func switchToProcess(w *Worker, p *process.Process) {
	glink.Ready(&p.Gslot)
	glink.ParkSelf(&w.gslot)
}

// switchToWorker is the other half of the baton pass: a process's own
// goroutine wakes its current worker and, unless the process just died,
// parks itself in turn. A dead process's goroutine must not park
// forever — nothing will ever ready it again — so it simply returns
// and the goroutine exits.
func switchToWorker(w *Worker, p *process.Process, parkAfter bool) {
	glink.Ready(&w.gslot)
	if parkAfter {
		glink.ParkSelf(&p.Gslot)
	}
}
