package sched

import (
	"github.com/mouuuuaad/arnm-runtime/internal/glink"
	"github.com/mouuuuaad/arnm-runtime/mailbox"
	"github.com/mouuuuaad/arnm-runtime/process"
)

// Spawn is spec §4.E's create(), invoked from outside any running
// process (the bootstrap thread, or an embedder's own goroutine): it
// builds the process record, wires its mailbox to the scheduler's
// wake path, starts its dedicated goroutine, and enqueues it onto the
// global run queue per §4.F's enqueue policy ("otherwise, the global
// queue").
func (s *Scheduler) Spawn(run func(*Ctx, any), arg any, stackSize, stateSize int) (*process.Handle, error) {
	return s.spawn(run, arg, stackSize, stateSize, func(p *process.Process) {
		s.active.Add(1)
		s.enqueueGlobal(p)
	})
}

// spawn is the shared construction path behind both Scheduler.Spawn
// (global enqueue) and Ctx.Spawn (local enqueue), differing only in
// how the freshly built process gets queued.
func (s *Scheduler) spawn(run func(*Ctx, any), arg any, stackSize, stateSize int, enqueue func(*process.Process)) (*process.Handle, error) {
	p, err := process.New(stackSize, stateSize)
	if err != nil {
		return nil, errProcessCreate(err)
	}

	p.Run = func() {
		ctx := &Ctx{s: s, p: p}
		key := glink.GetG()
		registerCurrent(key, ctx)
		defer unregisterCurrent(key)
		run(ctx, arg)
	}

	// A process's mailbox wakes it the moment a send transitions the
	// queue from empty to non-empty (spec §9 "waiting loop
	// efficiency"), instead of the naive re-poll-on-every-retry the
	// distilled spec describes as the starting point.
	p.Mailbox.OnNonEmpty(func() {
		if p.State() == process.Waiting {
			s.wake(p)
		}
	})

	go s.bootstrapProcess(p)

	enqueue(p)
	return process.NewHandle(p), nil
}

// bootstrapProcess is the trampoline spec §4.A describes: it parks the
// freshly started goroutine immediately (so the scheduler can Ready it
// exactly once, on the worker that first dispatches it), runs the
// process's entry, and on return (or on an explicit Ctx.Exit panic)
// performs the exit handler's duties: mark Dead, decrement the active
// count, and hand control back to whichever worker is currently
// context-switched into this process — without parking again, since
// nothing will ever ready this goroutine a second time.
func (s *Scheduler) bootstrapProcess(p *process.Process) {
	glink.ParkSelf(&p.Gslot)

	func() {
		defer func() {
			_ = recover() // both a bare return and Ctx.Exit's sentinel land here
		}()
		p.Run()
	}()

	p.SetState(process.Dead)
	s.active.Add(-1)
	w := s.workers[p.WorkerID]
	switchToWorker(w, p, false)
}

// Send implements arnm_send (spec §6): copies data into the target's
// mailbox. Per the §9 open question on sending to a dead process, this
// resolves to failing with an error rather than panicking or aborting.
func Send(target *process.Handle, tag uint64, data []byte) error {
	p := target.Unwrap()
	if p == nil {
		return mailbox.ErrProcessDead
	}
	if p.State() == process.Dead {
		return mailbox.ErrProcessDead
	}
	return p.Mailbox.Send(tag, data)
}
