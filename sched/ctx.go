package sched

import (
	"context"

	"github.com/mouuuuaad/arnm-runtime/mailbox"
	"github.com/mouuuuaad/arnm-runtime/process"
)

// Ctx is what a running process's entry function receives: its own
// handle plus every scheduler-mediated operation spec §6 exposes as a
// parameterless ABI call (arnm_yield, arnm_receive, arnm_exit, ...).
// Threading it explicitly through the entry closure is the Go-idiomatic
// substitute for the C runtime's thread-local "current process" (spec
// §9's own suggestion for languages without cheap thread locals) —
// the flat cgo ABI in cmd/arnmabi is the only place that still needs a
// goroutine-keyed lookup, since C callers have no closure to carry one.
type Ctx struct {
	s *Scheduler
	p *process.Process
}

// worker returns the worker currently context-switched into this
// process. p.WorkerID is updated by the worker loop immediately before
// every switchToProcess call, so this always reflects whichever worker
// is presently blocked waiting for this Ctx to yield or exit — even
// across migrations via the global queue or work stealing.
func (c *Ctx) worker() *Worker { return c.s.workers[c.p.WorkerID] }

// Handle returns the opaque process handle for this running process.
func (c *Ctx) Handle() *process.Handle { return process.NewHandle(c.p) }

// PID returns this process's identifier.
func (c *Ctx) PID() uint64 { return c.p.PID }

// ActorState returns the process's actor-state buffer, or nil when it
// was spawned with stateSize==0.
func (c *Ctx) ActorState() []byte {
	if c.p.ActorState == nil {
		return nil
	}
	return c.p.ActorState.Usable
}

// Yield is arnm_yield: voluntarily surrenders the CPU back to the
// scheduler. Spec §4.F Yield: since this process is Ready/Running, it
// is re-marked Ready and pushed onto its current worker's local queue,
// then control switches back to the worker loop.
func (c *Ctx) Yield() {
	c.s.enqueueLocal(c.worker(), c.p)
	switchToWorker(c.worker(), c.p, true)
}

// Send implements arnm_send against an arbitrary target handle.
func (c *Ctx) Send(target *process.Handle, tag uint64, data []byte) error {
	return Send(target, tag, data)
}

// Receive is arnm_receive: blocks until a message arrives, parking this
// process (and yielding to the scheduler) whenever its mailbox is
// empty, per spec §4.D.
func (c *Ctx) Receive(ctx context.Context) (mailbox.Message, error) {
	return c.p.Mailbox.Receive(ctx, func(ctx context.Context) error {
		return c.parkAndWaitForWork(ctx)
	})
}

// TryReceive is arnm_try_receive: a single non-blocking dequeue attempt.
func (c *Ctx) TryReceive() (mailbox.Message, bool) {
	return c.p.Mailbox.TryReceive()
}

// parkAndWaitForWork backs Receive's blocking path: marks the process
// Waiting, yields to the scheduler, and returns once some other worker
// has woken it (mailbox.Send's OnNonEmpty hook calls Scheduler.wake,
// which re-marks it Ready and re-queues it globally; some worker then
// context-switches back into it, resuming this very call).
//
// park's Waiting transition and wait-queue registration aren't atomic
// with a concurrent Send's "is anyone waiting" check, so a message can
// arrive in the window before this process finishes parking and never
// get retried (OnNonEmpty only fires on the mailbox's 0->1 transition).
// Re-checking the mailbox immediately after park, and self-unparking if
// mail is already there, closes that window regardless of which side of
// the race wins.
func (c *Ctx) parkAndWaitForWork(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.s.park(c.p)
	if !c.p.Mailbox.Empty() && c.s.unpark(c.p) {
		return nil
	}
	switchToWorker(c.worker(), c.p, true)
	return ctx.Err()
}

// Spawn creates a child process from within a running one. Per spec
// §4.F's enqueue policy, a spawn issued by a running process enqueues
// onto that process's own worker's local queue rather than the global
// queue (bootstrap spawns, which have no such worker, use
// Scheduler.Spawn instead).
func (c *Ctx) Spawn(run func(*Ctx, any), arg any, stackSize, stateSize int) (*process.Handle, error) {
	return c.s.spawn(run, arg, stackSize, stateSize, func(p *process.Process) {
		c.s.active.Add(1)
		c.s.enqueueLocal(c.worker(), p)
	})
}

// Exit is arnm_exit: the explicit form of what happens automatically
// when an entry function returns. It marks the process Dead and never
// returns (spec §4.E exit handler contract), by panicking with a
// sentinel the dedicated goroutine's bootstrap recovers.
func (c *Ctx) Exit() {
	panic(exitSentinel{})
}

// exitSentinel is recovered only by the goroutine bootstrap in
// spawn.go, which treats it identically to entry returning normally.
type exitSentinel struct{}
