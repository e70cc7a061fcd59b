// Package sched is the M:N actor scheduler (spec §3 Worker/Scheduler,
// §4.F): one worker goroutine-pinned-loop per logical OS thread, a
// per-worker FIFO run queue, a single global run queue, work stealing,
// a wait queue for parked receivers, deadlock detection, and top-level
// runtime lifecycle. It is the only package that drives a
// process.Process through its state machine.
package sched

import (
	"context"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/mouuuuaad/arnm-runtime/pkg/diag"
	"github.com/mouuuuaad/arnm-runtime/process"
	"github.com/mouuuuaad/arnm-runtime/runqueue"
)

// MaxWorkers is the compile-time worker-count ceiling spec §6 mandates.
const MaxWorkers = 64

// backoff is how long an idle worker sleeps between failed dispatch
// attempts before retrying (spec §4.F step 3: "~100 µs").
const backoff = 100 * time.Microsecond

// Config configures a Scheduler at Init time.
type Config struct {
	// NumWorkers is the worker count. 0 means "use automaxprocs' view
	// of available CPUs", per spec §6; the result is clamped to
	// MaxWorkers either way.
	NumWorkers int

	// DeadlockCheckInterval controls how often the scheduler checks
	// for the active==waiting>0 condition (spec §4.F deadlock
	// detection). Zero uses DefaultDeadlockCheckInterval.
	DeadlockCheckInterval time.Duration
}

// DefaultDeadlockCheckInterval is used when Config leaves the interval
// unset.
const DefaultDeadlockCheckInterval = 50 * time.Millisecond

// Scheduler is the process-wide singleton described by spec §3,
// gathered into one owned value per the §9 "global mutable singletons"
// note rather than package-level state, so multiple runtime instances
// (and tests) can coexist.
type Scheduler struct {
	runID   uuid.UUID
	workers []*Worker
	global  *runqueue.Queue
	wait    *runqueue.Queue

	active   atomic.Int64
	waiting  atomic.Int64
	shutdown atomic.Bool

	deadlockInterval time.Duration
	deadlockSem      *semaphore.Weighted // 1-weight gate on overlapping deadlock checks

	eg     *errgroup.Group
	egDone context.CancelFunc
}

// Init builds a Scheduler per spec §4.F's lifecycle operation of the
// same name: resolves the worker count (automaxprocs, falling back to
// runtime.NumCPU(), clamped to MaxWorkers), allocates the worker array
// and queues, and returns without starting any threads.
func Init(cfg Config) (*Scheduler, error) {
	n := cfg.NumWorkers
	if n == 0 {
		// automaxprocs adjusts GOMAXPROCS for cgroup CPU quotas before
		// we read runtime.GOMAXPROCS(0), so containerized deployments
		// get a worker count that matches their real CPU allotment
		// rather than the host's full core count.
		if _, err := maxprocs.Set(maxprocs.Logger(func(string, ...any) {})); err != nil {
			diag.Warn("automaxprocs adjustment failed, falling back to NumCPU")
		}
		n = runtime.GOMAXPROCS(0)
		if n <= 0 {
			n = runtime.NumCPU()
		}
	}
	if n <= 0 {
		n = 1
	}
	if n > MaxWorkers {
		n = MaxWorkers
	}

	interval := cfg.DeadlockCheckInterval
	if interval <= 0 {
		interval = DefaultDeadlockCheckInterval
	}

	s := &Scheduler{
		runID:            uuid.New(),
		workers:          make([]*Worker, n),
		global:           runqueue.New(),
		wait:             runqueue.New(),
		deadlockInterval: interval,
		deadlockSem:      semaphore.NewWeighted(1),
	}
	for i := range s.workers {
		s.workers[i] = newWorker(i)
	}
	return s, nil
}

// NumWorkers reports how many workers this scheduler was configured with.
func (s *Scheduler) NumWorkers() int { return len(s.workers) }

// ActiveCount reports the number of processes not yet Dead.
func (s *Scheduler) ActiveCount() int64 { return s.active.Load() }

// WaitingCount reports the number of currently parked (Waiting) processes.
func (s *Scheduler) WaitingCount() int64 { return s.waiting.Load() }

// Run is spec §4.F's run(): starts OS threads for workers 1..N-1 (as
// goroutines — see SPEC_FULL.md's redesign note on why an OS-thread-
// per-worker design collapses to a goroutine-per-worker-loop one here),
// executes worker 0's loop on the calling goroutine, and returns once
// every worker has exited (all processes dead, or Shutdown was called).
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, egCtx := errgroup.WithContext(ctx)
	s.eg, s.egDone = eg, cancel

	go s.deadlockLoop(egCtx)

	for i := 1; i < len(s.workers); i++ {
		w := s.workers[i]
		eg.Go(func() error {
			s.workerLoop(egCtx, w)
			return nil
		})
	}

	if len(s.workers) > 0 {
		s.workerLoop(egCtx, s.workers[0])
	}

	return eg.Wait()
}

// Shutdown is spec §4.F's shutdown(): sets the shutdown flag so every
// worker loop exits on its next iteration, cancels Run's context, and
// waits for workers 1..N-1 to return. It does not empty or free the run
// and wait queues or the worker array; they are left to the garbage
// collector along with the Scheduler.
func (s *Scheduler) Shutdown() {
	if !s.shutdown.CompareAndSwap(false, true) {
		return
	}
	if s.egDone != nil {
		s.egDone()
	}
	if s.eg != nil {
		_ = s.eg.Wait()
	}
}

func (s *Scheduler) isShutdown() bool { return s.shutdown.Load() }

// enqueueGlobal implements sched_enqueue's "otherwise the global queue"
// branch: marks p Ready and appends to the global run queue. It does
// not touch the active count: Scheduler.Spawn bumps that itself before
// calling here, and wake() re-queues an already-counted process.
func (s *Scheduler) enqueueGlobal(p *process.Process) {
	p.SetState(process.Ready)
	s.global.Push(p)
}

// enqueueLocal implements sched_enqueue_local / the "caller is on a
// worker thread" branch of sched_enqueue: appends to a specific
// worker's own local queue.
func (s *Scheduler) enqueueLocal(w *Worker, p *process.Process) {
	p.SetState(process.Ready)
	w.local.Push(p)
}

// park is spec §4.F's park(proc): marks Waiting, adds to the wait
// queue, and increments the waiting count. The CAS documents the only
// legal prior state: park is only ever called by a process on itself,
// from inside a call it's currently Running in.
func (s *Scheduler) park(p *process.Process) {
	p.CompareAndSwapState(process.Running, process.Waiting)
	s.waiting.Add(1)
	s.wait.Push(p)
}

// unpark reverses park without ever touching a run queue. It's used by
// a process that, immediately after parking itself, finds its own
// mailbox already non-empty: a Send can complete its count increment
// and OnNonEmpty's "is p Waiting yet" check anywhere in the window
// before park finishes, and because OnNonEmpty only fires on the
// mailbox's 0->1 transition, a later Send never gets a second chance to
// wake it. Rather than rely on winning that race, the parking process
// re-checks its own mailbox and, if mail is already there, removes
// itself from the wait queue and resumes as Running — it never
// actually stopped executing, so there's nothing to redispatch.
//
// Returns false if a concurrent wake() already removed p first; the
// caller must then actually park, since wake has already re-queued p
// onto the global queue for some worker to legitimately redispatch.
func (s *Scheduler) unpark(p *process.Process) bool {
	if !s.wait.Remove(p) {
		return false
	}
	s.waiting.Add(-1)
	p.SetState(process.Running)
	return true
}

// wake is spec §4.F's wake(proc): atomically removes proc from the
// wait queue, decrements waiting count, sets Ready, and pushes onto the
// global queue so any idle worker picks it up.
func (s *Scheduler) wake(p *process.Process) {
	if !s.wait.Remove(p) {
		return
	}
	s.waiting.Add(-1)
	s.enqueueGlobal(p)
}

// errProcessCreate wraps process.New failures with the scheduler's
// context, keeping the public Spawn error a simple non-nil value per
// spec §7's "allocation failure" taxonomy entry.
func errProcessCreate(err error) error {
	return errors.Wrap(err, "sched: process creation failed")
}
