package sched

import (
	"context"
	"time"

	"github.com/mouuuuaad/arnm-runtime/pkg/diag"
	"github.com/mouuuuaad/arnm-runtime/process"
	"go.uber.org/zap"
)

// workerLoop is spec §4.F's seven-step worker loop, run once per
// worker on its own goroutine (standing in for the dedicated OS thread
// spec.md describes — see SPEC_FULL.md's redesign note).
func (s *Scheduler) workerLoop(ctx context.Context, w *Worker) {
	w.running.Store(true)
	defer w.running.Store(false)

	for {
		// 1. shutdown check
		if s.isShutdown() || ctx.Err() != nil {
			return
		}

		// 2. pick a next process: local, then global, then steal
		p := w.local.Pop()
		if p == nil {
			p = s.global.Pop()
		}
		if p == nil {
			p = s.steal(w)
		}

		// 3. none found
		if p == nil {
			if s.active.Load() == 0 {
				return
			}
			time.Sleep(backoff)
			continue
		}

		if got := p.State(); got != process.Ready && got != process.Waiting {
			diag.InvariantViolation("process popped from run queue in invalid state",
				zap.Uint64("pid", p.PID), zap.String("state", got.String()))
			continue
		}

		// 4. record current, mark Running, bump counters
		w.current.Store(p)
		p.WorkerID = w.ID
		p.SetState(process.Running)
		p.RunCount.Add(1)
		w.runCount.Add(1)

		// 5. context switch in; returns when the process yields, blocks,
		// or exits
		switchToProcess(w, p)

		// 6. clear current; destroy if Dead
		w.current.Store(nil)
		if p.State() == process.Dead {
			p.Destroy()
		}

		// 7. loop
	}
}

// steal implements spec §4.F work stealing: scan other workers
// round-robin starting just after self, and pop from the head of the
// first victim whose local queue holds strictly more than one runnable
// process (so stealing never races the victim down to empty).
func (s *Scheduler) steal(w *Worker) *process.Process {
	n := len(s.workers)
	if n <= 1 {
		return nil
	}
	for i := 1; i < n; i++ {
		victim := s.workers[(w.ID+i)%n]
		if victim.local.Len() > 1 {
			if p := victim.local.Pop(); p != nil {
				w.stealCount.Add(1)
				return p
			}
		}
	}
	return nil
}
