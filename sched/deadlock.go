package sched

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mouuuuaad/arnm-runtime/pkg/diag"
)

// deadlockLoop implements spec §4.F's deadlock detection: whenever the
// active count is positive and exactly equal to the waiting count,
// every live process is parked and nothing can ever wake any of them,
// so the scheduler emits a warning (it does not force termination,
// per spec). A 1-slot semaphore (deadlockGate) guards against checks
// piling up if a run is somehow slow to drain, mirroring the
// concurrency-limiting use of golang.org/x/sync/semaphore in
// sourcegraph-zoekt's shards/sched.go.
func (s *Scheduler) deadlockLoop(ctx context.Context) {
	ticker := time.NewTicker(s.deadlockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkDeadlock()
		}
	}
}

func (s *Scheduler) checkDeadlock() {
	if !s.deadlockSem.TryAcquire(1) {
		return // a check is already in flight
	}
	defer s.deadlockSem.Release(1)

	active := s.active.Load()
	waiting := s.waiting.Load()
	if active > 0 && active == waiting {
		diag.Warn("potential deadlock: all active processes are waiting",
			zap.Int64("active", active), zap.Int64("waiting", waiting),
			zap.String("run_id", s.runID.String()))
	}
}
