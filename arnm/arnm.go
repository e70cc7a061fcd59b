// Package arnm is the runtime's idiomatic Go public API: the same
// operations spec §6 names as a flat C ABI (arnm_init, arnm_spawn,
// arnm_send, ...), exposed as ordinary Go functions and methods over
// package sched's Scheduler/Ctx. cmd/arnmabi is the thin cgo shim that
// re-exports these under their C names for compiled ARNm programs;
// everything else (lexer, parser, codegen) stays out of scope per
// spec §1.
package arnm

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/KimMachineGun/automemlimit/memlimit"
	"github.com/pkg/errors"

	"github.com/mouuuuaad/arnm-runtime/mailbox"
	"github.com/mouuuuaad/arnm-runtime/pkg/diag"
	"github.com/mouuuuaad/arnm-runtime/process"
	"github.com/mouuuuaad/arnm-runtime/sched"
)

// Ctx, Handle and Message are re-exported so callers writing idiomatic
// Go actors do not need to import package sched or process directly.
type (
	Ctx     = sched.Ctx
	Handle  = process.Handle
	Message = mailbox.Message
)

var (
	mu        sync.Mutex
	scheduler *sched.Scheduler
	running   atomic.Bool
)

// Config mirrors sched.Config; kept as its own type so the public API
// does not leak package sched's surface wholesale.
type Config = sched.Config

// Init is arnm_init: builds the process-wide scheduler singleton (spec
// §9 "global mutable singletons", gathered here into one package-level
// value rather than scattered global state) and sets a soft memory
// ceiling for the ARC heap via automemlimit so a cgroup-constrained host
// cannot be pushed over its limit by not-yet-released actor objects.
// num_workers==0 defers to sched.Init's automaxprocs/NumCPU fallback.
func Init(cfg Config) error {
	mu.Lock()
	defer mu.Unlock()
	if scheduler != nil {
		return errors.New("arnm: already initialized")
	}

	if _, err := memlimit.SetGoMemLimitWithOpts(
		memlimit.WithRatio(0.9),
		memlimit.WithProvider(memlimit.FromCgroup),
	); err != nil {
		diag.Warn("automemlimit: no cgroup memory limit found, skipping")
	}

	s, err := sched.Init(cfg)
	if err != nil {
		return err
	}
	scheduler = s
	return nil
}

// Run is arnm_run: starts every worker and blocks until all spawned
// processes have run to completion or ctx is canceled.
func Run(ctx context.Context) error {
	s := current()
	if s == nil {
		return errors.New("arnm: not initialized")
	}
	running.Store(true)
	defer running.Store(false)
	return s.Run(ctx)
}

// Shutdown is arnm_shutdown: stops every worker and tears the scheduler
// down. Safe to call more than once.
func Shutdown() {
	mu.Lock()
	s := scheduler
	scheduler = nil
	mu.Unlock()
	if s != nil {
		s.Shutdown()
	}
}

// Spawn is arnm_spawn, called from outside any running process (the
// bootstrap goroutine, or an embedder's own code). run receives a *Ctx
// for the new process plus the caller-supplied arg. stateSize==0 means
// no actor-state buffer.
func Spawn(run func(*Ctx, any), arg any, stateSize int) (*Handle, error) {
	s := current()
	if s == nil {
		return nil, errors.New("arnm: not initialized")
	}
	return s.Spawn(run, arg, process.DefaultStackSize, stateSize)
}

// Send is arnm_send.
func Send(target *Handle, tag uint64, data []byte) error {
	return sched.Send(target, tag, data)
}

// Self is arnm_self as called from outside a process's own goroutine is
// meaningless; this mirrors sched.CurrentCtx for parity with the ABI
// layer and returns nil unless called from inside a running process
// that was not handed its *Ctx directly (idiomatic Go callers should
// prefer the *Ctx their entry function already received).
func Self() *Ctx { return sched.CurrentCtx() }

func current() *sched.Scheduler {
	mu.Lock()
	defer mu.Unlock()
	return scheduler
}
