// Package process defines the lightweight, actor-model unit of
// scheduled execution (spec §3 Process, §4.E): identity, state, saved
// execution context, owned mailbox, and owned actor-state buffer. The
// scheduling behavior that drives a Process through its lifecycle lives
// in package sched, which is the only package that mutates the fields
// below (package runqueue touches only the Next link) — process itself stays a plain
// data model plus the handful of atomic primitives needed for lock-free
// reads from multiple workers.
package process

import (
	"sync/atomic"
	"time"
	"unsafe"

	"github.com/mouuuuaad/arnm-runtime/mailbox"
	"github.com/mouuuuaad/arnm-runtime/memstack"
)

// State is one of the four points in the process lifecycle (spec §3).
type State uint32

const (
	Ready State = iota
	Running
	Waiting
	Dead
)

func (s State) String() string {
	switch s {
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Waiting:
		return "waiting"
	case Dead:
		return "dead"
	default:
		return "unknown"
	}
}

// DefaultStackSize is the spec's default per-process stack size. Go
// goroutine stacks are elastic and managed by the runtime, so this is
// retained only as accounting metadata (Process.StackSize) rather than
// an mmap size; it has no bearing on the actor-state region, which is
// sized by stateSize alone — see SPEC_FULL.md's redesign note.
const DefaultStackSize = 64 * 1024

// Process is the runtime's lightweight unit of execution. Exported
// fields are intentionally mutated only by package sched; External
// callers interact through Handle.
type Process struct {
	PID uint64

	state atomic.Uint32

	Mailbox    *mailbox.Mailbox
	ActorState *memstack.Region

	// Next is the intrusive run-queue/wait-queue link. It is only ever
	// read or written while the owning queue's lock is held.
	Next *Process

	WorkerID  int
	SpawnedAt time.Time
	RunCount  atomic.Uint64

	StackSize int

	// Gslot is the parked-goroutine handle used by package sched's
	// context-switch baton pass (internal/glink). It is nil whenever
	// the process's dedicated goroutine is not currently parked.
	Gslot unsafe.Pointer

	// Run is the process's body, already closed over its Handle and
	// caller-supplied argument by package sched.Spawn. It is invoked
	// exactly once by the dedicated goroutine sched starts for this
	// process.
	Run func()
}

// New constructs a Process record: assigns a PID, creates its mailbox,
// and allocates an actor-state buffer when stateSize > 0. It does not
// start the process's goroutine or enqueue it anywhere — that is
// sched.Spawn's job, since enqueue policy depends on scheduler state
// this package must not know about. run is attached afterward via the
// Run field once sched has built the closure that needs a Handle to
// this very Process.
func New(stackSize, stateSize int) (*Process, error) {
	if stackSize <= 0 {
		stackSize = DefaultStackSize
	}
	p := &Process{
		PID:       nextPID(),
		Mailbox:   mailbox.New(),
		WorkerID:  -1,
		SpawnedAt: time.Now(),
		StackSize: stackSize,
	}
	p.state.Store(uint32(Ready))
	if stateSize > 0 {
		region, err := memstack.Alloc(stateSize)
		if err != nil {
			p.Mailbox.Close()
			return nil, err
		}
		p.ActorState = region
	}
	return p, nil
}

// State returns the process's current lifecycle state.
func (p *Process) State() State { return State(p.state.Load()) }

// SetState atomically sets the process's lifecycle state.
func (p *Process) SetState(s State) { p.state.Store(uint32(s)) }

// CompareAndSwapState performs an atomic CAS on the process's state.
func (p *Process) CompareAndSwapState(old, new State) bool {
	return p.state.CompareAndSwap(uint32(old), uint32(new))
}

// Destroy releases everything the process exclusively owns: its
// mailbox (draining unread messages) and its actor-state buffer.
func (p *Process) Destroy() {
	if p.Mailbox != nil {
		p.Mailbox.Close()
	}
	if p.ActorState != nil {
		_ = p.ActorState.Free()
	}
}

// Handle is the opaque reference to a Process handed to user code and
// returned by arnm_spawn/arnm_self, per spec §9's "self() handle type"
// resolution (an opaque handle, not a raw pointer).
type Handle struct {
	p *Process
}

// NewHandle wraps a Process. Only package sched constructs these from a
// live Process; everyone else only ever copies an existing Handle.
func NewHandle(p *Process) *Handle { return &Handle{p: p} }

// PID returns the wrapped process's identifier.
func (h *Handle) PID() uint64 {
	if h == nil || h.p == nil {
		return 0
	}
	return h.p.PID
}

// Unwrap exposes the underlying Process to package sched (and only
// package sched — everyone else should treat Handle as opaque).
func (h *Handle) Unwrap() *Process {
	if h == nil {
		return nil
	}
	return h.p
}
