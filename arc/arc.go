// Package arc implements the runtime's atomic-reference-counted heap
// objects (spec §4.C): a header carrying the refcount and destructor
// immediately precedes the object payload, and the 1->0 refcount
// transition fires the destructor exactly once. The free-list pool at
// the bottom of this file generalizes the sync.Pool node-reuse trick
// alphadose/zenq uses for its queue nodes (list.go's nodePool) into a
// general small-block pool for hot allocation paths.
package arc

import (
	"sync"
	"sync/atomic"
)

// Destructor is invoked exactly once, on the refcount's 1->0 transition.
type Destructor func(obj any)

// Header is the bookkeeping that precedes every ARC object. Generation
// is bumped on the final release so that a Weak handle taken out before
// the object died can detect the fact instead of reading freed state
// (spec §9 "Cyclic actor references" weak-reference supplement).
type Header struct {
	refcount   atomic.Int64
	generation atomic.Uint64
	destructor Destructor
	size       uintptr
}

// Object is an ARC-managed heap value together with its header.
type Object struct {
	Header
	Value any
}

// Alloc returns a new object with refcount 1, wrapping value, which is
// destroyed via destructor (if non-nil) on the final Release.
func Alloc(value any, size uintptr, destructor Destructor) *Object {
	o := &Object{Value: value, Header: Header{destructor: destructor, size: size}}
	o.refcount.Store(1)
	return o
}

// Retain atomically increments the refcount and returns obj for
// chaining, mirroring the spec's retain(obj) -> obj contract.
func Retain(obj *Object) *Object {
	obj.refcount.Add(1)
	return obj
}

// Release atomically decrements the refcount. On the 1->0 transition it
// invokes the destructor with acquire ordering relative to every prior
// decrement's release, then clears Value so later accidental holds see
// a destroyed object rather than stale data.
func Release(obj *Object) {
	if obj.refcount.Add(-1) == 0 {
		obj.generation.Add(1)
		if obj.destructor != nil {
			obj.destructor(obj.Value)
		}
		obj.Value = nil
	}
}

// Refcount returns the object's current atomic refcount.
func Refcount(obj *Object) int64 {
	return obj.refcount.Load()
}

// Weak is an address-plus-generation handle that can outlive the object
// it points at without keeping it alive (spec §9's cycle-breaking
// supplement: actors hold Weak back-pointers to avoid a retain cycle).
type Weak struct {
	obj        *Object
	generation uint64
}

// NewWeak captures a weak reference to obj at its current generation.
func NewWeak(obj *Object) Weak {
	return Weak{obj: obj, generation: obj.generation.Load()}
}

// Get returns the referenced object and true if it has not yet been
// released, or (nil, false) if the generation has moved on.
func (w Weak) Get() (*Object, bool) {
	if w.obj == nil || w.obj.generation.Load() != w.generation || w.obj.refcount.Load() <= 0 {
		return nil, false
	}
	return w.obj, true
}

// Pool is a fixed-block-size, single-threaded-fast-path free list for
// hot allocation paths that would rather not go through Alloc's
// bookkeeping (spec §4.C "auxiliary: a free-list small-block pool").
// It is backed by sync.Pool, the same primitive alphadose/zenq's
// nodePool in list.go relies on for queue-node reuse.
type Pool struct {
	pool sync.Pool
}

// NewPool returns a Pool whose New always hands back a fresh value
// built by newFn when the free list is empty.
func NewPool(newFn func() any) *Pool {
	return &Pool{pool: sync.Pool{New: newFn}}
}

// Get leases a block from the pool, allocating a new one if empty.
func (p *Pool) Get() any { return p.pool.Get() }

// Put returns a block to the pool for reuse.
func (p *Pool) Put(v any) { p.pool.Put(v) }
