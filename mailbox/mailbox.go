// Package mailbox implements the per-process MPSC message queue (spec
// §3 Mailbox, §4.D). It is a direct generalization of the Michael-Scott
// dummy-node queue alphadose/zenq uses twice in the teacher repo --
// list.go's List and thread_parker.go's ThreadParker both enqueue/
// dequeue with a load/CAS-on-tail/CAS-on-head shape. This package keeps
// the dummy-node layout and the CAS-on-head dequeue, but producers link
// in with a single exchange on tail instead of a CAS loop, and nodes
// carry a real payload (Message{Tag, Data}) instead of a bare
// unsafe.Pointer or parked-goroutine node.
package mailbox

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// ErrProcessDead is returned by sched.Send when the target handle is nil
// or its process is already Dead (spec §9 open question, resolved as a
// failure the caller sees as an error; the runtime does not abort).
// Mailbox.Send itself never returns it: a closed mailbox yields ErrClosed.
var ErrProcessDead = errors.New("mailbox: target process is dead")

// ErrClosed is returned by Send once the mailbox has been closed.
var ErrClosed = errors.New("mailbox: closed")

// Message is the tagged envelope spec §3 describes: a 64-bit tag plus
// an opaque payload. size==0 sends adopt Data without copying (spec §8
// boundary behavior); Send always copies when len(data) > 0.
type Message struct {
	Tag  uint64
	Data []byte

	next atomic.Pointer[Message]
}

var messagePool = sync.Pool{New: func() any { return new(Message) }}

// Mailbox is the intrusive MPSC queue belonging to exactly one process.
// head always points at a dummy node (spec §3 invariant); the queue is
// non-empty exactly when the dummy's next is non-nil.
type Mailbox struct {
	head atomic.Pointer[Message]
	tail atomic.Pointer[Message]

	count  atomic.Int64
	closed atomic.Bool

	// nonEmpty, set via OnNonEmpty and guarded by mu, is invoked after an
	// enqueue transitions the
	// queue from empty to non-empty, letting package sched re-queue the
	// waiting process (spec §9 "waiting loop efficiency": wake on the
	// 0->1 count transition instead of re-polling the run queue).
	mu       sync.Mutex
	nonEmpty func()
}

// New returns an empty mailbox, already holding its pre-allocated dummy
// node as both head and tail.
func New() *Mailbox {
	dummy := messagePool.Get().(*Message)
	*dummy = Message{}
	mb := &Mailbox{}
	mb.head.Store(dummy)
	mb.tail.Store(dummy)
	return mb
}

// OnNonEmpty registers the callback fired when Send transitions the
// mailbox from empty (count 0) to non-empty. Package sched wires this
// to wake a parked receiver; nil disables the callback.
func (mb *Mailbox) OnNonEmpty(fn func()) {
	mb.mu.Lock()
	mb.nonEmpty = fn
	mb.mu.Unlock()
}

// Send copies size bytes of data (or adopts the slice when it is empty,
// per spec §8) into a new Message and appends it to the queue: swing
// tail to the new node with a single atomic exchange, so producers never
// contend with the consumer's head advance, then attach the previous
// tail's next. Until that second store lands the consumer simply sees
// the queue as ending at the previous tail.
func (mb *Mailbox) Send(tag uint64, data []byte) error {
	if mb.closed.Load() {
		return ErrClosed
	}

	n := messagePool.Get().(*Message)
	n.next.Store(nil)
	n.Tag = tag
	if len(data) > 0 {
		n.Data = append([]byte(nil), data...)
	} else {
		n.Data = data
	}

	prev := mb.tail.Swap(n)
	prev.next.Store(n)

	if mb.count.Add(1) == 1 {
		mb.mu.Lock()
		fn := mb.nonEmpty
		mb.mu.Unlock()
		if fn != nil {
			fn()
		}
	}
	return nil
}

// TryReceive performs a single non-blocking dequeue attempt (spec
// §4.D's try_receive): if the dummy's next is nil the queue is empty;
// otherwise head advances to next, which becomes the new dummy, and the
// old head is returned to the pool.
func (mb *Mailbox) TryReceive() (Message, bool) {
	head := mb.head.Load()
	next := head.next.Load()
	if next == nil {
		return Message{}, false
	}
	if !mb.head.CompareAndSwap(head, next) {
		return Message{}, false
	}
	mb.count.Add(-1)
	msg := Message{Tag: next.Tag, Data: next.Data}
	head.Data = nil
	messagePool.Put(head)
	return msg, true
}

// Receive blocks, via park, until a message is available or ctx is
// canceled. park is supplied by package sched (spec §4.D: "mark the
// current process Waiting and yield to the scheduler; on resume,
// retry") since this package has no scheduler of its own to yield to.
func (mb *Mailbox) Receive(ctx context.Context, park func(ctx context.Context) error) (Message, error) {
	for {
		if msg, ok := mb.TryReceive(); ok {
			return msg, nil
		}
		if mb.closed.Load() {
			return Message{}, ErrClosed
		}
		if err := park(ctx); err != nil {
			return Message{}, err
		}
	}
}

// Len reports the advisory message count (spec §4.D: "count is advisory
// and may briefly lag the linked-list state under contention").
func (mb *Mailbox) Len() int64 { return mb.count.Load() }

// Empty reports emptiness as defined by count==0, per spec.
func (mb *Mailbox) Empty() bool { return mb.count.Load() == 0 }

// Close drains any remaining messages, freeing them, then frees the
// trailing dummy node (spec §3 Mailbox destruction).
func (mb *Mailbox) Close() {
	if !mb.closed.CompareAndSwap(false, true) {
		return
	}
	for {
		if _, ok := mb.TryReceive(); !ok {
			break
		}
	}
	if dummy := mb.head.Load(); dummy != nil {
		messagePool.Put(dummy)
	}
}
