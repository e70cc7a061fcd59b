// Package runqueue implements the intrusive FIFO spec §3/§4.F describes
// for both run queues and the wait queue: a singly-linked list using the
// Process's own Next field (so enqueue/dequeue allocates nothing),
// guarded by a short critical section, with a separate atomic count for
// cheap size queries. Go has no portable user-mode spinlock, so the
// "short spin lock" of §3 is rendered as a sync.Mutex held only across
// the list mutation, the same substitution sourcegraph-zoekt's
// shards/sched.go makes with its rwmutex wrapper.
package runqueue

import (
	"sync"
	"sync/atomic"

	"github.com/mouuuuaad/arnm-runtime/process"
)

// Queue is an intrusive FIFO of *process.Process.
type Queue struct {
	mu    sync.Mutex
	head  *process.Process
	tail  *process.Process
	count atomic.Int64
}

// New returns an empty queue.
func New() *Queue { return &Queue{} }

// Push appends p to the tail of the queue.
func (q *Queue) Push(p *process.Process) {
	q.mu.Lock()
	p.Next = nil
	if q.tail == nil {
		q.head, q.tail = p, p
	} else {
		q.tail.Next = p
		q.tail = p
	}
	q.mu.Unlock()
	q.count.Add(1)
}

// Pop removes and returns the process at the head of the queue, or nil
// if the queue is empty.
func (q *Queue) Pop() *process.Process {
	q.mu.Lock()
	p := q.head
	if p != nil {
		q.head = p.Next
		if q.head == nil {
			q.tail = nil
		}
		p.Next = nil
	}
	q.mu.Unlock()
	if p != nil {
		q.count.Add(-1)
	}
	return p
}

// Remove removes p from the queue by identity, an O(N) linear scan
// bounded by queue size (spec §4.F "Removal by identity is O(N) but
// bounded by the waiting-set size", used by the wait queue's wake).
// It reports whether p was found.
func (q *Queue) Remove(p *process.Process) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	var prev *process.Process
	cur := q.head
	for cur != nil {
		if cur == p {
			if prev == nil {
				q.head = cur.Next
			} else {
				prev.Next = cur.Next
			}
			if cur == q.tail {
				q.tail = prev
			}
			cur.Next = nil
			q.count.Add(-1)
			return true
		}
		prev = cur
		cur = cur.Next
	}
	return false
}

// Len returns the approximate size of the queue (spec: "an atomic count
// separate from the linked list ... for cheap size queries").
func (q *Queue) Len() int64 { return q.count.Load() }
