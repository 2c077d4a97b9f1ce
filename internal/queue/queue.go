// Package queue implements the MPSC queue contract the reactor core needs
// for its inbound-connection and return-message channels: any number of
// producer goroutines push, a single consumer (the owning reactor) drains.
package queue

import "sync"

// Queue is a mutex-guarded FIFO. No repo in the retrieval pack ships a
// standalone lock-free MPSC primitive we could ground this on directly, so
// this is the one place the framework falls back to a plain sync.Mutex
// rather than a pack dependency.
type Queue struct {
	mu    sync.Mutex
	items []interface{}
}

// New returns an empty queue.
func New() *Queue {
	return &Queue{}
}

// Push enqueues v. Safe to call from any goroutine.
func (q *Queue) Push(v interface{}) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
}

// PopAll drains and returns every item currently queued, or nil if empty.
// Intended to be called by the single consumer only.
func (q *Queue) PopAll() []interface{} {
	q.mu.Lock()
	if len(q.items) == 0 {
		q.mu.Unlock()
		return nil
	}
	items := q.items
	q.items = nil
	q.mu.Unlock()
	return items
}

// Len reports the number of items currently queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Destroy drains the queue, invoking cleanup on every remaining item. Used
// at reactor teardown so in-flight return-messages aren't silently leaked.
func (q *Queue) Destroy(cleanup func(interface{})) {
	items := q.PopAll()
	if cleanup == nil {
		return
	}
	for _, it := range items {
		cleanup(it)
	}
}
