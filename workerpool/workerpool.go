// Package workerpool is the reactor framework's external "generic thread
// pool" collaborator (spec §6), implemented over
// github.com/panjf2000/ants/v2 — a direct dependency of the teacher module.
package workerpool

import "github.com/panjf2000/ants/v2"

// Pool runs submitted tasks on a fixed-size goroutine pool, off the I/O
// reactor threads.
type Pool struct {
	p *ants.Pool
}

// New creates a pool of the given size. The pool's worker queue memory is
// pre-allocated up front (worker goroutines are still started on demand),
// and the pool is non-blocking so a saturated pool fails Submit immediately instead of
// parking the calling reactor goroutine — submission always happens on an
// I/O reactor thread, which must never block (spec §5).
func New(size int) (*Pool, error) {
	p, err := ants.NewPool(size, ants.WithPreAlloc(true), ants.WithNonblocking(true))
	if err != nil {
		return nil, err
	}
	return &Pool{p: p}, nil
}

// Submit schedules task to run on a worker goroutine. Returns
// ants.ErrPoolOverload without blocking if the pool is saturated — callers
// must not block the reactor thread waiting for capacity.
func (wp *Pool) Submit(task func()) error {
	return wp.p.Submit(task)
}

// Running reports the number of worker goroutines currently alive, whether
// busy with a task or idle.
func (wp *Pool) Running() int {
	return wp.p.Running()
}

// Release stops accepting new tasks and frees pool resources. It does not
// wait for tasks that are already running; those finish on their own.
func (wp *Pool) Release() {
	wp.p.Release()
}
