// Package pool provides a bounded worker pool with per-key FIFO ordering.
//
// Tasks submitted under the same key execute in submission order; tasks
// under different keys run concurrently, capped at the configured worker
// count. Failures are captured per key and surfaced at the next Barrier
// on that key or at Drain, never silently dropped. There are no retries
// and no mid-flight cancellation: Drain waits for completion.
package pool

import (
	"context"
	"errors"
	"sync"

	ckpterrors "github.com/randalmurphal/ckptkit/pkg/ckptkit/errors"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("pool closed")

// Task is one unit of background work.
type Task func() error

// Pool executes tasks on a fixed number of workers.
type Pool struct {
	sem chan struct{} // worker slots
	wg  sync.WaitGroup

	mu     sync.Mutex
	queues map[string]*queue
	closed bool
}

// queue holds the pending tasks and captured failures for one key.
type queue struct {
	pending []Task
	active  bool
	settled chan struct{} // closed when the queue goes idle
	errs    []error
}

// New creates a pool with the given number of workers.
// workers must be at least 1.
func New(workers int) (*Pool, error) {
	if workers <= 0 {
		return nil, &ckpterrors.ConfigError{
			Field:   "num_threads",
			Message: "asynchronous saving requires at least one worker",
		}
	}
	return &Pool{
		sem:    make(chan struct{}, workers),
		queues: make(map[string]*queue),
	}, nil
}

// Workers returns the configured worker count.
func (p *Pool) Workers() int {
	return cap(p.sem)
}

// Submit enqueues fn under key and returns without waiting for it to run.
// Tasks sharing a key execute in submission order.
func (p *Pool) Submit(key string, fn Task) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	q := p.queues[key]
	if q == nil {
		q = &queue{}
		p.queues[key] = q
	}
	if !q.active {
		q.settled = make(chan struct{})
	}
	q.pending = append(q.pending, fn)
	p.wg.Add(1)

	if !q.active {
		q.active = true
		go p.run(q)
	}
	return nil
}

// run drains one key's queue, one task at a time so writes to a single
// destination never reorder. Each task still occupies a worker slot, so
// total concurrency across keys stays capped.
func (p *Pool) run(q *queue) {
	for {
		p.mu.Lock()
		if len(q.pending) == 0 {
			q.active = false
			close(q.settled)
			p.mu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending = q.pending[1:]
		p.mu.Unlock()

		p.sem <- struct{}{}
		err := fn()
		<-p.sem

		if err != nil {
			p.mu.Lock()
			q.errs = append(q.errs, err)
			p.mu.Unlock()
		}
		p.wg.Done()
	}
}

// Barrier blocks until every task submitted under key before the call has
// finished, then returns (and clears) any captured failures for that key.
// Returns nil immediately when nothing was ever submitted under key.
func (p *Pool) Barrier(ctx context.Context, key string) error {
	p.mu.Lock()
	q := p.queues[key]
	if q == nil {
		p.mu.Unlock()
		return nil
	}
	settled := q.settled
	p.mu.Unlock()

	if settled != nil {
		select {
		case <-settled:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	p.mu.Lock()
	errs := q.errs
	q.errs = nil
	p.mu.Unlock()

	return errors.Join(errs...)
}

// Drain blocks until the queue is empty and all workers are idle, then
// returns (and clears) every captured failure across all keys.
func (p *Pool) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.mu.Lock()
	var errs []error
	for _, q := range p.queues {
		errs = append(errs, q.errs...)
		q.errs = nil
	}
	p.mu.Unlock()

	return errors.Join(errs...)
}

// Close rejects further submissions and drains outstanding work.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	return p.Drain(ctx)
}
