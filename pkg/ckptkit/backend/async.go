package backend

import (
	"context"
	"os"

	"github.com/randalmurphal/ckptkit/pkg/ckptkit/pool"
)

// Async wraps a backend so Save returns to the caller as soon as the
// write is enqueued on a fixed pool of workers. Saves targeting the
// same path run in submission order; saves to different paths run
// concurrently.
//
// Load and Remove stay synchronous: both wait for any outstanding save
// on the same path before touching it, and surface a captured failure
// from those saves instead of proceeding. Drain blocks until every
// pending save has finished and reports any failures; callers must
// drain before process exit.
type Async struct {
	inner Interface
	pool  *pool.Pool
}

// NewAsync wraps inner with an asynchronous save pipeline of the given
// worker count. Fails with *errors.ConfigError when workers <= 0.
func NewAsync(inner Interface, workers int) (*Async, error) {
	p, err := pool.New(workers)
	if err != nil {
		return nil, err
	}
	return &Async{inner: inner, pool: p}, nil
}

// Save enqueues the write and returns without waiting for completion.
// The data slice is copied before enqueueing, so callers may reuse it.
func (a *Async) Save(ctx context.Context, path string, data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	// The task may run after the caller's deadline; keep its values
	// but detach cancellation so an enqueued save is never torn.
	taskCtx := context.WithoutCancel(ctx)
	return a.pool.Submit(path, func() error {
		return a.inner.Save(taskCtx, path, buf)
	})
}

// Load waits for outstanding saves on path, then reads synchronously.
// A failure captured from those saves is returned instead of the read.
func (a *Async) Load(ctx context.Context, path string) ([]byte, error) {
	if err := a.pool.Barrier(ctx, path); err != nil {
		return nil, err
	}
	return a.inner.Load(ctx, path)
}

// Remove waits for outstanding saves on path, then deletes synchronously.
// A failure captured from those saves is returned instead of the delete.
func (a *Async) Remove(ctx context.Context, path string) error {
	if err := a.pool.Barrier(ctx, path); err != nil {
		return err
	}
	return a.inner.Remove(ctx, path)
}

// Exists waits for outstanding saves on path, then checks for it.
func (a *Async) Exists(ctx context.Context, path string) (bool, error) {
	if err := a.pool.Barrier(ctx, path); err != nil {
		return false, err
	}
	if pc, ok := a.inner.(PathChecker); ok {
		return pc.Exists(ctx, path)
	}
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// Drain blocks until all enqueued saves have completed and returns any
// captured failures, joined. Failures are reported once, then cleared.
func (a *Async) Drain(ctx context.Context) error {
	return a.pool.Drain(ctx)
}

// Workers returns the configured worker count.
func (a *Async) Workers() int {
	return a.pool.Workers()
}

// Close drains outstanding saves, rejects new ones, and closes the
// wrapped backend.
func (a *Async) Close() error {
	err := a.pool.Close(context.Background())
	if cerr := a.inner.Close(); err == nil {
		err = cerr
	}
	return err
}
