package backend

import (
	"context"
	"os"
	"sync"
)

// Call is one recorded backend invocation, in arrival order.
type Call struct {
	Op   string // "save", "load", or "remove"
	Path string
}

// Recorder decorates a backend and records every invocation without
// altering behavior. Intended for tests that assert how often, with
// which paths, and in which order the underlying backend was called.
type Recorder struct {
	inner Interface

	mu    sync.Mutex
	calls []Call
}

// NewRecorder wraps inner with call recording.
func NewRecorder(inner Interface) *Recorder {
	return &Recorder{inner: inner}
}

func (r *Recorder) record(op, path string) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Op: op, Path: path})
	r.mu.Unlock()
}

// Save implements Interface.
func (r *Recorder) Save(ctx context.Context, path string, data []byte) error {
	r.record("save", path)
	return r.inner.Save(ctx, path, data)
}

// Load implements Interface.
func (r *Recorder) Load(ctx context.Context, path string) ([]byte, error) {
	r.record("load", path)
	return r.inner.Load(ctx, path)
}

// Remove implements Interface.
func (r *Recorder) Remove(ctx context.Context, path string) error {
	r.record("remove", path)
	return r.inner.Remove(ctx, path)
}

// Exists forwards to the wrapped backend's PathChecker when present,
// falling back to a filesystem stat.
func (r *Recorder) Exists(ctx context.Context, path string) (bool, error) {
	if pc, ok := r.inner.(PathChecker); ok {
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

// Close implements Interface.
func (r *Recorder) Close() error {
	return r.inner.Close()
}

// Calls returns every recorded invocation, in call order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

func (r *Recorder) callsOf(op string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var paths []string
	for _, c := range r.calls {
		if c.Op == op {
			paths = append(paths, c.Path)
		}
	}
	return paths
}

// SaveCalls returns the paths passed to Save, in call order.
func (r *Recorder) SaveCalls() []string { return r.callsOf("save") }

// LoadCalls returns the paths passed to Load, in call order.
func (r *Recorder) LoadCalls() []string { return r.callsOf("load") }

// RemoveCalls returns the paths passed to Remove, in call order.
func (r *Recorder) RemoveCalls() []string { return r.callsOf("remove") }

// Reset clears all recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}
