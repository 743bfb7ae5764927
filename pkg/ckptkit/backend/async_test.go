package backend_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/ckptkit/pkg/ckptkit/backend"
	ckpterrors "github.com/randalmurphal/ckptkit/pkg/ckptkit/errors"
)

// flakyBackend fails saves on selected paths. Everything else delegates
// to an in-process map.
type flakyBackend struct {
	mu       sync.Mutex
	data     map[string][]byte
	failPath string
	failErr  error
}

func newFlakyBackend() *flakyBackend {
	return &flakyBackend{data: make(map[string][]byte)}
}

func (f *flakyBackend) Save(_ context.Context, path string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if path == f.failPath {
		return f.failErr
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	f.data[path] = buf
	return nil
}

func (f *flakyBackend) Load(_ context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.data[path]
	if !ok {
		return nil, &ckpterrors.NotFoundError{Path: path}
	}
	return data, nil
}

func (f *flakyBackend) Remove(_ context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, path)
	return nil
}

func (f *flakyBackend) Close() error { return nil }

func TestNewAsync_RejectsZeroWorkers(t *testing.T) {
	_, err := backend.NewAsync(backend.NewFileBackend(), 0)
	require.Error(t, err)

	var cfg *ckpterrors.ConfigError
	require.ErrorAs(t, err, &cfg)
	assert.Equal(t, "num_threads", cfg.Field)
}

func TestAsync_DrainCompletesEverySubmission(t *testing.T) {
	inner := backend.NewRecorder(newFlakyBackend())
	a, err := backend.NewAsync(inner, 3)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	const submissions = 60
	for i := 0; i < submissions; i++ {
		path := fmt.Sprintf("runs/epoch=%d-step=%d.ckpt", i/10, i)
		require.NoError(t, a.Save(ctx, path, []byte("snapshot")))
	}

	require.NoError(t, a.Drain(ctx))
	assert.Len(t, inner.SaveCalls(), submissions)
}

func TestAsync_PerPathWriteOrder(t *testing.T) {
	inner := backend.NewRecorder(newFlakyBackend())
	a, err := backend.NewAsync(inner, 4)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	const writes = 20
	for i := 0; i < writes; i++ {
		require.NoError(t, a.Save(ctx, "runs/last.ckpt", []byte(fmt.Sprintf("write-%02d", i))))
	}
	require.NoError(t, a.Drain(ctx))

	// The last submitted write must win.
	data, err := a.Load(ctx, "runs/last.ckpt")
	require.NoError(t, err)
	assert.Equal(t, []byte(fmt.Sprintf("write-%02d", writes-1)), data)
}

func TestAsync_CallerBufferReuseIsSafe(t *testing.T) {
	a, err := backend.NewAsync(backend.NewFileBackend(), 1)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "epoch=0-step=1.ckpt")

	buf := []byte("original")
	require.NoError(t, a.Save(ctx, path, buf))
	copy(buf, []byte("clobbered"))

	data, err := a.Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), data)
}

func TestAsync_FailedSaveSurfacesAtDrain(t *testing.T) {
	inner := newFlakyBackend()
	inner.failPath = "runs/epoch=1-step=2.ckpt"
	inner.failErr = errors.New("no space left on device")

	a, err := backend.NewAsync(inner, 2)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	require.NoError(t, a.Save(ctx, "runs/epoch=0-step=1.ckpt", []byte("ok")))
	require.NoError(t, a.Save(ctx, "runs/epoch=1-step=2.ckpt", []byte("doomed")))

	err = a.Drain(ctx)
	require.ErrorIs(t, err, inner.failErr)

	// Reported once, then cleared.
	assert.NoError(t, a.Drain(ctx))
}

func TestAsync_FailedSaveSurfacesAtLoadOnSamePath(t *testing.T) {
	inner := newFlakyBackend()
	inner.failPath = "runs/epoch=0-step=1.ckpt"
	inner.failErr = errors.New("write failed")

	a, err := backend.NewAsync(inner, 1)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	require.NoError(t, a.Save(ctx, "runs/epoch=0-step=1.ckpt", []byte("doomed")))

	_, err = a.Load(ctx, "runs/epoch=0-step=1.ckpt")
	assert.ErrorIs(t, err, inner.failErr)
}

func TestAsync_RemoveWaitsForInFlightSave(t *testing.T) {
	inner := newFlakyBackend()
	a, err := backend.NewAsync(inner, 2)
	require.NoError(t, err)
	defer a.Close()

	ctx := context.Background()
	path := "runs/epoch=3-step=9.ckpt"
	require.NoError(t, a.Save(ctx, path, []byte("snapshot")))
	require.NoError(t, a.Remove(ctx, path))

	// The remove ran after the save, so nothing remains.
	_, err = a.Load(ctx, path)
	assert.ErrorIs(t, err, &ckpterrors.NotFoundError{})
}

func TestAsync_CloseRejectsFurtherSaves(t *testing.T) {
	a, err := backend.NewAsync(newFlakyBackend(), 1)
	require.NoError(t, err)
	require.NoError(t, a.Close())

	err = a.Save(context.Background(), "runs/x.ckpt", []byte("x"))
	assert.Error(t, err)
}
