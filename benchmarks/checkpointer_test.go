package benchmarks

import (
	"context"
	"testing"

	"github.com/randalmurphal/ckptkit/pkg/ckptkit"
	"github.com/randalmurphal/ckptkit/pkg/ckptkit/retain"
)

// BenchmarkCheckpointer_SyncSave measures a full synchronous save,
// including retention bookkeeping.
func BenchmarkCheckpointer_SyncSave(b *testing.B) {
	opts := ckptkit.DefaultOptions(b.TempDir())
	opts.TopK = 2
	ckpt, err := ckptkit.New(opts)
	if err != nil {
		b.Fatal(err)
	}
	defer ckpt.Close()

	state := largePayload()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		snap := ckptkit.NewSnapshot(i, i, state)
		_, _ = ckpt.Save(ctx, snap, float64(i))
	}
}

// BenchmarkCheckpointer_AsyncSave measures save latency as seen by the
// caller when writes are offloaded to the worker pool.
func BenchmarkCheckpointer_AsyncSave(b *testing.B) {
	opts := ckptkit.DefaultOptions(b.TempDir())
	opts.TopK = retain.TopKAll
	opts.SaveAsync = true
	opts.NumThreads = 4
	ckpt, err := ckptkit.New(opts)
	if err != nil {
		b.Fatal(err)
	}
	defer ckpt.Close()

	state := largePayload()
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		snap := ckptkit.NewSnapshot(i, i, state)
		_, _ = ckpt.Save(ctx, snap, float64(i))
	}
	b.StopTimer()
	_ = ckpt.Drain(ctx)
}
