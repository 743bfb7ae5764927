// Package ckptkit persists periodic snapshots of long-running iterative
// computation: durable checkpoint files, optional asynchronous writes
// on a bounded worker pool, top-K retention by a monitored score, and a
// "last" checkpoint maintained alongside.
//
// The iteration loop itself is an external collaborator. It decides
// when a checkpoint is due and calls Save with the current snapshot and
// score; ckptkit resolves filenames, enforces retention, and reports
// the resulting paths back for bookkeeping.
package ckptkit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/ckptkit/pkg/ckptkit/backend"
	ckpterrors "github.com/randalmurphal/ckptkit/pkg/ckptkit/errors"
	"github.com/randalmurphal/ckptkit/pkg/ckptkit/observability"
	"github.com/randalmurphal/ckptkit/pkg/ckptkit/retain"
)

// Result reports what one checkpoint event did.
type Result = retain.Result

// Checkpointer drives checkpoint persistence for one run.
// Safe for concurrent use, though checkpoints for a run are normally
// produced by a single loop.
type Checkpointer struct {
	io      backend.Interface
	async   *backend.Async // nil in synchronous mode
	mgr     *retain.Manager
	runID   string
	monitor string

	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
}

// New builds a Checkpointer. Configuration problems are reported
// immediately as *errors.ConfigError, never deferred to the first save.
func New(opts Options) (*Checkpointer, error) {
	if opts.SaveAsync && opts.NumThreads <= 0 {
		return nil, &ckpterrors.ConfigError{
			Field:   "num_threads",
			Message: "asynchronous saving requires at least one worker",
		}
	}

	inner := opts.Backend
	if inner == nil {
		var fileOpts []backend.FileOption
		if opts.Compression {
			fileOpts = append(fileOpts, backend.WithCompression())
		}
		inner = backend.NewFileBackend(fileOpts...)
	}

	io := inner
	var async *backend.Async
	if opts.SaveAsync {
		a, err := backend.NewAsync(inner, opts.NumThreads)
		if err != nil {
			return nil, err
		}
		io, async = a, a
	}

	mgr, err := retain.NewManager(retain.Policy{
		Dir:      opts.Dir,
		Monitor:  opts.Monitor,
		Mode:     opts.Mode,
		TopK:     opts.TopK,
		SaveLast: opts.SaveLast,
		Template: opts.Template,
		Ext:      opts.Ext,
	}, io)
	if err != nil {
		return nil, err
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	spans := opts.Spans
	if spans == nil {
		spans = observability.NoopSpanManager{}
	}

	return &Checkpointer{
		io:      io,
		async:   async,
		mgr:     mgr,
		runID:   uuid.NewString(),
		monitor: opts.Monitor,
		logger:  opts.Logger,
		metrics: metrics,
		spans:   spans,
	}, nil
}

// RunID identifies this run; snapshots saved without a RunID are
// stamped with it.
func (c *Checkpointer) RunID() string {
	return c.runID
}

// Save handles one checkpoint event: the snapshot is serialized and
// written under a name derived from its counters, retention is
// enforced, and the "last" file is refreshed when enabled. score is
// the monitored quantity used for top-K ranking.
//
// In asynchronous mode Save returns once the write is enqueued; a
// write failure surfaces at the next Load or Remove on the same path,
// or at Drain.
func (c *Checkpointer) Save(ctx context.Context, snap *Snapshot, score float64) (Result, error) {
	if snap.RunID == "" {
		snap.RunID = c.runID
	}
	if snap.Timestamp.IsZero() {
		snap.Timestamp = time.Now().UTC()
	}
	if c.monitor != "" {
		snap.WithMetric(c.monitor, score)
	}

	data, err := snap.Marshal()
	if err != nil {
		return Result{}, err
	}

	values := map[string]any{"epoch": snap.Epoch, "step": snap.Step}
	for name, v := range snap.Metrics {
		values[name] = v
	}

	log := observability.EnrichLogger(c.logger, snap.RunID, snap.Epoch, snap.Step)
	ctx, span := c.spans.StartSaveSpan(ctx, c.async != nil)
	start := time.Now()

	res, err := c.mgr.OnCheckpoint(ctx, values, score, data)
	if res.Path != "" {
		span.SetAttributes(attribute.String("checkpoint.path", res.Path))
	}

	duration := time.Since(start)
	c.metrics.RecordSave(ctx, duration, int64(len(data)), err)
	c.spans.EndSpanWithError(span, err)
	if err != nil {
		observability.LogSaveError(log, res.Path, err)
		return res, err
	}

	observability.LogSaveComplete(log, res.Path, int64(len(data)), float64(duration.Microseconds())/1000.0)
	for _, removed := range res.Removed {
		c.metrics.RecordRemove(ctx)
		observability.LogRemove(log, removed)
	}
	return res, nil
}

// Load reads and decodes the snapshot at path. In asynchronous mode it
// first waits for any outstanding save targeting path.
func (c *Checkpointer) Load(ctx context.Context, path string) (*Snapshot, error) {
	ctx, span := c.spans.StartLoadSpan(ctx, path)

	data, err := c.io.Load(ctx, path)
	if err != nil {
		c.spans.EndSpanWithError(span, err)
		return nil, err
	}

	snap, err := Unmarshal(data)
	if err != nil {
		err = &ckpterrors.DecodeError{Path: path, Err: err}
		c.spans.EndSpanWithError(span, err)
		return nil, err
	}

	c.spans.EndSpanWithError(span, nil)
	observability.LogLoadComplete(c.logger, path, int64(len(data)))
	return snap, nil
}

// LoadBest loads the current best checkpoint.
func (c *Checkpointer) LoadBest(ctx context.Context) (*Snapshot, error) {
	path := c.mgr.BestPath()
	if path == "" {
		return nil, &ckpterrors.NotFoundError{}
	}
	return c.Load(ctx, path)
}

// LoadLast loads the current "last" checkpoint.
func (c *Checkpointer) LoadLast(ctx context.Context) (*Snapshot, error) {
	path := c.mgr.LastPath()
	if path == "" {
		return nil, &ckpterrors.NotFoundError{}
	}
	return c.Load(ctx, path)
}

// Remove deletes the checkpoint at path. In asynchronous mode it first
// waits for any outstanding save targeting path.
func (c *Checkpointer) Remove(ctx context.Context, path string) error {
	if err := c.io.Remove(ctx, path); err != nil {
		return err
	}
	c.metrics.RecordRemove(ctx)
	observability.LogRemove(c.logger, path)
	return nil
}

// BestPath returns the path of the current best checkpoint, or "".
func (c *Checkpointer) BestPath() string { return c.mgr.BestPath() }

// BestScore returns the score of the current best checkpoint.
// The boolean is false when nothing is retained.
func (c *Checkpointer) BestScore() (float64, bool) { return c.mgr.BestScore() }

// LastPath returns the path of the current "last" checkpoint, or "".
func (c *Checkpointer) LastPath() string { return c.mgr.LastPath() }

// RetainedPaths returns the retained checkpoint paths, best first.
func (c *Checkpointer) RetainedPaths() []string { return c.mgr.RetainedPaths() }

// Drain blocks until every pending asynchronous save has completed and
// returns their captured failures, joined. A synchronous checkpointer
// drains trivially. Call before process exit when SaveAsync is set.
func (c *Checkpointer) Drain(ctx context.Context) error {
	if c.async == nil {
		return nil
	}

	ctx, span := c.spans.StartDrainSpan(ctx)
	observability.LogDrainStart(c.logger)
	start := time.Now()

	err := c.async.Drain(ctx)

	duration := time.Since(start)
	c.metrics.RecordDrain(ctx, duration, err)
	c.spans.EndSpanWithError(span, err)
	observability.LogDrainComplete(c.logger, float64(duration.Microseconds())/1000.0, err)
	return err
}

// Close drains pending work and releases backend resources.
func (c *Checkpointer) Close() error {
	return c.io.Close()
}
