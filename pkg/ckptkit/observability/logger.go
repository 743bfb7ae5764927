// Package observability provides structured logging, metrics, and
// tracing for checkpoint operations.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"

	"github.com/dustin/go-humanize"
)

// EnrichLogger adds run context to a logger.
// Returns a new logger with run_id, epoch, and step fields.
func EnrichLogger(logger *slog.Logger, runID string, epoch, step int) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("run_id", runID),
		slog.Int("epoch", epoch),
		slog.Int("step", step),
	)
}

// LogSaveStart logs the start of a checkpoint save.
func LogSaveStart(logger *slog.Logger, path string, async bool) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint save starting",
		slog.String("path", path),
		slog.Bool("async", async),
	)
}

// LogSaveComplete logs a completed checkpoint save.
func LogSaveComplete(logger *slog.Logger, path string, sizeBytes int64, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Info("checkpoint saved",
		slog.String("path", path),
		slog.String("size", humanize.Bytes(uint64(sizeBytes))),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogSaveError logs a failed checkpoint save.
func LogSaveError(logger *slog.Logger, path string, err error) {
	if logger == nil {
		return
	}
	logger.Error("checkpoint save failed",
		slog.String("path", path),
		slog.String("error", err.Error()),
	)
}

// LogRemove logs a checkpoint removal.
func LogRemove(logger *slog.Logger, path string) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint removed",
		slog.String("path", path),
	)
}

// LogLoadComplete logs a completed checkpoint load.
func LogLoadComplete(logger *slog.Logger, path string, sizeBytes int64) {
	if logger == nil {
		return
	}
	logger.Debug("checkpoint loaded",
		slog.String("path", path),
		slog.String("size", humanize.Bytes(uint64(sizeBytes))),
	)
}

// LogDrainStart logs the start of an async drain.
func LogDrainStart(logger *slog.Logger) {
	if logger == nil {
		return
	}
	logger.Debug("draining pending checkpoint saves")
}

// LogDrainComplete logs drain completion.
func LogDrainComplete(logger *slog.Logger, durationMs float64, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Error("checkpoint drain finished with failures",
			slog.Float64("duration_ms", durationMs),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Info("checkpoint drain complete",
		slog.Float64("duration_ms", durationMs),
	)
}
