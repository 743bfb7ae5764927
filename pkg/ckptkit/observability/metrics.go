package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records checkpoint metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordSave records one checkpoint save with its duration, payload
	// size, and error status.
	RecordSave(ctx context.Context, duration time.Duration, sizeBytes int64, err error)

	// RecordRemove records one checkpoint removal.
	RecordRemove(ctx context.Context)

	// RecordDrain records a drain of pending async saves.
	RecordDrain(ctx context.Context, duration time.Duration, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	saves        metric.Int64Counter
	saveErrors   metric.Int64Counter
	saveLatency  metric.Float64Histogram
	saveSize     metric.Int64Histogram
	removes      metric.Int64Counter
	drainLatency metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("ckptkit")

	saves, err := meter.Int64Counter("ckptkit.save.count",
		metric.WithDescription("Number of checkpoint saves"),
	)
	if err != nil {
		return nil, err
	}

	saveErrors, err := meter.Int64Counter("ckptkit.save.errors",
		metric.WithDescription("Number of failed checkpoint saves"),
	)
	if err != nil {
		return nil, err
	}

	saveLatency, err := meter.Float64Histogram("ckptkit.save.latency_ms",
		metric.WithDescription("Checkpoint save latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	saveSize, err := meter.Int64Histogram("ckptkit.save.size_bytes",
		metric.WithDescription("Checkpoint payload size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	removes, err := meter.Int64Counter("ckptkit.remove.count",
		metric.WithDescription("Number of checkpoint removals"),
	)
	if err != nil {
		return nil, err
	}

	drainLatency, err := meter.Float64Histogram("ckptkit.drain.latency_ms",
		metric.WithDescription("Async drain latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		saves:        saves,
		saveErrors:   saveErrors,
		saveLatency:  saveLatency,
		saveSize:     saveSize,
		removes:      removes,
		drainLatency: drainLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordSave records a checkpoint save.
func (m *otelMetrics) RecordSave(ctx context.Context, duration time.Duration, sizeBytes int64, err error) {
	attrs := []attribute.KeyValue{
		attribute.Bool("success", err == nil),
	}

	m.saves.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.saveLatency.Record(ctx, float64(duration.Microseconds())/1000.0, metric.WithAttributes(attrs...))
	m.saveSize.Record(ctx, sizeBytes, metric.WithAttributes(attrs...))

	if err != nil {
		m.saveErrors.Add(ctx, 1)
	}
}

// RecordRemove records a checkpoint removal.
func (m *otelMetrics) RecordRemove(ctx context.Context) {
	m.removes.Add(ctx, 1)
}

// RecordDrain records a drain of pending async saves.
func (m *otelMetrics) RecordDrain(ctx context.Context, duration time.Duration, err error) {
	m.drainLatency.Record(ctx, float64(duration.Microseconds())/1000.0,
		metric.WithAttributes(attribute.Bool("success", err == nil)))
}
