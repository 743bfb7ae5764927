package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the ckptkit tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("ckptkit")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartSaveSpan starts a span for a checkpoint save. The resolved
	// destination path is attached by the caller once known.
	StartSaveSpan(ctx context.Context, async bool) (context.Context, trace.Span)

	// StartLoadSpan starts a span for a checkpoint load.
	StartLoadSpan(ctx context.Context, path string) (context.Context, trace.Span)

	// StartDrainSpan starts a span for an async drain.
	StartDrainSpan(ctx context.Context) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartSaveSpan starts a span for a checkpoint save.
func (m *otelSpanManager) StartSaveSpan(ctx context.Context, async bool) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ckptkit.save",
		trace.WithAttributes(
			attribute.Bool("checkpoint.async", async),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartLoadSpan starts a span for a checkpoint load.
func (m *otelSpanManager) StartLoadSpan(ctx context.Context, path string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ckptkit.load",
		trace.WithAttributes(
			attribute.String("checkpoint.path", path),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartDrainSpan starts a span for an async drain.
func (m *otelSpanManager) StartDrainSpan(ctx context.Context) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ckptkit.drain",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
