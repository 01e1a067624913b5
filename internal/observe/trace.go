package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/MrWong99/typeassist"

// Span names used by the correction pipeline.
const (
	SpanCorrectText = "correction.CorrectText"
	SpanRemote      = "correction.remote"
)

// Tracer returns the typeassist tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span named name. The caller ends it.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// CorrelationID returns the trace ID of the span in ctx, or "" when there is
// none. The HTTP API echoes it in the X-Correlation-ID header and every
// [Logger] line carries it.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default logger tagged with the correlation ID of ctx.
// Without a span it is the default logger unchanged.
func Logger(ctx context.Context) *slog.Logger {
	if cid := CorrelationID(ctx); cid != "" {
		return slog.Default().With(slog.String("correlation_id", cid))
	}
	return slog.Default()
}

// Transition records that a correction request, or one of its chunks,
// entered pipeline state state. It adds a span event of that name to the
// span in ctx and logs it at debug level.
func Transition(ctx context.Context, state string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.AddEvent(state, trace.WithAttributes(attrs...))
	}
	l := Logger(ctx)
	if !l.Enabled(ctx, slog.LevelDebug) {
		return
	}
	args := make([]any, 0, 2+2*len(attrs))
	args = append(args, "state", state)
	for _, a := range attrs {
		args = append(args, string(a.Key), a.Value.Emit())
	}
	l.DebugContext(ctx, "correction: state", args...)
}
