package observe

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// scopeName is the instrumentation scope for spans created by this package.
const scopeName = "github.com/sonavox/callaudit/internal/observe"

// StartSpan opens a span on the globally registered tracer provider. Spans
// are never exported anywhere; they exist so every request carries a stable
// trace ID that doubles as its correlation ID.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(scopeName).Start(ctx, name, opts...)
}

// CorrelationID returns the trace ID of the active span, or "" when the
// context carries none.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
