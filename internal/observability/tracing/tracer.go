package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "council-backend"

// GetTracer returns the tracer for creating spans.
// It is resolved from the global provider on each call so a provider installed
// after package init (for example in tests) is honoured.
func GetTracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

// EndSpan records err on span (if non-nil) and ends it.
func EndSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
