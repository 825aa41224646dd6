// Package tracing provides the OpenTelemetry tracer shared by the resilience layer.
//
// Spans are created around circuit breaker executions, audit writes and DLQ
// reconcile passes. With no TracerProvider installed the global no-op provider is
// used, so tracing costs nothing until an exporter is configured.
//
// Example usage:
//
//	ctx, span := tracing.GetTracer().Start(ctx, "audit.Record")
//	defer span.End()
package tracing
