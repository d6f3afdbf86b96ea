// Package observability wires Prometheus metrics and OpenTelemetry tracing
// for task invocations.
package observability
