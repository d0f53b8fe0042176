// Package observability provides the operational plumbing for the analytics
// service: structured JSON logging, Prometheus and OpenTelemetry metrics,
// distributed tracing setup, Redis health checks, panic recovery, and
// graceful shutdown coordination.
//
// The logger wraps log/slog with field chaining and context propagation of
// request IDs. Metrics come in two flavors: a Prometheus registry served on
// the health port (the primary path) and an OTLP meter mirror for deployments
// that ship telemetry to a collector.
package observability
