// Package observe provides observability for page resolution and tool
// execution: OpenTelemetry tracing and metrics plus structured JSON logging.
//
// An Observer is assembled from Config and hands out a tracer, a meter and a
// logger. Middleware wraps an operation (a router get or a tool invoke) with
// a span, execution metrics and a log line. Components that only need
// logging accept a Logger directly.
package observe
