// Package observe carries the telemetry of the server: a zap-backed
// structured Logger, OpenTelemetry tracing and metrics, and a Middleware
// that wraps tool executions.
//
// Everything writes to stderr or to an exporter. Stdout belongs to the
// stdio MCP transport and is never touched.
package observe
