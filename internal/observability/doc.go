// Package observability provides production-grade observability infrastructure
// including structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// This package centralizes observability concerns to enable:
//   - Run tracing across activity boundaries
//   - Structured logging with context propagation
//   - Prometheus metrics for monitoring
//   - Digest delivery SLO tracking
//
// Subpackages:
//   - logging: Structured logging utilities with slog
//   - metrics: Prometheus metrics registry and recorders
//   - slo: Digest delivery deadline tracking
//   - tracing: OpenTelemetry spans around pipeline activities
//
// Example usage:
//
//	import (
//	    "dailybrief/internal/observability/logging"
//	    "dailybrief/internal/observability/metrics"
//	)
//
//	func main() {
//	    logger := logging.NewLogger()
//	    logger.Info("worker started")
//
//	    metrics.RecordArticlesFetched("example-source", 1, 10)
//	}
package observability
