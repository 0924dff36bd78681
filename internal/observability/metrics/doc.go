// Package metrics is the pipeline's Prometheus surface. Collectors
// register on the default registry at init and are scraped through the
// worker's /metrics endpoint.
//
// Metric families cover the digest workflow (run outcomes, activity
// durations, digest shape), feed fetching and content enhancement, AI
// calls per provider and operation, and the cache and database layers.
// The Record* helpers in business.go are the only write path.
//
// Example:
//
//	import "dailybrief/internal/observability/metrics"
//
//	func runActivity(name string) {
//	    start := time.Now()
//	    // ... execute batch ...
//	    metrics.RecordActivity(name, time.Since(start), 0)
//	}
package metrics
