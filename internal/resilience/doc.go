// Package resilience provides reliability and fault tolerance patterns for the pipeline.
// It includes circuit breakers and retry logic so a digest run degrades gracefully when
// its upstreams (feeds, AI providers, the subscription database) misbehave.
//
// The package supports:
//   - Circuit breakers for external calls (Claude, OpenAI, feed fetching, content
//     enhancement) and for the subscription database
//   - Retry logic with exponential backoff and jitter, one preset per activity
//     retry class
//
// Usage Example:
//
//	cb := circuitbreaker.New(circuitbreaker.FeedFetchConfig())
//	result, err := cb.Execute(func() (interface{}, error) {
//	    return fetchFeed(url)
//	})
//
//	err := retry.WithBackoff(ctx, retry.AIBatchConfig(), func() error {
//	    return scoreBatch(ctx)
//	})
package resilience
