package metrics

import (
	"fmt"
	"time"
)

// RecordDigestRun records the outcome and duration of one digest workflow run.
// Status should be "success", "empty" or "failure".
func RecordDigestRun(status string, duration time.Duration) {
	DigestRunsTotal.WithLabelValues(status).Inc()
	DigestRunDuration.Observe(duration.Seconds())
}

// RecordActivity records the duration of one activity execution together with
// the number of per-article errors it accumulated.
func RecordActivity(activity string, duration time.Duration, errorsCount int) {
	ActivityDuration.WithLabelValues(activity).Observe(duration.Seconds())
	if errorsCount > 0 {
		ActivityErrorsTotal.WithLabelValues(activity).Add(float64(errorsCount))
	}
}

// RecordDigestAssembled records the shape of an assembled digest payload.
func RecordDigestAssembled(groups, articles, htmlSize, textSize int) {
	DigestGroups.Observe(float64(groups))
	DigestArticles.Observe(float64(articles))
	DigestPayloadSize.WithLabelValues("html").Observe(float64(htmlSize))
	DigestPayloadSize.WithLabelValues("text").Observe(float64(textSize))
}

// RecordArticlesFetched records the number of articles fetched from a source.
// This metric helps track feed crawling performance and source activity.
func RecordArticlesFetched(sourceName string, sourceID int64, count int) {
	ArticlesFetchedTotal.WithLabelValues(
		sourceName,
		fmt.Sprintf("%d", sourceID),
	).Add(float64(count))
}

// RecordFeedCrawl records metrics for a feed crawl operation.
func RecordFeedCrawl(sourceID int64, duration time.Duration) {
	FeedCrawlDuration.WithLabelValues(
		fmt.Sprintf("%d", sourceID),
	).Observe(duration.Seconds())
}

// RecordFeedCrawlError records an error during feed crawling.
func RecordFeedCrawlError(sourceID int64, errorType string) {
	FeedCrawlErrors.WithLabelValues(
		fmt.Sprintf("%d", sourceID),
		errorType,
	).Inc()
}

// RecordArticleValidated records the outcome of validating one article.
// Outcome should be "accepted", "empty", "too_short" or "spam".
func RecordArticleValidated(outcome string) {
	ArticlesValidatedTotal.WithLabelValues(outcome).Inc()
}

// RecordArticleSummarized records the result of an article summarization
// operation. Fallback summaries (excerpts) count separately from AI output.
func RecordArticleSummarized(success bool) {
	status := "success"
	if !success {
		status = "fallback"
	}
	ArticlesSummarizedTotal.WithLabelValues(status).Inc()
}

// RecordSummarizationDuration records the time taken to summarize an article.
// This helps identify performance issues with the AI summarization service.
func RecordSummarizationDuration(duration time.Duration) {
	SummarizationDuration.Observe(duration.Seconds())
}

// RecordAICall records one structured-output AI call.
func RecordAICall(provider, operation string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	AICallsTotal.WithLabelValues(provider, operation, status).Inc()
	AICallDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

// RecordCacheGet records a cache lookup. Result should be "hit", "miss",
// "corrupt" or "error".
func RecordCacheGet(result string) {
	CacheOperationsTotal.WithLabelValues("get", result).Inc()
}

// RecordCacheSet records a cache write.
func RecordCacheSet(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	CacheOperationsTotal.WithLabelValues("set", result).Inc()
}

// RecordCacheDelete records a cache entry removal.
func RecordCacheDelete(err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	CacheOperationsTotal.WithLabelValues("delete", result).Inc()
}

// RecordDigestDelivered records the hand-off of a digest to the delivery
// layer. Status should be "sent", "suppressed" or "failure".
func RecordDigestDelivered(status string, duration time.Duration) {
	DigestsDeliveredTotal.WithLabelValues(status).Inc()
	DeliveryDuration.Observe(duration.Seconds())
}

// RecordContentFetchSuccess records a successful content fetch operation.
// This tracks both the duration and size of fetched content.
//
// Parameters:
//   - duration: Time taken to fetch the content
//   - size: Size of fetched content in characters
//
// Example:
//
//	start := time.Now()
//	content, err := fetcher.FetchContent(ctx, url)
//	if err == nil {
//	    RecordContentFetchSuccess(time.Since(start), len(content))
//	}
func RecordContentFetchSuccess(duration time.Duration, size int) {
	ContentFetchAttemptsTotal.WithLabelValues("success").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
	ContentFetchSize.Observe(float64(size))
}

// RecordContentFetchFailed records a failed content fetch operation.
//
// Parameters:
//   - duration: Time taken before the fetch failed
//
// Example:
//
//	start := time.Now()
//	_, err := fetcher.FetchContent(ctx, url)
//	if err != nil {
//	    RecordContentFetchFailed(time.Since(start))
//	}
func RecordContentFetchFailed(duration time.Duration) {
	ContentFetchAttemptsTotal.WithLabelValues("failure").Inc()
	ContentFetchDuration.Observe(duration.Seconds())
}

// RecordContentFetchSkipped records a skipped content fetch operation.
// This occurs when feed content is sufficient (>= threshold) and fetching is unnecessary.
//
// Example:
//
//	if len(feedContent) >= threshold {
//	    RecordContentFetchSkipped()
//	    return feedContent
//	}
func RecordContentFetchSkipped() {
	ContentFetchAttemptsTotal.WithLabelValues("skipped").Inc()
}

// RecordDBQuery records the duration of a database query operation.
// Operation should describe the query type (e.g., "select_user_config").
func RecordDBQuery(operation string, duration time.Duration) {
	DBQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// UpdateDBConnectionStats updates database connection pool statistics.
func UpdateDBConnectionStats(active, idle int) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}
