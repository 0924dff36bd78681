// Package fetcher retrieves and parses RSS/Atom feeds. It uses the
// gofeed library to parse feed content with reliability patterns.
//
// A fetch runs through a circuit breaker with exponential-backoff
// retries. Failures are returned as data on the FetchResult envelope
// rather than as errors, so one dead source never aborts a digest run.
// Items whose feed body is thin can optionally be enhanced by fetching
// the article page and extracting readable text.
package fetcher

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"dailybrief/internal/config"
	"dailybrief/internal/domain/entity"
	"dailybrief/internal/observability/metrics"
	"dailybrief/internal/resilience/circuitbreaker"
	"dailybrief/internal/resilience/retry"
	"dailybrief/internal/utils/text"

	"github.com/mmcdole/gofeed"
	"github.com/sony/gobreaker"
)

// contentExtractor pulls readable article text from a page URL.
type contentExtractor interface {
	Extract(ctx context.Context, pageURL string) (string, error)
}

// Fetcher retrieves RSS/Atom feeds with circuit breaker and retry
// logic. Safe for concurrent use.
type Fetcher struct {
	client         *http.Client
	circuitBreaker *circuitbreaker.CircuitBreaker
	retryConfig    retry.Config
	userAgent      string
	maxArticles    int
	denyPrivate    bool
	enhanceMin     int
	enhancer       contentExtractor
}

// NewFetcher creates a Fetcher for the given HTTP client and fetch
// settings. A nil client gets a default one bounded by cfg.Timeout.
// When cfg.EnhanceContent is set, thin items are enhanced through a
// readability extractor sharing the fetcher's user agent and
// private-host policy.
func NewFetcher(client *http.Client, cfg config.FetchConfig) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	retryCfg := retry.FeedFetchConfig()
	if cfg.MaxRetries > 0 {
		retryCfg.MaxAttempts = cfg.MaxRetries
	}
	if cfg.RetryDelay > 0 {
		retryCfg.InitialDelay = cfg.RetryDelay
	}

	f := &Fetcher{
		client:         client,
		circuitBreaker: circuitbreaker.New(circuitbreaker.FeedFetchConfig()),
		retryConfig:    retryCfg,
		userAgent:      cfg.UserAgent,
		maxArticles:    cfg.MaxArticlesPerFeed,
		denyPrivate:    cfg.DenyPrivateHosts,
		enhanceMin:     cfg.EnhanceMinLength,
	}

	if cfg.EnhanceContent {
		enhanceCfg := DefaultEnhanceConfig()
		enhanceCfg.UserAgent = cfg.UserAgent
		enhanceCfg.DenyPrivateHosts = cfg.DenyPrivateHosts
		f.enhancer = NewEnhancer(enhanceCfg)
	}

	return f
}

// Fetch retrieves and parses one source's feed. The outcome is always
// a FetchResult: a failed fetch comes back with Success=false and the
// error recorded on the envelope, so callers aggregate dead sources
// instead of aborting. FetchTimestamp is taken at the start of the
// fetch and stamped on every article as FetchedAt.
func (f *Fetcher) Fetch(ctx context.Context, source entity.SourceRef) entity.FetchResult {
	start := time.Now().UTC()
	result := entity.FetchResult{
		Source:         entity.SourceInfo{ID: source.ID, Name: source.Name, FeedURL: source.FeedURL},
		FetchTimestamp: start,
	}

	if err := entity.ValidateFetchURL(source.FeedURL, f.denyPrivate); err != nil {
		slog.Warn("feed URL rejected",
			slog.Int64("source_id", source.ID),
			slog.String("url", source.FeedURL),
			slog.String("error", err.Error()))
		metrics.RecordFeedCrawlError(source.ID, "invalid_url")
		result.Error = err.Error()
		return result
	}

	var feed *gofeed.Feed

	// Wrap with retry logic
	retryErr := retry.WithBackoff(ctx, f.retryConfig, func() error {
		// Execute through circuit breaker
		cbResult, err := f.circuitBreaker.Execute(func() (interface{}, error) {
			return f.doFetch(ctx, source.FeedURL)
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("feed fetch circuit breaker open, request rejected",
					slog.String("service", f.circuitBreaker.Name()),
					slog.Int64("source_id", source.ID),
					slog.String("url", source.FeedURL),
					slog.String("state", f.circuitBreaker.State().String()))
			}
			return err
		}

		feed = cbResult.(*gofeed.Feed)
		return nil
	})

	if retryErr != nil {
		slog.Warn("feed fetch failed",
			slog.Int64("source_id", source.ID),
			slog.String("url", source.FeedURL),
			slog.String("error", retryErr.Error()))
		metrics.RecordFeedCrawlError(source.ID, errorKind(retryErr))
		result.Error = retryErr.Error()
		return result
	}

	result.Articles = f.collectArticles(ctx, source, feed, start)
	result.Success = true

	metrics.RecordFeedCrawl(source.ID, time.Since(start))
	metrics.RecordArticlesFetched(source.Name, source.ID, len(result.Articles))

	return result
}

// doFetch performs the actual feed fetch without retry or circuit
// breaker. Non-2xx responses are mapped onto retry.HTTPError so the
// retry layer can classify them by status code.
func (f *Fetcher) doFetch(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	fp := gofeed.NewParser()
	fp.UserAgent = f.userAgent
	fp.Client = f.client

	feed, err := fp.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		var httpErr gofeed.HTTPError
		if errors.As(err, &httpErr) {
			return nil, &retry.HTTPError{StatusCode: httpErr.StatusCode, Message: httpErr.Status}
		}
		return nil, err
	}

	return feed, nil
}

// collectArticles maps feed entries onto articles. Malformed entries
// are skipped with a warning and never fail the fetch; the per-feed
// cap bounds how many entries one feed contributes.
func (f *Fetcher) collectArticles(ctx context.Context, source entity.SourceRef, feed *gofeed.Feed, fetchedAt time.Time) []entity.Article {
	articles := make([]entity.Article, 0, min(len(feed.Items), f.maxArticles))

	for _, it := range feed.Items {
		if len(articles) >= f.maxArticles {
			slog.Debug("article cap reached, dropping remaining feed entries",
				slog.Int64("source_id", source.ID),
				slog.Int("cap", f.maxArticles),
				slog.Int("feed_items", len(feed.Items)))
			break
		}

		article, ok := f.buildArticle(source, it, fetchedAt)
		if !ok {
			continue
		}

		f.enhance(ctx, &article, it.Link)
		articles = append(articles, article)
	}

	return articles
}

// buildArticle converts one feed entry. The entry's link becomes the
// article's canonical URL; an entry whose link cannot be canonicalized
// is unusable and reported as skipped. published_at stays zero when
// the feed declares no timestamp, the normalizer fills it later.
func (f *Fetcher) buildArticle(source entity.SourceRef, it *gofeed.Item, fetchedAt time.Time) (entity.Article, bool) {
	canonical, err := entity.CanonicalURL(it.Link)
	if err != nil {
		slog.Warn("skipping feed entry with unusable link",
			slog.Int64("source_id", source.ID),
			slog.String("title", text.TruncateRunes(it.Title, 80)),
			slog.String("error", err.Error()))
		return entity.Article{}, false
	}

	// Content優先、なければDescriptionを使用
	content := it.Content
	if content == "" {
		content = it.Description
	}

	var published time.Time
	if it.PublishedParsed != nil {
		published = it.PublishedParsed.UTC()
	} else if it.UpdatedParsed != nil {
		published = it.UpdatedParsed.UTC()
	}

	var author string
	if it.Author != nil {
		author = strings.TrimSpace(it.Author.Name)
	}

	return entity.Article{
		URL:         canonical,
		Title:       sanitizeHTML(it.Title),
		Content:     sanitizeHTML(content),
		Author:      author,
		Tags:        it.Categories,
		PublishedAt: published,
		FetchedAt:   fetchedAt,
	}, true
}

// enhance replaces thin feed content with text extracted from the
// article page. Any failure keeps the feed content.
func (f *Fetcher) enhance(ctx context.Context, article *entity.Article, pageURL string) {
	if f.enhancer == nil {
		return
	}
	if text.CountRunes(article.Content) >= f.enhanceMin {
		metrics.RecordContentFetchSkipped()
		return
	}

	start := time.Now()
	extracted, err := f.enhancer.Extract(ctx, pageURL)
	if err != nil {
		metrics.RecordContentFetchFailed(time.Since(start))
		slog.Warn("content enhancement failed, keeping feed content",
			slog.String("url", pageURL),
			slog.String("error", err.Error()))
		return
	}

	metrics.RecordContentFetchSuccess(time.Since(start), len(extracted))
	article.Content = extracted
}

// errorKind labels a fetch failure for metrics. Labels stay low
// cardinality; the full error text lives on the result envelope.
func errorKind(err error) string {
	var validationErr *entity.ValidationError
	var httpErr *retry.HTTPError
	var netErr net.Error

	switch {
	case errors.As(err, &validationErr):
		return "invalid_url"
	case errors.Is(err, gobreaker.ErrOpenState):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &httpErr):
		if httpErr.StatusCode >= 500 {
			return "http_5xx"
		}
		return "http_4xx"
	case errors.As(err, &netErr):
		return "network"
	default:
		return "parse"
	}
}
