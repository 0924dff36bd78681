// Package ai provides the structured-output AI provider abstraction used
// by the digest processors. It includes adapters for Claude (Anthropic)
// and OpenAI APIs with reliability patterns: per-call timeouts, retry
// with backoff, circuit breakers, a shared rate gate with a per-run call
// budget, and bounded JSON output decoding. A disabled provider lets the
// whole pipeline run on fallbacks with no API access at all.
package ai

import (
	"context"
	"net/http"
	"time"

	"dailybrief/internal/config"
	"dailybrief/internal/resilience/circuitbreaker"
)

const (
	// defaultCallTimeout bounds a call whose Request carries no timeout.
	defaultCallTimeout = 60 * time.Second

	// maxPromptRunes caps the user prompt sent to any backend. Token
	// limits vary per model; 10,000 runes stays safely inside all of
	// them with room for the system prompt and response.
	maxPromptRunes = 10000
)

// Request describes one structured-output prompt.
type Request struct {
	// Operation names the calling activity ("spam", "quality", "topics",
	// "relevance", "summarizer", "similarity") for logs and metrics.
	Operation string

	// System is the system prompt. Empty means no system prompt.
	System string

	// User is the user prompt. Providers truncate it to a safe length
	// before sending.
	User string

	// Timeout bounds the whole call including provider-level retries.
	// Non-positive falls back to the provider default.
	Timeout time.Duration
}

// Provider runs structured-output prompts against a model backend.
//
// RunStructured sends the request, extracts the JSON document from the
// model output (bare or fenced) and unmarshals it into out. Failures
// carry retryability through *Error in the chain: rate limits, 5xx and
// timeouts are retryable; schema violations and oversized output are
// not.
type Provider interface {
	// Name identifies the backend ("anthropic", "openai", "disabled").
	Name() string

	RunStructured(ctx context.Context, req Request, out any) error
}

// applyBreakerSettings overlays the configured circuit breaker knobs on
// a provider preset, keeping the preset's name.
func applyBreakerSettings(base circuitbreaker.Config, cfg config.CircuitBreakerConfig) circuitbreaker.Config {
	base.MaxRequests = cfg.MaxRequests
	base.Interval = cfg.Interval
	base.Timeout = cfg.Timeout
	base.FailureThreshold = cfg.FailureThreshold
	base.MinRequests = cfg.MinRequests
	return base
}

// retryableStatus reports whether an HTTP status from a provider is
// worth retrying: 5xx, rate limiting and request timeout.
func retryableStatus(status int) bool {
	return status >= 500 ||
		status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout
}
