// Package retry runs operations with exponential backoff and jitter.
// Every remote call in the pipeline goes through WithBackoff under the
// preset for its activity class, and retryability is decided centrally
// by IsRetryable so fetchers and AI providers classify failures the
// same way.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"net/http"
	"syscall"
	"time"
)

// Config is one backoff schedule. Delays grow by Multiplier per
// attempt, capped at MaxDelay, with up to JitterFraction of random
// spread added so parallel retries do not synchronize.
type Config struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	MaxDelay       time.Duration
	Multiplier     float64
	JitterFraction float64
}

// next advances the delay for the following attempt.
func (c Config) next(delay time.Duration) time.Duration {
	delay = time.Duration(float64(delay) * c.Multiplier)
	if delay > c.MaxDelay {
		delay = c.MaxDelay
	}

	fraction := c.JitterFraction
	if fraction <= 0 {
		return delay
	}
	if fraction > 1 {
		fraction = 1
	}
	// #nosec G404 -- backoff jitter does not need crypto randomness.
	return delay + time.Duration(rand.Float64()*float64(delay)*fraction)
}

// WithBackoff runs fn until it succeeds, fails with a non-retryable
// error, exhausts cfg.MaxAttempts or ctx is cancelled during a wait.
// The terminal error wraps the last failure.
func WithBackoff(ctx context.Context, cfg Config, fn func() error) error {
	delay := cfg.InitialDelay

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			if attempt > 1 {
				slog.Info("operation succeeded after retry",
					slog.Int("attempt", attempt))
			}
			return nil
		}

		if !IsRetryable(err) {
			slog.Warn("non-retryable error, aborting",
				slog.Int("attempt", attempt),
				slog.Any("error", err))
			return err
		}

		if attempt >= cfg.MaxAttempts {
			return fmt.Errorf("max retry attempts (%d) exceeded: %w", cfg.MaxAttempts, err)
		}

		slog.Warn("operation failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", cfg.MaxAttempts),
			slog.Duration("delay", delay),
			slog.Any("error", err))

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return fmt.Errorf("retry aborted: %w", ctx.Err())
		}

		delay = cfg.next(delay)
	}
}

// transientErrnos are connection-level failures worth another try.
var transientErrnos = []error{
	syscall.ECONNREFUSED,
	syscall.ECONNRESET,
	syscall.ETIMEDOUT,
	syscall.ENETUNREACH,
}

// IsRetryable reports whether another attempt can plausibly succeed.
// Context cancellation never retries. Errors that classify themselves
// (the AI provider errors do) get the final say; otherwise network
// timeouts, transient connection errnos and retryable HTTP statuses
// (5xx, 429, 408) qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var selfClassified interface{ IsRetryable() bool }
	if errors.As(err, &selfClassified) {
		return selfClassified.IsRetryable()
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	for _, errno := range transientErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500 ||
			httpErr.StatusCode == http.StatusTooManyRequests ||
			httpErr.StatusCode == http.StatusRequestTimeout
	}

	return false
}

// HTTPError carries a status code through the retry chain so transport
// failures can be classified without parsing strings.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// ConfigFetchConfig is the retry class for user config loads. Fast
// backoff: a digest run cannot start without its config.
func ConfigFetchConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   2 * time.Second,
		MaxDelay:       10 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// FeedFetchConfig is the retry class for per-source feed fetches.
// Feeds fail transiently all the time; back off further before giving
// up on one.
func FeedFetchConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   5 * time.Second,
		MaxDelay:       45 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// BatchConfig is the retry class for light batch activities
// (validation, normalization, relevance).
func BatchConfig() Config {
	return Config{
		MaxAttempts:    3,
		InitialDelay:   1 * time.Second,
		MaxDelay:       30 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// AIBatchConfig is the retry class for AI-heavy batch activities
// (quality, topics, summarize, similarity). Fewer attempts with long
// waits: each attempt burns provider budget.
func AIBatchConfig() Config {
	return Config{
		MaxAttempts:    2,
		InitialDelay:   15 * time.Second,
		MaxDelay:       120 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}

// AIProviderConfig is the retry class for a single AI provider call,
// applied inside the provider under its per-operation timeout. Short
// delays: the outer batch retry handles longer outages.
func AIProviderConfig() Config {
	return Config{
		MaxAttempts:    2,
		InitialDelay:   1 * time.Second,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
	}
}
