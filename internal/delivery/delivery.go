// Package delivery hands finished digests to an outbound transport. The
// workflow produces a DigestPayload and the worker passes it here; senders
// rate-limit and retry internally, and the dispatcher adds bounded
// concurrency plus a per-sender cooldown so one dead transport cannot
// stall a scheduled batch.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dailybrief/internal/domain/entity"
)

// Sender delivers one assembled digest to a transport.
type Sender interface {
	// Name identifies the sender in logs, metrics and health output.
	Name() string

	// Enabled reports whether the sender should receive digests at all.
	Enabled() bool

	// Send delivers the payload. Implementations rate-limit and retry
	// internally; a returned error means delivery failed for good.
	Send(ctx context.Context, payload entity.DigestPayload) error
}

// RateLimitError is a 429 from the receiving service.
type RateLimitError struct {
	RetryAfter time.Duration
	Message    string
}

func (e *RateLimitError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s (retry after %v)", e.Message, e.RetryAfter)
	}
	return fmt.Sprintf("rate limit exceeded (retry after %v)", e.RetryAfter)
}

// ClientError is a non-429 4xx response. The request itself is wrong, so
// repeating it cannot help.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string { return e.Message }

// ServerError is a 5xx response.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string { return e.Message }

// asRateLimit extracts a RateLimitError so callers can honor RetryAfter.
func asRateLimit(err error) (*RateLimitError, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return rle, true
	}
	return nil, false
}

// retryable reports whether a failed attempt is worth repeating. Server
// errors and network failures are; client errors are not; rate limits
// carry their own delay and are handled via asRateLimit.
func retryable(err error) bool {
	var ce *ClientError
	if errors.As(err, &ce) {
		return false
	}
	var rle *RateLimitError
	if errors.As(err, &rle) {
		return false
	}
	return true
}

// truncate caps text at max bytes, marking the cut with suffix.
func truncate(text string, max int, suffix string) string {
	if len(text) <= max {
		return text
	}
	cut := max - len(suffix)
	if cut < 0 {
		cut = 0
	}
	return text[:cut] + suffix
}
