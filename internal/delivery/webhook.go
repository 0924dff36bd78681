package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"dailybrief/internal/domain/entity"
)

// WebhookConfig configures the outbound digest webhook.
type WebhookConfig struct {
	// Enabled indicates whether webhook delivery is active.
	Enabled bool

	// URL is the endpoint that receives the digest JSON.
	URL string

	// Timeout is the HTTP request timeout per attempt.
	Timeout time.Duration

	// RetryBaseDelay is the backoff unit between attempts. Zero means
	// the 5 second default.
	RetryBaseDelay time.Duration
}

// WebhookSender posts assembled digests to an HTTP endpoint as JSON. The
// endpoint is expected to relay the payload to the user's inbox; this
// sender only guarantees the hand-off.
type WebhookSender struct {
	config     WebhookConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewWebhookSender builds a sender with a client bound to the configured
// timeout and a token bucket sized for mail-relay endpoints (2 req/s,
// burst of 5).
func NewWebhookSender(config WebhookConfig) *WebhookSender {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.RetryBaseDelay <= 0 {
		config.RetryBaseDelay = 5 * time.Second
	}
	return &WebhookSender{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(2), 5),
	}
}

func (w *WebhookSender) Name() string  { return "webhook" }
func (w *WebhookSender) Enabled() bool { return w.config.Enabled && w.config.URL != "" }

// webhookMessage is the JSON body posted to the endpoint.
type webhookMessage struct {
	UserID      string                `json:"user_id"`
	Email       string                `json:"email"`
	Subject     string                `json:"subject"`
	HTMLBody    string                `json:"html_body"`
	TextBody    string                `json:"text_body"`
	Preview     string                `json:"preview"`
	GeneratedAt string                `json:"generated_at"`
	Groups      []entity.GroupSummary `json:"groups"`
	Metadata    entity.DigestMetadata `json:"metadata"`
}

// webhookErrorResponse is the error shape some relay services return on
// 429, mirroring the Discord/Slack convention of retry_after in seconds.
type webhookErrorResponse struct {
	Message    string  `json:"message"`
	RetryAfter float64 `json:"retry_after"`
}

const (
	maxPreviewLength  = 280
	truncationSuffix  = "..."
	defaultRetryAfter = 5 * time.Second
	maxSendAttempts   = 2
)

// buildMessage flattens the payload into the wire shape. A degraded run
// gets a "(partial)" marker in the subject so the recipient knows some
// sources or scoring calls failed.
func buildMessage(payload entity.DigestPayload) webhookMessage {
	subject := fmt.Sprintf("Daily Brief: %d stories", payload.Metadata.TotalArticles)
	if payload.Metadata.TotalArticles == 1 {
		subject = "Daily Brief: 1 story"
	}
	if payload.Empty() {
		subject = "Daily Brief: no new stories today"
	}
	if payload.Metadata.SourceFailures > 0 || payload.Metadata.AIFailures > 0 {
		subject += " (partial)"
	}

	return webhookMessage{
		UserID:      payload.UserID,
		Email:       payload.Email,
		Subject:     subject,
		HTMLBody:    payload.HTMLBody,
		TextBody:    payload.TextBody,
		Preview:     truncate(payload.TextBody, maxPreviewLength, truncationSuffix),
		GeneratedAt: payload.GenerationTimestamp.Format(time.RFC3339),
		Groups:      payload.GroupsSummary,
		Metadata:    payload.Metadata,
	}
}

// sendRequest performs one POST and classifies the response into the
// delivery error taxonomy.
func (w *WebhookSender) sendRequest(ctx context.Context, msg webhookMessage) error {
	jsonData, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal webhook message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.config.URL, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{
			Message:    "webhook rate limit exceeded",
			RetryAfter: retryAfterFrom(resp, body),
		}
	}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		return &ClientError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("webhook client error %d: %s", resp.StatusCode, string(body)),
		}
	}
	if resp.StatusCode >= 500 {
		return &ServerError{
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("webhook server error %d: %s", resp.StatusCode, string(body)),
		}
	}
	return fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
}

// retryAfterFrom reads the retry delay from the JSON body first, then the
// Retry-After header, then falls back to a flat default.
func retryAfterFrom(resp *http.Response, body []byte) time.Duration {
	var werr webhookErrorResponse
	if err := json.Unmarshal(body, &werr); err == nil && werr.RetryAfter > 0 {
		return time.Duration(werr.RetryAfter * float64(time.Second))
	}
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultRetryAfter
}

// sendWithRetry attempts delivery up to maxSendAttempts times. Rate limits
// wait out the advertised delay, server and network errors back off
// linearly, client errors fail immediately.
func (w *WebhookSender) sendWithRetry(ctx context.Context, deliveryID string, msg webhookMessage) error {
	var lastErr error
	for attempt := 1; attempt <= maxSendAttempts; attempt++ {
		err := w.sendRequest(ctx, msg)
		if err == nil {
			slog.Info("digest webhook delivered",
				slog.String("delivery_id", deliveryID),
				slog.String("user_id", msg.UserID),
				slog.Int("attempt", attempt))
			return nil
		}
		lastErr = err

		if rle, ok := asRateLimit(err); ok {
			slog.Warn("webhook rate limit hit, backing off",
				slog.String("delivery_id", deliveryID),
				slog.String("user_id", msg.UserID),
				slog.Duration("retry_after", rle.RetryAfter),
				slog.Int("attempt", attempt))
			select {
			case <-time.After(rle.RetryAfter):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during rate limit backoff: %w", ctx.Err())
			}
		}

		if !retryable(err) {
			slog.Error("webhook delivery failed with non-retryable error",
				slog.String("delivery_id", deliveryID),
				slog.String("user_id", msg.UserID),
				slog.Any("error", err),
				slog.Int("attempt", attempt))
			return err
		}

		if attempt < maxSendAttempts {
			delay := w.config.RetryBaseDelay * time.Duration(attempt)
			slog.Warn("webhook request failed, retrying",
				slog.String("delivery_id", deliveryID),
				slog.String("user_id", msg.UserID),
				slog.Any("error", err),
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay))
			select {
			case <-time.After(delay):
				continue
			case <-ctx.Done():
				return fmt.Errorf("context canceled during retry backoff: %w", ctx.Err())
			}
		}
	}

	slog.Error("webhook delivery failed after all retries",
		slog.String("delivery_id", deliveryID),
		slog.String("user_id", msg.UserID),
		slog.Any("error", lastErr),
		slog.Int("max_attempts", maxSendAttempts))
	return fmt.Errorf("webhook delivery failed after %d attempts: %w", maxSendAttempts, lastErr)
}

// Send implements Sender. Applies the shared rate limiter, then posts the
// digest with retries.
func (w *WebhookSender) Send(ctx context.Context, payload entity.DigestPayload) error {
	deliveryID := uuid.New().String()

	slog.Info("starting digest webhook delivery",
		slog.String("delivery_id", deliveryID),
		slog.String("user_id", payload.UserID),
		slog.Int("groups", payload.Metadata.TotalGroups))

	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return w.sendWithRetry(ctx, deliveryID, buildMessage(payload))
}
