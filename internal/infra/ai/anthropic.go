package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"dailybrief/internal/config"
	"dailybrief/internal/resilience/circuitbreaker"
	"dailybrief/internal/resilience/retry"
	"dailybrief/internal/utils/text"
)

// Anthropic implements Provider using Anthropic's Claude API.
// It includes circuit breaker and retry logic for improved reliability.
type Anthropic struct {
	client          anthropic.Client
	circuitBreaker  *circuitbreaker.CircuitBreaker
	retryConfig     retry.Config
	gate            *Gate
	model           string
	maxTokens       int64
	metricsRecorder CallRecorder
}

// NewAnthropic creates an Anthropic provider with the given API key.
// An empty cfg.Model selects the current Claude Sonnet model.
func NewAnthropic(apiKey string, cfg config.AIConfig, gate *Gate) *Anthropic {
	model := cfg.Model
	if model == "" {
		// Literal model ID: the pinned SDK version predates the
		// anthropic.ModelClaudeSonnet4_5_20250929 constant.
		model = "claude-sonnet-4-5-20250929"
	}

	slog.Info("Initialized Anthropic provider",
		slog.String("model", model),
		slog.Int("max_tokens", cfg.MaxTokens))

	return &Anthropic{
		// The SDK retries 429/5xx internally by default; retries here
		// belong to the retry layer so attempts stay observable.
		client: anthropic.NewClient(option.WithAPIKey(apiKey), option.WithMaxRetries(0)),
		circuitBreaker: circuitbreaker.New(
			applyBreakerSettings(circuitbreaker.ClaudeAPIConfig(), cfg.CircuitBreaker)),
		retryConfig:     retry.AIProviderConfig(),
		gate:            gate,
		model:           model,
		maxTokens:       int64(cfg.MaxTokens),
		metricsRecorder: NewPrometheusCallRecorder(),
	}
}

// Name implements Provider.
func (a *Anthropic) Name() string {
	return "anthropic"
}

// RunStructured sends the prompt to the Claude API and decodes the JSON
// response into out. The request timeout covers all internal retries.
func (a *Anthropic) RunStructured(ctx context.Context, req Request, out any) error {
	if err := a.gate.Acquire(ctx); err != nil {
		if errors.Is(err, ErrBudgetExhausted) {
			return &Error{Provider: a.Name(), Operation: req.Operation, Message: "call budget exhausted", Err: err}
		}
		return err
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var raw string

	retryErr := retry.WithBackoff(ctx, a.retryConfig, func() error {
		cbResult, err := a.circuitBreaker.Execute(func() (interface{}, error) {
			return a.complete(ctx, req)
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("anthropic api circuit breaker open, request rejected",
					slog.String("service", "anthropic-api"),
					slog.String("state", a.circuitBreaker.State().String()))
				return &Error{Provider: a.Name(), Operation: req.Operation, Message: "circuit breaker open", Err: err}
			}
			return err
		}

		raw = cbResult.(string)
		return nil
	})

	if retryErr != nil {
		return fmt.Errorf("anthropic %s failed after retries: %w", req.Operation, retryErr)
	}

	return decodeStructured(a.Name(), req.Operation, raw, out)
}

// complete performs one API call without retry or circuit breaker.
func (a *Anthropic) complete(ctx context.Context, req Request) (string, error) {
	requestID := uuid.New().String()

	userPrompt := req.User
	if n := text.CountRunes(userPrompt); n > maxPromptRunes {
		userPrompt = text.TruncateRunes(userPrompt, maxPromptRunes)
		slog.Warn("prompt truncated for anthropic api",
			slog.String("request_id", requestID),
			slog.String("operation", req.Operation),
			slog.Int("original_runes", n),
			slog.Int("truncated_runes", maxPromptRunes))
	}

	slog.InfoContext(ctx, "Starting AI call",
		slog.String("request_id", requestID),
		slog.String("provider", a.Name()),
		slog.String("operation", req.Operation))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewTextBlock(userPrompt),
			),
		},
	}
	if req.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.System}}
	}

	start := time.Now()
	message, err := a.client.Messages.New(ctx, params)
	duration := time.Since(start)

	if err != nil {
		classified := a.classify(req.Operation, err)
		a.metricsRecorder.RecordCall(a.Name(), req.Operation, duration, classified)
		slog.ErrorContext(ctx, "AI call failed",
			slog.String("request_id", requestID),
			slog.String("provider", a.Name()),
			slog.String("operation", req.Operation),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", classified
	}

	if len(message.Content) == 0 {
		vErr := &Error{Provider: a.Name(), Operation: req.Operation, Message: "empty response"}
		a.metricsRecorder.RecordCall(a.Name(), req.Operation, duration, vErr)
		return "", vErr
	}

	textBlock, ok := message.Content[0].AsAny().(anthropic.TextBlock)
	if !ok {
		vErr := &Error{Provider: a.Name(), Operation: req.Operation, Message: "unexpected response type"}
		a.metricsRecorder.RecordCall(a.Name(), req.Operation, duration, vErr)
		return "", vErr
	}

	a.metricsRecorder.RecordCall(a.Name(), req.Operation, duration, nil)
	slog.InfoContext(ctx, "AI call completed",
		slog.String("request_id", requestID),
		slog.String("provider", a.Name()),
		slog.String("operation", req.Operation),
		slog.Int("output_bytes", len(textBlock.Text)),
		slog.Duration("duration", duration))

	return textBlock.Text, nil
}

// classify maps SDK errors onto the provider error contract.
func (a *Anthropic) classify(operation string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Provider: a.Name(), Operation: operation, Message: "request timed out", Retryable: true}
	}

	var apierr *anthropic.Error
	if errors.As(err, &apierr) {
		return &Error{
			Provider:  a.Name(),
			Operation: operation,
			Message:   fmt.Sprintf("api status %d", apierr.StatusCode),
			Retryable: retryableStatus(apierr.StatusCode),
			Err:       err,
		}
	}

	// Anything else is transport-level: DNS, connection reset, TLS.
	return &Error{Provider: a.Name(), Operation: operation, Message: "transport failure", Retryable: true, Err: err}
}
