package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"github.com/sony/gobreaker"

	"dailybrief/internal/config"
	"dailybrief/internal/resilience/circuitbreaker"
	"dailybrief/internal/resilience/retry"
	"dailybrief/internal/utils/text"
)

// OpenAI implements Provider using OpenAI's chat completion API.
// It includes circuit breaker and retry logic for improved reliability.
type OpenAI struct {
	client          *openai.Client
	circuitBreaker  *circuitbreaker.CircuitBreaker
	retryConfig     retry.Config
	gate            *Gate
	model           string
	maxTokens       int
	metricsRecorder CallRecorder
}

// NewOpenAI creates an OpenAI provider with the given API key.
// An empty cfg.Model selects gpt-4o-mini.
func NewOpenAI(apiKey string, cfg config.AIConfig, gate *Gate) *OpenAI {
	model := cfg.Model
	if model == "" {
		model = openai.GPT4oMini
	}

	slog.Info("Initialized OpenAI provider",
		slog.String("model", model),
		slog.Int("max_tokens", cfg.MaxTokens))

	return &OpenAI{
		client: openai.NewClient(apiKey),
		circuitBreaker: circuitbreaker.New(
			applyBreakerSettings(circuitbreaker.OpenAIAPIConfig(), cfg.CircuitBreaker)),
		retryConfig:     retry.AIProviderConfig(),
		gate:            gate,
		model:           model,
		maxTokens:       cfg.MaxTokens,
		metricsRecorder: NewPrometheusCallRecorder(),
	}
}

// Name implements Provider.
func (o *OpenAI) Name() string {
	return "openai"
}

// RunStructured sends the prompt to the OpenAI API and decodes the JSON
// response into out. The request timeout covers all internal retries.
func (o *OpenAI) RunStructured(ctx context.Context, req Request, out any) error {
	if err := o.gate.Acquire(ctx); err != nil {
		if errors.Is(err, ErrBudgetExhausted) {
			return &Error{Provider: o.Name(), Operation: req.Operation, Message: "call budget exhausted", Err: err}
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

	retryErr := retry.WithBackoff(ctx, o.retryConfig, func() error {
		cbResult, err := o.circuitBreaker.Execute(func() (interface{}, error) {
			return o.complete(ctx, req)
		})

		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) {
				slog.Warn("openai api circuit breaker open, request rejected",
					slog.String("service", "openai-api"),
					slog.String("state", o.circuitBreaker.State().String()))
				return &Error{Provider: o.Name(), Operation: req.Operation, Message: "circuit breaker open", Err: err}
			}
			return err
		}

		raw = cbResult.(string)
		return nil
	})

	if retryErr != nil {
		return fmt.Errorf("openai %s failed after retries: %w", req.Operation, retryErr)
	}

	return decodeStructured(o.Name(), req.Operation, raw, out)
}

// complete performs one API call without retry or circuit breaker.
func (o *OpenAI) complete(ctx context.Context, req Request) (string, error) {
	requestID := uuid.New().String()

	userPrompt := req.User
	if n := text.CountRunes(userPrompt); n > maxPromptRunes {
		userPrompt = text.TruncateRunes(userPrompt, maxPromptRunes)
		slog.Warn("prompt truncated for openai api",
			slog.String("request_id", requestID),
			slog.String("operation", req.Operation),
			slog.Int("original_runes", n),
			slog.Int("truncated_runes", maxPromptRunes))
	}

	slog.InfoContext(ctx, "Starting AI call",
		slog.String("request_id", requestID),
		slog.String("provider", o.Name()),
		slog.String("operation", req.Operation))

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userPrompt,
	})

	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: o.maxTokens,
		Messages:  messages,
	})
	duration := time.Since(start)

	if err != nil {
		classified := o.classify(req.Operation, err)
		o.metricsRecorder.RecordCall(o.Name(), req.Operation, duration, classified)
		slog.ErrorContext(ctx, "AI call failed",
			slog.String("request_id", requestID),
			slog.String("provider", o.Name()),
			slog.String("operation", req.Operation),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return "", classified
	}

	if len(resp.Choices) == 0 {
		vErr := &Error{Provider: o.Name(), Operation: req.Operation, Message: "empty response"}
		o.metricsRecorder.RecordCall(o.Name(), req.Operation, duration, vErr)
		return "", vErr
	}

	output := resp.Choices[0].Message.Content
	o.metricsRecorder.RecordCall(o.Name(), req.Operation, duration, nil)
	slog.InfoContext(ctx, "AI call completed",
		slog.String("request_id", requestID),
		slog.String("provider", o.Name()),
		slog.String("operation", req.Operation),
		slog.Int("output_bytes", len(output)),
		slog.Duration("duration", duration))

	return output, nil
}

// classify maps SDK errors onto the provider error contract.
func (o *OpenAI) classify(operation string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Provider: o.Name(), Operation: operation, Message: "request timed out", Retryable: true}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &Error{
			Provider:  o.Name(),
			Operation: operation,
			Message:   fmt.Sprintf("api status %d", apiErr.HTTPStatusCode),
			Retryable: retryableStatus(apiErr.HTTPStatusCode),
			Err:       err,
		}
	}

	// Anything else is transport-level: DNS, connection reset, TLS.
	return &Error{Provider: o.Name(), Operation: operation, Message: "transport failure", Retryable: true, Err: err}
}
