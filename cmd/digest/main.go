// Package main provides a CLI command for generating one user's digest on demand.
// Usage: dailybrief-digest --user USER_ID [--output text|json|html] [--deliver]
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"dailybrief/internal/activity"
	"dailybrief/internal/config"
	"dailybrief/internal/delivery"
	"dailybrief/internal/domain/entity"
	"dailybrief/internal/infra/ai"
	"dailybrief/internal/infra/cache"
	"dailybrief/internal/infra/db"
	"dailybrief/internal/infra/fetcher"
	"dailybrief/internal/infra/postgres"
	pkgconfig "dailybrief/internal/pkg/config"
	"dailybrief/internal/pkg/runid"
	"dailybrief/internal/workflow"
)

// RunOutput represents the JSON output format for a digest run.
type RunOutput struct {
	Report  workflow.RunReport   `json:"report"`
	Payload entity.DigestPayload `json:"payload"`
}

func main() {
	// Parse command-line arguments
	var (
		userID       string
		outputFormat string
		deliver      bool
	)

	flag.StringVar(&userID, "user", "", "User ID to generate the digest for (required)")
	flag.StringVar(&outputFormat, "output", "text", "Output format: text, json or html")
	flag.BoolVar(&deliver, "deliver", false, "Send the digest through the configured webhook")
	flag.Parse()

	if userID == "" {
		fmt.Fprintln(os.Stderr, "Error: --user is required")
		printUsage()
		os.Exit(1)
	}

	switch outputFormat {
	case "text", "json", "html":
	default:
		fmt.Fprintf(os.Stderr, "Error: Invalid output format '%s' (must be 'text', 'json' or 'html')\n", outputFormat)
		printUsage()
		os.Exit(1)
	}

	// Initialize logger (stderr, so stdout stays clean for output)
	logger := initLogger()

	pipelineConfig, err := config.LoadPipelineConfig(logger, pkgconfig.NewConfigMetrics("pipeline"))
	if err != nil {
		logger.Error("failed to load pipeline configuration", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: Failed to load pipeline configuration: %v\n", err)
		os.Exit(1)
	}

	database := db.Open()
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()
	// Migrations are idempotent and seed a demo subscription, so the
	// command works against a fresh database.
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: Failed to apply migrations: %v\n", err)
		os.Exit(1)
	}

	// Same run budget a scheduled batch grants each user.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	store, memo := buildCache(ctx, logger, pipelineConfig.Cache)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close cache store", slog.Any("error", err))
		}
	}()

	provider := createProvider(logger, pipelineConfig.AI)
	configStore := postgres.NewUserConfigStore(database)
	feedFetcher := fetcher.NewFetcher(newHTTPClient(), pipelineConfig.Fetch)

	acts := activity.New(*pipelineConfig, provider, memo, configStore, feedFetcher, logger)
	runner := workflow.NewRunner(acts, logger)

	ctx = runid.WithRunID(ctx, runid.New())

	logger.Info("generating digest", slog.String("user_id", userID))
	payload, report, err := runner.Run(ctx, userID)
	if err != nil {
		logger.Error("digest run failed", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: Digest run failed: %v\n", err)
		os.Exit(1)
	}

	if deliver {
		deliverDigest(ctx, logger, payload)
	}

	// Output results
	switch outputFormat {
	case "json":
		outputJSON(payload, report)
	case "html":
		fmt.Println(payload.HTMLBody)
	default:
		outputText(payload, report)
	}
}

// printUsage prints command usage and examples to stderr.
func printUsage() {
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage: dailybrief-digest --user USER_ID [--output text|json|html] [--deliver]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Examples:")
	fmt.Fprintln(os.Stderr, "  dailybrief-digest --user demo")
	fmt.Fprintln(os.Stderr, "  dailybrief-digest --user demo --output json")
	fmt.Fprintln(os.Stderr, "  dailybrief-digest --user demo --output html > digest.html")
	fmt.Fprintln(os.Stderr, "  dailybrief-digest --user demo --deliver")
}

// outputText prints the digest run in human-readable format.
func outputText(payload entity.DigestPayload, report workflow.RunReport) {
	fmt.Printf("Digest for %s (%s)\n", payload.UserID, payload.Email)
	fmt.Printf("Generated: %s\n", payload.GenerationTimestamp.Format(time.RFC3339))
	fmt.Printf("Status: %s\n", report.Status)
	fmt.Printf("Groups: %d (%d articles)\n\n", payload.Metadata.TotalGroups, payload.Metadata.TotalArticles)

	if payload.Empty() {
		fmt.Println("No articles passed the relevance threshold; the digest is empty.")
	}
	for i, group := range payload.GroupsSummary {
		fmt.Printf("%d. %s", i+1, group.PrimaryTitle)
		if group.MemberCount > 1 {
			fmt.Printf(" (+%d related)", group.MemberCount-1)
		}
		fmt.Println()
		fmt.Printf("   %s\n", group.PrimaryURL)
		if len(group.Topics) > 0 {
			fmt.Printf("   topics: %s\n", strings.Join(group.Topics, ", "))
		}
	}

	fmt.Printf("\nRun %s: %s, %d cache hits, %d AI calls\n",
		report.RunID, report.Duration().Round(time.Millisecond), report.CacheHits(), report.AICalls())
	if report.SourceFailures > 0 || report.AIFailures > 0 {
		fmt.Printf("Failures: %d sources, %d AI operations\n", report.SourceFailures, report.AIFailures)
	}
	if len(report.Degraded) > 0 {
		fmt.Printf("Degraded steps: %s\n", strings.Join(report.Degraded, ", "))
	}
}

// outputJSON prints the digest payload and run report in JSON format.
func outputJSON(payload entity.DigestPayload, report workflow.RunReport) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(RunOutput{Report: report, Payload: payload}); err != nil {
		fmt.Fprintf(os.Stderr, "Error: Failed to encode JSON: %v\n", err)
		os.Exit(1)
	}
}

// deliverDigest sends the payload through the webhook synchronously.
func deliverDigest(ctx context.Context, logger *slog.Logger, payload entity.DigestPayload) {
	webhookURL := os.Getenv("DELIVERY_WEBHOOK_URL")
	if webhookURL == "" {
		fmt.Fprintln(os.Stderr, "Error: --deliver requires DELIVERY_WEBHOOK_URL")
		os.Exit(1)
	}

	sender := delivery.NewWebhookSender(delivery.WebhookConfig{
		Enabled: true,
		URL:     webhookURL,
		Timeout: 30 * time.Second,
	})
	if err := sender.Send(ctx, payload); err != nil {
		logger.Error("delivery failed", slog.Any("error", err))
		fmt.Fprintf(os.Stderr, "Error: Delivery failed: %v\n", err)
		os.Exit(1)
	}
	logger.Info("digest delivered", slog.String("user_id", payload.UserID))
}

// buildCache builds the memoization store for this run, falling back to
// the in-process store when Redis is configured but unreachable.
func buildCache(ctx context.Context, logger *slog.Logger, cfg config.CacheConfig) (cache.Store, *cache.Memo) {
	if cfg.Backend == config.CacheBackendRedis {
		store, err := cache.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			return store, cache.NewMemo(store, logger)
		}
		logger.Warn("Redis unreachable, falling back to in-memory cache",
			slog.String("addr", cfg.RedisAddr),
			slog.Any("error", err))
	}
	store := cache.NewMemoryStore(cache.DefaultMemoryStoreConfig())
	return store, cache.NewMemo(store, logger)
}

// createProvider creates an AI provider based on the AI_PROVIDER setting.
func createProvider(logger *slog.Logger, cfg config.AIConfig) ai.Provider {
	gate := ai.NewGate(cfg.RateLimit)

	switch cfg.Provider {
	case config.ProviderAnthropic:
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			fmt.Fprintln(os.Stderr, "Error: ANTHROPIC_API_KEY is required when AI_PROVIDER=anthropic")
			os.Exit(1)
		}
		return ai.NewAnthropic(apiKey, cfg, gate)
	case config.ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			fmt.Fprintln(os.Stderr, "Error: OPENAI_API_KEY is required when AI_PROVIDER=openai")
			os.Exit(1)
		}
		return ai.NewOpenAI(apiKey, cfg, gate)
	case config.ProviderDisabled:
		logger.Info("AI provider disabled, processors run in degraded mode")
		return ai.NewDisabled()
	default:
		fmt.Fprintf(os.Stderr, "Error: Invalid AI_PROVIDER '%s' (must be 'anthropic', 'openai' or 'disabled')\n", cfg.Provider)
		os.Exit(1)
		return nil
	}
}

// newHTTPClient creates the HTTP client used for feed fetching.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// initLogger initializes and returns a structured logger.
func initLogger() *slog.Logger {
	logLevel := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}
