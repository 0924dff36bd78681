package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"dailybrief/internal/activity"
	"dailybrief/internal/config"
	"dailybrief/internal/delivery"
	"dailybrief/internal/infra/ai"
	"dailybrief/internal/infra/cache"
	"dailybrief/internal/infra/db"
	"dailybrief/internal/infra/fetcher"
	"dailybrief/internal/infra/postgres"
	workerPkg "dailybrief/internal/infra/worker"
	"dailybrief/internal/observability/logging"
	"dailybrief/internal/observability/slo"
	pkgconfig "dailybrief/internal/pkg/config"
	"dailybrief/internal/pkg/runid"
	"dailybrief/internal/workflow"
)

func main() {
	logger := initLogger()
	database := initDatabase(logger)
	defer func() {
		if err := database.Close(); err != nil {
			logger.Error("failed to close database", slog.Any("error", err))
		}
	}()

	// Create context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load worker configuration (fail-open strategy)
	workerMetrics := workerPkg.NewWorkerMetrics()
	workerMetrics.MustRegister()
	workerConfig, err := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	if err != nil {
		logger.Error("failed to load worker configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Int("max_concurrent_users", workerConfig.MaxConcurrentUsers),
		slog.Duration("user_run_timeout", workerConfig.UserRunTimeout),
		slog.Duration("batch_timeout", workerConfig.BatchTimeout),
		slog.Int("health_port", workerConfig.HealthPort))

	// Pipeline configuration fails closed: a bad overlay or AI setting
	// should stop the process before the first scheduled run.
	pipelineConfig, err := config.LoadPipelineConfig(logger, pkgconfig.NewConfigMetrics("pipeline"))
	if err != nil {
		logger.Error("failed to load pipeline configuration", slog.Any("error", err))
		os.Exit(1)
	}

	store, memo := setupCache(ctx, logger, pipelineConfig.Cache)
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close cache store", slog.Any("error", err))
		}
	}()

	provider := createProvider(logger, pipelineConfig.AI)
	configStore := postgres.NewUserConfigStore(database)
	feedFetcher := fetcher.NewFetcher(createHTTPClient(), pipelineConfig.Fetch)

	acts := activity.New(*pipelineConfig, provider, memo, configStore, feedFetcher, logger)
	runner := workflow.NewRunner(acts, logger)
	dispatcher := setupDelivery(logger, workerConfig)

	// Start metrics HTTP server
	startMetricsServer(ctx, logger, dispatcher)

	// Start health check server
	healthAddr := fmt.Sprintf(":%d", workerConfig.HealthPort)
	healthServer := workerPkg.NewHealthServer(healthAddr, logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && err != http.ErrServerClosed {
			logger.Error("health server failed", slog.Any("error", err))
		}
	}()
	logger.Info("health check server started", slog.String("addr", healthAddr))

	batch := &digestBatch{
		logger:     logger,
		database:   database,
		store:      configStore,
		runner:     runner,
		dispatcher: dispatcher,
		config:     workerConfig,
		metrics:    workerMetrics,
	}

	runScheduler(ctx, logger, batch, workerConfig, healthServer, dispatcher)
}

// initLogger initializes and returns a structured logger based on environment configuration.
func initLogger() *slog.Logger {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	return logger
}

// initDatabase opens the database connection and applies schema migrations.
func initDatabase(logger *slog.Logger) *sql.DB {
	database := db.Open()
	if err := db.MigrateUp(database); err != nil {
		logger.Error("failed to apply migrations", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database migrations applied")
	return database
}

// digestBatch runs one scheduled pass over every subscribed user.
type digestBatch struct {
	logger     *slog.Logger
	database   *sql.DB
	store      *postgres.UserConfigStore
	runner     *workflow.Runner
	dispatcher *delivery.Dispatcher
	config     *workerPkg.WorkerConfig
	metrics    *workerPkg.WorkerMetrics
}

// run executes a single digest batch with timeout and error handling.
func (b *digestBatch) run(ctx context.Context) {
	startTime := time.Now()
	b.metrics.RecordBatchRun("started")
	b.logger.Info("digest batch started")

	ctx, cancel := context.WithTimeout(ctx, b.config.BatchTimeout)
	defer cancel()

	users, err := b.store.ListActiveUsers(ctx)
	if err != nil {
		b.logger.Error("listing subscribed users failed",
			slog.String("error", logging.SanitizeError(err)))
		b.metrics.RecordBatchRun("failure")
		b.metrics.RecordBatchDuration(time.Since(startTime).Seconds())
		return
	}
	if len(users) == 0 {
		b.logger.Info("no subscribed users, nothing to do")
		b.finish(startTime, nil)
		return
	}

	// One user's failure never aborts the batch: every goroutine
	// returns nil and leaves its outcome in the reports slot.
	reports := make([]workflow.RunReport, len(users))
	g := new(errgroup.Group)
	g.SetLimit(b.config.MaxConcurrentUsers)
	for i, userID := range users {
		i, userID := i, userID // per-iteration copies; go.mod predates Go 1.22 loopvar semantics
		g.Go(func() error {
			reports[i] = b.processUser(ctx, userID)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		b.logger.Warn("digest batch interrupted",
			slog.Any("error", ctx.Err()),
			slog.Int("users", len(users)))
		b.metrics.RecordBatchRun("failure")
		b.metrics.RecordBatchDuration(time.Since(startTime).Seconds())
		return
	}

	b.finish(startTime, reports)
}

// processUser runs the pipeline for one user and hands the payload to
// the dispatcher. The run gets its own ID and timeout so a single slow
// user cannot eat the whole batch window.
func (b *digestBatch) processUser(ctx context.Context, userID string) workflow.RunReport {
	runCtx, cancel := context.WithTimeout(ctx, b.config.UserRunTimeout)
	defer cancel()
	runCtx = runid.WithRunID(runCtx, runid.New())

	payload, report, err := b.runner.Run(runCtx, userID)
	b.metrics.RecordUserProcessed(report.Status)
	if err != nil {
		// Run logged the failure; nothing to deliver.
		return report
	}

	_ = b.dispatcher.Dispatch(runCtx, payload)
	return report
}

// finish records batch metrics and publishes the service level gauges.
func (b *digestBatch) finish(startTime time.Time, reports []workflow.RunReport) {
	duration := time.Since(startTime)

	if total := len(reports); total > 0 {
		var succeeded, onTime, articles, aiFailures int
		durations := make([]float64, 0, total)
		for _, r := range reports {
			if r.Status != workflow.StatusFailure {
				succeeded++
			}
			if slo.WithinDeadline(r.Duration()) {
				onTime++
			}
			articles += r.ArticlesValidated
			aiFailures += r.AIFailures
			durations = append(durations, r.Duration().Seconds())
		}
		slo.UpdateRunSuccess(float64(succeeded) / float64(total))
		slo.UpdateDeadlineCompliance(float64(onTime) / float64(total))
		slo.UpdateRunLatencyP95(percentile(durations, 0.95))
		if articles > 0 {
			slo.UpdateAIDegradation(float64(aiFailures) / float64(articles))
		}
	}

	postgres.ReportConnectionStats(b.database)

	b.metrics.RecordBatchRun("success")
	b.metrics.RecordBatchDuration(duration.Seconds())
	b.metrics.RecordLastSuccess()

	b.logger.Info("digest batch completed",
		slog.Int("users", len(reports)),
		slog.Duration("duration", duration))
}

// percentile returns the pth percentile of values using the
// nearest-rank method. An empty slice yields zero.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sort.Float64s(values)
	rank := int(math.Ceil(p*float64(len(values)))) - 1
	if rank < 0 {
		rank = 0
	}
	return values[rank]
}

// runScheduler starts the cron scheduler and blocks until a shutdown
// signal arrives, then drains running work.
func runScheduler(ctx context.Context, logger *slog.Logger, batch *digestBatch, cfg *workerPkg.WorkerConfig, healthServer *workerPkg.HealthServer, dispatcher *delivery.Dispatcher) {
	// Load timezone
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Error("invalid timezone, using UTC", slog.String("timezone", cfg.Timezone), slog.Any("error", err))
		loc = time.UTC
	}
	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.CronSchedule, func() {
		batch.run(ctx)
	})
	if err != nil {
		logger.Error("failed to add cron job", slog.Any("error", err))
		os.Exit(1)
	}
	c.Start()

	// Mark as ready after cron is set up
	healthServer.SetReady(true)
	logger.Info("worker marked as ready")

	logger.Info("worker started", slog.String("schedule", cfg.CronSchedule), slog.String("timezone", cfg.Timezone))
	<-ctx.Done()

	logger.Info("shutdown signal received")
	healthServer.SetReady(false)

	// The batch context is already canceled; give the running job a
	// moment to unwind before draining queued deliveries.
	select {
	case <-c.Stop().Done():
	case <-time.After(30 * time.Second):
		logger.Warn("timed out waiting for running batch to finish")
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := dispatcher.Shutdown(drainCtx); err != nil {
		logger.Error("delivery drain incomplete", slog.Any("error", err))
	}

	logger.Info("worker stopped")
}

// setupCache builds the memoization store and wraps it in a Memo. A
// Redis backend that cannot be reached falls back to the in-process
// store; a missing cache must never block digest generation.
func setupCache(ctx context.Context, logger *slog.Logger, cfg config.CacheConfig) (cache.Store, *cache.Memo) {
	if cfg.Backend == config.CacheBackendRedis {
		store, err := cache.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err == nil {
			logger.Info("memoization cache initialized",
				slog.String("backend", "redis"),
				slog.String("addr", cfg.RedisAddr))
			return store, cache.NewMemo(store, logger)
		}
		logger.Warn("Redis unreachable, falling back to in-memory cache",
			slog.String("addr", cfg.RedisAddr),
			slog.Any("error", err))
	}

	store := cache.NewMemoryStore(cache.DefaultMemoryStoreConfig())
	logger.Info("memoization cache initialized", slog.String("backend", "memory"))
	return store, cache.NewMemo(store, logger)
}

// createProvider creates an AI provider based on the AI_PROVIDER setting.
func createProvider(logger *slog.Logger, cfg config.AIConfig) ai.Provider {
	gate := ai.NewGate(cfg.RateLimit)

	switch cfg.Provider {
	case config.ProviderAnthropic:
		apiKey := os.Getenv("ANTHROPIC_API_KEY")
		if apiKey == "" {
			logger.Error("ANTHROPIC_API_KEY is required when AI_PROVIDER=anthropic")
			os.Exit(1)
		}
		logger.Info("Using Anthropic API for article processing", slog.String("provider", config.ProviderAnthropic))
		return ai.NewAnthropic(apiKey, cfg, gate)
	case config.ProviderOpenAI:
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			logger.Error("OPENAI_API_KEY is required when AI_PROVIDER=openai")
			os.Exit(1)
		}
		logger.Info("Using OpenAI API for article processing", slog.String("provider", config.ProviderOpenAI))
		return ai.NewOpenAI(apiKey, cfg, gate)
	case config.ProviderDisabled:
		logger.Info("AI provider disabled, processors run in degraded mode")
		return ai.NewDisabled()
	default:
		logger.Error("Invalid AI_PROVIDER",
			slog.String("provider", cfg.Provider),
			slog.String("expected", "anthropic, openai or disabled"))
		os.Exit(1)
		return nil
	}
}

// createHTTPClient creates an HTTP client with timeouts and connection pooling.
// TLS 1.2+ is enforced for security.
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12, // Enforce TLS 1.2+
			},
		},
	}
}

// setupDelivery wires the configured senders into a dispatcher. Without
// a configured endpoint the noop sender keeps runs observable.
func setupDelivery(logger *slog.Logger, cfg *workerPkg.WorkerConfig) *delivery.Dispatcher {
	webhookConfig := loadWebhookConfig(logger)

	var senders []delivery.Sender
	if webhookConfig.Enabled {
		senders = append(senders, delivery.NewWebhookSender(webhookConfig))
		logger.Info("webhook sender initialized", slog.String("status", "enabled"))
	} else {
		logger.Info("webhook sender disabled")
	}
	if len(senders) == 0 {
		senders = append(senders, delivery.NewNoopSender())
		logger.Info("noop sender initialized")
	}

	dispatcher := delivery.NewDispatcher(senders, delivery.DispatcherConfig{
		MaxConcurrent: cfg.DeliveryMaxConcurrent,
		SendEmpty:     os.Getenv("DELIVERY_SEND_EMPTY") == "true",
	})
	logger.Info("delivery dispatcher initialized",
		slog.Int("senders", len(senders)),
		slog.Int("max_concurrent", cfg.DeliveryMaxConcurrent))
	return dispatcher
}

// loadWebhookConfig loads webhook delivery configuration from environment variables.
//
// Environment variables:
//   - DELIVERY_WEBHOOK_ENABLED: Boolean flag to enable webhook delivery (default: false)
//   - DELIVERY_WEBHOOK_URL: Webhook URL (required if enabled, must be HTTPS)
func loadWebhookConfig(logger *slog.Logger) delivery.WebhookConfig {
	enabled := os.Getenv("DELIVERY_WEBHOOK_ENABLED") == "true"
	webhookURL := os.Getenv("DELIVERY_WEBHOOK_URL")

	if !enabled {
		return delivery.WebhookConfig{Enabled: false}
	}

	// Validate webhook URL format
	if webhookURL == "" {
		logger.Warn("webhook URL is empty, disabling delivery")
		return delivery.WebhookConfig{Enabled: false}
	}

	u, err := url.Parse(webhookURL)
	if err != nil {
		logger.Warn("invalid webhook URL format, disabling delivery", slog.Any("error", err))
		return delivery.WebhookConfig{Enabled: false}
	}

	if u.Scheme != "https" {
		logger.Warn("webhook URL must use HTTPS, disabling delivery")
		return delivery.WebhookConfig{Enabled: false}
	}

	if u.Host == "" {
		logger.Warn("webhook URL has no host, disabling delivery")
		return delivery.WebhookConfig{Enabled: false}
	}

	return delivery.WebhookConfig{
		Enabled: true,
		URL:     webhookURL,
		Timeout: 30 * time.Second,
	}
}
