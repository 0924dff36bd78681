// Package db opens the PostgreSQL connection pool holding user
// subscriptions and applies the schema migrations at startup.
package db

import (
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"dailybrief/internal/pkg/config"
)

// ConnectionConfig holds the pool knobs applied to the opened handle.
type ConnectionConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConnectionConfig returns the default pool configuration. The
// worker touches the database in one short burst per day (a config
// read per user), so the pool stays small and idle connections are
// released between batches.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    4,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
	}
}

// loadConnectionConfig overlays the DB_* environment knobs on the
// defaults. An unusable value falls back per knob with a warning
// instead of stopping startup.
func loadConnectionConfig() ConnectionConfig {
	cfg := DefaultConnectionConfig()
	poolSize := func(v int) error { return config.ValidateIntRange(v, 1, 200) }

	result := config.LoadEnvInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns, poolSize)
	cfg.MaxOpenConns = result.Value.(int)
	warnFallbacks(result.Warnings)

	result = config.LoadEnvInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns, poolSize)
	cfg.MaxIdleConns = result.Value.(int)
	warnFallbacks(result.Warnings)

	result = config.LoadEnvDuration("DB_CONN_MAX_LIFETIME", cfg.ConnMaxLifetime, config.ValidatePositiveDuration)
	cfg.ConnMaxLifetime = result.Value.(time.Duration)
	warnFallbacks(result.Warnings)

	result = config.LoadEnvDuration("DB_CONN_MAX_IDLE_TIME", cfg.ConnMaxIdleTime, config.ValidatePositiveDuration)
	cfg.ConnMaxIdleTime = result.Value.(time.Duration)
	warnFallbacks(result.Warnings)

	return cfg
}

func warnFallbacks(warnings []string) {
	for _, w := range warnings {
		slog.Warn("Database pool configuration fallback", slog.String("warning", w))
	}
}

// Open opens the pool on DATABASE_URL through the pgx stdlib driver
// and verifies it with a ping. A missing DSN or unreachable database
// is fatal: nothing in the pipeline runs without the subscription
// store.
func Open() *sql.DB {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		log.Fatal(err)
	}

	cfg := loadConnectionConfig()
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	slog.Info("database connection pool configured",
		slog.Int("max_open_conns", cfg.MaxOpenConns),
		slog.Int("max_idle_conns", cfg.MaxIdleConns),
		slog.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
		slog.Duration("conn_max_idle_time", cfg.ConnMaxIdleTime))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}

	slog.Info("database connection established")
	return db
}
