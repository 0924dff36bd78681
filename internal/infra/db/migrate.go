package db

import (
	"database/sql"
	_ "embed"
)

//go:embed seeds/demo.sql
var seedDemoSQL string

// MigrateUp creates the subscription schema. Every statement is idempotent
// so the worker can run this unconditionally at startup.
func MigrateUp(db *sql.DB) error {
	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS users (
    id             TEXT PRIMARY KEY,
    email          TEXT NOT NULL,
    timezone       TEXT NOT NULL DEFAULT 'UTC',
    profile        JSONB NOT NULL DEFAULT '{}'::jsonb,
    digest_enabled BOOLEAN NOT NULL DEFAULT TRUE,
    updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
)`); err != nil {
		return err
	}

	if _, err := db.Exec(`
CREATE TABLE IF NOT EXISTS sources (
    id       BIGSERIAL PRIMARY KEY,
    user_id  TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    name     TEXT NOT NULL,
    feed_url TEXT NOT NULL,
    active   BOOLEAN NOT NULL DEFAULT TRUE,
    UNIQUE (user_id, feed_url)
)`); err != nil {
		return err
	}

	indexes := []string{
		// GetUserConfig aggregates sources per user.
		`CREATE INDEX IF NOT EXISTS idx_sources_user_id ON sources(user_id)`,
		// ListActiveUsers filters on digest_enabled.
		`CREATE INDEX IF NOT EXISTS idx_users_digest_enabled ON users(digest_enabled) WHERE digest_enabled = TRUE`,
	}
	for _, idx := range indexes {
		if _, err := db.Exec(idx); err != nil {
			return err
		}
	}

	// Seed a demo subscription so a fresh install produces a digest on
	// the first scheduled run. Duplicates are skipped via ON CONFLICT.
	if _, err := db.Exec(seedDemoSQL); err != nil {
		return err
	}

	return nil
}

// MigrateDown removes the subscription schema.
// Use with caution: this deletes all users and their sources.
func MigrateDown(db *sql.DB) error {
	dropStatements := []string{
		`DROP INDEX IF EXISTS idx_users_digest_enabled`,
		`DROP INDEX IF EXISTS idx_sources_user_id`,
		`DROP TABLE IF EXISTS sources CASCADE`,
		`DROP TABLE IF EXISTS users CASCADE`,
	}

	for _, stmt := range dropStatements {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}

	return nil
}
