// Package postgres loads digest configuration from PostgreSQL. The
// pipeline reads one user's configuration exactly once per run; the
// worker additionally lists the users due for a digest. Both reads go
// through the database circuit breaker so a struggling database fails
// the run fast instead of stalling the whole batch window.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"dailybrief/internal/domain/entity"
	"dailybrief/internal/observability/metrics"
	"dailybrief/internal/resilience/circuitbreaker"
)

type UserConfigStore struct{ db *circuitbreaker.DBCircuitBreaker }

func NewUserConfigStore(db *sql.DB) *UserConfigStore {
	return &UserConfigStore{db: circuitbreaker.NewDBCircuitBreaker(db)}
}

// GetUserConfig loads one user's digest configuration in a single
// round trip: identity, timezone and interest profile from users,
// subscriptions aggregated from sources. A missing user maps to
// entity.ErrConfigNotFound. The profile column is stored as the JSON
// shape of entity.InterestProfile; range checks happen in the scorer,
// so a hand-edited row cannot make the config unreadable.
func (repo *UserConfigStore) GetUserConfig(ctx context.Context, userID string) (entity.UserConfig, error) {
	const query = `
SELECT u.id, u.email, u.timezone, u.profile, u.updated_at,
       COALESCE(
           jsonb_agg(
               jsonb_build_object('id', s.id, 'name', s.name, 'feed_url', s.feed_url, 'active', s.active)
               ORDER BY s.id
           ) FILTER (WHERE s.id IS NOT NULL),
           '[]'::jsonb
       ) AS sources
FROM users u
LEFT JOIN sources s ON s.user_id = u.id
WHERE u.id = $1
GROUP BY u.id`

	start := time.Now()
	defer func() { metrics.RecordDBQuery("get_user_config", time.Since(start)) }()

	rows, err := repo.db.QueryContext(ctx, query, userID)
	if err != nil {
		return entity.UserConfig{}, fmt.Errorf("GetUserConfig: %w", err)
	}
	defer func() { _ = rows.Close() }()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return entity.UserConfig{}, fmt.Errorf("GetUserConfig: %w", err)
		}
		return entity.UserConfig{}, fmt.Errorf("GetUserConfig: user %s: %w", userID, entity.ErrConfigNotFound)
	}

	var (
		cfg         entity.UserConfig
		profileJSON []byte
		sourcesJSON []byte
	)
	if err := rows.Scan(&cfg.UserID, &cfg.Email, &cfg.Timezone, &profileJSON, &cfg.UpdatedAt, &sourcesJSON); err != nil {
		return entity.UserConfig{}, fmt.Errorf("GetUserConfig: %w", err)
	}

	if len(profileJSON) > 0 {
		if err := json.Unmarshal(profileJSON, &cfg.Profile); err != nil {
			return entity.UserConfig{}, fmt.Errorf("GetUserConfig: unmarshal profile: %w", err)
		}
	}
	if len(sourcesJSON) > 0 {
		if err := json.Unmarshal(sourcesJSON, &cfg.Sources); err != nil {
			return entity.UserConfig{}, fmt.Errorf("GetUserConfig: unmarshal sources: %w", err)
		}
	}
	return cfg, nil
}

// ListActiveUsers returns the IDs of users with the digest enabled, in
// stable order for the worker fan-out.
func (repo *UserConfigStore) ListActiveUsers(ctx context.Context) ([]string, error) {
	const query = `
SELECT id
FROM users
WHERE digest_enabled = TRUE
ORDER BY id ASC`

	start := time.Now()
	defer func() { metrics.RecordDBQuery("list_active_users", time.Since(start)) }()

	rows, err := repo.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("ListActiveUsers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0, 50)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("ListActiveUsers: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ReportConnectionStats copies the pool gauges into metrics. The
// worker calls it after each scheduled batch.
func ReportConnectionStats(db *sql.DB) {
	s := db.Stats()
	metrics.UpdateDBConnectionStats(s.InUse, s.Idle)
}
