// Package db provides the Postgres connection, schema migration, and the
// stores behind the API cache, subscriptions and the notification outbox.
package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
)

// Open opens a Postgres connection for dsn.
func Open(dsn string) (*sql.DB, error) {
	return sql.Open("pgx", dsn)
}

// Migrate applies idempotent schema changes for all required tables and indices.
func Migrate(ctx context.Context, db *sql.DB) error { return migratePostgres(ctx, db) }

func migratePostgres(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS api_cache (
			key TEXT PRIMARY KEY,
			last_modified TIMESTAMPTZ,
			payload BYTEA NOT NULL,
			retrieved_at TIMESTAMPTZ NOT NULL,
			expires_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			team_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			frc_team INTEGER NOT NULL,
			level TEXT NOT NULL,
			subscribed_by TEXT,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			updated_at TIMESTAMPTZ DEFAULT NOW(),
			PRIMARY KEY (team_id, channel_id, frc_team)
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id BIGSERIAL PRIMARY KEY,
			kind TEXT NOT NULL,
			topic TEXT NOT NULL,
			team_id TEXT NOT NULL,
			channel_id TEXT NOT NULL,
			level TEXT NOT NULL,
			teams JSONB NOT NULL,
			event_key TEXT,
			match_key TEXT,
			winner TEXT,
			payload JSONB NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW(),
			delivered_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_frc_team ON subscriptions(frc_team)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_pending ON notifications(created_at) WHERE delivered_at IS NULL`,
	}
	for i, s := range stmts {
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("postgres migrate step %d failed: %w", i, err)
		}
	}
	return nil
}
