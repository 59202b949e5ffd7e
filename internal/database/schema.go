package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            SERIAL PRIMARY KEY,
		username      TEXT NOT NULL UNIQUE,
		password_hash BYTEA,
		permissions   INTEGER NOT NULL DEFAULT 0,
		preferences   JSONB NOT NULL DEFAULT '{}'::jsonb,
		disabled      BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS user_sessions (
		session_hash        BYTEA PRIMARY KEY,
		user_id             INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		permissions         INTEGER NOT NULL,
		flags               INTEGER NOT NULL,
		domain              BYTEA,
		creation_time       TIMESTAMPTZ NOT NULL,
		creation_user_agent TEXT,
		creation_addr       TEXT,
		last_use_time       TIMESTAMPTZ,
		use_count           BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_user_sessions_user ON user_sessions(user_id)`,
}

// EnsureSchema creates the account tables if they do not exist yet.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
