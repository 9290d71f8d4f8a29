package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"dict-relay-bot/internal/common/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS dictionary (
	id          BIGSERIAL PRIMARY KEY,
	term        TEXT NOT NULL UNIQUE,
	translation TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS users (
	id         BIGINT PRIMARY KEY,
	username   TEXT,
	first_name TEXT,
	last_name  TEXT,
	thread_id  BIGINT UNIQUE,
	is_banned  BOOLEAN NOT NULL DEFAULT FALSE,
	joined_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS suggestions (
	id          BIGSERIAL PRIMARY KEY,
	user_id     BIGINT NOT NULL REFERENCES users (id),
	term        TEXT NOT NULL,
	translation TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
`

// Open initializes a PostgreSQL connection using database/sql and lib/pq.
func Open(ctx context.Context, dsn string, maxOpen, maxIdle int) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty postgres DSN")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpen)
	db.SetMaxIdleConns(maxIdle)
	db.SetConnMaxLifetime(time.Hour)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Msg("PostgreSQL connection established")
	return db, nil
}

// Migrate creates the three tables if they do not exist.
// The UNIQUE constraint on users.thread_id guarantees at most one user per
// discussion thread.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.Info().Msg("Database schema initialized")
	return nil
}
