package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"coinchat/internal/model"
)

type migration struct {
	name string
	sql  string
}

// migrations are idempotent and applied in order on every start.
var migrations = []migration{
	{
		name: "users table",
		sql: `
		CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username VARCHAR(64) NOT NULL UNIQUE,
			password_hash TEXT NOT NULL DEFAULT '',
			coins BIGINT NOT NULL DEFAULT 100 CHECK (coins >= 0),
			is_guest BOOLEAN NOT NULL DEFAULT FALSE,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			time_spent BIGINT NOT NULL DEFAULT 0 CHECK (time_spent >= 0),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			last_active TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_users_coins ON users(coins DESC);
		CREATE INDEX IF NOT EXISTS idx_users_last_active ON users(last_active DESC);
		`,
	},
	{
		name: "coin_transactions table",
		sql: `
		CREATE TABLE IF NOT EXISTS coin_transactions (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			amount BIGINT NOT NULL,
			transaction_type VARCHAR(50) NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_coin_transactions_user_time ON coin_transactions(user_id, created_at DESC);
		`,
	},
	{
		name: "titles tables",
		sql: `
		CREATE TABLE IF NOT EXISTS titles (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(64) NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			price BIGINT NOT NULL CHECK (price >= 0),
			sort_order INT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS user_titles (
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			title_id BIGINT NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
			purchased_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (user_id, title_id)
		);
		`,
	},
	{
		name: "tasks tables",
		sql: `
		CREATE TABLE IF NOT EXISTS tasks (
			id BIGSERIAL PRIMARY KEY,
			name VARCHAR(128) NOT NULL UNIQUE,
			description TEXT NOT NULL DEFAULT '',
			task_type VARCHAR(50) NOT NULL,
			reward BIGINT NOT NULL CHECK (reward >= 0),
			max_progress BIGINT NOT NULL CHECK (max_progress > 0),
			sort_order INT NOT NULL DEFAULT 0
		);
		CREATE TABLE IF NOT EXISTS user_tasks (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			task_id BIGINT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			progress BIGINT NOT NULL DEFAULT 0 CHECK (progress >= 0),
			completed BOOLEAN NOT NULL DEFAULT FALSE,
			completed_at TIMESTAMPTZ,
			UNIQUE (user_id, task_id)
		);
		CREATE INDEX IF NOT EXISTS idx_user_tasks_open ON user_tasks(user_id) WHERE completed = FALSE;
		`,
	},
	{
		name: "chat_messages table",
		sql: `
		CREATE TABLE IF NOT EXISTS chat_messages (
			id BIGSERIAL PRIMARY KEY,
			user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			username VARCHAR(64) NOT NULL,
			message VARCHAR(500) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_chat_messages_user ON chat_messages(user_id);
		`,
	},
}

// Migrate applies the schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	log.Info().Msg("Running database migrations...")

	for i, m := range migrations {
		if _, err := pool.Exec(ctx, m.sql); err != nil {
			return fmt.Errorf("migration %d (%s): %w", i+1, m.name, err)
		}
		log.Info().Int("step", i+1).Str("name", m.name).Msg("Migration applied")
	}

	log.Info().Msg("All migrations completed successfully")
	return nil
}

// Seed inserts catalog rows that do not exist yet. Existing rows keep their
// current values so operators can tune prices and rewards in place.
func Seed(ctx context.Context, pool *pgxpool.Pool, titles []model.Title, tasks []model.Task) error {
	batch := &pgx.Batch{}
	for _, t := range titles {
		batch.Queue(`
			INSERT INTO titles (name, description, price, sort_order)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (name) DO NOTHING
		`, t.Name, t.Description, t.Price, t.SortOrder)
	}
	for _, t := range tasks {
		batch.Queue(`
			INSERT INTO tasks (name, description, task_type, reward, max_progress, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (name) DO NOTHING
		`, t.Name, t.Description, string(t.Category), t.Reward, t.MaxProgress, t.SortOrder)
	}

	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}

	log.Info().
		Int("titles", len(titles)).
		Int("tasks", len(tasks)).
		Msg("Catalog seeded")
	return nil
}
