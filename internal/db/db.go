package db

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// Connect opens the Postgres pool and applies migrations.
func Connect(ctx context.Context, dsn string, logger zerolog.Logger) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	logger.Info().Msg("database migrations applied")
	return db, nil
}

// Migrate creates the relay schema. Statements are idempotent.
//
// users, blocked_users and nicknames belong to the profile service; they are
// created here so a fresh database is usable, but the relay only reads them
// and touches the presence columns.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            user_id TEXT PRIMARY KEY,
            public_key TEXT NOT NULL,
            encrypted_private_key TEXT,
            display_name TEXT,
            avatar TEXT,
            is_online BOOLEAN NOT NULL DEFAULT FALSE,
            last_seen TIMESTAMPTZ,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS blocked_users (
            user_id TEXT NOT NULL,
            blocked_user_id TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY(user_id, blocked_user_id)
        );`,
		`CREATE TABLE IF NOT EXISTS nicknames (
            user_id TEXT NOT NULL,
            contact_id TEXT NOT NULL,
            nickname TEXT NOT NULL,
            PRIMARY KEY(user_id, contact_id)
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            sender_id TEXT NOT NULL,
            recipient_id TEXT NOT NULL,
            encrypted_content TEXT NOT NULL,
            encrypted_for_sender TEXT NOT NULL,
            reply_to_id BIGINT REFERENCES messages(id) ON DELETE SET NULL,
            delete_mode TEXT NOT NULL DEFAULT 'never',
            is_read BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
        );`,
		`CREATE INDEX IF NOT EXISTS messages_pair_idx ON messages (sender_id, recipient_id, created_at);`,
		`CREATE INDEX IF NOT EXISTS messages_recipient_idx ON messages (recipient_id, sender_id);`,
		`CREATE TABLE IF NOT EXISTS chat_groups (
            group_id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            created_by TEXT NOT NULL,
            avatar TEXT,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS group_members (
            group_id TEXT NOT NULL REFERENCES chat_groups(group_id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            encrypted_group_key TEXT NOT NULL,
            joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY(group_id, user_id)
        );`,
		`CREATE INDEX IF NOT EXISTS group_members_user_idx ON group_members (user_id);`,
		`CREATE TABLE IF NOT EXISTS group_messages (
            id BIGSERIAL PRIMARY KEY,
            group_id TEXT NOT NULL REFERENCES chat_groups(group_id) ON DELETE CASCADE,
            sender_id TEXT NOT NULL,
            encrypted_content TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
        );`,
		`CREATE INDEX IF NOT EXISTS group_messages_group_idx ON group_messages (group_id, created_at);`,
	}

	for _, m := range migrations {
		if _, err := db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
