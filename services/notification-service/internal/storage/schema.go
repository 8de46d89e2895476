package storage

import (
	"context"

	"github.com/lxiscxstillo/cobamovil-backend/libs/db"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS inbox_events (
		event_id    TEXT PRIMARY KEY,
		event_type  TEXT NOT NULL,
		received_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		id              BIGSERIAL PRIMARY KEY,
		event           TEXT NOT NULL,
		recipient_id    TEXT NOT NULL,
		recipient_email TEXT NOT NULL DEFAULT '',
		recipient_phone TEXT NOT NULL DEFAULT '',
		channel         TEXT NOT NULL,
		status          TEXT NOT NULL DEFAULT 'PENDING',
		attempts        INT NOT NULL DEFAULT 0,
		last_error      TEXT NOT NULL DEFAULT '',
		next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_notifications_due
		ON notifications (next_attempt_at)
		WHERE status = 'PENDING'`,
}

func InitSchema(ctx context.Context, pool *db.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
