package storage

import (
	"context"
	"fmt"

	"github.com/lxiscxstillo/cobamovil-backend/libs/db"
)

// InitSchema creates the booking-service tables. The exclusion constraint on
// appointments mirrors the inclusive slot-overlap test: closed int4ranges
// over [start_minute, end_minute] may not intersect for two APPROVED rows on
// the same date, so the database rejects whatever slips past the in-process
// check under concurrency.
func InitSchema(ctx context.Context, pool *db.Pool) error {
	statements := []string{
		`CREATE EXTENSION IF NOT EXISTS btree_gist`,

		`CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name TEXT NOT NULL,
			email TEXT NOT NULL UNIQUE,
			phone TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL DEFAULT 'CUSTOMER',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS pets (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			owner_id UUID NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			breed TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS appointments (
			id UUID PRIMARY KEY,
			customer_id UUID NOT NULL,
			pet_id UUID NOT NULL,
			service_type TEXT NOT NULL,
			scheduled_date DATE NOT NULL,
			start_minute SMALLINT NOT NULL,
			end_minute SMALLINT NOT NULL,
			address TEXT NOT NULL DEFAULT '',
			lat DOUBLE PRECISION,
			lng DOUBLE PRECISION,
			notes TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT 'PENDING',
			groomer_id UUID,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT appointments_no_overlap EXCLUDE USING gist (
				scheduled_date WITH =,
				int4range(start_minute::int, end_minute::int, '[]') WITH &&
			) WHERE (status = 'APPROVED')
		)`,

		`CREATE INDEX IF NOT EXISTS idx_appointments_date_status
			ON appointments (scheduled_date, status)`,

		`CREATE INDEX IF NOT EXISTS idx_appointments_customer
			ON appointments (customer_id)`,

		`CREATE TABLE IF NOT EXISTS route_plans (
			plan_date DATE PRIMARY KEY,
			order_csv TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS cut_records (
			id UUID PRIMARY KEY,
			appointment_id UUID NOT NULL,
			groomer_id UUID,
			pet_name TEXT NOT NULL DEFAULT '',
			service_type TEXT NOT NULL,
			scheduled_date DATE NOT NULL,
			start_minute SMALLINT NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,

		`CREATE TABLE IF NOT EXISTS outbox_events (
			id UUID PRIMARY KEY,
			event_type TEXT NOT NULL,
			payload JSONB NOT NULL,
			traceparent TEXT NOT NULL DEFAULT '',
			tracestate TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			published_at TIMESTAMPTZ
		)`,

		`CREATE INDEX IF NOT EXISTS idx_outbox_events_unpublished
			ON outbox_events (created_at) WHERE published_at IS NULL`,
	}

	for i, stmt := range statements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: statement #%d: %w", i+1, err)
		}
	}
	return nil
}
