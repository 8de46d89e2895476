package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/lxiscxstillo/cobamovil-backend/libs/db"
)

const (
	StatusPending = "PENDING"
	StatusSent    = "SENT"
	StatusFailed  = "FAILED"
)

type Notification struct {
	ID             int64
	Event          string
	RecipientID    string
	RecipientEmail string
	RecipientPhone string
	Channel        string
	Status         string
	Attempts       int
}

type NotificationRepository struct {
	pool *db.Pool
}

func NewNotificationRepository(pool *db.Pool) *NotificationRepository {
	return &NotificationRepository{pool: pool}
}

func (r *NotificationRepository) Pool() *db.Pool {
	return r.pool
}

func (r *NotificationRepository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (event, recipient_id, recipient_email, recipient_phone, channel)
		VALUES ($1, $2, $3, $4, $5)
	`, n.Event, n.RecipientID, n.RecipientEmail, n.RecipientPhone, n.Channel)
	return err
}

// FetchDue locks a batch of deliverable rows so concurrent workers never
// pick up the same notification twice.
func (r *NotificationRepository) FetchDue(ctx context.Context, tx pgx.Tx, limit int) ([]Notification, error) {
	rows, err := tx.Query(ctx, `
		SELECT id, event, recipient_id, recipient_email, recipient_phone, channel, status, attempts
		FROM notifications
		WHERE status = $1 AND next_attempt_at <= now()
		ORDER BY next_attempt_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED
	`, StatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.Event, &n.RecipientID, &n.RecipientEmail, &n.RecipientPhone, &n.Channel, &n.Status, &n.Attempts); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepository) MarkSent(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx, `
		UPDATE notifications
		SET status = $1, attempts = attempts + 1, last_error = '', updated_at = now()
		WHERE id = $2
	`, StatusSent, id)
	return err
}

// MarkFailed schedules a retry with backoff, or parks the row as FAILED once
// the attempt budget is spent.
func (r *NotificationRepository) MarkFailed(ctx context.Context, tx pgx.Tx, id int64, attempts int, maxAttempts int, backoff time.Duration, cause string) error {
	status := StatusPending
	if attempts+1 >= maxAttempts {
		status = StatusFailed
	}
	_, err := tx.Exec(ctx, `
		UPDATE notifications
		SET status = $1, attempts = attempts + 1, last_error = $2,
		    next_attempt_at = now() + make_interval(secs => $3),
		    updated_at = now()
		WHERE id = $4
	`, status, cause, backoff.Seconds(), id)
	return err
}
