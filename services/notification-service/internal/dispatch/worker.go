package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/lxiscxstillo/cobamovil-backend/services/notification-service/internal/email"
	"github.com/lxiscxstillo/cobamovil-backend/services/notification-service/internal/storage"
	"github.com/lxiscxstillo/cobamovil-backend/services/notification-service/internal/whatsapp"
)

const (
	batchSize    = 50
	pollInterval = 2 * time.Second
	maxAttempts  = 5
	baseBackoff  = 30 * time.Second
)

// Worker drains PENDING notification rows and delivers them over the channel
// each row asks for. Delivery happens inside the row lock so a crash between
// send and mark-sent can at worst re-send, never lose.
type Worker struct {
	repo     *storage.NotificationRepository
	email    email.Sender
	whatsapp whatsapp.Sender
	logger   *slog.Logger
}

func NewWorker(repo *storage.NotificationRepository, emailSender email.Sender, waSender whatsapp.Sender, logger *slog.Logger) *Worker {
	return &Worker{
		repo:     repo,
		email:    emailSender,
		whatsapp: waSender,
		logger:   logger,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.drainBatch(ctx); err != nil {
				w.logger.Error("notification batch failed", "error", err)
			}
		}
	}
}

func (w *Worker) drainBatch(ctx context.Context) error {
	tx, err := w.repo.Pool().Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	due, err := w.repo.FetchDue(ctx, tx, batchSize)
	if err != nil {
		return err
	}

	for _, n := range due {
		if err := w.deliver(ctx, n); err != nil {
			backoff := baseBackoff * time.Duration(n.Attempts+1)
			if markErr := w.repo.MarkFailed(ctx, tx, n.ID, n.Attempts, maxAttempts, backoff, err.Error()); markErr != nil {
				return markErr
			}
			w.logger.Warn("notification delivery failed",
				"id", n.ID, "event", n.Event, "channel", n.Channel,
				"attempts", n.Attempts+1, "error", err)
			continue
		}
		if err := w.repo.MarkSent(ctx, tx, n.ID); err != nil {
			return err
		}
		w.logger.Info("notification delivered", "id", n.ID, "event", n.Event, "channel", n.Channel)
	}

	return tx.Commit(ctx)
}

func (w *Worker) deliver(ctx context.Context, n storage.Notification) error {
	msg := messageFor(n.Event)

	switch n.Channel {
	case "EMAIL":
		return w.email.Send(ctx, n.RecipientEmail, msg.subject, msg.body)
	case "WHATSAPP":
		return w.whatsapp.Send(ctx, n.RecipientPhone, msg.subject+": "+msg.body)
	case "INTERNAL":
		// Groomer-facing updates surface through the ops dashboard reading
		// this table directly, nothing to push.
		return nil
	default:
		w.logger.Warn("unknown notification channel, dropping", "id", n.ID, "channel", n.Channel)
		return nil
	}
}
