package outbox

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/scheduling"
)

var topicByEvent = map[string]string{
	scheduling.EventCreated:     TopicCreated,
	scheduling.EventApproved:    TopicApproved,
	scheduling.EventRejected:    TopicRejected,
	scheduling.EventOnRoute:     TopicOnRoute,
	scheduling.EventCompleted:   TopicCompleted,
	scheduling.EventRescheduled: TopicRescheduled,
	scheduling.EventCanceled:    TopicCanceled,
}

// ContactLookup resolves a recipient's email and phone so the notification
// service does not need access to the booking database.
type ContactLookup interface {
	Contact(ctx context.Context, id string) (email, phone string, err error)
}

// Notifier turns scheduler events into outbox rows. Fire-and-forget:
// failures are logged here and never reach the scheduling operation.
type Notifier struct {
	repo     *Repository
	contacts ContactLookup
	logger   *slog.Logger
}

func NewNotifier(repo *Repository, contacts ContactLookup, logger *slog.Logger) *Notifier {
	return &Notifier{repo: repo, contacts: contacts, logger: logger}
}

func (n *Notifier) Notify(ctx context.Context, userID, event, channel string) {
	topic, ok := topicByEvent[event]
	if !ok {
		n.logger.Warn("unknown booking event", "event", event)
		return
	}

	email, phone, err := n.contacts.Contact(ctx, userID)
	if err != nil {
		n.logger.Warn("recipient contact lookup failed", "user_id", userID, "err", err)
	}

	payload, err := json.Marshal(Payload{
		Event:          event,
		RecipientID:    userID,
		RecipientEmail: email,
		RecipientPhone: phone,
		Channel:        channel,
	})
	if err != nil {
		n.logger.Error("event payload marshal failed", "event", event, "err", err)
		return
	}

	evt := Event{ID: uuid.NewString(), EventType: topic, Payload: payload}
	if err := n.repo.Insert(ctx, evt); err != nil {
		n.logger.Error("outbox insert failed", "event", event, "err", err)
	}
}
