package outbox

// Kafka topic per event type, versioned.
const (
	TopicCreated     = "booking.appointment.created.v1"
	TopicApproved    = "booking.appointment.approved.v1"
	TopicRejected    = "booking.appointment.rejected.v1"
	TopicOnRoute     = "booking.appointment.on_route.v1"
	TopicCompleted   = "booking.appointment.completed.v1"
	TopicRescheduled = "booking.appointment.rescheduled.v1"
	TopicCanceled    = "booking.appointment.canceled.v1"
)

// Event is the envelope written to the outbox table. The Kafka topic name
// equals EventType (event per topic).
type Event struct {
	ID        string
	EventType string
	Payload   []byte
}

// Payload is the JSON body consumed by the notification service.
type Payload struct {
	Event          string `json:"event"`
	RecipientID    string `json:"recipient_id"`
	RecipientEmail string `json:"recipient_email,omitempty"`
	RecipientPhone string `json:"recipient_phone,omitempty"`
	Channel        string `json:"channel"`
}
