package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/lxiscxstillo/cobamovil-backend/libs/kafkax"
	"github.com/lxiscxstillo/cobamovil-backend/services/notification-service/internal/inbox"
)

// Handler processes a deduplicated event. Errors are logged and the message
// is not redelivered: the inbox entry already marks it as seen and the group
// offset advances on the commit interval.
type Handler func(ctx context.Context, meta kafkax.EventMeta, payload []byte) error

type Consumer struct {
	reader  *kafka.Reader
	inbox   *inbox.Repository
	handler Handler
	logger  *slog.Logger
}

func New(brokers []string, topic string, groupID string, ibx *inbox.Repository, handler Handler, logger *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:  reader,
		inbox:   ibx,
		handler: handler,
		logger:  logger,
	}
}

func (c *Consumer) Run(ctx context.Context) {
	defer c.reader.Close()

	tracer := otel.Tracer("notification-consumer")

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Error("kafka read failed", "error", err)
			time.Sleep(time.Second)
			continue
		}

		msgCtx := kafkax.ExtractTraceContext(ctx, msg)
		msgCtx, span := tracer.Start(msgCtx, "kafka.consume",
			trace.WithSpanKind(trace.SpanKindConsumer),
			trace.WithAttributes(
				attribute.String("messaging.system", "kafka"),
				attribute.String("messaging.destination.name", msg.Topic),
			),
		)

		meta := kafkax.ExtractEventMeta(msg)

		fresh, err := c.inbox.Record(msgCtx, meta.EventID, meta.EventType)
		if err != nil {
			c.logger.Error("inbox record failed", "event_id", meta.EventID, "error", err)
			span.End()
			time.Sleep(time.Second)
			continue
		}
		if !fresh {
			c.logger.Info("duplicate event skipped", "event_id", meta.EventID, "event_type", meta.EventType)
			span.End()
			continue
		}

		if err := c.handler(msgCtx, meta, msg.Value); err != nil {
			c.logger.Error("event handling failed", "event_id", meta.EventID, "event_type", meta.EventType, "error", err)
		}
		span.End()
	}
}
