package main

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/lxiscxstillo/cobamovil-backend/libs/config"
	"github.com/lxiscxstillo/cobamovil-backend/libs/db"
	"github.com/lxiscxstillo/cobamovil-backend/libs/kafkax"
	otelx "github.com/lxiscxstillo/cobamovil-backend/libs/otel"
	"github.com/lxiscxstillo/cobamovil-backend/libs/runtime"
	"github.com/lxiscxstillo/cobamovil-backend/services/notification-service/internal/consumer"
	"github.com/lxiscxstillo/cobamovil-backend/services/notification-service/internal/dispatch"
	"github.com/lxiscxstillo/cobamovil-backend/services/notification-service/internal/email"
	"github.com/lxiscxstillo/cobamovil-backend/services/notification-service/internal/inbox"
	"github.com/lxiscxstillo/cobamovil-backend/services/notification-service/internal/storage"
	"github.com/lxiscxstillo/cobamovil-backend/services/notification-service/internal/whatsapp"
)

const defaultTopics = "booking.appointment.created.v1," +
	"booking.appointment.approved.v1," +
	"booking.appointment.rejected.v1," +
	"booking.appointment.on_route.v1," +
	"booking.appointment.completed.v1," +
	"booking.appointment.rescheduled.v1," +
	"booking.appointment.canceled.v1"

type bookingEvent struct {
	Event          string `json:"event"`
	RecipientID    string `json:"recipient_id"`
	RecipientEmail string `json:"recipient_email"`
	RecipientPhone string `json:"recipient_phone"`
	Channel        string `json:"channel"`
}

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "notification-service")
	port, err := config.Port("PORT", "8084")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	if config.Bool("DB_AUTO_MIGRATE", true) {
		if err := storage.InitSchema(ctx, pool); err != nil {
			logger.Error("schema init failed", "err", err)
			panic(err)
		}
	}

	notifications := storage.NewNotificationRepository(pool)
	ibx := inbox.NewRepository(pool)

	handler := func(ctx context.Context, meta kafkax.EventMeta, payload []byte) error {
		var evt bookingEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			logger.Error("unreadable event payload, dropping", "event_id", meta.EventID, "err", err)
			return nil
		}
		if evt.RecipientID == "" || evt.Channel == "" {
			logger.Warn("event without recipient or channel, dropping", "event_id", meta.EventID, "event", evt.Event)
			return nil
		}
		return notifications.Insert(ctx, storage.Notification{
			Event:          evt.Event,
			RecipientID:    evt.RecipientID,
			RecipientEmail: evt.RecipientEmail,
			RecipientPhone: evt.RecipientPhone,
			Channel:        evt.Channel,
		})
	}

	brokersRaw := config.String("KAFKA_BROKERS", "")
	brokers := kafkax.SplitBrokers(brokersRaw)
	groupID := config.String("KAFKA_GROUP_ID", "notification-service")
	topics := strings.Split(config.String("KAFKA_TOPICS", defaultTopics), ",")
	for _, topic := range topics {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		c := consumer.New(brokers, topic, groupID, ibx, handler, logger)
		go c.Run(ctx)
		logger.Info("consumer started", "topic", topic, "group", groupID)
	}

	var emailSender email.Sender
	if host := config.String("SMTP_HOST", ""); host != "" {
		emailSender = email.NewSMTPSender(
			host,
			config.String("SMTP_PORT", "587"),
			config.String("SMTP_USER", ""),
			config.String("SMTP_PASS", ""),
			config.String("SMTP_FROM", ""),
		)
	} else {
		emailSender = &email.NoopSender{Logger: logger}
	}

	var waSender whatsapp.Sender
	if url := config.String("WHATSAPP_WEBHOOK_URL", ""); url != "" {
		waSender = whatsapp.NewWebhookSender(url, config.String("WHATSAPP_WEBHOOK_TOKEN", ""))
	} else {
		waSender = &whatsapp.NoopSender{Logger: logger}
	}

	worker := dispatch.NewWorker(notifications, emailSender, waSender, logger)
	go worker.Run(ctx)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokersRaw)},
	)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("service stopped")
}
