package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/lxiscxstillo/cobamovil-backend/libs/config"
	"github.com/lxiscxstillo/cobamovil-backend/libs/db"
	"github.com/lxiscxstillo/cobamovil-backend/libs/httpx"
	"github.com/lxiscxstillo/cobamovil-backend/libs/kafkax"
	otelx "github.com/lxiscxstillo/cobamovil-backend/libs/otel"
	"github.com/lxiscxstillo/cobamovil-backend/libs/runtime"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/coverage"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/handlers"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/outbox"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/scheduling"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/storage"
	"github.com/lxiscxstillo/cobamovil-backend/services/booking-service/internal/travel"
)

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
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

	appts := storage.NewAppointmentRepository(pool)
	plans := storage.NewRoutePlanRepository(pool)
	history := storage.NewCutRecordRepository(pool)
	directory := storage.NewDirectory(pool)

	outboxRepo := outbox.NewRepository(pool)
	notifier := outbox.NewNotifier(outboxRepo, directory, logger)
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   config.String("KAFKA_BROKERS", ""),
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	area := coverage.Area{
		Enabled: config.Bool("COVERAGE_ENABLED", false),
		MinLat:  config.Float("COVERAGE_MIN_LAT", 0),
		MaxLat:  config.Float("COVERAGE_MAX_LAT", 0),
		MinLng:  config.Float("COVERAGE_MIN_LNG", 0),
		MaxLng:  config.Float("COVERAGE_MAX_LNG", 0),
	}

	sched := scheduling.New(scheduling.Deps{
		Store:     appts,
		Plans:     plans,
		Pets:      directory,
		Groomers:  directory,
		History:   history,
		Notifier:  notifier,
		Coverage:  area,
		Estimator: travel.NewGoogleMatrix(config.String("GOOGLE_MAPS_API_KEY", "")),
		Logger:    logger,
	})

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(config.String("KAFKA_BROKERS", ""))},
	)
	handlers.NewBookingHandler(sched, logger).Register(mux)

	middlewares := []httpx.Middleware{
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(1 << 20),
		httpx.WithTimeout(30 * time.Second),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: splitList(config.String("CORS_ALLOWED_ORIGINS", "")),
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Content-Type", "X-User-Id", "X-Request-Id"},
			MaxAge:         10 * time.Minute,
		}),
	}
	if redisURL := config.String("REDIS_URL", ""); redisURL != "" {
		opts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Error("invalid REDIS_URL", "err", err)
			panic(err)
		}
		rdb := redis.NewClient(opts)
		limiter := httpx.NewRedisRateLimiter(rdb,
			config.Int("RATE_LIMIT", 60), time.Minute, "booking")
		middlewares = append(middlewares, limiter.Middleware(logger, true))
	} else {
		limiter := httpx.NewRateLimiter(config.Int("RATE_LIMIT", 60), time.Minute)
		middlewares = append(middlewares, limiter.Middleware())
	}

	httpHandler := httpx.Chain(mux, middlewares...)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
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
	logger.Info("http server stopped")
}
