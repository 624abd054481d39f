package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rspatil/orderdesk/internal/config"
	"github.com/rspatil/orderdesk/internal/dispatch"
	"github.com/rspatil/orderdesk/internal/events"
	"github.com/rspatil/orderdesk/internal/handler"
	"github.com/rspatil/orderdesk/internal/logger"
	"github.com/rspatil/orderdesk/internal/metrics"
	"github.com/rspatil/orderdesk/internal/publisher"
	"github.com/rspatil/orderdesk/internal/push"
	"github.com/rspatil/orderdesk/internal/router"
	"github.com/rspatil/orderdesk/internal/service"
	"github.com/rspatil/orderdesk/internal/signature"
	"github.com/rspatil/orderdesk/internal/storage"
	"github.com/rspatil/orderdesk/pkg/observability"
)

const serviceName = "orderdesk"

func main() {
	l := logger.NewJSONLogger()
	slog.SetDefault(l)

	metrics.Init()

	if err := godotenv.Load(); err != nil {
		l.Debug("no .env file loaded", slog.Any("error", err))
	}

	cfg, err := config.Load()
	if err != nil {
		l.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		tracerShutdown, err := observability.NewTracerProvider(ctx, serviceName, cfg.OTLPEndpoint, l)
		if err != nil {
			l.Error("failed to initialize tracer provider", slog.Any("error", err))
			os.Exit(1)
		}
		defer tracerShutdown()
	}

	dbPool, err := storage.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		l.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbPool.Close()

	// Storage layer
	orderStore := storage.NewPostgresOrderStorage(dbPool)
	subscriptionStore := storage.NewPostgresSubscriptionStorage(dbPool)
	secretStore := storage.NewPostgresSecretStorage(dbPool)

	// Pipeline components
	verifier := signature.NewVerifier(secretStore, l)
	broadcaster := publisher.NewBroadcaster(
		cfg.BroadcastEventsPerSec, cfg.BroadcastBurst, cfg.SubscriberQueueCap, l)

	pushClient := push.NewGatewayClient(
		cfg.PushGatewayURL, cfg.PushAPIKey,
		&http.Client{Timeout: cfg.PushTimeout}, l)
	dispatcher := dispatch.NewDispatcher(
		subscriptionStore, pushClient, cfg.FanoutWorkers, cfg.PushTimeout, l)

	var producer events.Producer = events.Noop{}
	if len(cfg.KafkaBrokers) > 0 {
		asyncProducer, err := events.NewAsyncProducer(cfg.KafkaBrokers)
		if err != nil {
			l.Error("failed to create kafka producer", slog.Any("error", err))
			os.Exit(1)
		}
		producer = events.NewKafkaProducer(asyncProducer, cfg.KafkaTopic, l)
	}
	producer.Start(ctx)
	defer producer.Close()

	// Services
	orderSvc := service.NewOrderService(orderStore, verifier, broadcaster, dispatcher, producer, l)
	subscriptionSvc := service.NewSubscriptionService(subscriptionStore, l)
	healthSvc := service.NewHealthService(orderStore, l)

	// Handlers and router
	r := router.NewRouter(
		handler.NewWebhookHandler(orderSvc, l),
		handler.NewOrderHandler(orderSvc, l),
		handler.NewSubscriptionHandler(subscriptionSvc, l),
		handler.NewEventsHandler(broadcaster, l),
		handler.NewHealthHandler(healthSvc, l),
	)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		l.Info("server started", slog.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	l.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		l.Error("shutdown failed", slog.Any("error", err))
	} else {
		l.Info("server exited cleanly")
	}
}
