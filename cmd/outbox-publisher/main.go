package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/kledje/storefront-backend/pkg/config"
	"github.com/kledje/storefront-backend/pkg/db"
	"github.com/kledje/storefront-backend/pkg/kafka"
	"github.com/kledje/storefront-backend/pkg/logger"
	"github.com/kledje/storefront-backend/pkg/metrics"
	"github.com/kledje/storefront-backend/pkg/migrate"
	"github.com/kledje/storefront-backend/pkg/outbox"
	"github.com/kledje/storefront-backend/pkg/outbox/idempotency"
	"github.com/kledje/storefront-backend/pkg/outbox/registry"
	"github.com/kledje/storefront-backend/pkg/pubsub"
	"github.com/kledje/storefront-backend/pkg/redis"
)

const deliveryGuardTTL = 7 * 24 * time.Hour

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sink, topic, err := newSink(context.Background(), cfg, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap outbox sink", err)
		os.Exit(1)
	}
	defer func() {
		if err := sink.Close(); err != nil {
			logg.Error(context.Background(), "error closing outbox sink", err)
		}
	}()

	eventRegistry, err := registry.NewEventRegistry(topic)
	if err != nil {
		logg.Error(context.Background(), "failed to build event registry", err)
		os.Exit(1)
	}
	guard, err := idempotency.NewManager(redisClient, deliveryGuardTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to build delivery guard", err)
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         dbClient,
		Sink:       sink,
		Repository: outbox.NewRepository(dbClient.DB()),
		Registry:   eventRegistry,
		Guard:      guard,
		Metrics:    metrics.NewOutboxMetrics(reg),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox publisher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "outbox-publisher",
		"broker":      cfg.Outbox.NormalizedBroker(),
		"topic":       topic,
	})
	logg.Info(ctx, "starting outbox publisher")

	metricsServer := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return service.Run(groupCtx)
	})
	group.Go(func() error {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

// newSink picks the broker named by STOREFRONT_OUTBOX_BROKER and returns it
// with the topic order events are routed to.
func newSink(ctx context.Context, cfg *config.Config, logg *logger.Logger) (outbox.Sink, string, error) {
	switch cfg.Outbox.NormalizedBroker() {
	case config.OutboxBrokerPubSub:
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			return nil, "", err
		}
		return client, cfg.PubSub.OrdersTopic, nil
	case config.OutboxBrokerKafka:
		producer, err := kafka.NewProducer(cfg.Kafka, logg)
		if err != nil {
			return nil, "", err
		}
		return producer, cfg.Kafka.OrdersTopic, nil
	case config.OutboxBrokerLog:
		return outbox.NewLogSink(logg), "storefront-order-events", nil
	default:
		return nil, "", fmt.Errorf("unsupported outbox broker %q", cfg.Outbox.Broker)
	}
}
