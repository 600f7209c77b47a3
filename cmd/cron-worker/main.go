package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/comanda-backend/internal/conversations"
	"github.com/angelmondragon/comanda-backend/internal/cron"
	"github.com/angelmondragon/comanda-backend/pkg/config"
	"github.com/angelmondragon/comanda-backend/pkg/db"
	"github.com/angelmondragon/comanda-backend/pkg/logger"
	"github.com/angelmondragon/comanda-backend/pkg/metrics"
	"github.com/angelmondragon/comanda-backend/pkg/migrate"
	"github.com/angelmondragon/comanda-backend/pkg/redis"
	"github.com/angelmondragon/comanda-backend/pkg/zapi"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
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

	registry, err := buildRegistry(cfg, logg, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to register cron jobs", err)
		os.Exit(1)
	}

	// Lock TTL stays under the interval so a crashed replica frees the next cycle.
	lock, err := cron.NewRedisLock(redisClient, cron.LockName, cfg.Cron.Interval*5/6)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"interval": cfg.Cron.Interval.String(),
		"jobs":     registry.Names(),
	})
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}

func buildRegistry(cfg *config.Config, logg *logger.Logger, dbClient *db.Client) (*cron.Registry, error) {
	conversationsService, err := conversations.NewService(conversations.ServiceParams{
		Repo:        conversations.NewRepository(dbClient.DB()),
		Tx:          dbClient,
		TakeoverTTL: cfg.Messaging.TakeoverTTL,
		Logger:      logg,
	})
	if err != nil {
		return nil, err
	}

	takeoverJob, err := cron.NewTakeoverExpiryJob(cron.TakeoverExpiryJobParams{
		Logger:        logg,
		Conversations: conversationsService,
	})
	if err != nil {
		return nil, err
	}
	registry := cron.NewRegistry(takeoverJob)

	if !cfg.Messaging.Enabled() {
		logg.Warn(context.Background(), "messaging provider not configured, skipping health job")
		return registry, nil
	}
	zapiClient, err := zapi.NewClient(
		cfg.Messaging.InstanceID,
		cfg.Messaging.Token,
		zapi.WithBaseURL(cfg.Messaging.BaseURL),
		zapi.WithClientToken(cfg.Messaging.ClientToken),
	)
	if err != nil {
		return nil, err
	}
	healthJob, err := cron.NewMessagingHealthJob(cron.MessagingHealthJobParams{
		Logger:   logg,
		Provider: zapiClient,
	})
	if err != nil {
		return nil, err
	}
	if err := registry.Register(healthJob); err != nil {
		return nil, err
	}
	return registry, nil
}
