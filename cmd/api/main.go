package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/comanda-backend/api/controllers"
	"github.com/angelmondragon/comanda-backend/api/routes"
	"github.com/angelmondragon/comanda-backend/internal/conversations"
	"github.com/angelmondragon/comanda-backend/internal/orders"
	"github.com/angelmondragon/comanda-backend/pkg/config"
	"github.com/angelmondragon/comanda-backend/pkg/db"
	"github.com/angelmondragon/comanda-backend/pkg/logger"
	"github.com/angelmondragon/comanda-backend/pkg/metrics"
	"github.com/angelmondragon/comanda-backend/pkg/migrate"
	"github.com/angelmondragon/comanda-backend/pkg/redis"
	"github.com/angelmondragon/comanda-backend/pkg/zapi"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	ordersService, err := buildOrdersService(cfg, logg, dbClient, registry)
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	var (
		messenger conversations.Messenger
		provider  controllers.MessagingProvider
	)
	if cfg.Messaging.Enabled() {
		zapiClient, err := zapi.NewClient(
			cfg.Messaging.InstanceID,
			cfg.Messaging.Token,
			zapi.WithBaseURL(cfg.Messaging.BaseURL),
			zapi.WithClientToken(cfg.Messaging.ClientToken),
		)
		if err != nil {
			logg.Error(ctx, "failed to create messaging client", err)
			os.Exit(1)
		}
		messenger = zapiClient
		provider = zapiClient
	} else {
		logg.Warn(ctx, "messaging provider not configured, outbound replies disabled")
	}

	conversationsService, err := conversations.NewService(conversations.ServiceParams{
		Repo:        conversations.NewRepository(dbClient.DB()),
		Tx:          dbClient,
		Dedupe:      conversations.NewRedisDedupe(redisClient, cfg.Messaging.DedupeTTL),
		Messenger:   messenger,
		TakeoverTTL: cfg.Messaging.TakeoverTTL,
		Metrics:     metrics.NewConversationMetrics(registry),
		Logger:      logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create conversations service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.RouterParams{
		Config: cfg,
		Logger: logg,
		Health: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
		},
		Redis:         redisClient,
		Gatherer:      registry,
		Orders:        ordersService,
		Conversations: conversationsService,
		Messaging:     provider,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "server failed", err)
		os.Exit(1)
	}
}

func buildOrdersService(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, reg prometheus.Registerer) (orders.Service, error) {
	policy, err := orders.ParseAvailabilityPolicy(cfg.Checkout.OnCheckFailure)
	if err != nil {
		return nil, err
	}
	window, err := orders.ParseDeliveryWindow(
		cfg.Checkout.DeliveryWindowStart,
		cfg.Checkout.DeliveryWindowEnd,
		cfg.Checkout.Location(),
	)
	if err != nil {
		return nil, err
	}
	fee, err := decimal.NewFromString(cfg.Checkout.DeliveryFee)
	if err != nil {
		return nil, err
	}
	return orders.NewService(orders.ServiceParams{
		Repo:         orders.NewRepository(dbClient.DB()),
		Tx:           dbClient,
		Availability: orders.NewProductAvailability(dbClient.DB()),
		Policy:       policy,
		Window:       window,
		DeliveryFee:  fee,
		CodePrefix:   cfg.Lookup.CodePrefix,
		Metrics:      metrics.NewOrderMetrics(reg),
		Logger:       logg,
	})
}
