package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/shopdesk/shopdesk-backend/api/routes"
	"github.com/shopdesk/shopdesk-backend/internal/images"
	"github.com/shopdesk/shopdesk-backend/internal/orders"
	internalsync "github.com/shopdesk/shopdesk-backend/internal/sync"
	shopifywebhook "github.com/shopdesk/shopdesk-backend/internal/webhooks/shopify"
	"github.com/shopdesk/shopdesk-backend/pkg/config"
	"github.com/shopdesk/shopdesk-backend/pkg/db"
	"github.com/shopdesk/shopdesk-backend/pkg/logger"
	"github.com/shopdesk/shopdesk-backend/pkg/metrics"
	"github.com/shopdesk/shopdesk-backend/pkg/migrate"
	"github.com/shopdesk/shopdesk-backend/pkg/redis"
	"github.com/shopdesk/shopdesk-backend/pkg/shopify"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	shopifyClient, err := shopify.NewClient(context.Background(), cfg.Shopify, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create shopify client", err)
		os.Exit(1)
	}

	repo := orders.NewRepository(dbClient.DB())

	coordinator, err := orders.NewCoordinator(orders.CoordinatorParams{
		Repo:   repo,
		Tx:     dbClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create upsert coordinator", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:   repo,
		Tx:     dbClient,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	resolver, err := images.NewResolver(images.ResolverParams{
		Client:     shopifyClient,
		Logger:     logg,
		BatchSize:  cfg.Sync.ImageBatchSize,
		RefetchCap: cfg.Sync.ImageRefetchCap,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create image resolver", err)
		os.Exit(1)
	}

	syncMetrics := metrics.NewSyncMetrics(prometheus.DefaultRegisterer)
	syncRunner, err := internalsync.NewRunner(internalsync.RunnerParams{
		Client:   shopifyClient,
		Resolver: resolver,
		Upserter: coordinator,
		Index:    repo,
		Metrics:  syncMetrics,
		Logger:   logg,
		Config:   cfg.Sync,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create sync runner", err)
		os.Exit(1)
	}

	guard, err := shopifywebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, shopifywebhook.DefaultScope)
	if err != nil {
		logg.Error(context.Background(), "failed to create idempotency guard", err)
		os.Exit(1)
	}

	webhookService, err := shopifywebhook.NewService(shopifywebhook.ServiceParams{
		Resolver: resolver,
		Upserter: coordinator,
		Catalog:  shopifyClient,
		Guard:    guard,
		Metrics:  syncMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, ordersSvc, syncRunner, webhookService),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
