package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/tripmarket-backend/api/routes"
	"github.com/angelmondragon/tripmarket-backend/internal/inventory"
	"github.com/angelmondragon/tripmarket-backend/internal/orders"
	"github.com/angelmondragon/tripmarket-backend/internal/payments"
	"github.com/angelmondragon/tripmarket-backend/internal/products"
	"github.com/angelmondragon/tripmarket-backend/internal/users"
	gatewaywebhook "github.com/angelmondragon/tripmarket-backend/internal/webhooks/gateway"
	"github.com/angelmondragon/tripmarket-backend/pkg/config"
	"github.com/angelmondragon/tripmarket-backend/pkg/db"
	"github.com/angelmondragon/tripmarket-backend/pkg/gateway"
	"github.com/angelmondragon/tripmarket-backend/pkg/logger"
	"github.com/angelmondragon/tripmarket-backend/pkg/metrics"
	"github.com/angelmondragon/tripmarket-backend/pkg/migrate"
	"github.com/angelmondragon/tripmarket-backend/pkg/outbox"
	"github.com/angelmondragon/tripmarket-backend/pkg/redis"
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

	cfg.Service.Kind = "api"

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

	gatewayClient, err := gateway.NewClient(context.Background(), cfg.Gateway, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create gateway client", err)
		os.Exit(1)
	}

	orderMetrics := metrics.NewOrderMetrics(prometheus.DefaultRegisterer)
	ledger := inventory.NewLedger(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	paymentsRepo := payments.NewRepository(dbClient.DB())

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(dbClient.DB()),
		Payments: paymentsRepo,
		Users:    users.NewRepository(dbClient.DB()),
		Products: products.NewRepository(dbClient.DB()),
		Ledger:   ledger,
		Gateway:  gatewayClient,
		Tx:       dbClient,
		Outbox:   outboxService,
		Metrics:  orderMetrics,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repo:                 paymentsRepo,
		Orders:               ordersService,
		Ledger:               ledger,
		Gateway:              gatewayClient,
		Tx:                   dbClient,
		Outbox:               outboxService,
		Metrics:              orderMetrics,
		Logger:               logg,
		RefundWindow:         cfg.Orders.RefundWindow,
		RestoreStockOnRefund: cfg.Orders.RestoreStockOnRefund,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create payments service", err)
		os.Exit(1)
	}

	webhookService, err := gatewaywebhook.NewService(gatewaywebhook.ServiceParams{
		Orders:  ordersService,
		Amounts: gatewayClient.Amounts(),
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook service", err)
		os.Exit(1)
	}
	webhookGuard, err := gatewaywebhook.NewIdempotencyGuard(redisClient, cfg.Orders.WebhookIdempotentTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create webhook guard", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
		"addr":        addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:       cfg,
			Logger:       logg,
			DB:           dbClient,
			Cache:        redisClient,
			Orders:       ordersService,
			Payments:     paymentsService,
			Webhooks:     webhookService,
			WebhookGuard: webhookGuard,
			Gateway:      gatewayClient,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
		}
	}()

	logg.Info(ctx, "starting api server")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "api server shut down gracefully")
}
