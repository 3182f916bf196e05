package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bundlehubgh/bundlehub-backend/api"
	"github.com/bundlehubgh/bundlehub-backend/api/routes"
	"github.com/bundlehubgh/bundlehub-backend/internal/auth"
	"github.com/bundlehubgh/bundlehub-backend/internal/cart"
	"github.com/bundlehubgh/bundlehub-backend/internal/catalog"
	"github.com/bundlehubgh/bundlehub-backend/internal/checkout"
	"github.com/bundlehubgh/bundlehub-backend/internal/orders"
	"github.com/bundlehubgh/bundlehub-backend/internal/users"
	"github.com/bundlehubgh/bundlehub-backend/internal/vendor"
	"github.com/bundlehubgh/bundlehub-backend/internal/wallet"
	paystackwebhook "github.com/bundlehubgh/bundlehub-backend/internal/webhooks/paystack"
	"github.com/bundlehubgh/bundlehub-backend/pkg/config"
	"github.com/bundlehubgh/bundlehub-backend/pkg/db"
	"github.com/bundlehubgh/bundlehub-backend/pkg/logger"
	"github.com/bundlehubgh/bundlehub-backend/pkg/metrics"
	"github.com/bundlehubgh/bundlehub-backend/pkg/migrate"
	"github.com/bundlehubgh/bundlehub-backend/pkg/outbox"
	"github.com/bundlehubgh/bundlehub-backend/pkg/paystack"
	"github.com/bundlehubgh/bundlehub-backend/pkg/redis"
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

	registry := prometheus.NewRegistry()
	dispatchMetrics := metrics.NewDispatchMetrics(registry)

	vendorClient, err := vendor.NewClient(cfg.Vendor, logg, dispatchMetrics)
	if err != nil {
		logg.Error(context.Background(), "failed to create vendor client", err)
		os.Exit(1)
	}

	// Paystack is optional in dev; the gateway routes answer with a
	// configuration error when it is absent.
	var paystackClient *paystack.Client
	if cfg.Paystack.Configured() {
		paystackClient, err = paystack.NewClient(context.Background(), cfg.Paystack, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create paystack client", err)
			os.Exit(1)
		}
	}

	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	usersRepo := users.NewRepository(dbClient.DB())
	catalogRepo := catalog.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		PasswordConfig: cfg.Password,
		JWTConfig:      cfg.JWT,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartService, err := cart.NewService(redisClient, catalogRepo, cfg.Cart)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	walletService, err := wallet.NewService(wallet.NewRepository(dbClient.DB()), dbClient, outboxService)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	ordersService, err := orders.NewService(orders.NewRepository(dbClient.DB()), dbClient, outboxService, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	var payments checkout.PaymentInitializer
	if paystackClient != nil {
		payments = paystackClient
	}
	checkoutService, err := checkout.NewService(
		cartService,
		catalogRepo,
		walletService,
		ordersService,
		vendorClient,
		payments,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	deps := routes.Deps{
		Config:    cfg,
		Logger:    logg,
		Metrics:   registry,
		DBPing:    dbClient.Ping,
		RedisPing: redisClient.Ping,
		Auth:      authService,
		Catalog:   catalogService,
		Cart:      cartService,
		Checkout:  checkoutService,
		Orders:    ordersService,
		Wallet:    walletService,
		Payments:  payments,
	}

	if paystackClient != nil {
		guard, err := paystackwebhook.NewIdempotencyGuard(redisClient, cfg.Paystack.IdempotencyTTL, "paystack")
		if err != nil {
			logg.Error(context.Background(), "failed to create webhook guard", err)
			os.Exit(1)
		}
		webhookService, err := paystackwebhook.NewService(paystackwebhook.ServiceParams{
			Guard:    guard,
			Checkout: checkoutService,
			Carts:    cartService,
			Wallet:   walletService,
			Users:    usersRepo,
			Logger:   logg,
		})
		if err != nil {
			logg.Error(context.Background(), "failed to create paystack webhook service", err)
			os.Exit(1)
		}
		deps.PaystackWebhooks = webhookService
		deps.PaystackSignature = paystackClient
	}

	port := os.Getenv("PORT")
	if port != "" {
		cfg.App.Port = port
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": ":" + cfg.App.Port,
	})
	logg.Info(ctx, "starting api server")

	server := api.NewServer(cfg, routes.NewRouter(deps))
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
