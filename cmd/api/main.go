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
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/haulbook-backend/api/controllers"
	"github.com/angelmondragon/haulbook-backend/api/routes"
	"github.com/angelmondragon/haulbook-backend/internal/admins"
	"github.com/angelmondragon/haulbook-backend/internal/auth"
	"github.com/angelmondragon/haulbook-backend/internal/customers"
	"github.com/angelmondragon/haulbook-backend/internal/discounts"
	"github.com/angelmondragon/haulbook-backend/internal/media"
	"github.com/angelmondragon/haulbook-backend/internal/notifications"
	"github.com/angelmondragon/haulbook-backend/internal/payments"
	"github.com/angelmondragon/haulbook-backend/internal/requests"
	stripewebhook "github.com/angelmondragon/haulbook-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/haulbook-backend/pkg/config"
	"github.com/angelmondragon/haulbook-backend/pkg/db"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
	"github.com/angelmondragon/haulbook-backend/pkg/metrics"
	"github.com/angelmondragon/haulbook-backend/pkg/migrate"
	"github.com/angelmondragon/haulbook-backend/pkg/redis"
	"github.com/angelmondragon/haulbook-backend/pkg/sendgrid"
	"github.com/angelmondragon/haulbook-backend/pkg/servicearea"
	"github.com/angelmondragon/haulbook-backend/pkg/storage/gcs"
	"github.com/angelmondragon/haulbook-backend/pkg/stripe"
)

const shutdownTimeout = 15 * time.Second

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
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
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
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookingMetrics := metrics.NewBookingMetrics(registry)

	notifier, err := notifications.NewService(newSender(ctx, cfg, logg), cfg.Sendgrid.AdminEmail, logg)
	requireResource(ctx, logg, "notifications", err)

	discountService, err := discounts.NewService(discounts.NewRepository(dbClient.DB()))
	requireResource(ctx, logg, "discounts", err)

	checker := servicearea.NewChecker(cfg.Booking.ServiceAreaPrefixes)
	requestService, err := requests.NewService(requests.ServiceParams{
		Repo:        requests.NewRepository(dbClient.DB()),
		Customers:   customers.NewRepository(dbClient.DB()),
		Tx:          dbClient,
		Discounts:   discountService,
		Notifier:    notifier,
		ServiceArea: checker,
		Metrics:     bookingMetrics,
		Logger:      logg,
		Settings: requests.Settings{
			Policy:          requests.NewCancellationPolicy(cfg.Booking.CancellationThreshold()),
			CancellationFee: cfg.Booking.CancellationFeeAmount(),
			TaxRate:         cfg.Booking.TaxRateValue(),
			Currency:        cfg.Booking.Currency,
			BookingURL:      cfg.App.BookingURL,
		},
	})
	requireResource(ctx, logg, "requests", err)

	adminRepo := admins.NewRepository(dbClient.DB())
	adminService, err := admins.NewService(adminRepo, cfg.Password, logg)
	requireResource(ctx, logg, "admins", err)
	if created, err := adminService.EnsureBootstrap(ctx, cfg.BootstrapAdmin); err != nil {
		logg.Error(ctx, "failed to bootstrap admin", err)
		os.Exit(1)
	} else if created {
		logg.Info(logg.WithField(ctx, "username", cfg.BootstrapAdmin.Username), "bootstrap admin created")
	}

	authService, err := auth.NewService(adminRepo, cfg.JWT, cfg.Password)
	requireResource(ctx, logg, "auth", err)

	deps := routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Store:       redisClient,
		Ready:       map[string]controllers.Pinger{"database": dbClient, "redis": redisClient},
		Gatherer:    registry,
		HTTPMetrics: metrics.NewHTTPMetrics(registry),
		ServiceArea: checker,
		Requests:    requestService,
		Discounts:   discountService,
		Admins:      adminService,
		Auth:        authService,
	}

	wirePayments(ctx, cfg, logg, dbClient, redisClient, requestService, &deps)
	wireMedia(ctx, cfg, logg, &deps)

	addr := ":" + cfg.App.Port
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "addr": addr})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logg.Info(shutdownCtx, "shutting down api server")
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(shutdownCtx, "graceful shutdown failed", err)
		}
	}
}

// newSender falls back to logging emails when SendGrid is not configured.
func newSender(ctx context.Context, cfg *config.Config, logg *logger.Logger) notifications.Sender {
	if cfg.Sendgrid.APIKey == "" {
		logg.Warn(ctx, "sendgrid api key not set, notifications will be logged only")
		return notifications.LogSender{Logg: logg}
	}
	client, err := sendgrid.NewClient(ctx, cfg.Sendgrid, logg)
	requireResource(ctx, logg, "sendgrid", err)
	return client
}

func wirePayments(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client, bookings requests.Service, deps *routes.Deps) {
	if cfg.Stripe.APIKey == "" {
		logg.Warn(ctx, "stripe api key not set, card payments disabled")
		return
	}
	stripeClient, err := stripe.NewClient(ctx, cfg.Stripe, logg)
	requireResource(ctx, logg, "stripe", err)

	paymentService, err := payments.NewService(payments.ServiceParams{
		Repo:     payments.NewRepository(dbClient.DB()),
		Gateway:  stripeClient,
		Bookings: bookings,
		Currency: cfg.Booking.Currency,
		Logger:   logg,
	})
	requireResource(ctx, logg, "payments", err)

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{Payments: paymentService, Logger: logg})
	requireResource(ctx, logg, "stripe webhooks", err)

	ledger, err := stripewebhook.NewEventLedger(redisClient, stripewebhook.DefaultEventTTL)
	requireResource(ctx, logg, "stripe event ledger", err)

	deps.Payments = paymentService
	deps.Stripe = stripeClient
	deps.StripeWebhook = webhookService
	deps.WebhookLedger = ledger
}

func wireMedia(ctx context.Context, cfg *config.Config, logg *logger.Logger, deps *routes.Deps) {
	if !cfg.GCS.Enabled() {
		logg.Warn(ctx, "gcs bucket not set, photo uploads disabled")
		return
	}
	store, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
	requireResource(ctx, logg, "gcs", err)

	mediaService, err := media.NewService(store, cfg.Media.MaxUploadBytes())
	requireResource(ctx, logg, "media", err)

	deps.Media = mediaService
	deps.Ready["gcs"] = store
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, "resource not working: "+resource, err)
	os.Exit(1)
}
