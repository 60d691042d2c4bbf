package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/haulbook-backend/api/controllers"
	webhookcontrollers "github.com/angelmondragon/haulbook-backend/api/controllers/webhooks"
	"github.com/angelmondragon/haulbook-backend/api/middleware"
	"github.com/angelmondragon/haulbook-backend/internal/admins"
	"github.com/angelmondragon/haulbook-backend/internal/auth"
	"github.com/angelmondragon/haulbook-backend/internal/discounts"
	"github.com/angelmondragon/haulbook-backend/internal/media"
	"github.com/angelmondragon/haulbook-backend/internal/payments"
	"github.com/angelmondragon/haulbook-backend/internal/requests"
	stripewebhook "github.com/angelmondragon/haulbook-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/haulbook-backend/pkg/config"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
	"github.com/angelmondragon/haulbook-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/haulbook-backend/pkg/redis"
	"github.com/angelmondragon/haulbook-backend/pkg/servicearea"
	"github.com/angelmondragon/haulbook-backend/pkg/stripe"
)

// Store is the redis surface used by rate limiting and idempotency.
type Store interface {
	pkgredis.IdempotencyStore
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	RateLimitKey(scope string) string
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// Deps carries everything the HTTP layer needs. Payments, Stripe and Media
// are nil when their provider is not configured; their routes answer 503.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Store       Store
	Ready       map[string]controllers.Pinger
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics

	ServiceArea *servicearea.Checker
	Requests    requests.Service
	Discounts   discounts.Service
	Admins      admins.Service
	Auth        auth.Service
	Payments    payments.Service
	Media       media.Service

	Stripe        *stripe.Client
	StripeWebhook *stripewebhook.Service
	WebhookLedger *stripewebhook.EventLedger
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		d.HTTPMetrics.Middleware,
	)

	cookie := controllers.NewSessionCookie(cfg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.Ready))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(d.Gatherer))

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeHandler(d.StripeWebhook), signingClient(d.Stripe), webhookLedger(d.WebhookLedger), logg))
	})

	standard := middleware.Idempotent(d.Store, middleware.StandardWrite, logg)
	payment := middleware.Idempotent(d.Store, middleware.PaymentWrite, logg)
	requiredPayment := middleware.Idempotent(d.Store, middleware.RequiredPaymentWrite, logg)

	r.Route("/api/public", func(r chi.Router) {
		r.Post("/service-area/check", controllers.PublicServiceAreaCheck(d.ServiceArea, logg))
		r.With(standard).Post("/requests", controllers.PublicSubmitRequest(d.Requests, logg))
		r.Post("/uploads", controllers.PublicUpload(d.Media, cfg.Media.MaxUploadBytes(), logg))
		r.Post("/discounts/validate", controllers.PublicDiscountValidate(d.Discounts, logg))

		r.Route("/bookings/{token}", func(r chi.Router) {
			r.Get("/", controllers.PublicBookingGet(d.Requests, logg))
			r.Get("/cancellation", controllers.PublicBookingCancellation(d.Requests, logg))
			r.Post("/confirm", controllers.PublicBookingConfirm(d.Requests, logg))
			r.Post("/cancel", controllers.PublicBookingCancel(d.Requests, logg))
			r.With(standard).Post("/setup-intent", controllers.PublicBookingSetupIntent(d.Payments, logg))
			r.With(requiredPayment).Post("/payment-intent", controllers.PublicBookingPaymentIntent(d.Payments, logg))
		})
		r.With(payment).Post("/payments/{intentId}/confirm", controllers.PublicPaymentConfirm(d.Payments, logg))
	})

	r.Route("/api/admin", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.LoginThrottle(cfg.AuthRateLimit, d.Store, logg)).Post("/login", controllers.AdminAuthLogin(d.Auth, cookie, logg))
			r.Post("/logout", controllers.AdminAuthLogout(cookie))
			r.With(middleware.Auth(cfg.JWT, logg)).Get("/me", controllers.AdminAuthMe(d.Admins, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Route("/requests", func(r chi.Router) {
				r.Get("/", controllers.AdminRequestList(d.Requests, logg))
				r.Get("/{requestId}", controllers.AdminRequestGet(d.Requests, logg))
				r.With(standard).Post("/{requestId}/quote", controllers.AdminRequestQuote(d.Requests, logg))
				r.With(standard).Post("/{requestId}/invoice", controllers.AdminRequestInvoice(d.Requests, logg))
				r.Post("/{requestId}/cancel", controllers.AdminRequestCancel(d.Requests, logg))
			})

			r.Route("/discounts", func(r chi.Router) {
				r.Get("/", controllers.AdminDiscountList(d.Discounts, logg))
				r.Post("/", controllers.AdminDiscountCreate(d.Discounts, logg))
				r.Get("/{discountId}", controllers.AdminDiscountGet(d.Discounts, logg))
				r.Patch("/{discountId}", controllers.AdminDiscountUpdate(d.Discounts, logg))
				r.Delete("/{discountId}", controllers.AdminDiscountDelete(d.Discounts, logg))
			})

			r.Route("/admins", func(r chi.Router) {
				r.Get("/", controllers.AdminUserList(d.Admins, logg))
				r.Post("/", controllers.AdminUserCreate(d.Admins, logg))
				r.Post("/me/password", controllers.AdminChangePassword(d.Admins, logg))
				r.Delete("/{adminId}", controllers.AdminUserDelete(d.Admins, logg))
			})
		})
	})

	return r
}

// Typed nil pointers must not reach the webhook controller as non-nil interfaces.
func stripeHandler(svc *stripewebhook.Service) webhookcontrollers.EventHandler {
	if svc == nil {
		return nil
	}
	return svc
}

func signingClient(client *stripe.Client) webhookcontrollers.SigningSecretProvider {
	if client == nil {
		return nil
	}
	return client
}

func webhookLedger(ledger *stripewebhook.EventLedger) webhookcontrollers.EventLedger {
	if ledger == nil {
		return nil
	}
	return ledger
}
