package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/tripmarket-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/tripmarket-backend/api/controllers/orders"
	paymentcontrollers "github.com/angelmondragon/tripmarket-backend/api/controllers/payments"
	webhookcontrollers "github.com/angelmondragon/tripmarket-backend/api/controllers/webhooks"
	"github.com/angelmondragon/tripmarket-backend/api/middleware"
	"github.com/angelmondragon/tripmarket-backend/internal/orders"
	"github.com/angelmondragon/tripmarket-backend/internal/payments"
	gatewaywebhook "github.com/angelmondragon/tripmarket-backend/internal/webhooks/gateway"
	"github.com/angelmondragon/tripmarket-backend/pkg/config"
	"github.com/angelmondragon/tripmarket-backend/pkg/logger"
)

// Cache is the redis surface the HTTP layer needs.
type Cache interface {
	controllers.Pinger
	middleware.ReplayStore
	middleware.RateLimiter
}

type signatureVerifier interface {
	VerifySignature(payload []byte, signature string) bool
}

type RouterParams struct {
	Config         *config.Config
	Logger         *logger.Logger
	DB             controllers.Pinger
	Cache          Cache
	Orders         orders.Service
	Payments       payments.Service
	Webhooks       *gatewaywebhook.Service
	WebhookGuard   *gatewaywebhook.IdempotencyGuard
	Gateway        signatureVerifier
	MetricsHandler http.Handler
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	metricsHandler := p.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Handle("/metrics", metricsHandler)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DB, p.Cache))
	})

	// Typed nil pointers must not reach the controller as non-nil interfaces.
	var (
		webhookSvc   webhookcontrollers.PaymentCallbackService
		webhookGuard webhookcontrollers.PaymentCallbackGuard
	)
	if p.Webhooks != nil {
		webhookSvc = p.Webhooks
	}
	if p.WebhookGuard != nil {
		webhookGuard = p.WebhookGuard
	}
	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/payments", webhookcontrollers.PaymentCallback(webhookSvc, p.Gateway, webhookGuard, logg))
	})

	writePolicy := middleware.NewRateLimitPolicy("buyer-writes", cfg.RateLimit.Window, cfg.RateLimit.WriteLimit)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(writePolicy, p.Cache, logg))
		r.Use(middleware.Idempotency(p.Cache, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", ordercontrollers.Create(p.Orders, logg))
			r.Post("/{orderNo}/payment", ordercontrollers.PreparePayment(p.Orders, logg))
		})
		r.Route("/payments", func(r chi.Router) {
			r.Get("/{orderId}", paymentcontrollers.Detail(p.Payments, logg))
			r.Post("/{orderId}/refund", paymentcontrollers.Refund(p.Payments, logg))
		})
	})

	return r
}
