package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/comanda-backend/api/controllers"
	conversationcontrollers "github.com/angelmondragon/comanda-backend/api/controllers/conversations"
	ordercontrollers "github.com/angelmondragon/comanda-backend/api/controllers/orders"
	"github.com/angelmondragon/comanda-backend/api/middleware"
	"github.com/angelmondragon/comanda-backend/internal/conversations"
	"github.com/angelmondragon/comanda-backend/internal/orders"
	"github.com/angelmondragon/comanda-backend/pkg/config"
	"github.com/angelmondragon/comanda-backend/pkg/enums"
	"github.com/angelmondragon/comanda-backend/pkg/logger"
	"github.com/angelmondragon/comanda-backend/pkg/redis"
)

// redisStore covers the idempotency and rate limit surfaces of pkg/redis.Client.
type redisStore interface {
	redis.IdempotencyStore
	redis.RateLimiter
}

// RouterParams groups everything NewRouter wires into handlers.
type RouterParams struct {
	Config        *config.Config
	Logger        *logger.Logger
	Health        map[string]controllers.Pinger
	Redis         redisStore
	Gatherer      prometheus.Gatherer
	Orders        orders.Service
	Conversations conversations.Service
	Messaging     controllers.MessagingProvider
}

func NewRouter(p RouterParams) http.Handler {
	cfg, logg := p.Config, p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	lookupPolicy := middleware.NewRateLimitPolicy(
		"lookup",
		cfg.Lookup.RateLimitWindow,
		cfg.Lookup.RateLimitPerIP,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Health))
	})

	if p.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(p.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/public/v1", func(r chi.Router) {
		r.Get("/ping", controllers.PublicPing())
		r.With(middleware.Idempotency(p.Redis, logg)).Post("/orders", ordercontrollers.Checkout(p.Orders, logg))
		r.With(middleware.RateLimit(lookupPolicy, p.Redis, logg)).Get("/orders/lookup", ordercontrollers.Lookup(p.Orders, logg))
		r.With(middleware.WebhookSecret(cfg.Messaging.WebhookSecret, logg)).Post("/webhooks/whatsapp", conversationcontrollers.Webhook(p.Conversations, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.Idempotency(p.Redis, logg))

		r.Get("/ping", controllers.PrivatePing())

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.StaffRoleAdmin, enums.StaffRoleKitchen, enums.StaffRoleAttendant))
			r.Get("/", ordercontrollers.List(p.Orders, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(p.Orders, logg))
			r.Post("/{orderId}/confirm-payment", ordercontrollers.ConfirmPayment(p.Orders, logg))
			r.Post("/{orderId}/advance", ordercontrollers.Advance(p.Orders, logg))
			r.Post("/{orderId}/cancel", ordercontrollers.Cancel(p.Orders, logg))
		})

		r.Route("/conversations", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.StaffRoleAdmin, enums.StaffRoleAttendant))
			r.Get("/", conversationcontrollers.List(p.Conversations, logg))
			r.Get("/{conversationId}", conversationcontrollers.Detail(p.Conversations, logg))
			r.Post("/{conversationId}/takeover", conversationcontrollers.Takeover(p.Conversations, logg))
			r.Post("/{conversationId}/release", conversationcontrollers.Release(p.Conversations, logg))
			r.Post("/{conversationId}/messages", conversationcontrollers.Reply(p.Conversations, logg))
			r.With(middleware.RequireRole(logg, enums.StaffRoleAdmin)).Delete("/{conversationId}", conversationcontrollers.Delete(p.Conversations, logg))
		})

		r.Route("/messaging", func(r chi.Router) {
			r.Use(middleware.RequireRole(logg, enums.StaffRoleAdmin))
			r.Get("/status", controllers.MessagingStatus(p.Messaging, logg))
			r.Post("/reconnect", controllers.MessagingReconnect(p.Messaging, logg))
		})
	})

	return r
}
