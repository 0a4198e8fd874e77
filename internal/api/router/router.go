package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/haidarlabs/qanuni-gateway/internal/http/handlers"
	httpmiddleware "github.com/haidarlabs/qanuni-gateway/internal/http/middleware"
	"github.com/haidarlabs/qanuni-gateway/internal/messaging"
	"github.com/haidarlabs/qanuni-gateway/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	Webhooks       *messaging.WebhookHandler
	AdminMessaging *handlers.AdminMessagingHandler
	AdminDirectory *handlers.AdminDirectoryHandler
	MetricsHandler http.Handler

	AdminJWTSecret string

	// Webhook rate limiting; zero disables the limiter.
	WebhookRateLimit float64
	WebhookBurst     int
}

// New creates the chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public surface: liveness, metrics, provider webhooks.
	r.Group(func(public chi.Router) {
		public.Get("/health", cfg.Webhooks.HealthCheck)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		public.Route("/webhooks/twilio", func(wh chi.Router) {
			if cfg.WebhookRateLimit > 0 {
				wh.Use(httpmiddleware.RateLimit(cfg.WebhookRateLimit, cfg.WebhookBurst))
			}
			wh.Post("/message", cfg.Webhooks.IncomingMessage)
			wh.Post("/status", cfg.Webhooks.StatusCallback)
		})
	})

	// Operator surface, bearer-token gated.
	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret))
		if cfg.AdminMessaging != nil {
			api.Post("/messages/send", cfg.AdminMessaging.SendMessage)
			api.Post("/messages/bulk", cfg.AdminMessaging.SendBulk)
		}
		if cfg.AdminDirectory != nil {
			api.Get("/status", cfg.AdminDirectory.GetStatus)
			api.Get("/sessions", cfg.AdminDirectory.ListSessions)
			api.Get("/sessions/{sessionID}/messages", cfg.AdminDirectory.ListMessages)
		}
	})

	return r
}
