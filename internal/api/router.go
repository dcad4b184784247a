/**
 * @description
 * HTTP router setup for the billing service using go-chi/chi.
 */
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig wires the router's collaborators.
type RouterConfig struct {
	Auth                          AuthConfig
	AllowedOrigins                []string
	RateLimiter                   RateLimiter
	IntegrationRateLimitPerMinute int
	MetricsHandler                http.Handler
	Logger                        *slog.Logger
}

// NewRouter creates a new Chi router and registers the billing routes.
func NewRouter(h *Handler, resolver TenantResolver, cfg RouterConfig) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}
	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Internal-API-Key"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Billing service is healthy"))
	})
	r.Handle("/metrics", metricsHandler)

	r.Route("/api/admin/generate-bills", func(r chi.Router) {
		r.Use(AdminAuthMiddleware(cfg.Auth, logger))
		r.Post("/", h.handleGenerateBills)
		r.Post("/{userId}", h.handleGenerateBills)
	})

	r.Group(func(r chi.Router) {
		r.Use(TenantAuthMiddleware(resolver, cfg.Auth, logger))

		r.Get("/api/dashboard", h.handleDashboard)

		r.Route("/api/cobrancas", func(r chi.Router) {
			r.Get("/", h.handleListCharges)
			r.Post("/", h.handleCreateCharge)
			r.With(RateLimitMiddleware(cfg.RateLimiter, "message", cfg.IntegrationRateLimitPerMinute, logger)).
				Post("/message", h.handleRecordMessage)
			r.Get("/{id}", h.handleGetCharge)
			r.Put("/{id}", h.handleUpdateCharge)
			r.Post("/{id}/pay", h.handlePayCharge)
			r.With(RateLimitMiddleware(cfg.RateLimiter, "integration_update", cfg.IntegrationRateLimitPerMinute, logger)).
				Post("/{id}/update", h.handleIntegrationUpdate)
		})

		r.Route("/api/integrations/cobrancas", func(r chi.Router) {
			r.Use(RateLimitMiddleware(cfg.RateLimiter, "integrations", cfg.IntegrationRateLimitPerMinute, logger))
			r.Get("/", h.handleListActionable)
			r.Post("/{id}/attempt", h.handleIncrementAttempt)
		})
	})

	return r
}
