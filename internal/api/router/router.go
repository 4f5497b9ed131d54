// Package router assembles the HTTP surface over the emotional core.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/whisperleaf/whisperleaf/internal/http/handlers"
	httpmiddleware "github.com/whisperleaf/whisperleaf/internal/http/middleware"
	"github.com/whisperleaf/whisperleaf/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	Journal        *handlers.JournalHandler
	Records        *handlers.RecordsHandler
	AdminRules     *handlers.AdminRulesHandler
	Health         *handlers.HealthHandler
	MetricsHandler http.Handler
	AuthJWTSecret  string
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		if cfg.Health != nil {
			public.Get("/healthz", cfg.Health.Check)
		}
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
	})

	// Authenticated API
	r.Route("/api/v1", func(api chi.Router) {
		api.Use(httpmiddleware.CallerJWT(cfg.AuthJWTSecret))

		if cfg.Journal != nil {
			api.Post("/journal", cfg.Journal.Submit)
		}
		if cfg.Records != nil {
			api.Get("/records/{id}", cfg.Records.Get)
			api.Delete("/records/{id}", cfg.Records.Delete)
		}
		if cfg.AdminRules != nil {
			api.Post("/admin/rules/reload", cfg.AdminRules.Reload)
		}
	})

	return r
}
