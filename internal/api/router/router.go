// Package router assembles the chi router for the ingestion service.
package router

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/atendezap/atendezap/internal/http/handlers"
	httpmiddleware "github.com/atendezap/atendezap/internal/http/middleware"
	"github.com/atendezap/atendezap/internal/transcribe"
	"github.com/atendezap/atendezap/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	Webhook            *handlers.GatewayWebhookHandler
	Transcribe         *transcribe.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthCheck)

	if cfg.Webhook != nil {
		// The gateway posts to the service root; keep /webhook as an alias
		// for deployments that mount this service behind a path prefix.
		r.Get("/", cfg.Webhook.Status)
		r.Post("/", cfg.Webhook.Receive)
		r.Get("/webhook", cfg.Webhook.Status)
		r.Post("/webhook", cfg.Webhook.Receive)
	}

	if cfg.Transcribe != nil {
		r.Post("/transcribe", cfg.Transcribe.Transcribe)
	}

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
