// Package server assembles the HTTP routes of the AI functions service.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/capitalize-ai/ai-functions/internal/handler"
	"github.com/capitalize-ai/ai-functions/internal/middleware"
	"github.com/capitalize-ai/ai-functions/pkg/logger"
)

// FunctionsPrefix is the mount point of the function endpoints.
const FunctionsPrefix = "/functions/v1"

// Options configures the router.
type Options struct {
	Functions *handler.FunctionHandler
	Events    *handler.EventsHandler
	Health    *handler.HealthHandler
	Logger    *logger.Logger

	JWTSecret         string
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// NewRouter builds the service's HTTP handler.
func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(opts.Logger))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)

	r.NotFound(handler.NotFound)
	r.MethodNotAllowed(handler.MethodNotAllowed)

	// Health endpoints (no auth required)
	r.Get("/health", opts.Health.Health)
	r.Get("/ready", opts.Health.Ready)

	r.Handle("/metrics", promhttp.Handler())

	r.Route(FunctionsPrefix, func(r chi.Router) {
		// CORS first so preflight and every error carry the headers
		r.Use(middleware.FunctionCORS)
		r.Use(middleware.Auth(opts.JWTSecret))
		r.Use(middleware.RateLimit(opts.RateLimitRequests, opts.RateLimitWindow))

		r.NotFound(handler.NotFound)
		r.MethodNotAllowed(handler.MethodNotAllowed)

		r.Post("/analyze-support", opts.Functions.AnalyzeSupport)
		r.Post("/generate-support-reply", opts.Functions.GenerateSupportReply)
		r.Post("/generate-content-script", opts.Functions.GenerateContentScript)
		r.Post("/whatsapp-ai-chat", opts.Functions.WhatsAppChat)

		r.Get("/events", opts.Events.Stream)
	})

	return r
}
