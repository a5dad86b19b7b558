package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/eldtechnologies/talkbridge/internal/api/middleware"
	"github.com/eldtechnologies/talkbridge/internal/handlers"
)

// NewRouter creates the local control API router. allowedOrigins lists the
// browser origins that may drive the controller.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(4 * 1024))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/session", h.GetSession)
	r.Get("/status", h.Status)
	r.Get("/messages", h.ListMessages)
	r.Post("/messages/{id}/play", h.PlayMessage)
	r.Get("/transcript", h.Transcript)

	r.Post("/talk/start", h.TalkStart)
	r.Post("/talk/stop", h.TalkStop)

	return r
}
