package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skyvern-ops/sora-engine/internal/assessment"
	"github.com/skyvern-ops/sora-engine/internal/config"
	"github.com/skyvern-ops/sora-engine/pkg/logger"
)

// Router is the API router
type Router struct {
	handler    *Handler
	middleware *Middleware
	config     *config.Config
	logger     *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(service *assessment.Service, config *config.Config, logger *logger.Logger) *Router {
	return &Router{
		handler:    NewHandler(service, logger),
		middleware: NewMiddleware(logger),
		config:     config,
		logger:     logger.Named("api-router"),
	}
}

// Routes returns the API routes
func (r *Router) Routes() http.Handler {
	router := chi.NewRouter()

	// Middleware
	router.Use(r.middleware.RequestID)
	router.Use(r.middleware.Logger)
	router.Use(r.middleware.Recoverer)
	router.Use(r.middleware.CORS(r.config.Server.CORSAllowedOrigins))

	// API routes
	router.Route("/api/v1", func(router chi.Router) {
		// Assessment routes
		router.Post("/missions/{id}/assessments", r.handler.CreateAssessment)
		router.Post("/missions/{id}/assessments/sora", r.handler.CreateSoraReassessment)
		router.Get("/missions/{id}/assessments", r.handler.GetAssessmentHistory)
		router.Get("/missions/{id}/sora", r.handler.GetCurrentSora)

		// Health check
		router.Get("/health", r.handler.GetHealth)
	})

	return router
}
