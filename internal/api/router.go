// Package api assembles the HTTP router of the coaching control plane.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/coachkit/coachplane/internal/api/handlers"
	"github.com/coachkit/coachplane/internal/api/middleware"
	"github.com/coachkit/coachplane/internal/config"
	"github.com/coachkit/coachplane/pkg/contracts"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the HTTP router with all API routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers, chain contracts.AuthProviderChain) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(middleware.NewAuthMiddleware(chain, cfg.Auth.RequireAuth).Handler)

	// Health & info
	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler(cfg))

	// API v1
	r.Route("/api/v1/clients/{clientId}", func(r chi.Router) {
		r.Post("/generate/{kind}", h.Generate)
		r.Post("/initial-plan", h.InitialPlan)
		r.Post("/recommendations/apply", h.ApplyRecommendation)
		r.Post("/training-programs", h.SaveTrainingProgram)
		r.Put("/nutrition-targets", h.SaveNutritionTargets)

		r.Route("/generation-logs", func(r chi.Router) {
			r.Get("/", h.ListGenerationLogs)
			r.Get("/{logId}", h.GetGenerationLog)
			r.Delete("/{logId}", h.DeleteGenerationLog)
		})
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "coachplane",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": "coachplane",
		})
	}
}
