package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/uptrace/bun"

	"github.com/tosinxt/lendsqr/internal/auth"
	"github.com/tosinxt/lendsqr/internal/config"
	"github.com/tosinxt/lendsqr/internal/httputil"
	"github.com/tosinxt/lendsqr/internal/logging"
)

// NewRouter creates and configures the HTTP router
func NewRouter(cfg *config.Config, db *bun.DB, authHandler *auth.Handler, logger *logging.Logger) *chi.Mux {
	r := chi.NewRouter()

	// CORS - must be first
	if len(cfg.Server.TrustedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.Server.TrustedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300, // 5 minutes
		}))
	}

	// Global middleware
	r.Use(SecurityHeaders)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Compress(5))

	r.Get("/health", handleHealth(db))

	// Auth routes (public)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// User routes
	r.Route("/users", func(r chi.Router) {
		r.Get("/{id}", authHandler.GetUser)
		r.Patch("/{id}", authHandler.UpdateUser)
		r.Put("/{id}/password", authHandler.ChangePassword)
		r.Delete("/{id}", authHandler.DeleteUser)
	})

	return r
}

// handleHealth reports liveness, including a database round trip.
func handleHealth(db *bun.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			httputil.RespondJSON(w, map[string]string{"status": "degraded", "database": "unreachable"}, http.StatusServiceUnavailable)
			return
		}

		httputil.RespondJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
	}
}
