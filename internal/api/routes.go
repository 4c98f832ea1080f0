package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ebis/config"
)

// NewRouter creates and configures a Chi router with all routes
func NewRouter(h *Handler, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(RequestContext)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(time.Duration(cfg.Analysis.TimeoutSeconds+5) * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins(cfg.HTTP.CORSAllowedOrigins),
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(MetricsMiddleware)

	// Metrics endpoint for Prometheus
	r.Handle("/metrics", promhttp.Handler())

	requireAuth := RequireAuth(h.auth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealth)
		r.Get("/search", h.HandleSearch)
		r.Get("/charts/{symbol}/price.png", h.HandlePriceChart)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.HandleRegister)
			r.Post("/login", h.HandleLogin)
			r.Post("/password-reset", h.HandlePasswordReset)
			r.Post("/password-reset/confirm", h.HandlePasswordResetConfirm)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", h.HandleLogout)
				r.Get("/me", h.HandleMe)
				r.Patch("/me", h.HandleUpdateMe)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/analyze", h.HandleAnalyze)

			r.Route("/history", func(r chi.Router) {
				r.Get("/", h.HandleListHistory)
				r.Delete("/", h.HandleClearHistory)
				r.Get("/{id}", h.HandleGetHistory)
				r.Delete("/{id}", h.HandleDeleteHistory)
				r.Put("/{id}/favorite", h.HandleSetFavorite)
				r.Get("/{id}/score.png", h.HandleScoreChart)
			})
		})
	})

	return r
}

// allowedOrigins splits a comma separated origin list
func allowedOrigins(origins string) []string {
	var out []string
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}
