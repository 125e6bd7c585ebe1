package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new HTTP router with configured routes, middleware, and handlers.
// It sets up catalog, download and stream routes, health check, and Prometheus metrics endpoint.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)

	r.Get("/home", h.Home)
	r.Post("/search", h.Search)
	r.Get("/albums/{albumID}", h.GetAlbum)
	r.Get("/stream", h.Stream)

	r.Route("/downloads", func(r chi.Router) {
		r.Post("/", h.StartDownload)
		r.Get("/", h.ListSessions)
		r.Get("/{sessionID}", h.GetSession)
		r.Post("/{sessionID}/cancel", h.CancelSession)
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
