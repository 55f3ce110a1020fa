package main

import (
	"log/slog"
	"net/http"

	"hls-downloader/internal/downloader"
	"hls-downloader/internal/platform/config"
	"hls-downloader/internal/platform/cors"
	"hls-downloader/internal/platform/logger"
	"hls-downloader/internal/platform/metrics"
	"hls-downloader/internal/platform/ratelimit"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func newRouter(cfg config.Config, h *downloader.Handler, met *metrics.Metrics, registry downloader.Registry, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Use(middleware.Recoverer)
	r.Use(cors.Middleware)

	r.MethodNotAllowed(h.NotAllowed)

	r.Get("/healthz", h.Health)
	r.Get("/jobs", h.ListJobs)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveTranscodes(registry.ActiveCount()) }).ServeHTTP(w, r)
	})

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.PerIP(cfg.RateLimitRequests, cfg.RateLimitWindow))
		r.Get("/download", h.Download)
		r.Post("/download", h.Download)
	})

	return r
}
