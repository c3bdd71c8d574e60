package httpapi

import (
	"net/http"
	"time"

	"enhancebatch/internal/http/handlers"
	"enhancebatch/internal/infra"
	mw "enhancebatch/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(app *handlers.App, cfg *infra.Config, logger infra.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(
		mw.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		mw.Logger(logger),
		mw.RateLimit(cfg.RateLimitPerMin, time.Minute),
	)

	r.Get("/health", app.Health)
	r.Head("/health", app.Health)
	r.Get("/stats", app.RuntimeStats)

	r.Get("/orders/{orderID}/images", app.BatchDownload)
	r.Post("/orders/{orderID}/jobs", app.CreateJob)

	r.Route("/jobs", func(r chi.Router) {
		r.Get("/{jobID}", app.JobStatus)
		r.Get("/{jobID}/download", app.JobDownload)
	})

	r.With(mw.RequireAdmin(cfg.AdminToken)).Post("/api/orders", app.CreateOrder)

	return r
}
