package handlers

import (
	"net/http"

	"enhancebatch/internal/middleware"
	"enhancebatch/internal/stats"
)

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":             "ok",
		"api_key_configured": a.Cfg.APIKey != "",
	})
}

type statsResponse struct {
	stats.Snapshot
	Limits map[string]int64 `json:"limits"`
}

// RuntimeStats reports the service counters. Recent errors are included only
// when a valid admin token accompanies the request.
func (a *App) RuntimeStats(w http.ResponseWriter, r *http.Request) {
	includeErrors := middleware.TokenMatches(middleware.AdminTokenFromRequest(r), a.Cfg.AdminToken)
	a.json(w, http.StatusOK, statsResponse{
		Snapshot: a.Stats.Snapshot(includeErrors),
		Limits: map[string]int64{
			"max_concurrent_downloads": a.Cfg.MaxConcurrentDownloads,
			"max_images_per_order":     int64(a.Cfg.MaxImagesPerOrder),
		},
	})
}
