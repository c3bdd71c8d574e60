package handlers

import (
	"encoding/json"
	"net/http"

	"enhancebatch/internal/batch"
	"enhancebatch/internal/infra"
	"enhancebatch/internal/jobstore"
	"enhancebatch/internal/stats"
	"enhancebatch/internal/upstream"
)

type App struct {
	Cfg      *infra.Config
	Logger   infra.Logger
	Upstream *upstream.Client
	Batch    *batch.Orchestrator
	Jobs     *jobstore.Store
	Stats    *stats.Recorder
}

func NewApp(cfg *infra.Config, logger infra.Logger, client *upstream.Client, orch *batch.Orchestrator, jobs *jobstore.Store, rec *stats.Recorder) *App {
	return &App{
		Cfg:      cfg,
		Logger:   logger,
		Upstream: client,
		Batch:    orch,
		Jobs:     jobs,
		Stats:    rec,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, msg string) {
	a.json(w, code, map[string]string{"error": errCode, "message": msg})
}
