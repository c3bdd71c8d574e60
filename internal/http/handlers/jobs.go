package handlers

import (
	"context"
	"net/http"

	"enhancebatch/internal/batch"
	"enhancebatch/internal/jobstore"

	"github.com/go-chi/chi/v5"
)

// CreateJob starts an asynchronous batch download and returns its job ID
// immediately.
func (a *App) CreateJob(w http.ResponseWriter, r *http.Request) {
	if !batch.ValidOrderID(chi.URLParam(r, "orderID")) {
		a.error(w, http.StatusBadRequest, "bad_request", "Invalid order ID format. Expected a UUID.")
		return
	}
	params, ok := a.parseBatchParams(w, r)
	if !ok {
		return
	}
	jobID := a.Jobs.Create()
	go a.runJob(jobID, params)
	a.json(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

// runJob executes a batch download detached from the originating request, so
// a client disconnect cannot cancel it.
func (a *App) runJob(jobID string, params batch.Params) {
	key := jobstore.CacheKey{
		OrderID: params.OrderID,
		Format:  params.Format,
		Quality: params.Quality,
		Preview: params.Preview,
		DevMode: params.DevMode,
	}
	if res, ok := a.Jobs.CachedResult(key); ok {
		a.Jobs.Complete(jobID, res)
		a.Logger.Info().Str("job_id", jobID).Str("order_id", params.OrderID).Msg("job served from cache")
		return
	}
	res, err := a.Batch.Run(context.Background(), params)
	if err != nil {
		_, _, msg, _ := classifyBatchError(err)
		a.Jobs.Fail(jobID, msg)
		a.Logger.Warn().Err(err).Str("job_id", jobID).Str("order_id", params.OrderID).Msg("job failed")
		return
	}
	stored := &jobstore.Result{
		Zip:        res.Zip,
		Filename:   res.Filename,
		Total:      res.Total,
		Downloaded: res.Downloaded,
		Failed:     len(res.Failed),
	}
	a.Jobs.StoreResult(key, stored)
	a.Jobs.Complete(jobID, stored)
	a.Logger.Info().
		Str("job_id", jobID).
		Str("order_id", params.OrderID).
		Int("downloaded", res.Downloaded).
		Int("failed", len(res.Failed)).
		Msg("job complete")
}

func (a *App) JobStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := a.Jobs.Get(chi.URLParam(r, "jobID"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "Job not found or expired.")
		return
	}
	body := map[string]any{
		"job_id": job.ID,
		"status": string(job.Status),
	}
	if job.Error != "" {
		body["error"] = job.Error
	}
	a.json(w, http.StatusOK, body)
}

func (a *App) JobDownload(w http.ResponseWriter, r *http.Request) {
	job, ok := a.Jobs.Get(chi.URLParam(r, "jobID"))
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "Job not found or expired.")
		return
	}
	switch job.Status {
	case jobstore.StatusProcessing:
		a.error(w, http.StatusConflict, "processing", "Job is still processing. Check its status and retry.")
	case jobstore.StatusError:
		a.error(w, http.StatusUnprocessableEntity, "job_failed", job.Error)
	default:
		a.writeStoredArchive(w, job.Result)
	}
}
