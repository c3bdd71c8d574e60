package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"enhancebatch/internal/batch"
	"enhancebatch/internal/jobstore"
	"enhancebatch/internal/upstream"

	"github.com/go-chi/chi/v5"
)

// BatchDownload fetches every enhanced image of an order and streams them
// back as a single ZIP archive.
func (a *App) BatchDownload(w http.ResponseWriter, r *http.Request) {
	params, ok := a.parseBatchParams(w, r)
	if !ok {
		return
	}
	res, err := a.Batch.Run(r.Context(), params)
	if err != nil {
		a.batchError(w, err)
		return
	}
	a.writeArchive(w, res.Zip, res.Filename, res.Total, res.Downloaded, len(res.Failed))
}

func (a *App) parseBatchParams(w http.ResponseWriter, r *http.Request) (batch.Params, bool) {
	q := r.URL.Query()
	params := batch.Params{
		OrderID: chi.URLParam(r, "orderID"),
		Format:  "jpeg",
		Preview: true,
	}
	if f := q.Get("format"); f != "" {
		if !batch.SupportedFormat(f) {
			a.error(w, http.StatusBadRequest, "bad_request", fmt.Sprintf("unsupported format %q", f))
			return batch.Params{}, false
		}
		params.Format = f
	}
	if s := q.Get("quality"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 90 {
			a.error(w, http.StatusBadRequest, "bad_request", "quality must be an integer between 1 and 90")
			return batch.Params{}, false
		}
		params.Quality = n
	}
	if s := q.Get("preview"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "preview must be a boolean")
			return batch.Params{}, false
		}
		params.Preview = v
	}
	if s := q.Get("dev_mode"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			a.error(w, http.StatusBadRequest, "bad_request", "dev_mode must be a boolean")
			return batch.Params{}, false
		}
		params.DevMode = v
	}
	return params, true
}

func (a *App) batchError(w http.ResponseWriter, err error) {
	code, errCode, msg, failures := classifyBatchError(err)
	if failures != nil {
		a.json(w, code, map[string]any{
			"error":    errCode,
			"message":  msg,
			"failures": failures,
		})
		return
	}
	if code == http.StatusInternalServerError {
		a.Logger.Error().Err(err).Msg("batch download failed")
	}
	a.error(w, code, errCode, msg)
}

// classifyBatchError maps an orchestrator error to an HTTP status, a stable
// error code, a human message, and (for total failures) the per-image list.
func classifyBatchError(err error) (int, string, string, []batch.ItemFailure) {
	var tooMany *batch.TooManyImagesError
	var total *batch.TotalFailureError
	switch {
	case errors.Is(err, batch.ErrInvalidOrderID):
		return http.StatusBadRequest, "bad_request", "Invalid order ID format. Expected a UUID.", nil
	case errors.Is(err, upstream.ErrOrderNotFound):
		return http.StatusNotFound, "not_found", "Order not found.", nil
	case errors.Is(err, upstream.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized", "Invalid or missing API key.", nil
	case errors.Is(err, batch.ErrEmptyOrder):
		return http.StatusNotFound, "not_found", "Order contains no images.", nil
	case errors.As(err, &tooMany):
		return http.StatusRequestEntityTooLarge, "too_many_images",
			fmt.Sprintf("Order has %d images; the maximum per batch is %d.", tooMany.Count, tooMany.Limit), nil
	case errors.As(err, &total):
		return http.StatusUnprocessableEntity, "all_failed",
			fmt.Sprintf("All %d images failed to download.", len(total.Failures)), total.Failures
	case errors.Is(err, upstream.ErrUnavailable):
		return http.StatusBadGateway, "upstream_unavailable", "Failed to reach the Autoenhance API.", nil
	default:
		return http.StatusInternalServerError, "internal", "Unexpected error while building the archive.", nil
	}
}

func (a *App) writeArchive(w http.ResponseWriter, zipData []byte, filename string, total, downloaded, failed int) {
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("X-Total-Images", strconv.Itoa(total))
	w.Header().Set("X-Downloaded", strconv.Itoa(downloaded))
	w.Header().Set("X-Failed", strconv.Itoa(failed))
	_, _ = w.Write(zipData)
}

func (a *App) writeStoredArchive(w http.ResponseWriter, res *jobstore.Result) {
	a.writeArchive(w, res.Zip, res.Filename, res.Total, res.Downloaded, res.Failed)
}
