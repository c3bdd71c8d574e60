package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"enhancebatch/internal/upstream"
)

const maxUploadSize = 20 << 20

var contentTypeByExt = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

type createdImageResponse struct {
	ImageID string `json:"image_id"`
	Name    string `json:"name"`
}

// CreateOrder registers a new order upstream and uploads the posted files
// into it. Useful for producing test orders without a separate client.
func (a *App) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "expected multipart form data")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "at least one file is required in the files field")
		return
	}
	for _, fh := range files {
		if fh.Size > maxUploadSize {
			a.error(w, http.StatusRequestEntityTooLarge, "file_too_large",
				fmt.Sprintf("%s exceeds the %dMB upload limit", fh.Filename, maxUploadSize>>20))
			return
		}
	}

	orderID, err := a.Upstream.CreateOrder(r.Context(), fmt.Sprintf("Test Order (%d images)", len(files)))
	if err != nil {
		a.Logger.Error().Err(err).Msg("create order upstream call failed")
		a.error(w, http.StatusBadGateway, "upstream_unavailable", "Failed to create the order upstream.")
		return
	}

	uploaded := make([]createdImageResponse, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			a.Logger.Warn().Err(err).Str("file", fh.Filename).Msg("skipping unreadable upload")
			continue
		}
		data, err := io.ReadAll(io.LimitReader(f, maxUploadSize))
		f.Close()
		if err != nil {
			a.Logger.Warn().Err(err).Str("file", fh.Filename).Msg("skipping unreadable upload")
			continue
		}
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		ct, ok := contentTypeByExt[ext]
		if !ok {
			ct = "image/jpeg"
		}
		img, err := a.Upstream.RegisterAndUpload(r.Context(), orderID, upstream.UploadFile{
			Name:        strings.TrimSuffix(fh.Filename, ext),
			ContentType: ct,
			Data:        data,
		})
		if err != nil {
			a.Logger.Warn().Err(err).Str("file", fh.Filename).Str("order_id", orderID).Msg("upload failed")
			continue
		}
		uploaded = append(uploaded, createdImageResponse{ImageID: img.ImageID, Name: img.Name})
	}

	a.Stats.RecordOrderCreated(len(uploaded))
	a.json(w, http.StatusOK, map[string]any{
		"order_id":        orderID,
		"images_uploaded": len(uploaded),
		"images":          uploaded,
	})
}
