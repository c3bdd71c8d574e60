package batch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/sync/semaphore"

	"enhancebatch/internal/infra"
	"enhancebatch/internal/upstream"
)

const downloadAttempts = 2 // one automatic retry on transient failure

// Failure reasons surfaced in the download report.
const (
	reasonTimeout = "Download timed out"
)

// Downloader fetches one rendition at a time per acquired slot. The
// semaphore is shared process-wide so the total number of in-flight
// upstream connections stays bounded regardless of concurrent client load.
type Downloader struct {
	client     *upstream.Client
	sem        *semaphore.Weighted
	retryDelay time.Duration
	logger     infra.Logger
}

// NewDownloader wires a downloader to the shared limiter.
func NewDownloader(client *upstream.Client, sem *semaphore.Weighted, retryDelay time.Duration, logger infra.Logger) *Downloader {
	return &Downloader{
		client:     client,
		sem:        sem,
		retryDelay: retryDelay,
		logger:     logger,
	}
}

// Fetch downloads one image's rendition. Failure is represented as data on
// the result, never as an error, so sibling downloads keep going. The slot
// is released on every exit path.
func (d *Downloader) Fetch(ctx context.Context, img upstream.ImageRef, p upstream.RenditionParams) DownloadResult {
	if err := d.sem.Acquire(ctx, 1); err != nil {
		return d.failure(img, fmt.Sprintf("network error: %v", err))
	}
	defer d.sem.Release(1)

	var lastReason string
	for attempt := 0; attempt < downloadAttempts; attempt++ {
		data, err := d.client.FetchRendition(ctx, img.ID, p)
		if err == nil {
			d.logger.Info().Str("image_id", img.ID).Str("name", img.Name).Msg("downloaded image")
			return DownloadResult{ImageID: img.ID, Name: img.Name, Data: data}
		}

		reason, transient := classifyFailure(err)
		lastReason = reason
		if !transient || attempt == downloadAttempts-1 {
			break
		}

		d.logger.Warn().Str("image_id", img.ID).Str("reason", reason).Msg("transient download failure, retrying")
		select {
		case <-time.After(d.retryDelay):
		case <-ctx.Done():
			return d.failure(img, lastReason)
		}
	}

	d.logger.Warn().Str("image_id", img.ID).Str("reason", lastReason).Msg("failed to download image")
	return d.failure(img, lastReason)
}

func (d *Downloader) failure(img upstream.ImageRef, reason string) DownloadResult {
	return DownloadResult{
		ImageID: img.ID,
		Name:    img.Name,
		Failure: &ItemFailure{ImageID: img.ID, Name: img.Name, Reason: reason},
	}
}

// classifyFailure maps a rendition error to a report reason and whether a
// retry may help. Timeouts and 5xx statuses are transient; 4xx statuses and
// other network failures are permanent.
func classifyFailure(err error) (reason string, transient bool) {
	var statusErr *upstream.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Error(), statusErr.Code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return reasonTimeout, true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return reasonTimeout, true
	}

	return fmt.Sprintf("network error: %v", err), false
}
