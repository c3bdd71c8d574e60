package batch

import (
	"context"
	"fmt"
	"sync"

	"enhancebatch/internal/infra"
	"enhancebatch/internal/upstream"
)

// StatsSink receives one terminal event per batch run. Implementations must
// never block or fail the orchestrator.
type StatsSink interface {
	RecordBatchComplete(downloaded, failed int, orderID string, total int)
	RecordBatchTotalFailure(failed int, orderID string)
}

// Result is a completed batch run ready to stream to the caller.
type Result struct {
	Zip        []byte
	Filename   string
	OrderName  string
	Total      int
	Downloaded int
	Failed     []ItemFailure
}

// Orchestrator sequences one batch run: validate, fetch the order, fan out
// bounded downloads, assemble the archive, and emit one stats event.
type Orchestrator struct {
	client     *upstream.Client
	downloader *Downloader
	stats      StatsSink
	maxImages  int
	logger     infra.Logger
}

// NewOrchestrator wires the engine. maxImages caps the per-order item count.
func NewOrchestrator(client *upstream.Client, downloader *Downloader, stats StatsSink, maxImages int, logger infra.Logger) *Orchestrator {
	return &Orchestrator{
		client:     client,
		downloader: downloader,
		stats:      stats,
		maxImages:  maxImages,
		logger:     logger,
	}
}

// Run executes one batch retrieval. Error cases:
//   - ErrInvalidOrderID before any upstream call
//   - upstream.ErrOrderNotFound / ErrUnauthorized / ErrUnavailable from the order fetch
//   - ErrEmptyOrder, *TooManyImagesError from order validation
//   - *TotalFailureError when every image failed (no archive is produced)
//
// Partial failure is not an error: the result carries the failures and the
// archive includes a report entry.
func (o *Orchestrator) Run(ctx context.Context, p Params) (*Result, error) {
	if !ValidOrderID(p.OrderID) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOrderID, p.OrderID)
	}

	o.logger.Info().Str("order_id", p.OrderID).Msg("retrieving order")
	order, err := o.client.GetOrder(ctx, p.OrderID, p.DevMode)
	if err != nil {
		return nil, err
	}

	if len(order.Images) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrEmptyOrder, order.Name)
	}
	if len(order.Images) > o.maxImages {
		return nil, &TooManyImagesError{Count: len(order.Images), Limit: o.maxImages}
	}

	o.logger.Info().
		Str("order_id", p.OrderID).
		Str("order_name", order.Name).
		Int("images", len(order.Images)).
		Msg("starting downloads")

	rendition := upstream.RenditionParams{
		Format:  p.Format,
		Quality: p.Quality,
		Preview: p.Preview,
		DevMode: p.DevMode,
	}

	// Fan out one download per image; the shared semaphore inside the
	// downloader bounds how many run at once. The archive consumes results
	// as they complete, so nothing here waits on submission order.
	results := make(chan DownloadResult)
	var wg sync.WaitGroup
	for _, img := range order.Images {
		wg.Add(1)
		go func(img upstream.ImageRef) {
			defer wg.Done()
			results <- o.downloader.Fetch(ctx, img, rendition)
		}(img)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	asm, err := BuildArchive(results, order.Name, len(order.Images), p.Format)
	if err != nil {
		return nil, err
	}

	if asm.Downloaded == 0 {
		if o.stats != nil {
			o.stats.RecordBatchTotalFailure(len(asm.Failed), p.OrderID)
		}
		return nil, &TotalFailureError{OrderID: p.OrderID, Failures: asm.Failed}
	}

	if o.stats != nil {
		o.stats.RecordBatchComplete(asm.Downloaded, len(asm.Failed), p.OrderID, len(order.Images))
	}

	o.logger.Info().
		Str("order_id", p.OrderID).
		Int("downloaded", asm.Downloaded).
		Int("failed", len(asm.Failed)).
		Msg("returning archive")

	return &Result{
		Zip:        asm.Zip,
		Filename:   SanitizeFilename(order.Name) + "_images.zip",
		OrderName:  order.Name,
		Total:      len(order.Images),
		Downloaded: asm.Downloaded,
		Failed:     asm.Failed,
	}, nil
}
