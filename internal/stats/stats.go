// Package stats keeps process-wide runtime counters for the status endpoint.
package stats

import (
	"fmt"
	"sync"
	"time"
)

const maxRecentErrors = 20

// ErrorEntry is one recorded batch-level failure.
type ErrorEntry struct {
	Time    time.Time `json:"time"`
	OrderID string    `json:"order_id"`
	Error   string    `json:"error"`
	Count   int       `json:"count"`
}

// Snapshot is a point-in-time copy of the counters for API responses.
type Snapshot struct {
	UptimeSeconds    int64        `json:"uptime_seconds"`
	OrdersProcessed  int64        `json:"orders_processed"`
	ImagesDownloaded int64        `json:"images_downloaded"`
	ImagesFailed     int64        `json:"images_failed"`
	ZipsServed       int64        `json:"zips_served"`
	OrdersCreated    int64        `json:"orders_created"`
	ImagesUploaded   int64        `json:"images_uploaded"`
	RecentErrors     []ErrorEntry `json:"recent_errors,omitempty"`
}

// Recorder serializes all counter updates under a single mutex; counts must
// not race across concurrent requests. Record methods never fail.
type Recorder struct {
	mu        sync.Mutex
	startedAt time.Time

	ordersProcessed  int64
	imagesDownloaded int64
	imagesFailed     int64
	zipsServed       int64
	ordersCreated    int64
	imagesUploaded   int64
	recentErrors     []ErrorEntry
}

// NewRecorder starts the uptime clock.
func NewRecorder() *Recorder {
	return &Recorder{startedAt: time.Now()}
}

// RecordBatchComplete records a served archive, possibly with partial failures.
func (r *Recorder) RecordBatchComplete(downloaded, failed int, orderID string, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ordersProcessed++
	r.imagesDownloaded += int64(downloaded)
	r.imagesFailed += int64(failed)
	r.zipsServed++
	if failed > 0 {
		r.pushError(ErrorEntry{
			Time:    time.Now(),
			OrderID: orderID,
			Error:   fmt.Sprintf("Partial failure: %d/%d images failed", failed, total),
			Count:   failed,
		})
	}
}

// RecordBatchTotalFailure records a batch where every image failed.
func (r *Recorder) RecordBatchTotalFailure(failed int, orderID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ordersProcessed++
	r.imagesFailed += int64(failed)
	r.pushError(ErrorEntry{
		Time:    time.Now(),
		OrderID: orderID,
		Error:   "All images failed",
		Count:   failed,
	})
}

// RecordOrderCreated records the test-order helper creating an order.
func (r *Recorder) RecordOrderCreated(imagesUploaded int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ordersCreated++
	r.imagesUploaded += int64(imagesUploaded)
}

// pushError appends under the held lock, keeping only the newest entries.
func (r *Recorder) pushError(e ErrorEntry) {
	r.recentErrors = append(r.recentErrors, e)
	if len(r.recentErrors) > maxRecentErrors {
		r.recentErrors = r.recentErrors[len(r.recentErrors)-maxRecentErrors:]
	}
}

// Snapshot returns the current counters. Recent errors are included only
// when requested (they are withheld from unauthenticated callers) and capped
// at the five newest.
func (r *Recorder) Snapshot(includeErrors bool) Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := Snapshot{
		UptimeSeconds:    int64(time.Since(r.startedAt).Round(time.Second).Seconds()),
		OrdersProcessed:  r.ordersProcessed,
		ImagesDownloaded: r.imagesDownloaded,
		ImagesFailed:     r.imagesFailed,
		ZipsServed:       r.zipsServed,
		OrdersCreated:    r.ordersCreated,
		ImagesUploaded:   r.imagesUploaded,
	}
	if includeErrors {
		start := len(r.recentErrors) - 5
		if start < 0 {
			start = 0
		}
		s.RecentErrors = append([]ErrorEntry(nil), r.recentErrors[start:]...)
	}
	return s
}
