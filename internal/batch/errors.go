package batch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOrderID rejects identifiers that are not UUID-shaped.
	ErrInvalidOrderID = errors.New("batch: invalid order id format")
	// ErrEmptyOrder marks an order with no images.
	ErrEmptyOrder = errors.New("batch: order contains no images")
)

// TooManyImagesError marks an order over the per-request ceiling. Callers
// should fall back to per-image retrieval.
type TooManyImagesError struct {
	Count int
	Limit int
}

func (e *TooManyImagesError) Error() string {
	return fmt.Sprintf("batch: order contains %d images, exceeding the limit of %d", e.Count, e.Limit)
}

// TotalFailureError is the aggregate outcome when every image in the order
// failed: no archive is produced and the per-item reasons are carried to the
// caller.
type TotalFailureError struct {
	OrderID  string
	Failures []ItemFailure
}

func (e *TotalFailureError) Error() string {
	return fmt.Sprintf("batch: all %d images failed for order %s", len(e.Failures), e.OrderID)
}
