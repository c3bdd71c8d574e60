// Package batch implements the bounded-concurrency retrieval-and-assembly
// engine: it fans out rendition downloads for one order under a shared
// concurrency cap, tolerates per-image failure, and streams the survivors
// into a ZIP archive.
package batch

import "regexp"

// Formats accepted by the rendition endpoint, mapped to file extensions.
var extByFormat = map[string]string{
	"jpeg": "jpg",
	"png":  "png",
	"webp": "webp",
	"avif": "avif",
	"jxl":  "jxl",
}

// SupportedFormat reports whether format is a valid output format.
func SupportedFormat(format string) bool {
	_, ok := extByFormat[format]
	return ok
}

// ExtForFormat returns the archive entry extension for an output format.
func ExtForFormat(format string) string {
	if ext, ok := extByFormat[format]; ok {
		return ext
	}
	return format
}

// Order identifiers must look like a UUID before any upstream call is made.
var orderIDRe = regexp.MustCompile(`^(?i)[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ValidOrderID reports whether id has the canonical UUID shape.
func ValidOrderID(id string) bool {
	return orderIDRe.MatchString(id)
}

// Params are the shared request parameters for one batch run.
type Params struct {
	OrderID string
	Format  string
	Quality int // 0 means upstream default
	Preview bool
	DevMode bool
}

// ItemFailure records why one image could not be downloaded.
type ItemFailure struct {
	ImageID string `json:"image_id"`
	Name    string `json:"name"`
	Reason  string `json:"error"`
}

// DownloadResult is the terminal outcome of one image download. Exactly one
// of Data and Failure is set.
type DownloadResult struct {
	ImageID string
	Name    string
	Data    []byte
	Failure *ItemFailure
}
