package batch

import (
	"archive/zip"
	"bytes"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"enhancebatch/internal/upstream"
)

// fakeUpstream routes requests to a handler and counts them. Batch runs hit
// it from several goroutines at once, so access is guarded.
type fakeUpstream struct {
	mu       sync.Mutex
	requests []*http.Request
	handler  func(req *http.Request) (*http.Response, error)
}

func (f *fakeUpstream) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.handler(req)
}

func (f *fakeUpstream) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func httpResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func newTestClient(t *testing.T, transport http.RoundTripper) *upstream.Client {
	t.Helper()
	client, err := upstream.NewClient(upstream.Options{
		APIKey:     "test-key",
		BaseURL:    "https://api.example.test/v3",
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestDownloader(client *upstream.Client, slots int64) *Downloader {
	return NewDownloader(client, semaphore.NewWeighted(slots), time.Millisecond, testLogger())
}

// readArchive flattens a built ZIP into entry name to content.
func readArchive(t *testing.T, data []byte) map[string]string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	entries := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		r, err := f.Open()
		if err != nil {
			t.Fatalf("open entry %s: %v", f.Name, err)
		}
		content, err := io.ReadAll(r)
		r.Close()
		if err != nil {
			t.Fatalf("read entry %s: %v", f.Name, err)
		}
		entries[f.Name] = string(content)
	}
	return entries
}

// sinkRecorder captures batch stats events for assertions.
type sinkRecorder struct {
	mu            sync.Mutex
	completes     int
	totalFailures int
	lastDown      int
	lastFailed    int
}

func (s *sinkRecorder) RecordBatchComplete(downloaded, failed int, orderID string, total int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completes++
	s.lastDown = downloaded
	s.lastFailed = failed
}

func (s *sinkRecorder) RecordBatchTotalFailure(failed int, orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalFailures++
	s.lastFailed = failed
}
