package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"enhancebatch/internal/batch"
	"enhancebatch/internal/infra"
	"enhancebatch/internal/jobstore"
	"enhancebatch/internal/stats"
	"enhancebatch/internal/upstream"
)

const testOrderID = "0194b2f1-6f2c-7b3a-9d4e-5f6a7b8c9d0e"

// fakeTransport routes every upstream request through handler. Batch runs
// issue requests concurrently, so the request log is guarded.
type fakeTransport struct {
	mu       sync.Mutex
	requests []*http.Request
	handler  func(req *http.Request) (*http.Response, error)
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	return f.handler(req)
}

func (f *fakeTransport) requestCount() int {
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

func orderBody(name string, imageIDs ...string) string {
	items := make([]string, 0, len(imageIDs))
	for _, id := range imageIDs {
		items = append(items, fmt.Sprintf(`{"image_id":%q,"image_name":"%s.jpg"}`, id, id))
	}
	return fmt.Sprintf(`{"order_id":%q,"name":%q,"images":[%s]}`, testOrderID, name, strings.Join(items, ","))
}

func testConfig() *infra.Config {
	return &infra.Config{
		AppEnv:                 "test",
		APIBaseURL:             "https://api.example.test/v3",
		APIKey:                 "test-key",
		AdminToken:             "admin-secret",
		MaxConcurrentDownloads: 5,
		MaxImagesPerOrder:      100,
		DownloadRetryDelay:     time.Millisecond,
		JobTTL:                 time.Hour,
		CacheEnabled:           true,
		RateLimitPerMin:        1000,
	}
}

func newTestApp(t *testing.T, transport http.RoundTripper, cfg *infra.Config) *App {
	t.Helper()
	if cfg == nil {
		cfg = testConfig()
	}
	logger := zerolog.Nop()
	client, err := upstream.NewClient(upstream.Options{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.APIBaseURL,
		HTTPClient: &http.Client{Transport: transport},
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	downloader := batch.NewDownloader(client, semaphore.NewWeighted(cfg.MaxConcurrentDownloads), cfg.DownloadRetryDelay, logger)
	recorder := stats.NewRecorder()
	jobs := jobstore.New(cfg.JobTTL, cfg.CacheEnabled, clock.New())
	orch := batch.NewOrchestrator(client, downloader, recorder, cfg.MaxImagesPerOrder, logger)
	return NewApp(cfg, logger, client, orch, jobs, recorder)
}

func testRouter(app *App) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", app.Health)
	r.Get("/stats", app.RuntimeStats)
	r.Get("/orders/{orderID}/images", app.BatchDownload)
	r.Post("/orders/{orderID}/jobs", app.CreateJob)
	r.Get("/jobs/{jobID}", app.JobStatus)
	r.Get("/jobs/{jobID}/download", app.JobDownload)
	r.Post("/api/orders", app.CreateOrder)
	return r
}

func doRequest(router http.Handler, method, target string, body io.Reader) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, target, body))
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

// waitForJob polls the status endpoint until the job leaves processing.
func waitForJob(t *testing.T, router http.Handler, jobID string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rec := doRequest(router, http.MethodGet, "/jobs/"+jobID, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("job status returned %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["status"] != string(jobstore.StatusProcessing) {
			return body
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s never finished", jobID)
	return nil
}
