// Package upstream talks to the Autoenhance API: order metadata, enhanced
// rendition downloads, and the order-creation flow used by the test helper.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"enhancebatch/internal/infra"
)

// Sentinel errors for order retrieval, mapped from upstream HTTP statuses.
var (
	ErrOrderNotFound = errors.New("upstream: order not found")
	ErrUnauthorized  = errors.New("upstream: invalid or missing api key")
	ErrUnavailable   = errors.New("upstream: autoenhance api unavailable")
	ErrMissingAPIKey = errors.New("upstream: api key is required")
)

// StatusError reports a non-200 response from a rendition download.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Options configures the Autoenhance client.
type Options struct {
	APIKey         string
	BaseURL        string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// Client performs HTTP calls to the Autoenhance API. It is safe for
// concurrent use; construct one per process so connections are reused.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

// Order is the normalized order metadata returned by GetOrder.
type Order struct {
	ID     string
	Name   string
	Images []ImageRef
}

// ImageRef identifies one image within an order.
type ImageRef struct {
	ID   string
	Name string
}

// RenditionParams selects the output rendition of an enhanced image.
type RenditionParams struct {
	Format  string
	Quality int // 0 means upstream default
	Preview bool
	DevMode bool
}

// The order schema may carry the identifier and name under either of two
// field names; both are decoded and collapsed in normalize.
type imageEnvelope struct {
	ImageID   string `json:"image_id"`
	ID        string `json:"id"`
	ImageName string `json:"image_name"`
	Name      string `json:"name"`
}

type orderResponse struct {
	OrderID string          `json:"order_id"`
	Name    string          `json:"name"`
	Images  []imageEnvelope `json:"images"`
}

func (e imageEnvelope) normalize() ImageRef {
	id := e.ImageID
	if id == "" {
		id = e.ID
	}
	name := e.ImageName
	if name == "" {
		name = e.Name
	}
	if name == "" {
		name = "image_" + id
	}
	return ImageRef{ID: id, Name: name}
}

// NewClient constructs a client with sane defaults and injected dependencies.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.autoenhance.ai/v3"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func (c *Client) headers(req *http.Request, devMode bool) {
	req.Header.Set("x-api-key", c.apiKey)
	if devMode {
		req.Header.Set("x-dev-mode", "true")
	}
}

// GetOrder retrieves order metadata and normalizes the image list.
// Upstream statuses map to the package sentinels; transport failures map to
// ErrUnavailable.
func (c *Client) GetOrder(ctx context.Context, orderID string, devMode bool) (*Order, error) {
	endpoint := c.baseURL + "/orders/" + url.PathEscape(orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: build order request: %w", err)
	}
	c.headers(req, devMode)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("order_id", orderID).Msg("order request failed")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, ErrOrderNotFound
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Error().
			Int("status", resp.StatusCode).
			Str("order_id", orderID).
			Str("body", strings.TrimSpace(string(body))).
			Msg("order request returned unexpected status")
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded orderResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode order: %v", ErrUnavailable, err)
	}

	order := &Order{
		ID:     decoded.OrderID,
		Name:   decoded.Name,
		Images: make([]ImageRef, 0, len(decoded.Images)),
	}
	if order.ID == "" {
		order.ID = orderID
	}
	if order.Name == "" {
		order.Name = orderID
	}
	for _, img := range decoded.Images {
		order.Images = append(order.Images, img.normalize())
	}
	return order, nil
}

// FetchRendition downloads the enhanced rendition of one image. A non-200
// response is returned as *StatusError; transport errors are returned as-is
// so the caller can distinguish timeouts from other network failures.
func (c *Client) FetchRendition(ctx context.Context, imageID string, p RenditionParams) ([]byte, error) {
	endpoint := c.baseURL + "/images/" + url.PathEscape(imageID) + "/enhanced"

	q := url.Values{}
	q.Set("format", p.Format)
	if !p.Preview {
		q.Set("preview", "false")
	}
	if p.Quality > 0 {
		q.Set("quality", strconv.Itoa(p.Quality))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("upstream: build rendition request: %w", err)
	}
	c.headers(req, p.DevMode)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 2048))
		return nil, &StatusError{Code: resp.StatusCode}
	}

	return io.ReadAll(resp.Body)
}

// CreatedImage describes one image registered through CreateOrder.
type CreatedImage struct {
	ImageID string `json:"image_id"`
	Name    string `json:"name"`
}

// UploadFile is one file to register and upload into a new order.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type registerResponse struct {
	ImageID string `json:"image_id"`
	// The presigned upload URL appears under either of two field names.
	S3PutObjectURL string `json:"s3PutObjectUrl"`
	UploadURL      string `json:"upload_url"`
}

// CreateOrder creates an upstream order and returns its identifier.
func (c *Client) CreateOrder(ctx context.Context, name string) (string, error) {
	payload, err := json.Marshal(map[string]string{"name": name})
	if err != nil {
		return "", fmt.Errorf("upstream: encode order: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("upstream: build create-order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.headers(req, false)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		c.logger.Error().Int("status", resp.StatusCode).Str("body", strings.TrimSpace(string(body))).Msg("create order failed")
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var decoded struct {
		OrderID string `json:"order_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("%w: decode create-order response: %v", ErrUnavailable, err)
	}
	if decoded.OrderID == "" {
		return "", fmt.Errorf("%w: create-order response missing order_id", ErrUnavailable)
	}
	return decoded.OrderID, nil
}

// RegisterAndUpload registers one image against an order and PUTs its bytes
// to the returned presigned URL.
func (c *Client) RegisterAndUpload(ctx context.Context, orderID string, file UploadFile) (*CreatedImage, error) {
	payload, err := json.Marshal(map[string]string{
		"image_name":  file.Name,
		"order_id":    orderID,
		"contentType": file.ContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("upstream: encode image registration: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/images/", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("upstream: build register request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.headers(req, false)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream: register image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("upstream: register image: status %d", resp.StatusCode)
	}

	var decoded registerResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("upstream: decode registration: %w", err)
	}
	uploadURL := decoded.S3PutObjectURL
	if uploadURL == "" {
		uploadURL = decoded.UploadURL
	}
	if decoded.ImageID == "" || uploadURL == "" {
		return nil, errors.New("upstream: registration response missing image_id or upload url")
	}

	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(file.Data))
	if err != nil {
		return nil, fmt.Errorf("upstream: build upload request: %w", err)
	}
	putReq.Header.Set("Content-Type", file.ContentType)

	putResp, err := c.httpClient.Do(putReq)
	if err != nil {
		return nil, fmt.Errorf("upstream: upload image: %w", err)
	}
	defer putResp.Body.Close()

	if putResp.StatusCode != http.StatusOK && putResp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("upstream: upload image: status %d", putResp.StatusCode)
	}

	return &CreatedImage{ImageID: decoded.ImageID, Name: file.Name}, nil
}
