package requests

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	DefaultTimeout          = 10 * time.Second
	DefaultMaxResponseBytes = 1 << 20
)

// Response is a fully read upstream response.
type Response struct {
	StatusCode int
	Body       []byte
}

// ExternalAPIService is a small HTTP helper for JSON upstream APIs. Every call
// is bounded by the client timeout and by a cap on the response body size.
type ExternalAPIService struct {
	client           *http.Client
	maxResponseBytes int64
	headers          map[string]string
}

// NewExternalAPIService creates a new instance of ExternalAPIService
func NewExternalAPIService(timeout time.Duration, maxResponseBytes int64, headers map[string]string) *ExternalAPIService {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if maxResponseBytes <= 0 {
		maxResponseBytes = DefaultMaxResponseBytes
	}
	return &ExternalAPIService{
		client:           &http.Client{Timeout: timeout},
		maxResponseBytes: maxResponseBytes,
		headers:          headers,
	}
}

// Get makes a GET request to the external service, accepting optional query parameters.
// Non-2xx responses are returned as-is; only transport and size failures are errors.
func (s *ExternalAPIService) Get(ctx context.Context, endpoint string, params url.Values) (*Response, error) {
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for key, value := range s.headers {
		req.Header.Set(key, value)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxResponseBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > s.maxResponseBytes {
		return nil, fmt.Errorf("response from %s exceeds %d bytes", req.URL.Path, s.maxResponseBytes)
	}

	return &Response{StatusCode: resp.StatusCode, Body: body}, nil
}
