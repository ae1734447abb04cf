package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultHTTPTimeout = 15 * time.Second
	defaultTimeout     = time.Minute
	maxBodyBytes       = 32 << 20
)

// ErrBodyTooLarge is returned instead of a truncated payload.
var ErrBodyTooLarge = errors.New("source: response body too large")

// HTTPGetter performs GETs against an upstream with retries.
type HTTPGetter struct {
	client  *http.Client
	retry   *retrier
	headers map[string]string
	timeout time.Duration
	maxBody int64
}

// GetterOption customises an HTTPGetter.
type GetterOption func(*HTTPGetter)

// WithHTTPClient injects a custom http.Client, e.g. a recorder transport.
func WithHTTPClient(hc *http.Client) GetterOption {
	return func(g *HTTPGetter) {
		if hc != nil {
			g.client = hc
		}
	}
}

// WithRetry overrides the retry policy.
func WithRetry(cfg RetryConfig) GetterOption {
	return func(g *HTTPGetter) {
		g.retry = newRetrier(cfg)
	}
}

// NewHTTPGetter builds a getter from source configuration.
func NewHTTPGetter(cfg *FetcherConfig, opts ...GetterOption) *HTTPGetter {
	httpTimeout := defaultHTTPTimeout
	timeout := defaultTimeout
	retries := 0
	var headers map[string]string
	if cfg != nil {
		if cfg.HTTPTimeout > 0 {
			httpTimeout = cfg.HTTPTimeout
		}
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
		retries = cfg.MaxRetries
		headers = cfg.Headers
	}
	g := &HTTPGetter{
		client:  &http.Client{Timeout: httpTimeout},
		retry:   newRetrier(RetryConfig{MaxRetries: retries}),
		headers: headers,
		timeout: timeout,
		maxBody: maxBodyBytes,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Get returns the response body of url. The whole call, retries included, is
// bounded by the configured timeout.
func (g *HTTPGetter) Get(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	var body []byte
	err := g.retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("source: build request: %w", err)
		}
		for k, v := range g.headers {
			req.Header.Set(k, v)
		}
		resp, err := g.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBody+1))
		if err != nil {
			return fmt.Errorf("source: read response: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{
				URL:        url,
				StatusCode: resp.StatusCode,
				Body:       string(data[:min(int64(len(data)), g.maxBody)]),
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			}
		}
		if int64(len(data)) > g.maxBody {
			return fmt.Errorf("%w: %s over %d bytes", ErrBodyTooLarge, url, g.maxBody)
		}
		body = data
		return nil
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}
