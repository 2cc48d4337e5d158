// Package httpclient provides the HTTP transport used to probe and fetch upstream sources
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/stacklok/toolhive-mime-registry/internal/versions"
)

const (
	// DefaultTimeout is the default timeout for HTTP requests
	DefaultTimeout = 30 * time.Second

	// DefaultRetryInterval is the initial wait between retries
	DefaultRetryInterval = 500 * time.Millisecond

	// MaxResponseSize is the maximum allowed response size (10MB)
	MaxResponseSize = 10 * 1024 * 1024
)

// UserAgent is the user agent string for HTTP requests
var UserAgent = "thv-mime-registry/" + versions.GetVersionInfo().Version

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

// Client is an interface for HTTP operations
type Client interface {
	// Head performs an HTTP HEAD request and returns status and headers
	Head(ctx context.Context, url string) (*Response, error)

	// Get performs an HTTP GET request and returns status, headers and body
	Get(ctx context.Context, url string) (*Response, error)
}

// DefaultClient is the default HTTP client implementation
type DefaultClient struct {
	client        *http.Client
	timeout       time.Duration
	maxRetries    uint
	retryInterval time.Duration
}

// Option configures a DefaultClient
type Option func(*DefaultClient)

// WithMaxRetries sets how many times a failed request is retried.
// Only transport errors and 5xx responses are retried.
func WithMaxRetries(n uint) Option {
	return func(c *DefaultClient) {
		c.maxRetries = n
	}
}

// WithRetryInterval sets the initial wait between retries
func WithRetryInterval(d time.Duration) Option {
	return func(c *DefaultClient) {
		if d > 0 {
			c.retryInterval = d
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *DefaultClient) {
		if hc != nil {
			c.client = hc
		}
	}
}

// NewDefaultClient creates a new default HTTP client with the specified timeout
// If timeout is 0, uses DefaultTimeout. Requests are traced through the
// global tracer provider.
func NewDefaultClient(timeout time.Duration, opts ...Option) *DefaultClient {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	c := &DefaultClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		timeout:       timeout,
		retryInterval: DefaultRetryInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Head performs an HTTP HEAD request
func (c *DefaultClient) Head(ctx context.Context, url string) (*Response, error) {
	return c.doWithRetry(ctx, http.MethodHead, url)
}

// Get performs an HTTP GET request
func (c *DefaultClient) Get(ctx context.Context, url string) (*Response, error) {
	return c.doWithRetry(ctx, http.MethodGet, url)
}

func (c *DefaultClient) doWithRetry(ctx context.Context, method, url string) (*Response, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval

	attempt := 0
	operation := func() (*Response, error) {
		attempt++
		resp, err := c.do(ctx, method, url)
		if err == nil {
			return resp, nil
		}
		if !isRetryable(err) {
			return nil, backoff.Permanent(err)
		}
		if uint(attempt) <= c.maxRetries {
			zap.S().Debugw("Retrying request",
				"method", method,
				"url", url,
				"attempt", attempt,
				"error", err)
		}
		return nil, err
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(c.maxRetries+1),
	)
}

func (c *DefaultClient) do(ctx context.Context, method, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "text/plain, */*")

	// Execute request
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	// Check status code
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, NewHTTPError(resp.StatusCode, url, resp.Status)
	}

	result := &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
	}
	if method == http.MethodHead {
		return result, nil
	}

	// Check Content-Length header if available
	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response size %d bytes exceeds maximum allowed size of %d bytes (%.2f MB)",
			resp.ContentLength, MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	// Use LimitReader to prevent reading more than MaxResponseSize
	limitedReader := io.LimitReader(resp.Body, MaxResponseSize+1) // +1 to detect if limit exceeded
	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("response size exceeds maximum allowed size of %d bytes (%.2f MB)",
			MaxResponseSize, float64(MaxResponseSize)/(1024*1024))
	}

	result.Body = body
	return result, nil
}

// isRetryable reports whether err may succeed on a later attempt
func isRetryable(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= http.StatusInternalServerError
	}
	// Context cancellation is final
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
