// Package httpclient is the shared plumbing for talking to upstream
// HTTP APIs (the assistant backend and the weather service). It owns
// the concerns every integration needs and none should reimplement:
// timeouts, status-code mapping, JSON decoding, and retry with backoff.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Sentinel errors callers branch on with errors.Is.
var (
	// ErrNotFound: the upstream answered 404 for the resource.
	ErrNotFound = errors.New("resource not found")

	// ErrUnavailable: the upstream could not be reached or kept failing
	// after retries. Handlers translate this to 502.
	ErrUnavailable = errors.New("upstream unavailable")
)

// RetryableError marks a failure worth retrying (network trouble,
// upstream 5xx, throttling). Retry unwraps it between attempts.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable: %v", e.Err)
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Retry runs fn up to attempts times, doubling the delay between tries.
// Only failures wrapped in RetryableError are retried; anything else
// returns immediately. The context cancels the wait, not just the
// attempts.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	var err error

	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil {
			return nil
		}

		var re *RetryableError
		if !errors.As(err, &re) {
			return err
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-time.After(delay):
			delay *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return err
}

// Client is a thin JSON API client bound to one base URL.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	Headers    map[string]string
}

// New returns a client for the given API root. The timeout bounds the
// whole exchange including body read, so a stalled upstream cannot pin
// a request goroutine forever.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		HTTPClient: &http.Client{Timeout: timeout},
		BaseURL:    baseURL,
		Headers:    map[string]string{"Accept": "application/json"},
	}
}

// GetJSON fetches path and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodGet, path, nil, out)
}

// PostJSON sends body as JSON to path and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, payload, out)
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	for k, v := range c.Headers {
		req.Header.Set(k, v)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		// Transport-level failures (DNS, refused, timeout) are the
		// classic transient case.
		return &RetryableError{Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}

	if out == nil {
		// Caller does not care about the body; drain it so the
		// connection can be reused.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

// checkStatus maps HTTP statuses onto the package's error vocabulary.
func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Request.URL.Path)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return &RetryableError{
			Err: fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode),
		}
	default:
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
}
