// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides the paced HTTP client shared across stages.
package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/pdiddy/pmc-fetch/pkg/types"
)

// StatusError reports a response whose status was not 200 OK.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
}

// Client issues GET requests with a fixed User-Agent, pacing them through a
// token bucket so a run never exceeds the configured request rate. Failed
// requests are not retried.
type Client struct {
	HTTP      *http.Client
	UserAgent string
	limiter   *rate.Limiter
}

// NewClient builds a Client from cfg. When cfg.RequestsPerSecond is zero the
// client does not pace requests.
func NewClient(cfg types.HTTPConfig) *Client {
	c := &Client{
		HTTP:      &http.Client{Timeout: cfg.Timeout},
		UserAgent: cfg.UserAgent,
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return c
}

// WithHTTPClient replaces the underlying transport client. Tests use it to
// point at an httptest server.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.HTTP = hc
	return c
}

// Get fetches url and returns the response body. The accept value, when
// non-empty, is sent as the Accept header. A non-200 status yields a
// *StatusError.
func (c *Client) Get(ctx context.Context, url, accept string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{StatusCode: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	return body, nil
}
