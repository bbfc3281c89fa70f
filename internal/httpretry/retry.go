// Package httpretry provides a shared GET-with-retry policy for the venue
// clients: both Kalshi and Polymarket rate-limit with HTTP 429, and both
// original clients retried with the same backoff schedule.
package httpretry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// MaxAttempts bounds how many times Get retries a 429 response before giving up.
const MaxAttempts = 5

// Client wraps an http.Client with the 429 retry-with-backoff policy shared
// by the venue clients.
type Client struct {
	HTTP   *http.Client
	Logger *zap.Logger
}

// New creates a retrying HTTP client with the given timeout.
func New(timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		HTTP:   &http.Client{Timeout: timeout},
		Logger: logger,
	}
}

// Get issues a GET request to rawURL with the given query params, retrying
// on HTTP 429 with a 1.5s * attempt backoff, up to MaxAttempts tries.
// The caller must close the returned response body.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values) (*http.Response, error) {
	if params != nil {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, fmt.Errorf("parse url: %w", err)
		}
		u.RawQuery = params.Encode()
		rawURL = u.String()
	}

	var lastResp *http.Response
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}

		resp, err := c.HTTP.Do(req)
		if err != nil {
			return nil, fmt.Errorf("do request: %w", err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		lastResp = resp
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()

		wait := time.Duration(1.5*float64(attempt+1)*float64(time.Second))
		c.Logger.Warn("rate-limited-retrying",
			zap.String("url", rawURL),
			zap.Int("attempt", attempt+1),
			zap.Duration("wait", wait))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}

	return nil, fmt.Errorf("rate limited after %d attempts (status %d)", MaxAttempts, lastResp.StatusCode)
}
