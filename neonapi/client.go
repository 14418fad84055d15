// Package neonapi is a minimal client for the NEON data portal API,
// covering the metadata endpoints the stacking engine consumes: product
// descriptions, issue logs, citations and file listings.
package neonapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/spatialbytes/neonstack/core"
)

const DefaultBaseURL = "https://data.neonscience.org/api/v0"

var userAgent = "neonstack/1.0 Go/" + runtime.Version()

// Client talks to the NEON data portal API. The zero value is not usable;
// construct with New.
type Client struct {
	BaseURL string
	// Token is the user-specific API token. Requests without one use the
	// public rate limit.
	Token string

	httpClient *http.Client
}

func New(baseURL, token string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

// get issues one API request, retrying up to 5 times when the rate limit
// is exhausted, pausing for the burst reset interval the API reports.
func (c *Client) get(ctx context.Context, url, accept string) ([]byte, error) {
	var lastErr error
	for attempt := 1; attempt <= 5; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("accept", accept)
		req.Header.Set("User-Agent", userAgent)
		if c.Token != "" {
			req.Header.Set("X-API-TOKEN", c.Token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("cannot access NEON API: %w", err)
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("request to %s failed with status code %d", url, resp.StatusCode)
		}
		if readErr != nil {
			return nil, readErr
		}

		if resp.Header.Get("x-ratelimit-limit") != "" {
			remain, _ := strconv.Atoi(resp.Header.Get("x-ratelimit-remaining"))
			if remain < 1 {
				reset, _ := strconv.Atoi(resp.Header.Get("x-ratelimit-reset"))
				core.Infof(ctx, "Rate limit reached. Pausing for %d seconds to reset.", reset)
				select {
				case <-time.After(time.Duration(reset) * time.Second):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
				lastErr = fmt.Errorf("rate limit reached on %s", url)
				continue
			}
		}
		return body, nil
	}
	return nil, lastErr
}

// GetJSON fetches url and decodes the response into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any) error {
	body, err := c.get(ctx, url, "application/json")
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", url, err)
	}
	return nil
}

// GetText fetches url as plain text, used for readme files published as
// objects and for DOI citation lookups.
func (c *Client) GetText(ctx context.Context, url, accept string) (string, error) {
	body, err := c.get(ctx, url, accept)
	if err != nil {
		return "", err
	}
	return string(body), nil
}
