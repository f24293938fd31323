// Package feed fetches raw dispatch records from the Winnipeg Open Data CAD
// endpoint.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dispatchmon/cad-engine/internal/domain"
)

// fetchLimit caps a single fetch; the upstream Socrata endpoint rejects
// larger pages anyway.
const fetchLimit = "1000"

// Client implements engine.Fetcher against a Socrata-style JSON endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a feed client. The timeout bounds the whole request
// including body read; callers additionally pass a context per fetch.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchIncidents performs one bounded fetch of the feed, newest calls first.
// Any transport, status, or decode problem is returned as an error; the
// engine owns degradation policy.
func (c *Client) FetchIncidents(ctx context.Context) ([]domain.RawRecord, error) {
	params := url.Values{
		"$order": {"call_time DESC"},
		"$limit": {fetchLimit},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create feed request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("feed API error: status %d: %s", resp.StatusCode, body)
	}

	var records []domain.RawRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode feed response: %w", err)
	}

	c.logger.Debug("feed fetch complete", "records", len(records))
	return records, nil
}
