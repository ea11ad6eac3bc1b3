// Package collaborators provides thin HTTP clients to the platform services
// that own the business data an AI topic's parameters are drawn from:
// business foundation, goals, strategies, measures, actions, issues, and
// the tenant's public website. Each client is a small interface over
// net/http, in the style of the teacher's pkg/runbook GitHub client —
// no retries or circuit breaking here, and none in the enrichment pipeline
// that calls these clients concurrently per source: each call is made once.
package collaborators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNotFound is returned when the collaborator confirms the requested
// entity does not exist (HTTP 404). Distinguished from ErrFetchFailed so
// the enrichment pipeline can apply spec §4.3's SourceEmpty vs
// SourceUnavailable tie-break.
var ErrNotFound = errors.New("collaborator: not found")

// ErrFetchFailed is returned for any transport or non-2xx/404 failure.
var ErrFetchFailed = errors.New("collaborator: fetch failed")

// httpClient is shared scaffolding for every collaborator client: a
// net/http.Client with a per-source timeout and a base URL.
type httpClient struct {
	base   string
	client *http.Client
}

func newHTTPClient(baseURL string, timeout time.Duration) httpClient {
	return httpClient{
		base:   baseURL,
		client: &http.Client{Timeout: timeout},
	}
}

// getJSON issues a GET against path and decodes a 200 response into out.
// Non-200 responses are mapped to ErrNotFound (404) or ErrFetchFailed
// (everything else, wrapped with the status code).
func (c httpClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrFetchFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("%w: HTTP %d: %s", ErrFetchFailed, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrFetchFailed, err)
	}
	return nil
}
