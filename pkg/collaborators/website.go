package collaborators

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"
)

// WebsiteContent is what the website_scan topic enriches from, per spec
// §6.3. Extraction here is deliberately shallow (title/meta-description via
// regexp) — full HTML parsing and rendering is explicitly out of scope
// (spec.md §1 Non-goals: "website-scraping internals").
type WebsiteContent struct {
	Content         string `json:"content"`
	Title           string `json:"title"`
	MetaDescription string `json:"meta_description"`
}

// WebsiteClient retrieves a tenant's public website content.
type WebsiteClient interface {
	Fetch(ctx context.Context, url string) (*WebsiteContent, error)
}

var (
	titleRe = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaRe  = regexp.MustCompile(`(?is)<meta[^>]+name=["']description["'][^>]+content=["'](.*?)["']`)
)

type websiteClient struct {
	client *http.Client
}

// NewWebsiteClient creates a WebsiteClient that fetches arbitrary URLs
// directly, bounded by timeout.
func NewWebsiteClient(timeout time.Duration) WebsiteClient {
	return &websiteClient{client: &http.Client{Timeout: timeout}}
}

func (c *websiteClient) Fetch(ctx context.Context, url string) (*WebsiteContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrFetchFailed, err)
	}
	req.Header.Set("User-Agent", "ai-gateway-website-fetch/1.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: HTTP %d for %s", ErrFetchFailed, resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrFetchFailed, err)
	}

	html := string(body)
	out := &WebsiteContent{Content: html}
	if m := titleRe.FindStringSubmatch(html); len(m) == 2 {
		out.Title = m[1]
	}
	if m := metaRe.FindStringSubmatch(html); len(m) == 2 {
		out.MetaDescription = m[1]
	}
	return out, nil
}
