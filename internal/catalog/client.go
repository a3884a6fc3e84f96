package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client fetches a catalog published over HTTP
type Client struct {
	BaseURL    string
	httpClient *http.Client
}

// NewClient creates a new catalog client
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Fetch downloads and parses the catalog. The format follows the response
// content type, falling back to the URL extension.
func (c *Client) Fetch(ctx context.Context) (*Catalog, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog server returned status %d: %s", resp.StatusCode, string(body))
	}

	return Parse(body, detectFormat(resp.Header.Get("Content-Type"), c.BaseURL))
}

func detectFormat(contentType, url string) string {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "yaml") {
		return "yaml"
	}
	if strings.Contains(ct, "json") {
		return "json"
	}

	path := strings.ToLower(url)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		return "yaml"
	}
	return "json"
}

// Open loads a catalog from a local path or an http(s) URL
func Open(ctx context.Context, location string) (*Catalog, error) {
	if strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://") {
		return NewClient(location).Fetch(ctx)
	}
	return Load(location)
}
