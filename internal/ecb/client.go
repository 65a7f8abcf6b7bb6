package ecb

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"fxrates/internal/core"
)

const (
	// HistoricalURL is the full ECB reference rate history since 1999.
	HistoricalURL = "https://www.ecb.europa.eu/stats/eurofxref/eurofxref-hist.zip"

	defaultTimeout = 30 * time.Second
	maxBodyBytes   = 64 << 20
)

// Client downloads the ECB historical reference rate file.
type Client struct {
	httpClient *http.Client
	url        string
}

// NewClient returns a client for url. An empty url means HistoricalURL and a
// zero timeout means 30s.
func NewClient(url string, timeout time.Duration) *Client {
	if url == "" {
		url = HistoricalURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
	}
}

// URL returns the source the client fetches.
func (c *Client) URL() string { return c.url }

// Fetch downloads and parses the rate file.
func (c *Client) Fetch(ctx context.Context) ([]core.ImportRow, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "fxrates-importer")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", c.url, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", c.url, res.Status)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return Parse(body)
}

// ReadFile parses a local csv or zip file.
func ReadFile(path string) ([]core.ImportRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return Parse(data)
}
