package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"factsheetgen/internal/ports"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// maxBodyBytes caps how much of a page we are willing to read; company
// pages past this point carry no additional signal.
const maxBodyBytes = 2 << 20

// Client implements ports.PageFetcher over net/http with browser-like
// headers, a bounded timeout, and a redirect cap.
type Client struct {
	httpClient *http.Client
}

var _ ports.PageFetcher = (*Client)(nil)

// NewClient builds a fetcher with the given timeout and redirect limit.
func NewClient(timeout time.Duration, maxRedirects int) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if maxRedirects <= 0 {
		maxRedirects = 5
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return http.ErrUseLastResponse
				}
				return nil
			},
		},
	}
}

// Fetch retrieves one URL. Transport failures come back as errors; HTTP
// statuses are returned as-is for the caller to classify.
func (c *Client) Fetch(ctx context.Context, url string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("request page: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read body: %w", err)
	}

	return string(body), resp.StatusCode, nil
}
