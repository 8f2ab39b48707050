// Package noaa downloads GFS model output from NOAA NOMADS.
package noaa

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// maxErrorBody caps how much of an error response is copied into the error.
const maxErrorBody = 512

// Client implements fetch.Downloader over plain HTTP GETs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
}

// NewClient creates a NOMADS client rooted at baseURL, e.g.
// https://nomads.ncep.noaa.gov/pub/data/nccf/com/gfs/prod.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Download streams the file at remotePath (relative to the base URL) into w
// and returns the number of bytes written.
func (c *Client) Download(ctx context.Context, remotePath string, w io.Writer) (int64, error) {
	u := c.baseURL + "/" + strings.TrimLeft(remotePath, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", remotePath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return 0, fmt.Errorf("nomads error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("read %s: %w", remotePath, err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, fmt.Errorf("read %s: got %d of %d bytes", remotePath, n, resp.ContentLength)
	}

	c.logger.Debug("downloaded", "path", remotePath, "bytes", n)
	return n, nil
}
