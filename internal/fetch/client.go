// Package fetch performs the network side of an archive run: manifest
// retrieval and segment downloading. The manifest interpretation itself
// lives in internal/dash and never touches the network.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"dashrip/internal/logger"
)

// Client fetches manifest documents from the origin.
type Client struct {
	httpClient *http.Client
	logger     logger.Logger
	userAgent  string
}

// NewClient creates a manifest client with a bounded response-header timeout.
func NewClient(log logger.Logger, userAgent string) *Client {
	transport := &http.Transport{
		ResponseHeaderTimeout: 10 * time.Second,
	}

	return &Client{
		httpClient: &http.Client{Transport: transport},
		logger:     log,
		userAgent:  userAgent,
	}
}

// FetchManifest retrieves the raw manifest document. It returns the body and
// the final URL after redirects, which the parser records as the base for
// relative references.
func (c *Client) FetchManifest(ctx context.Context, manifestURL string) ([]byte, string, error) {
	c.logger.Debugf("Fetching manifest from %s", manifestURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, manifestURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("create manifest request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("fetch manifest from %s: %w", manifestURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetch manifest from %s: status %d", manifestURL, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read manifest body: %w", err)
	}

	finalURL := manifestURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return data, finalURL, nil
}

// HTTPClient returns the underlying http.Client so the segment downloader
// can share its transport.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}
