package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"

	"dashrip/internal/dash"
	"dashrip/internal/logger"
)

// Downloader fetches resolved segment locations to local files with bounded
// retries per segment.
type Downloader struct {
	httpClient *http.Client
	logger     logger.Logger
	userAgent  string

	// Progress enables a terminal progress bar per track.
	Progress bool
}

// NewDownloader creates a downloader sharing the given HTTP client.
func NewDownloader(client *http.Client, log logger.Logger, userAgent string) *Downloader {
	return &Downloader{
		httpClient: client,
		logger:     log,
		userAgent:  userAgent,
	}
}

// DownloadTrack fetches every location in order, concatenating the bodies
// into one file at path. The list always starts with the initialization
// segment, so the output is a valid (still encrypted) track file.
func (d *Downloader) DownloadTrack(ctx context.Context, locations []dash.SegmentLocation, path, label string) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create track file %s: %w", path, err)
	}
	defer file.Close()

	var bar *progressbar.ProgressBar
	if d.Progress {
		bar = progressbar.NewOptions(len(locations),
			progressbar.OptionSetDescription(label),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	var total int64
	for i, loc := range locations {
		data, err := d.fetchLocation(ctx, loc)
		if err != nil {
			return total, fmt.Errorf("segment %d/%d of %s: %w", i+1, len(locations), label, err)
		}
		n, err := file.Write(data)
		if err != nil {
			return total, fmt.Errorf("write segment to %s: %w", path, err)
		}
		total += int64(n)
		if bar != nil {
			bar.Add(1)
		}
	}

	d.logger.Infof("Downloaded %s: %d segments, %s", label, len(locations), humanize.Bytes(uint64(total)))
	return total, nil
}

// fetchLocation retrieves a single location with retries. Byte-range
// locations are requested with a Range header and accept a 206 response.
func (d *Downloader) fetchLocation(ctx context.Context, loc dash.SegmentLocation) ([]byte, error) {
	const maxRetries = 3
	const retryDelay = 500 * time.Millisecond
	var lastErr error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		data, err := d.fetchOnce(ctx, loc)
		if err == nil {
			return data, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err
		d.logger.Warnf("Attempt %d/%d for %s failed: %v", attempt, maxRetries, loc.URL, err)
		time.Sleep(retryDelay)
	}

	return nil, fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

func (d *Downloader) fetchOnce(ctx context.Context, loc dash.SegmentLocation) ([]byte, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, loc.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create segment request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	if loc.Range != "" {
		req.Header.Set("Range", "bytes="+loc.Range)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
