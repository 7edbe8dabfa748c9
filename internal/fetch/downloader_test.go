package fetch_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dashrip/internal/dash"
	"dashrip/internal/fetch"
	"dashrip/internal/logger"
)

func testLogger() logger.Logger {
	return logger.New(os.Stderr, "error")
}

func TestDownloadTrackConcatenatesSegmentsInOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Serve the last path element as the body, so order is observable.
		parts := strings.Split(r.URL.Path, "/")
		w.Write([]byte(parts[len(parts)-1] + "|"))
	}))
	defer server.Close()

	locations := []dash.SegmentLocation{
		{URL: server.URL + "/init", Init: true},
		{URL: server.URL + "/seg-1"},
		{URL: server.URL + "/seg-2"},
	}

	path := filepath.Join(t.TempDir(), "track.mp4")
	d := fetch.NewDownloader(server.Client(), testLogger(), "")
	total, err := d.DownloadTrack(context.Background(), locations, path, "test track")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "init|seg-1|seg-2|", string(data))
	assert.Equal(t, int64(len(data)), total)
}

func TestDownloadTrackSendsRangeHeaders(t *testing.T) {
	var gotRanges []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotRanges = append(gotRanges, r.Header.Get("Range"))
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte("x"))
	}))
	defer server.Close()

	locations := []dash.SegmentLocation{
		{URL: server.URL + "/video.mp4", Range: "0-880", Init: true},
		{URL: server.URL + "/video.mp4", Range: "881-"},
	}

	path := filepath.Join(t.TempDir(), "track.mp4")
	d := fetch.NewDownloader(server.Client(), testLogger(), "")
	_, err := d.DownloadTrack(context.Background(), locations, path, "ranged track")
	require.NoError(t, err)

	assert.Equal(t, []string{"bytes=0-880", "bytes=881-"}, gotRanges)
}

func TestDownloadTrackRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "track.mp4")
	d := fetch.NewDownloader(server.Client(), testLogger(), "")
	_, err := d.DownloadTrack(context.Background(), []dash.SegmentLocation{{URL: server.URL, Init: true}}, path, "retry track")
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.Equal(t, int32(2), calls.Load())
}

func TestDownloadTrackGivesUpAfterRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "track.mp4")
	d := fetch.NewDownloader(server.Client(), testLogger(), "")
	_, err := d.DownloadTrack(context.Background(), []dash.SegmentLocation{{URL: server.URL, Init: true}}, path, "failing track")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetchManifestReturnsFinalURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old.mpd", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new.mpd", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new.mpd", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "dashrip-test", r.Header.Get("User-Agent"))
		w.Write([]byte("<MPD/>"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := fetch.NewClient(testLogger(), "dashrip-test")
	data, finalURL, err := c.FetchManifest(context.Background(), server.URL+"/old.mpd")
	require.NoError(t, err)
	assert.Equal(t, "<MPD/>", string(data))
	assert.Equal(t, server.URL+"/new.mpd", finalURL)
}
