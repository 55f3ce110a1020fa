package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// DefaultMaxManifestBytes caps the size of a manifest body.
const DefaultMaxManifestBytes = 10 << 20

// Fetcher downloads manifest text over HTTP.
type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBytes  int64
}

// NewFetcher returns a Fetcher whose requests are bounded by timeout.
// A non-positive maxBytes falls back to DefaultMaxManifestBytes.
func NewFetcher(timeout time.Duration, userAgent string, maxBytes int64) *Fetcher {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxManifestBytes
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
		maxBytes:  maxBytes,
	}
}

// Fetch issues a GET for rawURL and returns the body on 2xx.
// A non-2xx reply yields *StatusError; transport failures yield *FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "application/vnd.apple.mpegurl, application/x-mpegurl, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		return "", &StatusError{URL: rawURL, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return "", &FetchError{URL: rawURL, Err: err}
	}
	if int64(len(body)) > f.maxBytes {
		return "", fmt.Errorf("manifest %s exceeds %d bytes", rawURL, f.maxBytes)
	}

	return string(body), nil
}
