package registry

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"skillrouter/internal/index"
)

const (
	userAgent = "skill-router/1.0"

	// maxFetchBytes bounds a single response read. The index for ~100
	// skills is a few hundred KB; bodies are truncated to 8000 chars
	// downstream anyway.
	maxFetchBytes = 4 << 20
)

// HTTP fetches from a static registry tree over HTTPS, addressable as
// <base>/index.json and <base>/<body_path>.
type HTTP struct {
	base   string
	client *http.Client
}

// NewHTTP returns an HTTP registry rooted at baseURL. Every request gets a
// hard timeout; on expiry the fetch reports ErrNetworkUnavailable.
func NewHTTP(baseURL string, timeout time.Duration) *HTTP {
	return &HTTP{
		base:   strings.TrimRight(baseURL, "/"),
		client: &http.Client{Timeout: timeout},
	}
}

func (h *HTTP) FetchIndex(ctx context.Context) (index.Index, error) {
	data, err := h.get(ctx, indexPath)
	if err != nil {
		return index.Index{}, err
	}

	idx, parseErr := index.Parse(data)
	if parseErr != nil {
		return index.Index{}, fmt.Errorf("%w: %w", ErrMalformed, parseErr)
	}

	return idx, nil
}

func (h *HTTP) FetchBody(ctx context.Context, desc index.Descriptor) ([]byte, error) {
	data, err := h.get(ctx, desc.BodyPath)
	if err != nil {
		return nil, err
	}

	return verifyBody(data, desc.BodyHash)
}

func (h *HTTP) get(ctx context.Context, path string) ([]byte, error) {
	url := h.base + "/" + strings.TrimLeft(path, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkUnavailable, err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkUnavailable, err)
	}

	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s returned HTTP %d", ErrNetworkUnavailable, url, resp.StatusCode)
	}

	data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxFetchBytes))
	if readErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrNetworkUnavailable, readErr)
	}

	return data, nil
}
