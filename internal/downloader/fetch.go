package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"artcollector/pkg/errors"
)

// HTTPFetcher streams media over HTTP GET
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher creates a fetcher whose requests, body included, are bounded by timeout
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// NewHTTPFetcherWithClient uses client as is
func NewHTTPFetcherWithClient(client *http.Client) *HTTPFetcher {
	return &HTTPFetcher{client: client}
}

// Fetch opens the media at url. The caller closes the body.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeUnknown, 0, "failed to create request", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(errors.ErrorTypeNetwork, 0, fmt.Sprintf("GET %s", url), err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		resp.Body.Close()
		return nil, errors.FromStatusCode(resp.StatusCode, url)
	}
	return resp.Body, nil
}
