// Package description fetches UPnP description documents from devices.
package description

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/muurk/jsonupnp/internal/proxyerr"
	"github.com/muurk/jsonupnp/internal/version"
)

const (
	// DefaultTimeout bounds a whole fetch, body included
	DefaultTimeout = 10 * time.Second

	// DefaultContentType is reported when the device sends none
	DefaultContentType = "text/xml"

	maxDocumentSize = 4 << 20
)

// Document is a fetched description
type Document struct {
	Location    string
	StatusCode  int
	ContentType string
	Body        []byte
}

// Fetcher retrieves description documents over HTTP
type Fetcher struct {
	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// UserAgent is sent with every request
	UserAgent string
}

// NewFetcher creates a fetcher with the default timeout
func NewFetcher() *Fetcher {
	return &Fetcher{
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
		UserAgent:  version.UserAgent(),
	}
}

// SetTimeout sets the per-fetch timeout
func (f *Fetcher) SetTimeout(timeout time.Duration) {
	f.HTTPClient.Timeout = timeout
}

// Fetch retrieves location and fails with an upstream error on any status
// other than 200
func (f *Fetcher) Fetch(ctx context.Context, location string) (*Document, error) {
	doc, err := f.FetchRaw(ctx, location)
	if err != nil {
		return nil, err
	}
	if doc.StatusCode != http.StatusOK {
		return nil, proxyerr.NewUpstreamError(location, doc.StatusCode)
	}
	return doc, nil
}

// FetchRaw retrieves location whatever the response status
func (f *Fetcher) FetchRaw(ctx context.Context, location string) (*Document, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, proxyerr.NewNetworkError(location, fmt.Errorf("invalid location: %w", err))
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, proxyerr.NewNetworkError(location, fmt.Errorf("unsupported scheme %q", u.Scheme))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, proxyerr.NewNetworkError(location, fmt.Errorf("failed to create request: %w", err))
	}
	if f.UserAgent != "" {
		req.Header.Set("User-Agent", f.UserAgent)
	}

	resp, err := f.HTTPClient.Do(req)
	if err != nil {
		return nil, proxyerr.Classify(err, location)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize))
	if err != nil {
		return nil, proxyerr.Classify(fmt.Errorf("failed to read response body: %w", err), location)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = DefaultContentType
	}

	return &Document{
		Location:    location,
		StatusCode:  resp.StatusCode,
		ContentType: contentType,
		Body:        body,
	}, nil
}
