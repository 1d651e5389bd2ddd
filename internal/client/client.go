package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/muurk/jsonupnp/internal/proxy"
	"github.com/muurk/jsonupnp/internal/server"
	"github.com/muurk/jsonupnp/internal/urls"
	"github.com/muurk/jsonupnp/internal/version"
)

const (
	// DefaultTimeout is the default HTTP request timeout. It exceeds the
	// proxy's own upstream fetch timeout.
	DefaultTimeout = 15 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for failed requests
	DefaultMaxRetries = 3

	// DefaultRetryDelay is the default delay between retry attempts
	DefaultRetryDelay = 500 * time.Millisecond

	// DefaultMaxRetryDelay is the maximum delay for exponential backoff
	DefaultMaxRetryDelay = 10 * time.Second

	maxResponseSize = 8 << 20
)

// Client talks to a JSON-UPnP proxy's HTTP API
type Client struct {
	// BaseURL is the proxy base URL (e.g., "http://192.168.1.5:5030")
	BaseURL string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// MaxRetries is the maximum number of retry attempts for failed requests
	MaxRetries int

	// RetryDelay is the initial delay between retry attempts
	RetryDelay time.Duration

	// MaxRetryDelay is the maximum delay for exponential backoff
	MaxRetryDelay time.Duration

	// UseExponentialBackoff enables exponential backoff for retries
	UseExponentialBackoff bool
}

// NewClient creates a client for the proxy at host:port
func NewClient(host string, port int) *Client {
	return NewClientWithURL(urls.Base(host, port))
}

// NewClientWithURL creates a client with a full base URL
func NewClientWithURL(baseURL string) *Client {
	return &Client{
		BaseURL:               strings.TrimRight(baseURL, "/"),
		HTTPClient:            &http.Client{Timeout: DefaultTimeout},
		MaxRetries:            DefaultMaxRetries,
		RetryDelay:            DefaultRetryDelay,
		MaxRetryDelay:         DefaultMaxRetryDelay,
		UseExponentialBackoff: true,
	}
}

// SetTimeout sets the HTTP request timeout
func (c *Client) SetTimeout(timeout time.Duration) {
	c.HTTPClient.Timeout = timeout
}

// SetRetry configures retry behavior
func (c *Client) SetRetry(maxRetries int, retryDelay time.Duration) {
	c.MaxRetries = maxRetries
	c.RetryDelay = retryDelay
}

// ProxyDescription fetches the proxy's self description
func (c *Client) ProxyDescription(ctx context.Context) (*proxy.Description, error) {
	var d proxy.Description
	if err := c.getJSON(ctx, c.BaseURL+urls.ProxyDescription, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// ListDevices returns the proxy's registry
func (c *Client) ListDevices(ctx context.Context) (*server.DeviceList, error) {
	var list server.DeviceList
	if err := c.getJSON(ctx, c.BaseURL+urls.Devices, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetDevice returns one device with a freshly converted description
func (c *Client) GetDevice(ctx context.Context, id string) (*server.DeviceView, error) {
	var v server.DeviceView
	if err := c.getJSON(ctx, urls.Device(c.BaseURL, id), &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// Convert returns the JSON form of the device description at location
func (c *Client) Convert(ctx context.Context, location string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, urls.Convert(c.BaseURL, location), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ConvertService returns the JSON form of the SCPD document at location
func (c *Client) ConvertService(ctx context.Context, location string) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.getJSON(ctx, urls.Service(c.BaseURL, location), &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Raw returns the upstream document at location as served by the proxy
func (c *Client) Raw(ctx context.Context, location string) ([]byte, error) {
	return c.do(ctx, urls.Raw(c.BaseURL, location))
}

// Health checks the proxy's liveness endpoint
func (c *Client) Health(ctx context.Context) (*server.Health, error) {
	var h server.Health
	if err := c.getJSON(ctx, c.BaseURL+urls.Health, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) getJSON(ctx context.Context, target string, v any) error {
	body, err := c.do(ctx, target)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return newDecodeError(err)
	}
	return nil
}

// do performs a GET with retries and exponential backoff
func (c *Client) do(ctx context.Context, target string) ([]byte, error) {
	var lastErr error
	currentDelay := c.RetryDelay

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(currentDelay):
			case <-ctx.Done():
				return nil, newNetworkError("request cancelled", ctx.Err())
			}

			if c.UseExponentialBackoff {
				currentDelay *= 2
				if currentDelay > c.MaxRetryDelay {
					currentDelay = c.MaxRetryDelay
				}
			}
		}

		body, err := c.attempt(ctx, target)
		if err == nil {
			return body, nil
		}

		lastErr = err

		if !IsRetryable(err) || ctx.Err() != nil {
			return nil, err
		}
	}

	return nil, lastErr
}

func (c *Client) attempt(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, &Error{Message: "failed to create request", Err: err}
	}
	req.Header.Set("User-Agent", version.UserAgent())
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, newNetworkError("proxy unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, newNetworkError("failed to read response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newStatusError(resp.StatusCode, errorMessage(resp.StatusCode, body))
	}

	return body, nil
}

// errorMessage extracts the proxy's {"error": ...} or {uuid, location, error}
// message, falling back to the plain body
func errorMessage(status int, body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return fmt.Sprintf("unexpected status code: %d", status)
}
