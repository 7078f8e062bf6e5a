package client

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/nerrad567/devicehub/internal/device"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultRetryCount = 2
	devicesPath       = "/api/v1/devices"
)

// Client talks to a devicehub API server. It is safe for concurrent use.
type Client struct {
	http *resty.Client
}

// Option configures a Client.
type Option func(*resty.Client)

// WithToken sends token as a bearer credential on every request.
func WithToken(token string) Option {
	return func(c *resty.Client) {
		if token != "" {
			c.SetAuthToken(token)
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *resty.Client) { c.SetTimeout(d) }
}

// WithRetryCount sets how often a GET or HEAD request failing at the
// transport level is retried. Writes are sent once: the server may have
// committed a request whose response was lost. HTTP error statuses are never
// retried.
func WithRetryCount(n int) Option {
	return func(c *resty.Client) { c.SetRetryCount(n) }
}

// WithLogger routes retry warnings and transport errors to l instead of
// discarding them.
func WithLogger(l Logger) Option {
	return func(c *resty.Client) { c.SetLogger(restyLogger{l: l}) }
}

// New creates a client for the server at baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(defaultTimeout).
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryReads).
		SetLogger(restyLogger{l: noopLogger{}}).
		SetHeader("Accept", "application/json")

	for _, opt := range opts {
		opt(rc)
	}
	return &Client{http: rc}
}

// retryReads allows a retry only for safe methods that failed before a
// response arrived.
func retryReads(resp *resty.Response, err error) bool {
	if err == nil || resp == nil || resp.Request == nil {
		return false
	}
	switch resp.Request.Method {
	case http.MethodGet, http.MethodHead:
		return true
	}
	return false
}

type listResponse[T any] struct {
	Devices []T `json:"devices"`
	Count   int `json:"count"`
}

// Create creates a device and returns its details, including the first
// version token.
func (c *Client) Create(ctx context.Context, req device.CreateRequest) (device.Details, error) {
	var out device.Details
	resp, err := c.request(ctx).SetBody(req).SetResult(&out).Post(devicesPath)
	if err := check(resp, err); err != nil {
		return device.Details{}, err
	}
	return out, nil
}

// Get returns one device.
func (c *Client) Get(ctx context.Context, id string) (device.Details, error) {
	var out device.Details
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		SetResult(&out).
		Get(devicesPath + "/{id}")
	if err := check(resp, err); err != nil {
		return device.Details{}, err
	}
	return out, nil
}

// List returns the short listing ordered by name.
func (c *Client) List(ctx context.Context) ([]device.Summary, error) {
	var out listResponse[device.Summary]
	resp, err := c.request(ctx).SetResult(&out).Get(devicesPath)
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

// ListDetails returns the full view of every device.
func (c *Client) ListDetails(ctx context.Context) ([]device.Details, error) {
	var out listResponse[device.Details]
	resp, err := c.request(ctx).SetResult(&out).Get(devicesPath + "/details")
	if err := check(resp, err); err != nil {
		return nil, err
	}
	return out.Devices, nil
}

// Update replaces a device's mutable fields and returns the new version
// token. A stale req.VersionToken yields device.ErrConcurrencyConflict.
func (c *Client) Update(ctx context.Context, id string, req device.UpdateRequest) ([]byte, error) {
	resp, err := c.request(ctx).
		SetPathParam("id", id).
		SetBody(req).
		Put(devicesPath + "/{id}")
	if err := check(resp, err); err != nil {
		return nil, err
	}

	token, err := parseETag(resp.Header().Get("ETag"))
	if err != nil {
		return nil, fmt.Errorf("reading new version token: %w", err)
	}
	return token, nil
}

// Delete removes a device. A missing device yields device.ErrNotFound.
func (c *Client) Delete(ctx context.Context, id string) error {
	resp, err := c.request(ctx).SetPathParam("id", id).Delete(devicesPath + "/{id}")
	return check(resp, err)
}

// Export writes the xlsx device export to w.
func (c *Client) Export(ctx context.Context, w io.Writer) error {
	resp, err := c.request(ctx).
		SetHeader("Accept", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet").
		Get(devicesPath + "/export")
	if err := check(resp, err); err != nil {
		return err
	}
	if _, err := w.Write(resp.Body()); err != nil {
		return fmt.Errorf("writing export: %w", err)
	}
	return nil
}

// Ready checks the server's readiness endpoint.
func (c *Client) Ready(ctx context.Context) error {
	resp, err := c.request(ctx).Get("/api/v1/ready")
	return check(resp, err)
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx).SetError(&errorBody{})
}

// parseETag decodes the quoted base64 entity tag the server sends.
func parseETag(v string) ([]byte, error) {
	v = strings.TrimPrefix(strings.TrimSpace(v), "W/")
	if len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
		return nil, errors.New("missing or unquoted ETag")
	}
	return base64.StdEncoding.DecodeString(v[1 : len(v)-1])
}

// statusText is used when the server sent no error body.
func statusText(code int) string {
	if t := http.StatusText(code); t != "" {
		return strings.ToLower(t)
	}
	return fmt.Sprintf("status %d", code)
}
