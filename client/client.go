// Package client is the generic JSON HTTP client used to reach the
// backend REST API. It resolves paths against a base URL, attaches the
// current session's bearer token and turns non-2xx responses into
// *HTTPError values.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/xraph/permit/session"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 16 << 20

// Request carries the optional parts of a call.
type Request struct {
	Params  url.Values
	Headers http.Header
	// Body is sent as JSON. []byte and json.RawMessage are sent verbatim.
	Body any
}

// Client performs JSON requests against a base URL.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	headers http.Header
	session session.Provider
	tokens  oauth2.TokenSource
	timeout time.Duration
	logger  *slog.Logger
}

// New creates a Client with the given options.
func New(opts ...Option) (*Client, error) {
	c := &Client{
		http:    &http.Client{},
		headers: http.Header{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	base := c.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	hc := *c.http
	hc.Transport = otelhttp.NewTransport(&bearerTransport{base: base, client: c})
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	c.http = &hc
	return c, nil
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, req *Request) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodGet, path, req)
}

// Post issues a POST request.
func (c *Client) Post(ctx context.Context, path string, req *Request) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPost, path, req)
}

// Put issues a PUT request.
func (c *Client) Put(ctx context.Context, path string, req *Request) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPut, path, req)
}

// Patch issues a PATCH request.
func (c *Client) Patch(ctx context.Context, path string, req *Request) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodPatch, path, req)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, req *Request) (json.RawMessage, error) {
	return c.Do(ctx, http.MethodDelete, path, req)
}

// Do performs one round trip and returns the raw response body. An empty
// body is returned as nil. Requests are never retried.
func (c *Client) Do(ctx context.Context, method, path string, req *Request) (json.RawMessage, error) {
	if req == nil {
		req = &Request{}
	}

	target, err := c.resolve(path, req.Params)
	if err != nil {
		return nil, err
	}

	body, err := encodeBody(req.Body)
	if err != nil {
		return nil, fmt.Errorf("permit/client: encode %s %s body: %w", method, path, err)
	}

	hreq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("permit/client: build %s %s: %w", method, path, err)
	}
	hreq.Header.Set("Accept", "application/json")
	if body != nil {
		hreq.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range c.headers {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	for k, vs := range req.Headers {
		hreq.Header.Del(k)
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("permit/client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("permit/client: read %s %s: %w", method, path, err)
	}

	c.logger.Debug("backend request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, newHTTPError(method, path, resp.StatusCode, raw)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	return json.RawMessage(raw), nil
}

func (c *Client) resolve(path string, params url.Values) (string, error) {
	var u *url.URL
	if c.baseURL != nil {
		u = c.baseURL.JoinPath(path)
	} else {
		parsed, err := url.Parse(path)
		if err != nil {
			return "", fmt.Errorf("permit/client: parse %q: %w", path, err)
		}
		u = parsed
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func encodeBody(v any) (io.Reader, error) {
	switch b := v.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return bytes.NewReader(b), nil
	case []byte:
		return bytes.NewReader(b), nil
	case io.Reader:
		return b, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(raw), nil
}
