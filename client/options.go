package client

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/xraph/permit/session"
)

// Option configures a Client.
type Option func(*Client) error

// WithBaseURL sets the URL every request path is resolved against.
func WithBaseURL(raw string) Option {
	return func(c *Client) error {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("permit/client: parse base url: %w", err)
		}
		c.baseURL = u
		return nil
	}
}

// WithHTTPClient sets the underlying http.Client. Its transport is
// wrapped, not replaced.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc != nil {
			c.http = hc
		}
		return nil
	}
}

// WithTimeout sets the overall per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error { c.timeout = d; return nil }
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) error { c.headers.Add(key, value); return nil }
}

// WithSession sets the default session whose token is attached.
func WithSession(p session.Provider) Option {
	return func(c *Client) error { c.session = p; return nil }
}

// WithTokenSource sets a fixed token source, e.g. service credentials.
// It takes precedence over any session.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) error { c.tokens = ts; return nil }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) error { c.logger = l; return nil }
}
