package client

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/xraph/permit/session"
)

// ErrNoToken is returned by SessionTokenSource when signed out.
var ErrNoToken = errors.New("permit/client: no session token")

// bearerTransport attaches the bearer token for each request. A static
// token source set with WithTokenSource wins; otherwise the request's
// session (see session.FromContext) or the client's default session is
// read. Signed-out requests are sent without Authorization.
type bearerTransport struct {
	base   http.RoundTripper
	client *Client
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.client.tokens != nil {
		return (&oauth2.Transport{Source: t.client.tokens, Base: t.base}).RoundTrip(req)
	}

	p := t.client.session
	if rp, ok := session.FromContext(req.Context()); ok {
		p = rp
	}
	if p == nil {
		return t.base.RoundTrip(req)
	}
	token := p.Token(req.Context())
	if token == "" {
		return t.base.RoundTrip(req)
	}
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	return (&oauth2.Transport{Source: src, Base: t.base}).RoundTrip(req)
}

// SessionTokenSource adapts a session provider to oauth2.TokenSource.
// The token is read from the provider on every call.
func SessionTokenSource(ctx context.Context, p session.Provider) oauth2.TokenSource {
	return &sessionTokenSource{ctx: ctx, provider: p}
}

type sessionTokenSource struct {
	ctx      context.Context
	provider session.Provider
}

func (s *sessionTokenSource) Token() (*oauth2.Token, error) {
	tok := s.provider.Token(s.ctx)
	if tok == "" {
		return nil, ErrNoToken
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "Bearer"}, nil
}
