// Package session reads the current client session: the bearer token and
// the workspace identifiers kept in client-side persistent storage.
//
// The package only reads session state. Writers (login, logout, workspace
// switch) live with whatever owns the underlying Store.
package session

import "context"

// Well-known storage keys.
const (
	KeyToken            = "token"
	KeyUser             = "user"
	KeyEnterpriseID     = "enterpriseId"
	KeyCurrentWorkspace = "currentWorkspace"
)

// Store is a read-only view of a persistent key/value store.
type Store interface {
	// Get returns the value stored under key, if any.
	Get(ctx context.Context, key string) (string, bool)
}

// Provider supplies the current session to the permission resolver.
type Provider interface {
	// Token returns the raw bearer token, or "" when signed out.
	Token(ctx context.Context) string

	// CurrentWorkspace returns the active workspace identifier, or "".
	CurrentWorkspace(ctx context.Context) string
}

// Verifier is implemented by providers that vouch for the signature of
// their token. Only a verified request-scoped session may claim ownership.
type Verifier interface {
	Verified() bool
}

// IsVerified reports whether p vouches for its token.
func IsVerified(p Provider) bool {
	v, ok := p.(Verifier)
	return ok && v.Verified()
}

// StoreProvider is a Provider backed by a Store.
type StoreProvider struct {
	store    Store
	verified bool
}

var _ Provider = (*StoreProvider)(nil)

// FromStore returns a Provider that reads every value from s on demand.
// Nothing is cached between calls.
func FromStore(s Store) *StoreProvider {
	return &StoreProvider{store: s}
}

// FromVerifiedStore is FromStore for a store whose token has already been
// checked with Verify.
func FromVerifiedStore(s Store) *StoreProvider {
	return &StoreProvider{store: s, verified: true}
}

// Verified implements Verifier.
func (p *StoreProvider) Verified() bool { return p != nil && p.verified }

// Token implements Provider.
func (p *StoreProvider) Token(ctx context.Context) string { return p.get(ctx, KeyToken) }

// CurrentWorkspace implements Provider.
func (p *StoreProvider) CurrentWorkspace(ctx context.Context) string {
	return p.get(ctx, KeyCurrentWorkspace)
}

// User returns the stored user identifier or "".
func (p *StoreProvider) User(ctx context.Context) string { return p.get(ctx, KeyUser) }

// EnterpriseID returns the stored enterprise identifier or "".
func (p *StoreProvider) EnterpriseID(ctx context.Context) string {
	return p.get(ctx, KeyEnterpriseID)
}

func (p *StoreProvider) get(ctx context.Context, key string) string {
	if p == nil || p.store == nil {
		return ""
	}
	v, ok := p.store.Get(ctx, key)
	if !ok {
		return ""
	}
	return v
}

// ReadIsOwner reports whether the provider's current token carries the
// owner claim. It never fails; a nil provider is not an owner.
func ReadIsOwner(ctx context.Context, p Provider) bool {
	if p == nil {
		return false
	}
	return IsOwner(p.Token(ctx))
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying p.
func NewContext(ctx context.Context, p Provider) context.Context {
	return context.WithValue(ctx, contextKey{}, p)
}

// FromContext returns the Provider stored by NewContext.
func FromContext(ctx context.Context) (Provider, bool) {
	p, ok := ctx.Value(contextKey{}).(Provider)
	return p, ok && p != nil
}
