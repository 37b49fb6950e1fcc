package session

import (
	"context"
	"maps"
	"net/http"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// Request headers read by FromRequest.
const (
	HeaderWorkspaceID  = "X-Workspace-ID"
	HeaderEnterpriseID = "X-Enterprise-ID"
	HeaderUserID       = "X-User-ID"
)

// MapStore is an in-memory Store safe for concurrent use.
type MapStore struct {
	mu     sync.RWMutex
	values map[string]string
}

var _ Store = (*MapStore)(nil)

// NewMapStore returns a MapStore seeded with a copy of values.
func NewMapStore(values map[string]string) *MapStore {
	m := &MapStore{values: make(map[string]string, len(values))}
	maps.Copy(m.values, values)
	return m
}

// Get implements Store.
func (m *MapStore) Get(_ context.Context, key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Set stores value under key.
func (m *MapStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.values == nil {
		m.values = make(map[string]string)
	}
	m.values[key] = value
}

// Delete removes key.
func (m *MapStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}

// Clear removes every key.
func (m *MapStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	clear(m.values)
}

// FromRequest builds a MapStore from request headers: the Authorization
// bearer token and the workspace, enterprise and user headers. Missing
// headers leave their key unset.
func FromRequest(r *http.Request) *MapStore {
	m := NewMapStore(nil)
	if token := bearerToken(r.Header.Get("Authorization")); token != "" {
		m.Set(KeyToken, token)
	}
	for header, key := range map[string]string{
		HeaderWorkspaceID:  KeyCurrentWorkspace,
		HeaderEnterpriseID: KeyEnterpriseID,
		HeaderUserID:       KeyUser,
	} {
		if v := r.Header.Get(header); v != "" {
			m.Set(key, v)
		}
	}
	return m
}

// bearerToken extracts the credential from "Bearer <token>".
func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Middleware installs a request-scoped Provider built from the request
// headers, retrievable with FromContext. The bearer token is checked with
// keyfunc; only a token that passes Verify yields a verified provider. A
// nil keyfunc never verifies. An unverified token is still forwarded to
// the permissions backend, which remains the authority for it.
func Middleware(keyfunc jwt.Keyfunc, opts ...jwt.ParserOption) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := NewContext(r.Context(), requestProvider(r, keyfunc, opts))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func requestProvider(r *http.Request, keyfunc jwt.Keyfunc, opts []jwt.ParserOption) *StoreProvider {
	store := FromRequest(r)
	token, ok := store.Get(r.Context(), KeyToken)
	if !ok || keyfunc == nil {
		return FromStore(store)
	}
	if _, err := Verify(token, keyfunc, opts...); err != nil {
		return FromStore(store)
	}
	return FromVerifiedStore(store)
}
