// Package cache provides shared caches for resolved permission lists.
package cache

import (
	"context"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/xraph/permit"
	"github.com/xraph/permit/permission"
)

// Compile-time interface check.
var _ permit.Cache = (*Memory)(nil)

// Memory is an in-process LRU cache with TTL-based expiration.
type Memory struct {
	lru     *lru.LRU[string, permission.Set]
	ttl     time.Duration
	maxSize int
}

// MemoryOption configures the memory cache.
type MemoryOption func(*Memory)

// WithTTL sets the cache entry time-to-live.
func WithTTL(ttl time.Duration) MemoryOption {
	return func(m *Memory) { m.ttl = ttl }
}

// WithMaxSize sets the maximum number of cache entries.
func WithMaxSize(n int) MemoryOption {
	return func(m *Memory) { m.maxSize = n }
}

// NewMemory creates a new in-memory cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		ttl:     5 * time.Minute,
		maxSize: 10000,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.lru = lru.NewLRU[string, permission.Set](m.maxSize, nil, m.ttl)
	return m
}

// Get returns a copy of the cached permissions.
func (m *Memory) Get(_ context.Context, key permit.CacheKey) (permission.Set, bool) {
	perms, ok := m.lru.Get(key.String())
	if !ok {
		return nil, false
	}
	return perms.Clone(), true
}

// Set stores a copy of perms.
func (m *Memory) Set(_ context.Context, key permit.CacheKey, perms permission.Set) {
	m.lru.Add(key.String(), perms.Clone())
}

// InvalidateSubject removes every entry of a subject in a tenant.
func (m *Memory) InvalidateSubject(_ context.Context, tenantID, subjectID string) {
	prefix := permit.SubjectPrefix(tenantID, subjectID)
	for _, k := range m.lru.Keys() {
		if strings.HasPrefix(k, prefix) {
			m.lru.Remove(k)
		}
	}
}

// Clear removes every entry.
func (m *Memory) Clear(_ context.Context) { m.lru.Purge() }

// Len returns the number of live entries.
func (m *Memory) Len() int { return m.lru.Len() }
