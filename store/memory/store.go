// Package memory provides an in-memory implementation of the permit
// composite store. It is intended for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/xraph/permit/id"
	"github.com/xraph/permit/resolutionlog"
	"github.com/xraph/permit/store"
)

// Compile-time interface checks.
var (
	_ resolutionlog.Store = (*Store)(nil)
	_ store.Store         = (*Store)(nil)
)

// Store is a thread-safe in-memory store.
type Store struct {
	mu   sync.RWMutex
	logs map[string]*resolutionlog.Entry
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{logs: make(map[string]*resolutionlog.Entry)}
}

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping always succeeds.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() error { return nil }

// ──────────────────────────────────────────────────
// Resolution Log Store
// ──────────────────────────────────────────────────

func (s *Store) CreateResolutionLog(_ context.Context, e *resolutionlog.Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[e.ID.String()] = copyEntry(e)
	return nil
}

func (s *Store) GetResolutionLog(_ context.Context, logID id.ResolutionLogID) (*resolutionlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.logs[logID.String()]
	if !ok {
		return nil, fmt.Errorf("resolution log %s: %w", logID, resolutionlog.ErrNotFound)
	}
	return copyEntry(e), nil
}

func (s *Store) ListResolutionLogs(_ context.Context, filter *resolutionlog.QueryFilter) ([]*resolutionlog.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := s.matching(filter)
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if filter == nil {
		return result, nil
	}
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (s *Store) CountResolutionLogs(_ context.Context, filter *resolutionlog.QueryFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.matching(filter))), nil
}

func (s *Store) PurgeResolutionLogs(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for k, e := range s.logs {
		if e.CreatedAt.Before(before) {
			delete(s.logs, k)
			count++
		}
	}
	return count, nil
}

func (s *Store) DeleteResolutionLogsByTenant(_ context.Context, tenantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, e := range s.logs {
		if e.TenantID == tenantID {
			delete(s.logs, k)
		}
	}
	return nil
}

// matching must be called with the read lock held.
func (s *Store) matching(filter *resolutionlog.QueryFilter) []*resolutionlog.Entry {
	result := make([]*resolutionlog.Entry, 0, len(s.logs))
	for _, e := range s.logs {
		if filter != nil {
			if filter.TenantID != "" && e.TenantID != filter.TenantID {
				continue
			}
			if filter.SubjectID != "" && e.SubjectID != filter.SubjectID {
				continue
			}
			if filter.Scope != "" && e.Scope != filter.Scope {
				continue
			}
			if filter.ScopeID != "" && e.ScopeID != filter.ScopeID {
				continue
			}
			if filter.Phase != "" && e.Phase != filter.Phase {
				continue
			}
			if filter.After != nil && e.CreatedAt.Before(*filter.After) {
				continue
			}
			if filter.Before != nil && e.CreatedAt.After(*filter.Before) {
				continue
			}
		}
		result = append(result, copyEntry(e))
	}
	return result
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func copyEntry(e *resolutionlog.Entry) *resolutionlog.Entry {
	c := *e
	if e.Codes != nil {
		c.Codes = make([]string, len(e.Codes))
		copy(c.Codes, e.Codes)
	}
	if e.Metadata != nil {
		c.Metadata = make(map[string]any, len(e.Metadata))
		for k, v := range e.Metadata {
			c.Metadata[k] = v
		}
	}
	return &c
}

func paginate[T any](items []*T, limit, offset int) []*T {
	if offset > 0 {
		if offset >= len(items) {
			return []*T{}
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
