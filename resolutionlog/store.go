package resolutionlog

import (
	"context"
	"time"

	"github.com/xraph/permit/id"
)

// Store defines persistence operations for resolution logs.
type Store interface {
	// CreateResolutionLog persists a new log entry.
	CreateResolutionLog(ctx context.Context, e *Entry) error

	// GetResolutionLog retrieves a log entry by ID. It returns an error
	// wrapping ErrNotFound when the entry does not exist.
	GetResolutionLog(ctx context.Context, logID id.ResolutionLogID) (*Entry, error)

	// ListResolutionLogs returns entries matching the filter, newest first.
	ListResolutionLogs(ctx context.Context, filter *QueryFilter) ([]*Entry, error)

	// CountResolutionLogs returns the number of entries matching the
	// filter, ignoring Limit and Offset.
	CountResolutionLogs(ctx context.Context, filter *QueryFilter) (int64, error)

	// PurgeResolutionLogs removes entries older than the given time.
	PurgeResolutionLogs(ctx context.Context, before time.Time) (int64, error)

	// DeleteResolutionLogsByTenant removes all entries for a tenant.
	DeleteResolutionLogsByTenant(ctx context.Context, tenantID string) error
}
