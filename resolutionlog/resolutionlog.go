// Package resolutionlog defines the audit record written for each
// permission resolution, and the store that persists it.
package resolutionlog

import (
	"errors"
	"time"

	"github.com/xraph/permit/id"
)

// ErrNotFound is returned when a log entry does not exist.
var ErrNotFound = errors.New("permit: resolution log not found")

// Entry is a single permission resolution audit record.
type Entry struct {
	ID              id.ResolutionLogID `json:"id" db:"id"`
	ResolutionID    string             `json:"resolution_id" db:"resolution_id"`
	TenantID        string             `json:"tenant_id" db:"tenant_id"`
	AppID           string             `json:"app_id" db:"app_id"`
	SubjectID       string             `json:"subject_id" db:"subject_id"`
	Scope           string             `json:"scope" db:"scope"`
	ScopeID         string             `json:"scope_id,omitempty" db:"scope_id"`
	Phase           string             `json:"phase" db:"phase"`
	IsOwner         bool               `json:"is_owner" db:"is_owner"`
	FromCache       bool               `json:"from_cache" db:"from_cache"`
	PermissionCount int                `json:"permission_count" db:"permission_count"`
	Codes           []string           `json:"codes,omitempty" db:"codes"`
	Error           string             `json:"error,omitempty" db:"error"`
	DurationNs      int64              `json:"duration_ns" db:"duration_ns"`
	Metadata        map[string]any     `json:"metadata,omitempty" db:"metadata"`
	CreatedAt       time.Time          `json:"created_at" db:"created_at"`
}

// QueryFilter contains filters for querying resolution logs.
type QueryFilter struct {
	TenantID  string     `json:"tenant_id,omitempty"`
	SubjectID string     `json:"subject_id,omitempty"`
	Scope     string     `json:"scope,omitempty"`
	ScopeID   string     `json:"scope_id,omitempty"`
	Phase     string     `json:"phase,omitempty"`
	After     *time.Time `json:"after,omitempty"`
	Before    *time.Time `json:"before,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
}
