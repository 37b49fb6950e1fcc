package postgres

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/permit/id"
	"github.com/xraph/permit/resolutionlog"
)

type resolutionLogModel struct {
	grove.BaseModel `grove:"table:permit_resolution_logs"`
	ID              string         `grove:"id,pk"`
	ResolutionID    string         `grove:"resolution_id,notnull"`
	TenantID        string         `grove:"tenant_id,notnull"`
	AppID           string         `grove:"app_id,notnull"`
	SubjectID       string         `grove:"subject_id,notnull"`
	Scope           string         `grove:"scope,notnull"`
	ScopeID         string         `grove:"scope_id,notnull"`
	Phase           string         `grove:"phase,notnull"`
	IsOwner         bool           `grove:"is_owner,notnull"`
	FromCache       bool           `grove:"from_cache,notnull"`
	PermissionCount int            `grove:"permission_count,notnull"`
	Codes           []string       `grove:"codes,type:jsonb"`
	Error           string         `grove:"error"`
	DurationNs      int64          `grove:"duration_ns,notnull"`
	Metadata        map[string]any `grove:"metadata,type:jsonb"`
	CreatedAt       time.Time      `grove:"created_at,notnull"`
}

func resolutionLogToModel(e *resolutionlog.Entry) *resolutionLogModel {
	codes := e.Codes
	if codes == nil {
		codes = []string{}
	}
	return &resolutionLogModel{
		ID:              e.ID.String(),
		ResolutionID:    e.ResolutionID,
		TenantID:        e.TenantID,
		AppID:           e.AppID,
		SubjectID:       e.SubjectID,
		Scope:           e.Scope,
		ScopeID:         e.ScopeID,
		Phase:           e.Phase,
		IsOwner:         e.IsOwner,
		FromCache:       e.FromCache,
		PermissionCount: e.PermissionCount,
		Codes:           codes,
		Error:           e.Error,
		DurationNs:      e.DurationNs,
		Metadata:        e.Metadata,
		CreatedAt:       e.CreatedAt,
	}
}

func resolutionLogFromModel(m *resolutionLogModel) *resolutionlog.Entry {
	logID, _ := id.ParseResolutionLogID(m.ID) //nolint:errcheck // stored IDs are always valid
	return &resolutionlog.Entry{
		ID:              logID,
		ResolutionID:    m.ResolutionID,
		TenantID:        m.TenantID,
		AppID:           m.AppID,
		SubjectID:       m.SubjectID,
		Scope:           m.Scope,
		ScopeID:         m.ScopeID,
		Phase:           m.Phase,
		IsOwner:         m.IsOwner,
		FromCache:       m.FromCache,
		PermissionCount: m.PermissionCount,
		Codes:           m.Codes,
		Error:           m.Error,
		DurationNs:      m.DurationNs,
		Metadata:        m.Metadata,
		CreatedAt:       m.CreatedAt,
	}
}
