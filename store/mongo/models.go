package mongo

import (
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/permit/id"
	"github.com/xraph/permit/resolutionlog"
)

type resolutionLogModel struct {
	grove.BaseModel `grove:"table:permit_resolution_logs"`
	ID              string         `grove:"id,pk"            bson:"_id"`
	ResolutionID    string         `grove:"resolution_id"    bson:"resolution_id"`
	TenantID        string         `grove:"tenant_id"        bson:"tenant_id"`
	AppID           string         `grove:"app_id"           bson:"app_id"`
	SubjectID       string         `grove:"subject_id"       bson:"subject_id"`
	Scope           string         `grove:"scope"            bson:"scope"`
	ScopeID         string         `grove:"scope_id"         bson:"scope_id"`
	Phase           string         `grove:"phase"            bson:"phase"`
	IsOwner         bool           `grove:"is_owner"         bson:"is_owner"`
	FromCache       bool           `grove:"from_cache"       bson:"from_cache"`
	PermissionCount int            `grove:"permission_count" bson:"permission_count"`
	Codes           []string       `grove:"codes"            bson:"codes,omitempty"`
	Error           string         `grove:"error"            bson:"error"`
	DurationNs      int64          `grove:"duration_ns"      bson:"duration_ns"`
	Metadata        map[string]any `grove:"metadata"         bson:"metadata,omitempty"`
	CreatedAt       time.Time      `grove:"created_at"       bson:"created_at"`
}

func resolutionLogToModel(e *resolutionlog.Entry) *resolutionLogModel {
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
		Codes:           e.Codes,
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
