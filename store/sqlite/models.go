package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/permit/id"
	"github.com/xraph/permit/resolutionlog"
)

type resolutionLogModel struct {
	grove.BaseModel `grove:"table:permit_resolution_logs"`
	ID              string    `grove:"id,pk"`
	ResolutionID    string    `grove:"resolution_id,notnull"`
	TenantID        string    `grove:"tenant_id,notnull"`
	AppID           string    `grove:"app_id,notnull"`
	SubjectID       string    `grove:"subject_id,notnull"`
	Scope           string    `grove:"scope,notnull"`
	ScopeID         string    `grove:"scope_id,notnull"`
	Phase           string    `grove:"phase,notnull"`
	IsOwner         bool      `grove:"is_owner,notnull"`
	FromCache       bool      `grove:"from_cache,notnull"`
	PermissionCount int       `grove:"permission_count,notnull"`
	Codes           string    `grove:"codes"` // JSON text
	Error           string    `grove:"error"`
	DurationNs      int64     `grove:"duration_ns,notnull"`
	Metadata        string    `grove:"metadata"` // JSON text
	CreatedAt       time.Time `grove:"created_at,notnull"`
}

func resolutionLogToModel(e *resolutionlog.Entry) (*resolutionLogModel, error) {
	codes := e.Codes
	if codes == nil {
		codes = []string{}
	}
	codesJSON, err := json.Marshal(codes)
	if err != nil {
		return nil, fmt.Errorf("marshal resolution log codes: %w", err)
	}
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return nil, fmt.Errorf("marshal resolution log metadata: %w", err)
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
		Codes:           string(codesJSON),
		Error:           e.Error,
		DurationNs:      e.DurationNs,
		Metadata:        string(metadata),
		CreatedAt:       e.CreatedAt,
	}, nil
}

func resolutionLogFromModel(m *resolutionLogModel) (*resolutionlog.Entry, error) {
	logID, _ := id.ParseResolutionLogID(m.ID) //nolint:errcheck // stored IDs are always valid
	var codes []string
	if m.Codes != "" {
		if err := json.Unmarshal([]byte(m.Codes), &codes); err != nil {
			return nil, fmt.Errorf("unmarshal resolution log codes: %w", err)
		}
	}
	var metadata map[string]any
	if m.Metadata != "" {
		if err := json.Unmarshal([]byte(m.Metadata), &metadata); err != nil {
			return nil, fmt.Errorf("unmarshal resolution log metadata: %w", err)
		}
	}
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
		Codes:           codes,
		Error:           m.Error,
		DurationNs:      m.DurationNs,
		Metadata:        metadata,
		CreatedAt:       m.CreatedAt,
	}, nil
}
