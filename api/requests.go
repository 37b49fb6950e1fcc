package api

import (
	"encoding/json"

	"github.com/xraph/permit"
)

// ──────────────────────────────────────────────────
// Resolve requests
// ──────────────────────────────────────────────────

// ResolveRequest is the body for resolving a subject's permissions.
type ResolveRequest struct {
	SubjectID    string `json:"subject_id" description:"Subject identifier"`
	ScopeID      string `json:"scope_id,omitempty" description:"Project scope identifier"`
	ProjectScope bool   `json:"project_scope,omitempty" description:"Resolve at project scope instead of enterprise scope"`
	Token        string `json:"token,omitempty" description:"Session token forwarded to the permissions backend; an unverified token never grants the owner bypass"`
}

func (r *ResolveRequest) toRequest() permit.Request {
	return permit.Request{
		SubjectID:    r.SubjectID,
		ScopeID:      r.ScopeID,
		ProjectScope: r.ProjectScope,
	}
}

// ──────────────────────────────────────────────────
// Check requests
// ──────────────────────────────────────────────────

// CheckRequest is the request body for a permission check.
type CheckRequest struct {
	ResolveRequest
	Codes []string `json:"codes" description:"Permission codes to check"`
	Mode  string   `json:"mode,omitempty" description:"How codes combine: any (default) or all"`
}

func (r *CheckRequest) toCheckRequest() *permit.CheckRequest {
	return &permit.CheckRequest{
		Request: r.toRequest(),
		Codes:   r.Codes,
		Mode:    permit.CheckMode(r.Mode),
	}
}

// BatchCheckRequest contains multiple checks.
type BatchCheckRequest struct {
	Checks []CheckRequest `json:"checks" description:"List of permission checks"`
}

// ──────────────────────────────────────────────────
// Cache requests
// ──────────────────────────────────────────────────

// InvalidateSubjectRequest is the path parameter for dropping a subject's
// cached permissions.
type InvalidateSubjectRequest struct {
	SubjectID string `path:"subjectId" description:"Subject ID"`
}

// ClearCacheRequest has no parameters.
type ClearCacheRequest struct{}

// ──────────────────────────────────────────────────
// Normalize requests
// ──────────────────────────────────────────────────

// NormalizeRequest carries an arbitrary list response body to classify.
type NormalizeRequest struct {
	Response json.RawMessage `json:"response" description:"Raw list response body"`
}

// ──────────────────────────────────────────────────
// Resolution log requests
// ──────────────────────────────────────────────────

// ListResolutionLogsRequest holds query parameters for querying
// resolution logs.
type ListResolutionLogsRequest struct {
	TenantID  string `query:"tenant_id" description:"Filter by tenant"`
	SubjectID string `query:"subject_id" description:"Filter by subject"`
	Scope     string `query:"scope" description:"Filter by scope (enterprise, project)"`
	ScopeID   string `query:"scope_id" description:"Filter by project scope ID"`
	Phase     string `query:"phase" description:"Filter by phase"`
	After     string `query:"after" description:"Only entries after this RFC3339 time"`
	Before    string `query:"before" description:"Only entries before this RFC3339 time"`
	Limit     int    `query:"limit" description:"Maximum results (default: 50)"`
	Offset    int    `query:"offset" description:"Results to skip"`
}

// GetResolutionLogRequest is the path parameter for getting a log entry.
type GetResolutionLogRequest struct {
	LogID string `path:"logId" description:"Resolution log ID"`
}

// PurgeResolutionLogsRequest selects entries to purge.
type PurgeResolutionLogsRequest struct {
	Before string `query:"before" description:"Purge entries created before this RFC3339 time"`
}
