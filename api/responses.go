package api

import (
	"encoding/json"

	"github.com/xraph/permit"
	"github.com/xraph/permit/normalize"
)

// ResolutionResponse is the outcome of a permission resolution.
type ResolutionResponse struct {
	ID         string   `json:"id" description:"Resolution ID"`
	SubjectID  string   `json:"subject_id" description:"Subject identifier"`
	Scope      string   `json:"scope" description:"Scope kind (enterprise, project)"`
	ScopeID    string   `json:"scope_id,omitempty" description:"Project scope identifier"`
	Phase      string   `json:"phase" description:"Resolution phase"`
	Codes      []string `json:"codes" description:"Granted permission codes"`
	IsOwner    bool     `json:"is_owner" description:"Whether the session belongs to an owner"`
	FromCache  bool     `json:"from_cache" description:"Whether the permissions came from the cache"`
	Error      string   `json:"error,omitempty" description:"Failure message for a failed resolution"`
	DurationNs int64    `json:"duration_ns" description:"Resolution time in nanoseconds"`
}

func toResolutionResponse(r *permit.Resolution) *ResolutionResponse {
	codes := r.Codes()
	if codes == nil {
		codes = []string{}
	}
	return &ResolutionResponse{
		ID:         r.ID.String(),
		SubjectID:  r.Request.SubjectID,
		Scope:      string(r.Request.Scope()),
		ScopeID:    r.Request.ScopeID,
		Phase:      string(r.Phase),
		Codes:      codes,
		IsOwner:    r.IsOwner,
		FromCache:  r.FromCache,
		Error:      r.Error,
		DurationNs: r.Duration.Nanoseconds(),
	}
}

// CheckResponse is the response for a permission check.
type CheckResponse struct {
	Allowed bool     `json:"allowed" description:"Whether the codes are held"`
	Mode    string   `json:"mode" description:"Combination mode used"`
	Missing []string `json:"missing,omitempty" description:"Codes the subject lacks"`
	Phase   string   `json:"phase" description:"Resolution phase"`
	IsOwner bool     `json:"is_owner" description:"Whether the owner bypass applied"`
	Error   string   `json:"error,omitempty" description:"Failure message when permissions were unavailable"`
}

func toCheckResponse(r *permit.CheckResult) *CheckResponse {
	return &CheckResponse{
		Allowed: r.Allowed,
		Mode:    string(r.Mode),
		Missing: r.Missing,
		Phase:   string(r.Phase),
		IsOwner: r.IsOwner,
		Error:   r.Error,
	}
}

// BatchCheckResponse contains results for multiple checks.
type BatchCheckResponse struct {
	Results []CheckResponse `json:"results" description:"Check results in order"`
}

// NormalizeResponse is a classified list response.
type NormalizeResponse struct {
	Shape string            `json:"shape" description:"Detected response shape"`
	Items []json.RawMessage `json:"items" description:"Extracted items in server order"`
	Total int               `json:"total" description:"Server-side total"`
}

func toNormalizeResponse(env normalize.Envelope) *NormalizeResponse {
	items := env.Items
	if items == nil {
		items = []json.RawMessage{}
	}
	return &NormalizeResponse{Shape: env.Shape.String(), Items: items, Total: env.Total}
}

// PurgeResponse reports how many entries a purge removed.
type PurgeResponse struct {
	Deleted int64 `json:"deleted" description:"Number of entries removed"`
}

// ListResponse wraps a list of items with pagination metadata.
type ListResponse[T any] struct {
	Items  []T   `json:"items" description:"List of items"`
	Total  int64 `json:"total" description:"Total count"`
	Limit  int   `json:"limit" description:"Page size"`
	Offset int   `json:"offset" description:"Page offset"`
}
