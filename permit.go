// Package permit resolves what a signed-in subject may do and answers
// permission checks against the result.
//
// An owner session is granted everything without a network call. Any
// other subject's permission list is fetched from the backend at either
// enterprise or project scope, normalized, and optionally shared through
// a cache keyed by tenant, subject and scope.
//
//	eng, err := permit.NewEngine(
//	    permit.WithFetcher(remote.New(apiClient)),
//	    permit.WithSession(session.FromStore(store)),
//	)
//	res := eng.Resolve(ctx, permit.Request{SubjectID: "42"})
//	if res.HasAny("product_manage", "product_view") { ... }
//
// Pages that need to track a subject over time use a Resolver, which
// guarantees that only the latest request commits.
package permit

import (
	"time"

	"github.com/xraph/permit/id"
	"github.com/xraph/permit/permission"
)

// ScopeKind is the authorization boundary of a permission lookup.
type ScopeKind string

const (
	// ScopeEnterprise is organization-wide.
	ScopeEnterprise ScopeKind = "enterprise"

	// ScopeProject is a single project within the enterprise.
	ScopeProject ScopeKind = "project"
)

// Request identifies whose permissions to resolve and where.
type Request struct {
	SubjectID    string `json:"subject_id"`
	ScopeID      string `json:"scope_id,omitempty"`
	ProjectScope bool   `json:"project_scope,omitempty"`
}

// Scope returns the scope kind selected by ProjectScope.
func (r Request) Scope() ScopeKind {
	if r.ProjectScope {
		return ScopeProject
	}
	return ScopeEnterprise
}

// Phase is the lifecycle position of a resolution.
type Phase string

const (
	PhaseUninitialized   Phase = "uninitialized"
	PhaseLoading         Phase = "loading"
	PhaseResolvedOwner   Phase = "resolved_owner"
	PhaseResolvedFetched Phase = "resolved_fetched"
	PhaseNoSubject       Phase = "no_subject"
	PhaseFailed          Phase = "failed"
)

// Terminal reports whether the phase ends a resolution attempt.
func (p Phase) Terminal() bool {
	switch p {
	case PhaseResolvedOwner, PhaseResolvedFetched, PhaseNoSubject, PhaseFailed:
		return true
	}
	return false
}

// Resolution is the outcome of one resolution attempt.
type Resolution struct {
	ID          id.ResolutionID `json:"id"`
	Request     Request         `json:"request"`
	TenantID    string          `json:"tenant_id,omitempty"`
	AppID       string          `json:"app_id,omitempty"`
	Phase       Phase           `json:"phase"`
	Permissions permission.Set  `json:"permissions"`
	IsOwner     bool            `json:"is_owner"`
	FromCache   bool            `json:"from_cache,omitempty"`
	Error       string          `json:"error,omitempty"`
	Duration    time.Duration   `json:"duration"`

	// Err is the underlying failure for PhaseFailed. It wraps
	// ErrFetchFailed and the fetcher's error.
	Err error `json:"-"`
}

// HasPermission reports whether code is granted. Owners hold every code.
func (r *Resolution) HasPermission(code string) bool {
	return granted(r.IsOwner, r.Permissions, code)
}

// HasAny reports whether at least one of codes is granted.
func (r *Resolution) HasAny(codes ...string) bool {
	ok, _ := evaluate(r.IsOwner, r.Permissions, CheckAny, codes)
	return ok
}

// HasAll reports whether every one of codes is granted.
func (r *Resolution) HasAll(codes ...string) bool {
	ok, _ := evaluate(r.IsOwner, r.Permissions, CheckAll, codes)
	return ok
}

// Denied reports a verified resolution that grants nothing.
func (r *Resolution) Denied() bool {
	switch r.Phase {
	case PhaseResolvedFetched, PhaseNoSubject:
		return len(r.Permissions) == 0
	}
	return false
}

// Unverified reports that access could not be determined because the
// permission fetch failed. The permission set is empty in that case too.
func (r *Resolution) Unverified() bool { return r.Phase == PhaseFailed }

// Codes returns the normalized permission codes.
func (r *Resolution) Codes() []string { return permission.Codes(r.Permissions) }
