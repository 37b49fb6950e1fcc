package permit

import (
	"context"
	"net/url"
	"strings"

	"github.com/xraph/permit/permission"
)

// CacheKey identifies one cached permission list.
type CacheKey struct {
	TenantID  string
	SubjectID string
	Scope     ScopeKind
	ScopeID   string
}

// String renders the key as colon-joined fields. Every field is
// query-escaped, so no field can contain the separator and distinct keys
// never render alike. Enterprise keys omit the scope id.
func (k CacheKey) String() string {
	parts := []string{escapeKeyField(k.TenantID), escapeKeyField(k.SubjectID), escapeKeyField(string(k.Scope))}
	if k.Scope == ScopeProject {
		parts = append(parts, escapeKeyField(k.ScopeID))
	}
	return strings.Join(parts, ":")
}

// SubjectPrefix returns the key prefix shared by every entry of a subject,
// and by no entry of any other subject.
func SubjectPrefix(tenantID, subjectID string) string {
	return escapeKeyField(tenantID) + ":" + escapeKeyField(subjectID) + ":"
}

// escapeKeyField leaves only unreserved characters and %XX escapes, none
// of which is ":" or a Redis glob metacharacter.
func escapeKeyField(s string) string { return url.QueryEscape(s) }

// Cache stores resolved permission lists. Only successful fetches are
// cached; owner and failed resolutions never are.
type Cache interface {
	// Get returns cached permissions, if available.
	Get(ctx context.Context, key CacheKey) (permission.Set, bool)

	// Set stores permissions for key.
	Set(ctx context.Context, key CacheKey, perms permission.Set)

	// InvalidateSubject removes every entry for a subject in a tenant.
	InvalidateSubject(ctx context.Context, tenantID, subjectID string)

	// Clear removes every entry.
	Clear(ctx context.Context)
}
