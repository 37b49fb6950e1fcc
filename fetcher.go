package permit

import (
	"context"
	"encoding/json"
)

// Fetcher retrieves the raw permission payload for a subject. It only
// transports: the response is returned as received and errors are
// surfaced unchanged. Implementations must not retry or cache.
type Fetcher interface {
	// FetchEnterpriseScopePermissions returns the subject's
	// organization-wide permissions.
	FetchEnterpriseScopePermissions(ctx context.Context, subjectID string) (json.RawMessage, error)

	// FetchProjectScopePermissions returns the subject's permissions
	// within one project.
	FetchProjectScopePermissions(ctx context.Context, scopeID, subjectID string) (json.RawMessage, error)
}
