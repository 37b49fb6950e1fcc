// Package remote fetches permission payloads from the backend REST API.
//
//	GET /permissions?subjectId={subject}
//	GET /projects/{scope}/permissions?subjectId={subject}
//
// Responses are returned as received and errors from the HTTP client are
// passed through unchanged. There are no retries and no caching here.
package remote

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/xraph/permit/client"
)

// Getter is the part of *client.Client the fetcher needs.
type Getter interface {
	Get(ctx context.Context, path string, req *client.Request) (json.RawMessage, error)
}

// Fetcher retrieves permissions over HTTP.
type Fetcher struct {
	client Getter
}

// New returns a Fetcher that issues requests through c.
func New(c Getter) *Fetcher { return &Fetcher{client: c} }

// FetchEnterpriseScopePermissions issues GET /permissions.
func (f *Fetcher) FetchEnterpriseScopePermissions(ctx context.Context, subjectID string) (json.RawMessage, error) {
	return f.client.Get(ctx, "/permissions", subjectParams(subjectID))
}

// FetchProjectScopePermissions issues GET /projects/{scopeID}/permissions.
func (f *Fetcher) FetchProjectScopePermissions(ctx context.Context, scopeID, subjectID string) (json.RawMessage, error) {
	return f.client.Get(ctx, "/projects/"+url.PathEscape(scopeID)+"/permissions", subjectParams(subjectID))
}

func subjectParams(subjectID string) *client.Request {
	return &client.Request{Params: url.Values{"subjectId": {subjectID}}}
}
