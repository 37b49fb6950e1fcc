// Package memory provides an in-memory permission fetcher that serves
// canned payloads. It is meant for tests and local development.
package memory

import (
	"context"
	"encoding/json"
	"sync"
)

// Fetcher serves canned permission payloads keyed by scope and subject.
type Fetcher struct {
	mu         sync.Mutex
	enterprise map[slot]json.RawMessage
	project    map[slot]json.RawMessage
	errs       map[slot]error
	gate       chan struct{}
	calls      map[slot]int
	total      int
}

// New returns an empty Fetcher. Unknown subjects get an empty array.
func New() *Fetcher {
	return &Fetcher{
		enterprise: make(map[slot]json.RawMessage),
		project:    make(map[slot]json.RawMessage),
		errs:       make(map[slot]error),
		calls:      make(map[slot]int),
	}
}

type slot struct {
	project bool
	scopeID string
	subject string
}

func enterpriseKey(subjectID string) slot { return slot{subject: subjectID} }

func projectKey(scopeID, subjectID string) slot {
	return slot{project: true, scopeID: scopeID, subject: subjectID}
}

// SetEnterprise sets the payload returned for a subject at enterprise scope.
func (f *Fetcher) SetEnterprise(subjectID string, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enterprise[enterpriseKey(subjectID)] = json.RawMessage(payload)
	delete(f.errs, enterpriseKey(subjectID))
}

// SetProject sets the payload returned for a subject within a project.
func (f *Fetcher) SetProject(scopeID, subjectID string, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.project[projectKey(scopeID, subjectID)] = json.RawMessage(payload)
	delete(f.errs, projectKey(scopeID, subjectID))
}

// FailEnterprise makes enterprise fetches for subjectID return err.
func (f *Fetcher) FailEnterprise(subjectID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[enterpriseKey(subjectID)] = err
}

// FailProject makes project fetches for subjectID return err.
func (f *Fetcher) FailProject(scopeID, subjectID string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[projectKey(scopeID, subjectID)] = err
}

// Hold makes every fetch block until Release is called or its context
// ends.
func (f *Fetcher) Hold() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate == nil {
		f.gate = make(chan struct{})
	}
}

// Release unblocks fetches waiting since Hold.
func (f *Fetcher) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}

// Calls returns how many enterprise fetches were made for subjectID.
func (f *Fetcher) Calls(subjectID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[enterpriseKey(subjectID)]
}

// ProjectCalls returns how many project fetches were made for subjectID.
func (f *Fetcher) ProjectCalls(scopeID, subjectID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[projectKey(scopeID, subjectID)]
}

// TotalCalls returns the number of fetches of any kind.
func (f *Fetcher) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

// FetchEnterpriseScopePermissions returns the canned enterprise payload.
func (f *Fetcher) FetchEnterpriseScopePermissions(ctx context.Context, subjectID string) (json.RawMessage, error) {
	k := enterpriseKey(subjectID)
	return f.serve(ctx, k, func() json.RawMessage { return f.enterprise[k] })
}

// FetchProjectScopePermissions returns the canned project payload.
func (f *Fetcher) FetchProjectScopePermissions(ctx context.Context, scopeID, subjectID string) (json.RawMessage, error) {
	k := projectKey(scopeID, subjectID)
	return f.serve(ctx, k, func() json.RawMessage { return f.project[k] })
}

func (f *Fetcher) serve(ctx context.Context, key slot, lookup func() json.RawMessage) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls[key]++
	f.total++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[key]; ok {
		return nil, err
	}
	raw := lookup()
	if raw == nil {
		return json.RawMessage("[]"), nil
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out, nil
}
