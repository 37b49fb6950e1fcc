package api

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/permit"
	"github.com/xraph/permit/normalize"
	"github.com/xraph/permit/permission"
	"github.com/xraph/permit/session"
)

func TestMapErrorPassesThroughUnknown(t *testing.T) {
	assert.NoError(t, mapError(nil))

	other := errors.New("boom")
	assert.Same(t, other, mapError(other))

	for _, err := range []error{permit.ErrInvalidCheckMode, permit.ErrScopeRequired, permit.ErrAccessDenied} {
		mapped := mapError(err)
		require.Error(t, mapped)
		assert.NotEqual(t, err, mapped)
	}
}

func TestDefaultLimit(t *testing.T) {
	assert.Equal(t, 50, defaultLimit(0))
	assert.Equal(t, 50, defaultLimit(-3))
	assert.Equal(t, 20, defaultLimit(20))
	assert.Equal(t, 1000, defaultLimit(5000))
}

func TestEnforceStatus(t *testing.T) {
	assert.Equal(t, 200, enforceStatus(&permit.CheckResult{Allowed: true, Phase: permit.PhaseResolvedFetched}))
	assert.Equal(t, 403, enforceStatus(&permit.CheckResult{Phase: permit.PhaseResolvedFetched}))
	assert.Equal(t, 403, enforceStatus(&permit.CheckResult{Phase: permit.PhaseNoSubject}))
	assert.Equal(t, 503, enforceStatus(&permit.CheckResult{Phase: permit.PhaseFailed}))
}

func TestWithSession(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, ctx, withSession(ctx, ""))

	p, ok := session.FromContext(withSession(ctx, "tok"))
	require.True(t, ok)
	assert.Equal(t, "tok", p.Token(ctx))
	assert.False(t, session.IsVerified(p), "body tokens never grant the owner bypass")
}

func TestValidateCheck(t *testing.T) {
	assert.Error(t, validateCheck(&CheckRequest{}))
	assert.Error(t, validateCheck(&CheckRequest{
		ResolveRequest: ResolveRequest{SubjectID: "u1", ProjectScope: true},
		Codes:          []string{"rfq_view"},
	}))
	assert.NoError(t, validateCheck(&CheckRequest{
		ResolveRequest: ResolveRequest{SubjectID: "u1"},
		Codes:          []string{"rfq_view"},
	}))
}

func TestToCheckRequest(t *testing.T) {
	req := &CheckRequest{
		ResolveRequest: ResolveRequest{SubjectID: "u1", ScopeID: "p1", ProjectScope: true},
		Codes:          []string{"a", "b"},
		Mode:           "all",
	}
	got := req.toCheckRequest()
	assert.Equal(t, permit.Request{SubjectID: "u1", ScopeID: "p1", ProjectScope: true}, got.Request)
	assert.Equal(t, permit.CheckAll, got.Mode)
	assert.Equal(t, []string{"a", "b"}, got.Codes)
}

func TestToResolutionResponse(t *testing.T) {
	res := &permit.Resolution{
		Request:     permit.Request{SubjectID: "u1", ScopeID: "p1", ProjectScope: true},
		Phase:       permit.PhaseResolvedFetched,
		Permissions: permission.Set{permission.New("rfq_view"), {PermissionCode: "po_edit"}},
		Duration:    2 * time.Millisecond,
	}
	resp := toResolutionResponse(res)
	assert.Equal(t, "project", resp.Scope)
	assert.Equal(t, "p1", resp.ScopeID)
	assert.Equal(t, "resolved_fetched", resp.Phase)
	assert.Equal(t, []string{"rfq_view", "po_edit"}, resp.Codes)
	assert.Equal(t, int64(2*time.Millisecond), resp.DurationNs)

	empty := toResolutionResponse(&permit.Resolution{Phase: permit.PhaseNoSubject})
	assert.NotNil(t, empty.Codes)
	assert.Equal(t, "enterprise", empty.Scope)
}

func TestToNormalizeResponse(t *testing.T) {
	resp := toNormalizeResponse(normalize.Classify([]byte(`{"content":[{"id":1}],"totalElements":7}`)))
	assert.Equal(t, normalize.SpringPage.String(), resp.Shape)
	assert.Equal(t, []json.RawMessage{json.RawMessage(`{"id":1}`)}, resp.Items)
	assert.Equal(t, 7, resp.Total)

	unknown := toNormalizeResponse(normalize.Classify([]byte(`not json`)))
	assert.Equal(t, normalize.Unknown.String(), unknown.Shape)
	assert.NotNil(t, unknown.Items)
	assert.Equal(t, 0, unknown.Total)
}

func TestParseTime(t *testing.T) {
	got, err := parseTime("after", "")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseTime("after", "2026-01-02T03:04:05Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), *got)

	_, err = parseTime("after", "yesterday")
	assert.Error(t, err)
}
