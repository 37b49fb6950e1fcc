package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xraph/permit"
	"github.com/xraph/permit/fetcher/memory"
	"github.com/xraph/permit/id"
	"github.com/xraph/permit/permission"
	"github.com/xraph/permit/resolutionlog"
	memstore "github.com/xraph/permit/store/memory"
)

func TestEntry(t *testing.T) {
	res := &permit.Resolution{
		ID:          id.NewResolutionID(),
		Request:     permit.Request{SubjectID: "42", ScopeID: "p1", ProjectScope: true},
		TenantID:    "t1",
		Phase:       permit.PhaseResolvedFetched,
		Permissions: permission.Set{permission.New("a"), {PermissionCode: "b"}},
		Duration:    3 * time.Millisecond,
	}

	e := Entry(res)
	if e.ResolutionID != res.ID.String() || e.Scope != "project" || e.ScopeID != "p1" {
		t.Fatalf("unexpected entry %+v", e)
	}
	if e.PermissionCount != 2 || len(e.Codes) != 2 || e.Codes[1] != "b" {
		t.Fatalf("unexpected codes %v", e.Codes)
	}
	if e.DurationNs != int64(3*time.Millisecond) {
		t.Fatalf("unexpected duration %d", e.DurationNs)
	}
}

func TestPluginWritesEveryResolution(t *testing.T) {
	store := memstore.New()
	f := memory.New()
	f.SetEnterprise("42", `[{"code":"a"}]`)
	f.FailEnterprise("7", errors.New("down"))

	eng, err := permit.NewEngine(permit.WithFetcher(f), permit.WithPlugin(New(store, WithCodes(false))))
	if err != nil {
		t.Fatal(err)
	}
	ctx := permit.WithTenant(context.Background(), "app1", "t1")

	eng.Resolve(ctx, permit.Request{SubjectID: "42"})
	eng.Resolve(ctx, permit.Request{SubjectID: "7"})

	logs, err := store.ListResolutionLogs(ctx, &resolutionlog.QueryFilter{TenantID: "t1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}

	failed, _ := store.CountResolutionLogs(ctx, &resolutionlog.QueryFilter{Phase: string(permit.PhaseFailed)})
	if failed != 1 {
		t.Fatalf("expected 1 failed log, got %d", failed)
	}
	for _, l := range logs {
		if l.Codes != nil {
			t.Fatal("codes should be omitted")
		}
		if l.AppID != "app1" {
			t.Fatalf("expected app id, got %q", l.AppID)
		}
	}
}
