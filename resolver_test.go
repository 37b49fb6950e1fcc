package permit

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"
)

func waitState(t *testing.T, r *Resolver) State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s, err := r.Wait(ctx)
	if err != nil {
		t.Fatalf("wait: %v", err)
	}
	return s
}

func TestResolverResolves(t *testing.T) {
	eng, f, _ := newTestEngine(t, memberToken())
	f.SetEnterprise("42", `[{"code":"product_manage"},{"code":"rfq_view"}]`)

	r := eng.NewResolver(context.Background(), Request{SubjectID: "42"})
	defer r.Close()

	s := waitState(t, r)
	if s.Phase != PhaseResolvedFetched || s.Loading {
		t.Fatalf("expected resolved state, got %+v", s)
	}
	if !r.HasAny("product_manage", "x") || !r.HasAll("product_manage", "rfq_view") || r.HasAll("product_manage", "x") {
		t.Fatal("unexpected permission checks")
	}
}

func TestResolverOwnerLoadingTransition(t *testing.T) {
	eng, f, _ := newTestEngine(t, ownerToken())

	r := eng.NewResolver(context.Background(), Request{SubjectID: "42"})
	defer r.Close()

	s := waitState(t, r)
	if s.Phase != PhaseResolvedOwner || !s.IsOwner || s.Loading {
		t.Fatalf("expected owner state, got %+v", s)
	}
	if !r.HasPermission("anything") {
		t.Fatal("owner should hold every code")
	}
	if f.TotalCalls() != 0 {
		t.Fatal("expected no fetch for owner")
	}
}

func TestResolverFailure(t *testing.T) {
	eng, f, _ := newTestEngine(t, memberToken())
	f.FailEnterprise("42", errors.New("network down"))

	r := eng.NewResolver(context.Background(), Request{SubjectID: "42"})
	defer r.Close()

	s := waitState(t, r)
	if s.Phase != PhaseFailed || s.Error != "network down" {
		t.Fatalf("expected failed state, got %+v", s)
	}
	if len(s.Permissions) != 0 || s.HasPermission("anything") {
		t.Fatal("failed state must grant nothing")
	}
}

func TestResolverRefetchIsIdempotent(t *testing.T) {
	eng, f, _ := newTestEngine(t, memberToken())
	f.SetEnterprise("42", `[{"code":"a"}]`)

	r := eng.NewResolver(context.Background(), Request{SubjectID: "42"})
	defer r.Close()
	first := waitState(t, r)

	f.Hold()
	r.Refetch()
	if s := r.State(); !s.Loading || s.Phase != PhaseLoading {
		t.Fatalf("expected loading after refetch, got %+v", s)
	}
	if !r.HasPermission("a") {
		t.Fatal("refetch should keep previous permissions while loading")
	}
	f.Release()
	second := waitState(t, r)

	r.Refetch()
	third := waitState(t, r)

	for _, s := range []State{first, second, third} {
		if s.Loading || len(s.Permissions) != 1 || !s.HasPermission("a") {
			t.Fatalf("expected identical resolved state, got %+v", s)
		}
	}
	if !(first.Generation < second.Generation && second.Generation < third.Generation) {
		t.Fatal("expected increasing generations")
	}
	if f.Calls("42") != 3 {
		t.Fatalf("expected 3 fetches, got %d", f.Calls("42"))
	}
}

func TestResolverDiscardsStaleResult(t *testing.T) {
	eng, f, _ := newTestEngine(t, memberToken())
	f.SetEnterprise("old", `[{"code":"stale"}]`)
	f.SetEnterprise("new", `[{"code":"fresh"}]`)
	f.Hold()

	r := eng.NewResolver(context.Background(), Request{SubjectID: "old"})
	defer r.Close()
	r.SetRequest(Request{SubjectID: "new"})
	if len(r.State().Permissions) != 0 {
		t.Fatal("SetRequest should clear previous permissions")
	}
	f.Release()

	s := waitState(t, r)
	if !s.HasPermission("fresh") || s.HasPermission("stale") {
		t.Fatalf("expected only the latest request to commit, got %+v", s)
	}
	if r.Request().SubjectID != "new" {
		t.Fatal("request not updated")
	}

	time.Sleep(20 * time.Millisecond)
	if r.HasPermission("stale") {
		t.Fatal("stale result overwrote state")
	}
}

// stubbornFetcher ignores cancellation, so a superseded fetch still
// delivers its result once its gate opens.
type stubbornFetcher struct {
	gates    map[string]chan struct{}
	payloads map[string]string
}

func (f *stubbornFetcher) FetchEnterpriseScopePermissions(_ context.Context, subjectID string) (json.RawMessage, error) {
	if g, ok := f.gates[subjectID]; ok {
		<-g
	}
	return json.RawMessage(f.payloads[subjectID]), nil
}

func (f *stubbornFetcher) FetchProjectScopePermissions(ctx context.Context, _, subjectID string) (json.RawMessage, error) {
	return f.FetchEnterpriseScopePermissions(ctx, subjectID)
}

// discardSignal reports each stale resolution the resolver drops.
type discardSignal chan struct{}

func (d discardSignal) Enabled(context.Context, slog.Level) bool { return true }

func (d discardSignal) Handle(_ context.Context, r slog.Record) error {
	if r.Message == "permit: discarding stale resolution" {
		d <- struct{}{}
	}
	return nil
}

func (d discardSignal) WithAttrs([]slog.Attr) slog.Handler { return d }
func (d discardSignal) WithGroup(string) slog.Handler      { return d }

func TestResolverDiscardsResultArrivingAfterNewerCommit(t *testing.T) {
	oldGate := make(chan struct{})
	f := &stubbornFetcher{
		gates: map[string]chan struct{}{"old": oldGate},
		payloads: map[string]string{
			"old": `[{"code":"stale"}]`,
			"new": `[{"code":"fresh"}]`,
		},
	}
	discarded := make(discardSignal, 1)

	cfg := DefaultConfig()
	off := false
	cfg.DedupeFetches = &off
	eng, _, _ := newTestEngine(t, memberToken(),
		WithFetcher(f),
		WithConfig(cfg),
		WithLogger(slog.New(discarded)),
	)

	r := eng.NewResolver(context.Background(), Request{SubjectID: "old"})
	defer r.Close()
	r.SetRequest(Request{SubjectID: "new"})

	fresh := waitState(t, r)
	if !fresh.HasPermission("fresh") || fresh.Generation != 2 {
		t.Fatalf("expected the new request to commit, got %+v", fresh)
	}

	close(oldGate)
	select {
	case <-discarded:
	case <-time.After(2 * time.Second):
		t.Fatal("stale resolution never completed")
	}

	s := r.State()
	if s.HasPermission("stale") || !s.HasPermission("fresh") || s.Generation != 2 {
		t.Fatalf("stale result overwrote state: %+v", s)
	}
	if r.Request().SubjectID != "new" {
		t.Fatal("request not updated")
	}
}

func TestResolverSubscribe(t *testing.T) {
	eng, f, _ := newTestEngine(t, memberToken())
	f.SetEnterprise("42", `[{"code":"a"}]`)
	f.Hold()

	r := eng.NewResolver(context.Background(), Request{SubjectID: "42"})
	defer r.Close()

	ch, unsubscribe := r.Subscribe()
	defer unsubscribe()

	if s := <-ch; !s.Loading {
		t.Fatalf("expected initial loading state, got %+v", s)
	}
	f.Release()

	select {
	case s := <-ch:
		if s.Loading || !s.HasPermission("a") {
			t.Fatalf("expected resolved state, got %+v", s)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for resolved state")
	}
}

func TestResolverClose(t *testing.T) {
	eng, f, _ := newTestEngine(t, memberToken())
	f.SetEnterprise("42", `[{"code":"a"}]`)
	f.Hold()
	defer f.Release()

	r := eng.NewResolver(context.Background(), Request{SubjectID: "42"})
	ch, _ := r.Subscribe()
	<-ch

	r.Close()
	r.Close()

	if _, ok := <-ch; ok {
		t.Fatal("expected subscription channel to be closed")
	}
	if _, err := r.Wait(context.Background()); !errors.Is(err, ErrResolverClosed) {
		t.Fatalf("expected ErrResolverClosed, got %v", err)
	}

	r.Refetch()
	if s := r.State(); s.Phase != PhaseLoading || s.Generation != 1 {
		t.Fatalf("closed resolver must not start new attempts, got %+v", s)
	}
}
