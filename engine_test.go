package permit

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/xraph/permit/client"
	"github.com/xraph/permit/fetcher/memory"
	"github.com/xraph/permit/permission"
	"github.com/xraph/permit/session"
)

func ownerToken() string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"none"}`)) + "." +
		enc.EncodeToString([]byte(`{"owner":true,"sub":"1"}`)) + ".sig"
}

func memberToken() string {
	enc := base64.RawURLEncoding
	return enc.EncodeToString([]byte(`{"alg":"none"}`)) + "." +
		enc.EncodeToString([]byte(`{"owner":false,"sub":"2"}`)) + ".sig"
}

func newTestEngine(t *testing.T, token string, opts ...Option) (*Engine, *memory.Fetcher, *session.MapStore) {
	t.Helper()
	f := memory.New()
	store := session.NewMapStore(map[string]string{session.KeyToken: token})
	opts = append([]Option{WithFetcher(f), WithSession(session.FromStore(store))}, opts...)
	eng, err := NewEngine(opts...)
	if err != nil {
		t.Fatal(err)
	}
	return eng, f, store
}

// mapCache is a minimal Cache for engine tests.
type mapCache struct {
	mu      sync.Mutex
	entries map[string]permission.Set
	clears  int
}

func newMapCache() *mapCache { return &mapCache{entries: make(map[string]permission.Set)} }

func (c *mapCache) Get(_ context.Context, key CacheKey) (permission.Set, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key.String()]
	return v.Clone(), ok
}

func (c *mapCache) Set(_ context.Context, key CacheKey, perms permission.Set) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key.String()] = perms.Clone()
}

func (c *mapCache) InvalidateSubject(_ context.Context, tenantID, subjectID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := SubjectPrefix(tenantID, subjectID)
	for k := range c.entries {
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			delete(c.entries, k)
		}
	}
}

func (c *mapCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]permission.Set)
	c.clears++
}

func TestNewEngine_RequiresFetcher(t *testing.T) {
	_, err := NewEngine()
	if !errors.Is(err, ErrFetcherRequired) {
		t.Fatalf("expected ErrFetcherRequired, got %v", err)
	}
}

func TestOwnerBypassSkipsFetch(t *testing.T) {
	eng, f, _ := newTestEngine(t, ownerToken())

	res := eng.Resolve(context.Background(), Request{SubjectID: "42"})

	if res.Phase != PhaseResolvedOwner {
		t.Fatalf("expected owner phase, got %s", res.Phase)
	}
	if !res.IsOwner || !res.Permissions.IsUniversal() {
		t.Fatal("expected owner with universal set")
	}
	if !res.HasPermission("anything") || !res.HasAll("a", "b") {
		t.Fatal("owner should hold every code")
	}
	if f.TotalCalls() != 0 {
		t.Fatalf("expected no fetch, got %d", f.TotalCalls())
	}
}

func TestOwnerBypassWithoutSubject(t *testing.T) {
	eng, f, _ := newTestEngine(t, ownerToken())

	res := eng.Resolve(context.Background(), Request{})
	if res.Phase != PhaseResolvedOwner {
		t.Fatalf("expected owner phase before subject check, got %s", res.Phase)
	}
	if f.TotalCalls() != 0 {
		t.Fatal("expected no fetch")
	}
}

func TestNoSubject(t *testing.T) {
	eng, f, _ := newTestEngine(t, memberToken())

	res := eng.Resolve(context.Background(), Request{})
	if res.Phase != PhaseNoSubject {
		t.Fatalf("expected no_subject, got %s", res.Phase)
	}
	if len(res.Permissions) != 0 || res.Error != "" {
		t.Fatal("expected empty permissions and no error")
	}
	if f.TotalCalls() != 0 {
		t.Fatal("expected no fetch")
	}
}

func TestEndToEndEnterpriseScope(t *testing.T) {
	eng, f, _ := newTestEngine(t, memberToken())
	f.SetEnterprise("42", `[{"code":"product_manage"},{"code":"rfq_view"}]`)

	res := eng.Resolve(context.Background(), Request{SubjectID: "42"})

	if res.Phase != PhaseResolvedFetched {
		t.Fatalf("expected resolved_fetched, got %s", res.Phase)
	}
	if !res.HasAny("product_manage", "x") {
		t.Fatal("expected HasAny to pass")
	}
	if !res.HasAll("product_manage", "rfq_view") {
		t.Fatal("expected HasAll to pass")
	}
	if res.HasAll("product_manage", "x") {
		t.Fatal("expected HasAll to fail with a missing code")
	}
}

func TestShapeTolerantExtraction(t *testing.T) {
	payloads := map[string]string{
		"direct":      `[{"permissionCode":"role_manage"}]`,
		"permissions": `{"permissions":[{"code":"role_manage"}]}`,
		"data":        `{"data":[{"permission":{"code":"role_manage"}}]}`,
		"result":      `{"result":["role_manage"]}`,
	}
	for name, payload := range payloads {
		t.Run(name, func(t *testing.T) {
			eng, f, _ := newTestEngine(t, memberToken())
			f.SetEnterprise("42", payload)

			res := eng.Resolve(context.Background(), Request{SubjectID: "42"})
			if !res.HasPermission("role_manage") {
				t.Fatalf("expected role_manage from %s", payload)
			}
		})
	}
}

func TestProjectScope(t *testing.T) {
	eng, f, _ := newTestEngine(t, memberToken())
	f.SetEnterprise("42", `[{"code":"enterprise_only"}]`)
	f.SetProject("p1", "42", `{"data":[{"code":"project_only"}]}`)

	res := eng.Resolve(context.Background(), Request{SubjectID: "42", ScopeID: "p1", ProjectScope: true})
	if !res.HasPermission("project_only") || res.HasPermission("enterprise_only") {
		t.Fatalf("expected project permissions only, got %v", res.Codes())
	}
	if f.ProjectCalls("p1", "42") != 1 || f.Calls("42") != 0 {
		t.Fatal("expected exactly one project fetch")
	}
}

func TestProjectScopeRequiresScopeID(t *testing.T) {
	eng, f, _ := newTestEngine(t, memberToken())

	res := eng.Resolve(context.Background(), Request{SubjectID: "42", ProjectScope: true})
	if res.Phase != PhaseFailed || !errors.Is(res.Err, ErrScopeRequired) {
		t.Fatalf("expected scope failure, got %s %v", res.Phase, res.Err)
	}
	if f.TotalCalls() != 0 {
		t.Fatal("expected no fetch")
	}
}

func TestFetchFailureDeniesWithMessage(t *testing.T) {
	eng, f, _ := newTestEngine(t, memberToken())
	f.FailEnterprise("42", &client.HTTPError{StatusCode: 500, Message: "backend down"})

	res := eng.Resolve(context.Background(), Request{SubjectID: "42"})

	if res.Phase != PhaseFailed || !res.Unverified() {
		t.Fatalf("expected failed, got %s", res.Phase)
	}
	if res.Error != "backend down" {
		t.Fatalf("expected server message, got %q", res.Error)
	}
	if !errors.Is(res.Err, ErrFetchFailed) {
		t.Fatalf("expected ErrFetchFailed, got %v", res.Err)
	}
	if len(res.Permissions) != 0 || res.HasPermission("anything") {
		t.Fatal("failed resolution must grant nothing")
	}
	if res.Denied() {
		t.Fatal("a failed resolution is unverified, not denied")
	}
}

type emptyErr struct{}

func (emptyErr) Error() string { return "" }

func TestFetchFailureFallbackMessage(t *testing.T) {
	eng, f, _ := newTestEngine(t, memberToken())
	f.FailEnterprise("42", emptyErr{})

	res := eng.Resolve(context.Background(), Request{SubjectID: "42"})
	if res.Error != DefaultFallbackErrorMessage {
		t.Fatalf("expected fallback message, got %q", res.Error)
	}
}

func TestFetchTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FetchTimeout = 20 * time.Millisecond
	eng, f, _ := newTestEngine(t, memberToken(), WithConfig(cfg))
	f.Hold()
	defer f.Release()

	res := eng.Resolve(context.Background(), Request{SubjectID: "42"})
	if res.Phase != PhaseFailed || !errors.Is(res.Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline failure, got %s %v", res.Phase, res.Err)
	}
}

func TestRequestSessionOverridesDefault(t *testing.T) {
	eng, f, _ := newTestEngine(t, memberToken())
	ctx := session.NewContext(context.Background(),
		session.FromVerifiedStore(session.NewMapStore(map[string]string{session.KeyToken: ownerToken()})))

	res := eng.Resolve(ctx, Request{SubjectID: "42"})
	if res.Phase != PhaseResolvedOwner {
		t.Fatalf("expected request session owner, got %s", res.Phase)
	}
	if f.TotalCalls() != 0 {
		t.Fatal("expected no fetch")
	}
}

func TestUnverifiedRequestSessionCannotClaimOwner(t *testing.T) {
	eng, f, _ := newTestEngine(t, memberToken())
	f.SetEnterprise("intruder", `[{"code":"rfq_view"}]`)
	ctx := session.NewContext(context.Background(),
		session.FromStore(session.NewMapStore(map[string]string{session.KeyToken: ownerToken()})))

	res := eng.Resolve(ctx, Request{SubjectID: "intruder"})
	if res.IsOwner || res.Phase != PhaseResolvedFetched {
		t.Fatalf("expected fetched permissions, got %s owner=%v", res.Phase, res.IsOwner)
	}
	if f.Calls("intruder") != 1 {
		t.Fatalf("expected one fetch, got %d", f.Calls("intruder"))
	}
	if eng.Can(ctx, "intruder", "enterprise_delete") {
		t.Fatal("forged owner token must not grant every permission")
	}
}

func TestCacheSharesResults(t *testing.T) {
	c := newMapCache()
	eng, f, _ := newTestEngine(t, memberToken(), WithCache(c))
	f.SetEnterprise("42", `[{"code":"a"}]`)
	ctx := WithTenant(context.Background(), "app1", "t1")

	first := eng.Resolve(ctx, Request{SubjectID: "42"})
	second := eng.Resolve(ctx, Request{SubjectID: "42"})

	if first.FromCache || !second.FromCache {
		t.Fatal("expected second resolution from cache")
	}
	if !second.HasPermission("a") {
		t.Fatal("cached permissions lost")
	}
	if f.Calls("42") != 1 {
		t.Fatalf("expected one fetch, got %d", f.Calls("42"))
	}

	eng.InvalidateSubject(ctx, "42")
	eng.Resolve(ctx, Request{SubjectID: "42"})
	if f.Calls("42") != 2 {
		t.Fatalf("expected refetch after invalidation, got %d", f.Calls("42"))
	}
}

func TestCacheIsolatesSubjectsWithSeparators(t *testing.T) {
	c := newMapCache()
	eng, f, _ := newTestEngine(t, memberToken(), WithCache(c))
	f.SetProject("enterprise", "x", `[{"code":"admin_all"}]`)
	f.SetEnterprise("x:project", `[{"code":"view"}]`)
	ctx := context.Background()

	eng.Resolve(ctx, Request{SubjectID: "x", ProjectScope: true, ScopeID: "enterprise"})
	res := eng.Resolve(ctx, Request{SubjectID: "x:project"})

	if res.FromCache {
		t.Fatal("expected a fetch for a different subject")
	}
	if res.HasPermission("admin_all") || !res.HasPermission("view") {
		t.Fatalf("unexpected codes %v", res.Codes())
	}

	f.SetEnterprise("u", `[{"code":"tenant_admin"}]`)
	f.SetEnterprise("7:u", `[{"code":"member"}]`)
	eng.Resolve(WithTenant(ctx, "app", "acme:7"), Request{SubjectID: "u"})
	other := eng.Resolve(WithTenant(ctx, "app", "acme"), Request{SubjectID: "7:u"})
	if other.FromCache || other.HasPermission("tenant_admin") {
		t.Fatalf("permissions leaked across tenants: %v", other.Codes())
	}
}

func TestCacheSkipsFailures(t *testing.T) {
	c := newMapCache()
	eng, f, _ := newTestEngine(t, memberToken(), WithCache(c))
	f.FailEnterprise("42", errors.New("down"))

	eng.Resolve(context.Background(), Request{SubjectID: "42"})
	if len(c.entries) != 0 {
		t.Fatal("failed fetches must not be cached")
	}
}

func TestTokenChangeClearsCache(t *testing.T) {
	c := newMapCache()
	eng, f, store := newTestEngine(t, memberToken(), WithCache(c))
	f.SetEnterprise("42", `[{"code":"a"}]`)

	eng.Resolve(context.Background(), Request{SubjectID: "42"})
	store.Set(session.KeyToken, "other."+"token.sig")
	eng.Resolve(context.Background(), Request{SubjectID: "42"})

	if c.clears != 1 {
		t.Fatalf("expected one clear on token change, got %d", c.clears)
	}
	if f.Calls("42") != 2 {
		t.Fatalf("expected refetch after token change, got %d", f.Calls("42"))
	}
}

func TestLogoutClearsCache(t *testing.T) {
	c := newMapCache()
	eng, f, _ := newTestEngine(t, memberToken(), WithCache(c))
	f.SetEnterprise("42", `[]`)

	eng.Resolve(context.Background(), Request{SubjectID: "42"})
	eng.Logout(context.Background())

	if c.clears != 1 || len(c.entries) != 0 {
		t.Fatal("expected logout to clear the cache")
	}
}

func TestConcurrentFetchesAreDeduplicated(t *testing.T) {
	eng, f, _ := newTestEngine(t, memberToken())
	f.SetEnterprise("42", `[{"code":"a"}]`)
	f.Hold()

	var wg sync.WaitGroup
	results := make([]*Resolution, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = eng.Resolve(context.Background(), Request{SubjectID: "42"})
		}(i)
	}

	deadline := time.Now().Add(2 * time.Second)
	for f.TotalCalls() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	f.Release()
	wg.Wait()

	for i, res := range results {
		if !res.HasPermission("a") {
			t.Fatalf("result %d missing permission", i)
		}
	}
	if f.Calls("42") != 1 {
		t.Fatalf("expected a single shared fetch, got %d", f.Calls("42"))
	}
}

func TestCheckAndEnforce(t *testing.T) {
	eng, f, _ := newTestEngine(t, memberToken())
	f.SetEnterprise("42", `[{"code":"a"},{"code":"b"}]`)
	f.FailEnterprise("7", errors.New("down"))
	ctx := context.Background()

	res, err := eng.Check(ctx, &CheckRequest{Request: Request{SubjectID: "42"}, Codes: []string{"a", "c"}})
	if err != nil {
		t.Fatal(err)
	}
	if !res.Allowed || res.Mode != CheckAny {
		t.Fatalf("expected any-mode allow, got %+v", res)
	}

	res, err = eng.Check(ctx, &CheckRequest{Request: Request{SubjectID: "42"}, Codes: []string{"a", "c"}, Mode: CheckAll})
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed || len(res.Missing) != 1 || res.Missing[0] != "c" {
		t.Fatalf("expected all-mode deny missing c, got %+v", res)
	}

	if _, err := eng.Check(ctx, &CheckRequest{Mode: "some"}); !errors.Is(err, ErrInvalidCheckMode) {
		t.Fatalf("expected ErrInvalidCheckMode, got %v", err)
	}

	if err := eng.Enforce(ctx, &CheckRequest{Request: Request{SubjectID: "42"}, Codes: []string{"c"}}); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected ErrAccessDenied, got %v", err)
	}
	if err := eng.Enforce(ctx, &CheckRequest{Request: Request{SubjectID: "7"}, Codes: []string{"a"}}); !errors.Is(err, ErrPermissionsUnavailable) {
		t.Fatalf("expected ErrPermissionsUnavailable, got %v", err)
	}
	if err := eng.Enforce(ctx, &CheckRequest{Request: Request{SubjectID: "42"}, Codes: []string{"b"}}); err != nil {
		t.Fatalf("expected allow, got %v", err)
	}
	if !eng.Can(ctx, "42", "a") || eng.Can(ctx, "42", "z") {
		t.Fatal("unexpected Can result")
	}
}

type recordingPlugin struct {
	mu       sync.Mutex
	before   int
	after    []Phase
	failed   int
	checks   int
	invalids int
	shutdown bool
}

func (p *recordingPlugin) Name() string { return "recording" }

func (p *recordingPlugin) OnBeforeResolve(_ context.Context, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.before++
	return nil
}

func (p *recordingPlugin) OnAfterResolve(_ context.Context, res any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.after = append(p.after, res.(*Resolution).Phase)
	return nil
}

func (p *recordingPlugin) OnResolveFailed(_ context.Context, _ any, _ error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed++
	return nil
}

func (p *recordingPlugin) OnAfterCheck(_ context.Context, _, _ any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.checks++
	return nil
}

func (p *recordingPlugin) OnCacheInvalidated(_ context.Context, _, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.invalids++
	return nil
}

func (p *recordingPlugin) OnShutdown(_ context.Context) error {
	p.shutdown = true
	return nil
}

func TestPluginHooks(t *testing.T) {
	rp := &recordingPlugin{}
	eng, f, _ := newTestEngine(t, memberToken(), WithPlugin(rp), WithCache(newMapCache()))
	f.SetEnterprise("42", `[{"code":"a"}]`)
	f.FailEnterprise("7", errors.New("down"))
	ctx := context.Background()

	eng.Resolve(ctx, Request{SubjectID: "42"})
	eng.Resolve(ctx, Request{SubjectID: "7"})
	if _, err := eng.Check(ctx, &CheckRequest{Request: Request{SubjectID: "42"}, Codes: []string{"a"}}); err != nil {
		t.Fatal(err)
	}
	eng.InvalidateSubject(ctx, "42")
	if err := eng.Stop(ctx); err != nil {
		t.Fatal(err)
	}

	if rp.before != 3 || len(rp.after) != 3 {
		t.Fatalf("expected 3 resolve events, got before=%d after=%d", rp.before, len(rp.after))
	}
	if rp.after[1] != PhaseFailed || rp.failed != 1 {
		t.Fatalf("expected one failure event, got %v / %d", rp.after, rp.failed)
	}
	if rp.checks != 1 || rp.invalids != 1 || !rp.shutdown {
		t.Fatalf("unexpected hook counts: %+v", rp)
	}
}
