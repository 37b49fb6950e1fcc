package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/xraph/permit"
)

func TestResolutionMetrics(t *testing.T) {
	p := New(prometheus.NewRegistry())
	ctx := context.Background()

	_ = p.OnAfterResolve(ctx, &permit.Resolution{
		Request:  permit.Request{SubjectID: "42"},
		Phase:    permit.PhaseResolvedFetched,
		Duration: 5 * time.Millisecond,
	})
	_ = p.OnAfterResolve(ctx, &permit.Resolution{
		Request:   permit.Request{SubjectID: "42", ScopeID: "p1", ProjectScope: true},
		Phase:     permit.PhaseResolvedFetched,
		FromCache: true,
	})
	_ = p.OnAfterResolve(ctx, "not a resolution")

	if got := testutil.ToFloat64(p.ResolutionsTotal.WithLabelValues("enterprise", "resolved_fetched", "miss")); got != 1 {
		t.Fatalf("expected 1 enterprise resolution, got %v", got)
	}
	if got := testutil.ToFloat64(p.ResolutionsTotal.WithLabelValues("project", "resolved_fetched", "hit")); got != 1 {
		t.Fatalf("expected 1 cached project resolution, got %v", got)
	}
	if count := testutil.CollectAndCount(p.ResolutionDuration); count != 2 {
		t.Fatalf("expected 2 duration series, got %d", count)
	}
}

func TestCheckAndInvalidationMetrics(t *testing.T) {
	p := New(prometheus.NewRegistry())
	ctx := context.Background()

	_ = p.OnAfterCheck(ctx, nil, &permit.CheckResult{Mode: permit.CheckAll, Allowed: false})
	_ = p.OnAfterCheck(ctx, nil, &permit.CheckResult{Mode: permit.CheckAll, Allowed: false})
	_ = p.OnCacheInvalidated(ctx, "t1", "42")
	_ = p.OnCacheInvalidated(ctx, "", "")

	expected := `
# HELP permit_checks_total Total number of permission checks
# TYPE permit_checks_total counter
permit_checks_total{allowed="false",mode="all"} 2
`
	if err := testutil.CollectAndCompare(p.ChecksTotal, strings.NewReader(expected)); err != nil {
		t.Fatal(err)
	}
	if got := testutil.ToFloat64(p.CacheInvalidationsTotal.WithLabelValues("clear")); got != 1 {
		t.Fatalf("expected 1 clear, got %v", got)
	}
}

func TestHandlerServesMetrics(t *testing.T) {
	p := New(prometheus.NewRegistry())
	_ = p.OnCacheInvalidated(context.Background(), "t1", "42")

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `permit_cache_invalidations_total{kind="subject"} 1`) {
		t.Fatalf("expected invalidation metric in output, got %s", body)
	}
}
