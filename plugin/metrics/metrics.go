// Package metrics is a permit plugin that records Prometheus metrics for
// resolutions, checks and cache invalidations.
package metrics

import (
	"context"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xraph/permit"
	"github.com/xraph/permit/plugin"
)

// Compile-time hook checks.
var (
	_ plugin.AfterResolve     = (*Plugin)(nil)
	_ plugin.AfterCheck       = (*Plugin)(nil)
	_ plugin.CacheInvalidated = (*Plugin)(nil)
)

// Plugin holds the permit collectors.
type Plugin struct {
	registry *prometheus.Registry

	ResolutionsTotal        *prometheus.CounterVec
	ResolutionDuration      *prometheus.HistogramVec
	ChecksTotal             *prometheus.CounterVec
	CacheInvalidationsTotal *prometheus.CounterVec
}

// New creates the collectors and registers them with registry.
func New(registry *prometheus.Registry) *Plugin {
	p := &Plugin{
		registry: registry,
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "permit_resolutions_total",
				Help: "Total number of permission resolutions by terminal phase",
			},
			[]string{"scope", "phase", "cache"},
		),
		ResolutionDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "permit_resolution_duration_seconds",
				Help:    "Permission resolution duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"scope"},
		),
		ChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "permit_checks_total",
				Help: "Total number of permission checks",
			},
			[]string{"mode", "allowed"},
		),
		CacheInvalidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "permit_cache_invalidations_total",
				Help: "Total number of cache invalidations",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		p.ResolutionsTotal,
		p.ResolutionDuration,
		p.ChecksTotal,
		p.CacheInvalidationsTotal,
	)
	return p
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return "metrics" }

// OnAfterResolve counts the resolution and observes its duration.
func (p *Plugin) OnAfterResolve(_ context.Context, v any) error {
	res, ok := v.(*permit.Resolution)
	if !ok {
		return nil
	}
	scope := string(res.Request.Scope())
	p.ResolutionsTotal.WithLabelValues(scope, string(res.Phase), cacheLabel(res.FromCache)).Inc()
	p.ResolutionDuration.WithLabelValues(scope).Observe(res.Duration.Seconds())
	return nil
}

// OnAfterCheck counts the check by mode and outcome.
func (p *Plugin) OnAfterCheck(_ context.Context, _, v any) error {
	result, ok := v.(*permit.CheckResult)
	if !ok {
		return nil
	}
	p.ChecksTotal.WithLabelValues(string(result.Mode), strconv.FormatBool(result.Allowed)).Inc()
	return nil
}

// OnCacheInvalidated counts subject invalidations and full clears.
func (p *Plugin) OnCacheInvalidated(_ context.Context, _, subjectID string) error {
	kind := "subject"
	if subjectID == "" {
		kind = "clear"
	}
	p.CacheInvalidationsTotal.WithLabelValues(kind).Inc()
	return nil
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Plugin) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func cacheLabel(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
