// Package audit is a permit plugin that persists every resolution to a
// resolution log store.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xraph/permit"
	"github.com/xraph/permit/id"
	"github.com/xraph/permit/plugin"
	"github.com/xraph/permit/resolutionlog"
)

var _ plugin.AfterResolve = (*Plugin)(nil)

// Plugin writes a resolutionlog.Entry for each finished resolution.
type Plugin struct {
	store     resolutionlog.Store
	logger    *slog.Logger
	withCodes bool
}

// Option configures the audit plugin.
type Option func(*Plugin)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(p *Plugin) { p.logger = l } }

// WithCodes records the granted codes on each entry.
func WithCodes(on bool) Option { return func(p *Plugin) { p.withCodes = on } }

// New returns an audit plugin writing to s.
func New(s resolutionlog.Store, opts ...Option) *Plugin {
	p := &Plugin{store: s, logger: slog.Default(), withCodes: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return "audit" }

// OnAfterResolve persists the resolution.
func (p *Plugin) OnAfterResolve(ctx context.Context, v any) error {
	res, ok := v.(*permit.Resolution)
	if !ok {
		return nil
	}
	e := Entry(res)
	if !p.withCodes {
		e.Codes = nil
	}
	if err := p.store.CreateResolutionLog(ctx, e); err != nil {
		return fmt.Errorf("audit: write resolution log: %w", err)
	}
	p.logger.Debug("permit: resolution logged",
		slog.String("log_id", e.ID.String()),
		slog.String("phase", e.Phase),
	)
	return nil
}

// Entry converts a resolution into a log entry.
func Entry(res *permit.Resolution) *resolutionlog.Entry {
	return &resolutionlog.Entry{
		ID:              id.NewResolutionLogID(),
		ResolutionID:    res.ID.String(),
		TenantID:        res.TenantID,
		AppID:           res.AppID,
		SubjectID:       res.Request.SubjectID,
		Scope:           string(res.Request.Scope()),
		ScopeID:         res.Request.ScopeID,
		Phase:           string(res.Phase),
		IsOwner:         res.IsOwner,
		FromCache:       res.FromCache,
		PermissionCount: len(res.Permissions),
		Codes:           res.Codes(),
		Error:           res.Error,
		DurationNs:      res.Duration.Nanoseconds(),
		CreatedAt:       time.Now().UTC(),
	}
}
