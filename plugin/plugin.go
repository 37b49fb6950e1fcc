// Package plugin defines the plugin system for permit.
// Plugins are notified of lifecycle events (permissions resolved, check
// evaluated, cache invalidated) and can react with logging, metrics,
// auditing and the like.
//
// Each lifecycle hook is a separate interface so plugins opt in only
// to the events they care about.
package plugin

import "context"

// Plugin is the base interface all plugins must implement.
type Plugin interface {
	// Name returns a unique human-readable name for the plugin.
	Name() string
}

// ──────────────────────────────────────────────────
// Resolution lifecycle hooks
// ──────────────────────────────────────────────────

// BeforeResolve is called before a subject's permissions are resolved.
// The req parameter is permit.Request (passed as any to avoid import cycle).
type BeforeResolve interface {
	OnBeforeResolve(ctx context.Context, req any) error
}

// AfterResolve is called for every resolution that reaches a terminal
// phase, including failures. The res parameter is *permit.Resolution.
type AfterResolve interface {
	OnAfterResolve(ctx context.Context, res any) error
}

// ResolveFailed is called when a permission fetch fails, before
// AfterResolve. The res parameter is *permit.Resolution.
type ResolveFailed interface {
	OnResolveFailed(ctx context.Context, res any, err error) error
}

// ──────────────────────────────────────────────────
// Check lifecycle hooks
// ──────────────────────────────────────────────────

// AfterCheck is called after a permission check is evaluated.
// The req parameter is *permit.CheckRequest; result is *permit.CheckResult.
type AfterCheck interface {
	OnAfterCheck(ctx context.Context, req, result any) error
}

// ──────────────────────────────────────────────────
// Cache hooks
// ──────────────────────────────────────────────────

// CacheInvalidated is called after cached permissions are dropped.
// An empty subjectID means the whole cache was cleared.
type CacheInvalidated interface {
	OnCacheInvalidated(ctx context.Context, tenantID, subjectID string) error
}

// ──────────────────────────────────────────────────
// Shutdown hook
// ──────────────────────────────────────────────────

// Shutdown is called during graceful shutdown.
type Shutdown interface {
	OnShutdown(ctx context.Context) error
}
