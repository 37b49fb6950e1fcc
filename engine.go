package permit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xraph/permit/id"
	"github.com/xraph/permit/normalize"
	"github.com/xraph/permit/permission"
	"github.com/xraph/permit/plugin"
	"github.com/xraph/permit/session"
)

// Engine resolves subject permissions. It owns the fetcher, the optional
// shared cache and the plugin registry, and is safe for concurrent use.
type Engine struct {
	fetcher Fetcher
	session session.Provider
	cache   Cache
	plugins *plugin.Registry
	logger  *slog.Logger
	config  Config

	flight singleflight.Group

	mu        sync.Mutex
	lastToken string
	tokenSeen bool
}

// NewEngine creates a new permit engine with the given options.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		logger: slog.Default(),
		config: DefaultConfig(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.fetcher == nil {
		return nil, ErrFetcherRequired
	}
	if e.session == nil {
		e.session = session.FromStore(session.NewMapStore(nil))
	}
	if e.plugins != nil {
		e.plugins.SetLogger(e.logger)
	}
	return e, nil
}

// Plugins returns the plugin registry (may be nil).
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Cache returns the configured cache (may be nil).
func (e *Engine) Cache() Cache { return e.cache }

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.config }

// Start performs any startup initialization.
func (e *Engine) Start(_ context.Context) error { return nil }

// Stop performs graceful shutdown.
func (e *Engine) Stop(ctx context.Context) error {
	if e.plugins != nil {
		e.plugins.EmitShutdown(ctx)
	}
	return nil
}

// Resolve determines the permissions of req.SubjectID. It never returns an
// error: every failure is reported through PhaseFailed with an empty
// permission set.
func (e *Engine) Resolve(ctx context.Context, req Request) *Resolution {
	start := time.Now()
	scope := scopeFromContext(ctx)

	res := &Resolution{
		ID:       id.NewResolutionID(),
		Request:  req,
		TenantID: scope.tenantID,
		AppID:    scope.appID,
		Phase:    PhaseLoading,
	}

	if e.plugins != nil {
		e.plugins.EmitBeforeResolve(ctx, req)
	}

	e.resolve(ctx, scope, res)
	res.Duration = time.Since(start)

	if e.plugins != nil {
		e.plugins.EmitAfterResolve(ctx, res)
	}
	return res
}

func (e *Engine) resolve(ctx context.Context, scope tenantScope, res *Resolution) {
	req := res.Request
	provider, own := e.provider(ctx)
	token := provider.Token(ctx)
	if !own {
		e.observeToken(ctx, token)
	}

	// 1. Owner bypass: no fetch, universal set. The default session is
	// trusted; a request-scoped one must have its token verified.
	if session.IsOwner(token) && (!own || session.IsVerified(provider)) {
		res.Phase = PhaseResolvedOwner
		res.IsOwner = true
		res.Permissions = permission.Universal()
		e.logger.Debug("permit: owner bypass", slog.String("subject_id", req.SubjectID))
		return
	}

	// 2. Nothing to resolve without a subject.
	if req.SubjectID == "" {
		res.Phase = PhaseNoSubject
		res.Permissions = permission.Set{}
		return
	}

	if req.ProjectScope && req.ScopeID == "" {
		e.fail(ctx, res, ErrScopeRequired, ErrScopeRequired.Error())
		return
	}

	key := CacheKey{
		TenantID:  scope.tenantID,
		SubjectID: req.SubjectID,
		Scope:     req.Scope(),
		ScopeID:   req.ScopeID,
	}

	// 3. Shared cache.
	if e.cache != nil {
		if perms, ok := e.cache.Get(ctx, key); ok {
			res.Phase = PhaseResolvedFetched
			res.Permissions = perms
			res.FromCache = true
			e.logger.Debug("permit: cache hit", slog.String("key", key.String()))
			return
		}
	}

	// 4. Fetch and normalize.
	perms, err := e.fetch(ctx, provider, token, key, req)
	if err != nil {
		e.fail(ctx, res, fmt.Errorf("%w: %w", ErrFetchFailed, err), failureMessage(err, e.config.fallbackMessage()))
		return
	}

	res.Phase = PhaseResolvedFetched
	res.Permissions = perms

	if e.cache != nil {
		e.cache.Set(ctx, key, perms.Clone())
	}
}

func (e *Engine) fail(ctx context.Context, res *Resolution, err error, msg string) {
	res.Phase = PhaseFailed
	res.Permissions = permission.Set{}
	res.Err = err
	res.Error = msg

	e.logger.Warn("permit: resolve failed",
		slog.String("subject_id", res.Request.SubjectID),
		slog.String("scope", string(res.Request.Scope())),
		slog.String("scope_id", res.Request.ScopeID),
		slog.String("error", err.Error()),
	)

	if e.plugins != nil {
		e.plugins.EmitResolveFailed(ctx, res, err)
	}
}

// fetch performs the network call. Concurrent identical fetches share one
// call; the shared call is detached from any single caller's cancellation
// and each caller stops waiting when its own context ends.
func (e *Engine) fetch(ctx context.Context, provider session.Provider, token string, key CacheKey, req Request) (permission.Set, error) {
	if !e.config.dedupeEnabled() {
		return e.fetchOnce(ctx, provider, req)
	}

	ch := e.flight.DoChan(key.String()+"\x00"+token, func() (any, error) {
		return e.fetchOnce(context.WithoutCancel(ctx), provider, req)
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		perms, _ := r.Val.(permission.Set)
		return perms.Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (e *Engine) fetchOnce(ctx context.Context, provider session.Provider, req Request) (permission.Set, error) {
	ctx = session.NewContext(ctx, provider)
	if e.config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.FetchTimeout)
		defer cancel()
	}

	var (
		raw json.RawMessage
		err error
	)
	if req.ProjectScope {
		raw, err = e.fetcher.FetchProjectScopePermissions(ctx, req.ScopeID, req.SubjectID)
	} else {
		raw, err = e.fetcher.FetchEnterpriseScopePermissions(ctx, req.SubjectID)
	}
	if err != nil {
		return nil, err
	}

	e.logger.Debug("permit: permissions fetched",
		slog.String("subject_id", req.SubjectID),
		slog.String("scope", string(req.Scope())),
	)
	return permission.Set(permission.Decode(normalize.ExtractArray(raw))), nil
}

// provider returns the session for ctx and whether it came from ctx
// rather than the engine default.
func (e *Engine) provider(ctx context.Context) (session.Provider, bool) {
	if p, ok := session.FromContext(ctx); ok {
		return p, true
	}
	return e.session, false
}

// observeToken clears the cache when the default session's token differs
// from the one seen on the previous resolution.
func (e *Engine) observeToken(ctx context.Context, token string) {
	e.mu.Lock()
	changed := e.tokenSeen && token != e.lastToken
	e.lastToken = token
	e.tokenSeen = true
	e.mu.Unlock()

	if changed {
		e.logger.Debug("permit: session token changed")
		e.clearCache(ctx)
	}
}

// InvalidateSubject drops cached permissions of one subject in the tenant
// carried by ctx.
func (e *Engine) InvalidateSubject(ctx context.Context, subjectID string) {
	if e.cache == nil {
		return
	}
	tenantID := scopeFromContext(ctx).tenantID
	e.cache.InvalidateSubject(ctx, tenantID, subjectID)
	if e.plugins != nil {
		e.plugins.EmitCacheInvalidated(ctx, tenantID, subjectID)
	}
}

// Logout drops every cached permission list and forgets the last seen
// session token.
func (e *Engine) Logout(ctx context.Context) {
	e.mu.Lock()
	e.lastToken = ""
	e.tokenSeen = false
	e.mu.Unlock()
	e.clearCache(ctx)
}

func (e *Engine) clearCache(ctx context.Context) {
	if e.cache == nil {
		return
	}
	e.cache.Clear(ctx)
	if e.plugins != nil {
		e.plugins.EmitCacheInvalidated(ctx, "", "")
	}
}

type messager interface {
	ErrorMessage() string
}

// failureMessage prefers a server-supplied message, then the error text,
// then fallback.
func failureMessage(err error, fallback string) string {
	var m messager
	if errors.As(err, &m) {
		if s := m.ErrorMessage(); s != "" {
			return s
		}
	}
	if s := err.Error(); s != "" {
		return s
	}
	return fallback
}
