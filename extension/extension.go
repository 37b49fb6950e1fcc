// Package extension provides a Forge extension entry point for permit.
package extension

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/permit"
	"github.com/xraph/permit/api"
	"github.com/xraph/permit/cache"
	"github.com/xraph/permit/client"
	"github.com/xraph/permit/fetcher/remote"
	"github.com/xraph/permit/plugin"
	"github.com/xraph/permit/plugin/audit"
	"github.com/xraph/permit/plugin/metrics"
	"github.com/xraph/permit/store"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "permit"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Session-aware permission resolution with owner bypass, caching and audit"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts permit as a Forge extension.
type Extension struct {
	config     Config
	eng        *permit.Engine
	apiHandler *api.API
	logger     *slog.Logger
	permitOpts []permit.Option
	plugins    []plugin.Plugin
	hasFetcher bool
	store      store.Store
	metrics    *prometheus.Registry
	metricsPlg *metrics.Plugin
	redis      *cache.Redis
}

// New creates a permit Forge extension with the given options.
func New(opts ...ExtOption) *Extension {
	e := &Extension{config: DefaultConfig()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the extension name.
func (e *Extension) Name() string { return ExtensionName }

// Description returns the extension description.
func (e *Extension) Description() string { return ExtensionDescription }

// Version returns the extension version.
func (e *Extension) Version() string { return ExtensionVersion }

// Dependencies returns the list of extension names this extension depends on.
func (e *Extension) Dependencies() []string { return []string{} }

// Engine returns the underlying permit engine.
func (e *Extension) Engine() *permit.Engine { return e.eng }

// API returns the API handler.
func (e *Extension) API() *api.API { return e.apiHandler }

// Metrics returns the metrics plugin, or nil when WithMetrics was not used.
func (e *Extension) Metrics() *metrics.Plugin { return e.metricsPlg }

// Register implements [forge.Extension]. It initializes the engine,
// registers it in the DI container, and optionally registers HTTP routes.
func (e *Extension) Register(fapp forge.App) error {
	if s, err := forge.Inject[store.Store](fapp.Container()); err == nil && e.store == nil {
		e.store = s
	}

	if err := e.init(fapp.Router()); err != nil {
		return err
	}

	if err := vessel.Provide(fapp.Container(), func() (*permit.Engine, error) {
		return e.eng, nil
	}); err != nil {
		return fmt.Errorf("permit: register engine in container: %w", err)
	}

	return nil
}

func (e *Extension) init(router forge.Router) error {
	logger := e.logger
	if logger == nil {
		logger = slog.Default()
	}

	opts := make([]permit.Option, 0, len(e.permitOpts)+len(e.plugins)+6)
	opts = append(opts,
		permit.WithLogger(logger),
		permit.WithConfig(e.config.engineConfig()),
	)

	if !e.hasFetcher && e.config.BaseURL != "" {
		c, err := client.New(
			client.WithBaseURL(e.config.BaseURL),
			client.WithTimeout(e.config.FetchTimeout),
			client.WithLogger(logger),
		)
		if err != nil {
			return fmt.Errorf("permit: create client: %w", err)
		}
		opts = append(opts, permit.WithFetcher(remote.New(c)))
	}

	c, err := e.buildCache(logger)
	if err != nil {
		return err
	}
	if c != nil {
		opts = append(opts, permit.WithCache(c))
	}

	// User-provided options may override anything above.
	opts = append(opts, e.permitOpts...)

	if e.store != nil && !e.config.DisableAudit {
		opts = append(opts, permit.WithPlugin(audit.New(e.store, audit.WithLogger(logger))))
	}
	if e.metrics != nil {
		e.metricsPlg = metrics.New(e.metrics)
		opts = append(opts, permit.WithPlugin(e.metricsPlg))
	}
	for _, x := range e.plugins {
		opts = append(opts, permit.WithPlugin(x))
	}

	eng, err := permit.NewEngine(opts...)
	if err != nil {
		return fmt.Errorf("permit: create engine: %w", err)
	}
	e.eng = eng

	e.apiHandler = api.New(eng, e.store, router)

	if !e.config.DisableRoutes && router != nil {
		if err := e.apiHandler.RegisterRoutes(router); err != nil {
			return fmt.Errorf("permit: register routes: %w", err)
		}
	}

	return nil
}

// buildCache returns the Redis cache when RedisURL is set, the in-process
// cache when CacheTTL is positive, and nil otherwise.
func (e *Extension) buildCache(logger *slog.Logger) (permit.Cache, error) {
	if e.config.RedisURL != "" {
		ropts := []cache.RedisOption{cache.WithLogger(logger)}
		if e.config.CacheTTL > 0 {
			ropts = append(ropts, cache.WithRedisTTL(e.config.CacheTTL))
		}
		if e.config.RedisPrefix != "" {
			ropts = append(ropts, cache.WithPrefix(e.config.RedisPrefix))
		}
		r, err := cache.NewRedisFromURL(e.config.RedisURL, ropts...)
		if err != nil {
			return nil, fmt.Errorf("permit: create redis cache: %w", err)
		}
		e.redis = r
		return r, nil
	}
	if e.config.CacheTTL > 0 {
		mopts := []cache.MemoryOption{cache.WithTTL(e.config.CacheTTL)}
		if e.config.CacheSize > 0 {
			mopts = append(mopts, cache.WithMaxSize(e.config.CacheSize))
		}
		return cache.NewMemory(mopts...), nil
	}
	return nil, nil
}

// Start runs migrations if enabled and starts the engine.
func (e *Extension) Start(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("permit: extension not initialized")
	}

	if !e.config.DisableMigrate && e.store != nil {
		if err := e.store.Migrate(ctx); err != nil {
			return fmt.Errorf("permit: migration failed: %w", err)
		}
	}

	return e.eng.Start(ctx)
}

// Stop gracefully shuts down the engine and closes the Redis cache it
// created.
func (e *Extension) Stop(ctx context.Context) error {
	if e.eng == nil {
		return nil
	}
	err := e.eng.Stop(ctx)
	if e.redis != nil {
		err = errors.Join(err, e.redis.Close())
	}
	return err
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.eng == nil {
		return errors.New("permit: extension not initialized")
	}
	if e.store != nil {
		if err := e.store.Ping(ctx); err != nil {
			return err
		}
	}
	if e.redis != nil {
		return e.redis.Ping(ctx)
	}
	return nil
}

// Handler returns the HTTP handler for all API routes.
func (e *Extension) Handler() http.Handler {
	if e.apiHandler == nil {
		return http.NotFoundHandler()
	}
	return e.apiHandler.Handler()
}

// RegisterRoutes registers all permit API routes into a Forge router.
func (e *Extension) RegisterRoutes(router forge.Router) error {
	if e.apiHandler != nil {
		return e.apiHandler.RegisterRoutes(router)
	}
	return nil
}
