package extension

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/permit"
	"github.com/xraph/permit/plugin"
	"github.com/xraph/permit/store"
)

// ExtOption configures the permit Forge extension.
type ExtOption func(*Extension)

// WithStore sets the resolution log backend.
func WithStore(s store.Store) ExtOption {
	return func(e *Extension) {
		e.store = s
	}
}

// WithFetcher sets the permission fetcher. It takes precedence over
// Config.BaseURL.
func WithFetcher(f permit.Fetcher) ExtOption {
	return func(e *Extension) {
		e.permitOpts = append(e.permitOpts, permit.WithFetcher(f))
		e.hasFetcher = true
	}
}

// WithConfig sets the extension configuration.
func WithConfig(cfg Config) ExtOption {
	return func(e *Extension) {
		e.config = cfg
	}
}

// WithEngineOptions adds engine-level options.
func WithEngineOptions(opts ...permit.Option) ExtOption {
	return func(e *Extension) {
		e.permitOpts = append(e.permitOpts, opts...)
	}
}

// WithPlugin registers a lifecycle hook plugin.
func WithPlugin(x plugin.Plugin) ExtOption {
	return func(e *Extension) {
		e.plugins = append(e.plugins, x)
	}
}

// WithMetrics registers the Prometheus metrics plugin on registry.
func WithMetrics(registry *prometheus.Registry) ExtOption {
	return func(e *Extension) {
		e.metrics = registry
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) ExtOption {
	return func(e *Extension) {
		e.logger = l
	}
}

// WithDisableRoutes disables the registration of HTTP routes.
func WithDisableRoutes() ExtOption {
	return func(e *Extension) {
		e.config.DisableRoutes = true
	}
}

// WithDisableMigrate disables auto-migration on start.
func WithDisableMigrate() ExtOption {
	return func(e *Extension) {
		e.config.DisableMigrate = true
	}
}
