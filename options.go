package permit

import (
	"log/slog"

	"github.com/xraph/permit/plugin"
	"github.com/xraph/permit/session"
)

// Option is a functional option for the Engine.
type Option func(*Engine)

// WithFetcher sets the permission fetcher.
func WithFetcher(f Fetcher) Option { return func(e *Engine) { e.fetcher = f } }

// WithSession sets the default session provider. A provider attached to
// the request context with session.NewContext takes precedence.
func WithSession(p session.Provider) Option { return func(e *Engine) { e.session = p } }

// WithCache sets the permission cache.
func WithCache(c Cache) Option { return func(e *Engine) { e.cache = c } }

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

// WithConfig sets the engine configuration.
func WithConfig(c Config) Option { return func(e *Engine) { e.config = c } }

// WithPlugin registers a plugin with the engine.
func WithPlugin(x plugin.Plugin) Option {
	return func(e *Engine) {
		if e.plugins == nil {
			e.plugins = plugin.NewRegistry(e.logger)
		}
		e.plugins.Register(x)
	}
}
