package extension

import (
	"time"

	"github.com/xraph/permit"
)

// Config holds the permit extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.permit" or "permit" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// DisableAudit prevents writing resolution logs even when a store is
	// available.
	DisableAudit bool `json:"disable_audit" mapstructure:"disable_audit" yaml:"disable_audit"`

	// BaseURL is the permissions backend. When set and no fetcher is
	// supplied, a remote fetcher is built against it.
	BaseURL string `json:"base_url" mapstructure:"base_url" yaml:"base_url"`

	// FetchTimeout bounds each permission fetch.
	FetchTimeout time.Duration `json:"fetch_timeout" mapstructure:"fetch_timeout" yaml:"fetch_timeout"`

	// FallbackErrorMessage replaces an empty fetch error message.
	FallbackErrorMessage string `json:"fallback_error_message" mapstructure:"fallback_error_message" yaml:"fallback_error_message"`

	// CacheTTL enables the in-process permission cache when positive.
	CacheTTL time.Duration `json:"cache_ttl" mapstructure:"cache_ttl" yaml:"cache_ttl"`

	// CacheSize bounds the in-process cache (default: 10000).
	CacheSize int `json:"cache_size" mapstructure:"cache_size" yaml:"cache_size"`

	// RedisURL switches the permission cache to Redis. CacheTTL applies
	// to Redis entries too.
	RedisURL string `json:"redis_url" mapstructure:"redis_url" yaml:"redis_url"`

	// RedisPrefix namespaces Redis keys (default: "permit:perms:").
	RedisPrefix string `json:"redis_prefix" mapstructure:"redis_prefix" yaml:"redis_prefix"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		FetchTimeout:         10 * time.Second,
		FallbackErrorMessage: permit.DefaultFallbackErrorMessage,
		CacheSize:            10000,
	}
}

// engineConfig maps the extension config onto the engine config.
func (c Config) engineConfig() permit.Config {
	cfg := permit.DefaultConfig()
	cfg.FetchTimeout = c.FetchTimeout
	if c.FallbackErrorMessage != "" {
		cfg.FallbackErrorMessage = c.FallbackErrorMessage
	}
	return cfg
}
