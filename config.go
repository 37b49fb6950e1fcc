package permit

import "time"

// DefaultFallbackErrorMessage is reported when a fetch error carries no
// message of its own.
const DefaultFallbackErrorMessage = "Failed to fetch permissions"

// Config holds configuration for the permit engine.
type Config struct {
	// FetchTimeout bounds each permission fetch. Zero means no timeout
	// beyond the caller's context.
	FetchTimeout time.Duration `json:"fetch_timeout,omitempty"`

	// FallbackErrorMessage replaces an empty fetch error message.
	FallbackErrorMessage string `json:"fallback_error_message,omitempty"`

	// DedupeFetches collapses concurrent identical fetches into one
	// network call. Defaults to true.
	DedupeFetches *bool `json:"dedupe_fetches,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	t := true
	return Config{
		FallbackErrorMessage: DefaultFallbackErrorMessage,
		DedupeFetches:        &t,
	}
}

func (c Config) dedupeEnabled() bool { return c.DedupeFetches == nil || *c.DedupeFetches }

func (c Config) fallbackMessage() string {
	if c.FallbackErrorMessage == "" {
		return DefaultFallbackErrorMessage
	}
	return c.FallbackErrorMessage
}
