// Package store defines the aggregate persistence interface. Backends:
// Postgres, SQLite, MongoDB and Memory.
package store

import (
	"context"

	"github.com/xraph/permit/resolutionlog"
)

// Store is the aggregate persistence interface.
// A single backend (postgres, sqlite, mongo, memory) implements it.
type Store interface {
	resolutionlog.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
