// Package store defines the aggregate persistence interface. Each
// subsystem (principal, assignment, decisionlog) defines its own store
// interface; the composite Store composes them all.
// Backends: Postgres, SQLite, MongoDB, and Memory.
package store

import (
	"context"

	"github.com/xraph/arbiter/assignment"
	"github.com/xraph/arbiter/decisionlog"
	"github.com/xraph/arbiter/principal"
)

// Store is the aggregate persistence interface. A single backend
// (postgres, sqlite, mongo, memory) implements all of them.
type Store interface {
	principal.Store
	assignment.Store
	decisionlog.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}
