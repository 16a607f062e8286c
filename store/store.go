// Package store defines the storage interface behind a license registry.
//
// The registry keeps its working state in memory and persists nothing but
// the append-only record log, so a backend only has to append and list
// records. Backends live in the subpackages memory, sqlite, postgres and
// mongo.
package store

import (
	"context"

	"github.com/xraph/licensing/record"
)

// Store is the unified storage interface for the license registry.
type Store interface {
	record.Store

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
