// Package storage defines the persistence contract the rotation engine
// consumes (spec.md §6): event append/range with total ordering, roster
// snapshot read/atomic write, the replacement store's materialized view,
// and config get/set. No SQL, no wire format is mandated by the contract
// itself — internal/storage/memory and internal/storage/sqlite are two
// interchangeable implementations of it.
package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/maxwell903/sdr-lead-rotation/internal/eventlog"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

// ErrDBNotInitialized is returned when a database-backed feature (like
// GetConfig) is used before the database has been opened.
var ErrDBNotInitialized = errors.New("database not initialized")

// Transaction provides atomic multi-operation support within a single
// underlying transaction, e.g. for roster reorder/upsert workflows that
// must densify and publish atomically.
//
// # Transaction semantics
//
//   - All operations within the transaction share the same connection.
//   - Changes are not visible to other connections until commit.
//   - If any operation returns an error, the transaction is rolled back
//     (the memory backend applies writes immediately and does not roll
//     them back).
//   - If the callback panics, the transaction is rolled back.
//   - On successful return from the callback, the transaction is committed.
//
// # SQLite specifics
//
//   - Uses BEGIN IMMEDIATE to acquire the write lock early, avoiding the
//     deadlocks that arise when multiple writers race for the same lock.
type Transaction interface {
	AppendEvent(ctx context.Context, event types.Event) (int64, error)
	WriteRoster(ctx context.Context, reps []types.Rep) error
	WriteReplacementRecords(ctx context.Context, records []types.ReplacementRecord) error
	SetConfig(ctx context.Context, key, value string) error
}

// Storage is the rotation engine's persistence port.
type Storage interface {
	// Event log (component C2). Range's filter and ordering guarantee
	// match eventlog.Log exactly; a Storage implementation's event methods
	// ARE its eventlog.Log.
	eventlog.Log

	// Roster (component C1): snapshot read, atomic replacement write.
	ReadRoster(ctx context.Context) ([]types.Rep, error)
	WriteRoster(ctx context.Context, reps []types.Rep) error

	// Replacement store (component C4): materialized derived view,
	// persisted for query performance but always reconstructable from the
	// event stream if lost.
	ReadReplacementRecords(ctx context.Context) ([]types.ReplacementRecord, error)
	WriteReplacementRecords(ctx context.Context, records []types.ReplacementRecord) error

	// Config get/set of key/value pairs persisted in the store. The
	// `rotctl config` commands work on the viper layer and do not call these.
	SetConfig(ctx context.Context, key, value string) error
	GetConfig(ctx context.Context, key string) (string, error)
	GetAllConfig(ctx context.Context) (map[string]string, error)

	// RunInTransaction executes fn within a single atomic transaction.
	// Used by roster mutation (reorder/upsert must densify then publish
	// as one unit) and by delete_lead's replacement-store cascade (the
	// compensating event and the record update must commit together).
	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error

	// Lifecycle.
	Close() error

	// Path returns the backing database file path, or "" for an
	// in-memory store.
	Path() string

	// UnderlyingDB returns the underlying *sql.DB, for tooling that needs
	// direct database access. Returns nil for a non-SQL-backed Storage.
	UnderlyingDB() *sql.DB
}
