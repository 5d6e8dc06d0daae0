// Package memory is the in-memory Storage backend, used by --no-db mode
// and by every test in this module that does not specifically exercise
// the SQLite backend. It composes eventlog.Memory for the event log and
// guards roster/replacement/config state with its own mutex.
package memory

import (
	"context"
	"database/sql"
	"sync"

	"github.com/maxwell903/sdr-lead-rotation/internal/eventlog"
	"github.com/maxwell903/sdr-lead-rotation/internal/storage"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

// Store is an in-memory implementation of storage.Storage.
type Store struct {
	*eventlog.Memory

	mu      sync.Mutex
	roster  []types.Rep
	records []types.ReplacementRecord
	config  map[string]string
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		Memory: eventlog.NewMemory(),
		config: make(map[string]string),
	}
}

func (s *Store) ReadRoster(_ context.Context) ([]types.Rep, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Rep, len(s.roster))
	copy(out, s.roster)
	return out, nil
}

func (s *Store) WriteRoster(_ context.Context, reps []types.Rep) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roster = make([]types.Rep, len(reps))
	copy(s.roster, reps)
	return nil
}

func (s *Store) ReadReplacementRecords(_ context.Context) ([]types.ReplacementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ReplacementRecord, len(s.records))
	copy(out, s.records)
	return out, nil
}

func (s *Store) WriteReplacementRecords(_ context.Context, records []types.ReplacementRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make([]types.ReplacementRecord, len(records))
	copy(s.records, records)
	return nil
}

func (s *Store) SetConfig(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config[key] = value
	return nil
}

func (s *Store) GetConfig(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config[key], nil
}

func (s *Store) GetAllConfig(_ context.Context) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.config))
	for k, v := range s.config {
		out[k] = v
	}
	return out, nil
}

// transaction is the in-memory Transaction: since Store already serializes
// every write behind its own mutex, a "transaction" here is just a view
// over Store with no separate connection to coordinate.
type transaction struct {
	store *Store
	ctx   context.Context
}

func (t transaction) AppendEvent(ctx context.Context, event types.Event) (int64, error) {
	return t.store.Memory.Append(ctx, event)
}

func (t transaction) WriteRoster(ctx context.Context, reps []types.Rep) error {
	return t.store.WriteRoster(ctx, reps)
}

func (t transaction) WriteReplacementRecords(ctx context.Context, records []types.ReplacementRecord) error {
	return t.store.WriteReplacementRecords(ctx, records)
}

func (t transaction) SetConfig(ctx context.Context, key, value string) error {
	return t.store.SetConfig(ctx, key, value)
}

// RunInTransaction runs fn with no isolation beyond Store's own per-method
// locking: the in-memory backend has no concept of a connection pool to
// serialize against, unlike sqlite's RunInTransaction. Writes are applied
// as fn makes them; those made before fn returns an error are not undone.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	return fn(transaction{store: s, ctx: ctx})
}

func (s *Store) Close() error { return nil }

func (s *Store) Path() string { return "" }

func (s *Store) UnderlyingDB() *sql.DB { return nil }

var _ storage.Storage = (*Store)(nil)
