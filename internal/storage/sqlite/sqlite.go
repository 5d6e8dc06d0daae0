// Package sqlite is the durable Storage backend (component of spec.md §6).
// It is a pure-Go SQLite: github.com/ncruces/go-sqlite3 runs the engine
// inside github.com/tetratelabs/wazero rather than linking libsqlite3
// through cgo, so rotctl cross-compiles and ships as a single static
// binary, the way the teacher's own CLI does.
//
// Writers across processes are serialized two ways, same as the teacher's
// own SQLite backend: SQLite's own BEGIN IMMEDIATE takes the write lock
// for the duration of a logical transaction, and a sibling *.lock file
// (github.com/gofrs/flock) covers the window between opening a dedicated
// connection and issuing BEGIN IMMEDIATE, where two rotctl invocations
// could otherwise both observe an unlocked database and race to acquire
// the SQLite-level lock.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofrs/flock"

	"github.com/maxwell903/sdr-lead-rotation/internal/eventlog"
	"github.com/maxwell903/sdr-lead-rotation/internal/storage"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

// Storage is a SQLite-backed storage.Storage.
type Storage struct {
	db   *sql.DB
	path string
	lock *flock.Flock

	// mirror is a JSONL append-only copy of the events table, one line per
	// event in seq order. It exists so an external fsnotify watcher (the
	// CLI's watch command) can observe "the log changed" by watching a
	// plain file's mtime, rather than polling SQLite itself.
	mirrorMu sync.Mutex
	mirror   *os.File

	subsMu sync.Mutex
	subs   map[int]func(int64)
	nextID int
}

// MirrorPath returns the JSONL mirror file path for dbPath, the file
// rotctl watch observes for cross-process change notification.
func MirrorPath(dbPath string) string {
	return dbPath + ".jsonl"
}

// New opens (creating if absent) the SQLite database at dbPath, applies
// schema, and returns a ready Storage.
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// PRAGMAs and schema setup run through the pool. journal_mode = WAL is
	// persistent in the database file; busy_timeout and foreign_keys are
	// per-connection settings and apply only to the pooled connection that
	// happened to execute them.
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set journal_mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy_timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, `PRAGMA foreign_keys = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set foreign_keys: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	mirror, err := os.OpenFile(MirrorPath(dbPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open jsonl mirror: %w", err)
	}

	return &Storage{
		db:     db,
		path:   dbPath,
		lock:   flock.New(dbPath + ".lock"),
		mirror: mirror,
		subs:   make(map[int]func(int64)),
	}, nil
}

func (s *Storage) Path() string         { return s.path }
func (s *Storage) UnderlyingDB() *sql.DB { return s.db }

func (s *Storage) Close() error {
	_ = s.mirror.Close()
	return s.db.Close()
}

// mirrorLine is the JSONL mirror's per-line shape: flat and
// self-describing, independent of the events table's column layout so the
// mirror stays human-diffable even if the schema changes.
type mirrorLine struct {
	Seq            int64            `json:"seq"`
	Ts             time.Time        `json:"ts"`
	Kind           types.EventKind  `json:"kind"`
	LeadID         string           `json:"lead_id,omitempty"`
	RepID          string           `json:"rep_id,omitempty"`
	Lane           types.Lane       `json:"lane,omitempty"`
	Day            int              `json:"day,omitempty"`
	Month          int              `json:"month,omitempty"`
	Year           int              `json:"year,omitempty"`
	SkipTarget     types.SkipTarget `json:"skip_target,omitempty"`
	OriginalLeadID string           `json:"original_lead_id,omitempty"`
	NewLeadID      string           `json:"new_lead_id,omitempty"`
}

func (s *Storage) writeMirrorLine(e types.Event) error {
	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()
	line, err := json.Marshal(mirrorLine{
		Seq: e.Seq, Ts: e.Ts, Kind: e.Kind,
		LeadID: e.LeadID, RepID: e.RepID, Lane: e.Lane,
		Day: e.Day, Month: e.Month, Year: e.Year,
		SkipTarget: e.SkipTarget, OriginalLeadID: e.OriginalLeadID, NewLeadID: e.NewLeadID,
	})
	if err != nil {
		return fmt.Errorf("encode mirror line: %w", err)
	}
	if _, err := s.mirror.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("write mirror line: %w", err)
	}
	return s.mirror.Sync()
}

// withWriteLock serializes fn against every other rotctl process touching
// this database file, then runs fn. Used by every method that writes, so
// that a writer never races another writer between opening its dedicated
// connection and acquiring SQLite's own write lock.
func (s *Storage) withWriteLock(ctx context.Context, fn func() error) error {
	locked, err := s.lock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return fmt.Errorf("acquire write lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire write lock: timed out")
	}
	defer func() { _ = s.lock.Unlock() }()
	return fn()
}

// beginImmediateWithRetry issues BEGIN IMMEDIATE on conn, retrying with
// backoff on SQLITE_BUSY the way the teacher's own writers do: busy_timeout
// alone does not always cover contention from another process's
// file-level lock.
func beginImmediateWithRetry(ctx context.Context, conn *sql.Conn) error {
	backoff := 10 * time.Millisecond
	for attempt := 0; attempt < 5; attempt++ {
		_, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE")
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "SQLITE_BUSY") && !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		time.Sleep(backoff)
		backoff *= 2
	}
	return fmt.Errorf("begin immediate: database still busy after retries")
}

// notify fires every Subscribe callback on its own goroutine, matching
// eventlog.Memory's fire-and-forget semantics.
func (s *Storage) notify(seq int64) {
	s.subsMu.Lock()
	fns := make([]func(int64), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subsMu.Unlock()
	for _, fn := range fns {
		go fn(seq)
	}
}

func (s *Storage) Subscribe(onChange func(latestSeq int64)) func() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = onChange
	return func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Storage) LatestSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events`).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("latest seq: %w", err)
	}
	return seq.Int64, nil
}

func (s *Storage) Append(ctx context.Context, event types.Event) (int64, error) {
	var seq int64
	err := s.withWriteLock(ctx, func() error {
		ts := event.Ts
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO events (ts, kind, lead_id, rep_id, lane, day, month, year, skip_target, original_lead_id, new_lead_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			ts, string(event.Kind), event.LeadID, event.RepID, string(event.Lane),
			event.Day, event.Month, event.Year, string(event.SkipTarget),
			event.OriginalLeadID, event.NewLeadID)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		seq = id
		return nil
	})
	if err != nil {
		return 0, err
	}
	mirrored := event
	mirrored.Seq = seq
	if mirrored.Ts.IsZero() {
		mirrored.Ts = time.Now().UTC()
	}
	if err := s.writeMirrorLine(mirrored); err != nil {
		return 0, err
	}
	s.notify(seq)
	return seq, nil
}

func (s *Storage) Range(ctx context.Context, filter eventlog.Filter) ([]types.Event, error) {
	// Lane filtering needs to keep skip(both) events regardless of lane, a
	// rule eventlog.Filter itself applies; the SQL query pulls a superset
	// (everything matching rep/seq bounds) and filter.matches narrows it,
	// rather than reimplementing that rule in SQL.
	var (
		where []string
		args  []any
	)
	if filter.RepID != "" {
		where = append(where, "rep_id = ?")
		args = append(args, filter.RepID)
	}
	if filter.Since != 0 {
		where = append(where, "seq > ?")
		args = append(args, filter.Since)
	}
	if filter.Through != 0 {
		where = append(where, "seq <= ?")
		args = append(args, filter.Through)
	}

	query := "SELECT seq, ts, kind, lead_id, rep_id, lane, day, month, year, skip_target, original_lead_id, new_lead_id FROM events"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("range events: %w", err)
	}
	defer rows.Close()

	var out []types.Event
	for rows.Next() {
		var (
			e                      types.Event
			kind, lane, skipTarget string
		)
		if err := rows.Scan(&e.Seq, &e.Ts, &kind, &e.LeadID, &e.RepID, &lane,
			&e.Day, &e.Month, &e.Year, &skipTarget, &e.OriginalLeadID, &e.NewLeadID); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		e.Kind = types.EventKind(kind)
		e.Lane = types.Lane(lane)
		e.SkipTarget = types.SkipTarget(skipTarget)
		if !filterMatchesLane(filter, e) {
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// filterMatchesLane re-applies eventlog.Filter's lane rule (skip(both)
// always passes) since the SQL query above does not filter on lane.
func filterMatchesLane(filter eventlog.Filter, e types.Event) bool {
	if filter.Lane == "" || e.Lane == filter.Lane {
		return true
	}
	return e.Kind == types.EventSkip && e.SkipTarget == types.SkipTargetBoth
}

func (s *Storage) ReadRoster(ctx context.Context) ([]types.Rep, error) {
	var snapshot string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM roster WHERE id = 1`).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var reps []types.Rep
	if err := json.Unmarshal([]byte(snapshot), &reps); err != nil {
		return nil, fmt.Errorf("decode roster: %w", err)
	}
	return reps, nil
}

func (s *Storage) WriteRoster(ctx context.Context, reps []types.Rep) error {
	return s.withWriteLock(ctx, func() error { return writeRoster(ctx, s.db, reps) })
}

func writeRoster(ctx context.Context, execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, reps []types.Rep) error {
	snapshot, err := json.Marshal(reps)
	if err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}
	_, err = execer.ExecContext(ctx, `
		INSERT INTO roster (id, snapshot, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = CURRENT_TIMESTAMP`,
		string(snapshot))
	if err != nil {
		return fmt.Errorf("write roster: %w", err)
	}
	return nil
}

func (s *Storage) ReadReplacementRecords(ctx context.Context) ([]types.ReplacementRecord, error) {
	var snapshot string
	err := s.db.QueryRowContext(ctx, `SELECT snapshot FROM replacement_records WHERE id = 1`).Scan(&snapshot)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read replacement records: %w", err)
	}
	var rows []replacementRow
	if err := json.Unmarshal([]byte(snapshot), &rows); err != nil {
		return nil, fmt.Errorf("decode replacement records: %w", err)
	}
	out := make([]types.ReplacementRecord, len(rows))
	for i, row := range rows {
		out[i] = row.toRecord()
	}
	return out, nil
}

func (s *Storage) WriteReplacementRecords(ctx context.Context, records []types.ReplacementRecord) error {
	return s.withWriteLock(ctx, func() error { return writeReplacementRecords(ctx, s.db, records) })
}

func writeReplacementRecords(ctx context.Context, execer interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, records []types.ReplacementRecord) error {
	rows := make([]replacementRow, len(records))
	for i, rec := range records {
		rows[i] = newReplacementRow(rec)
	}
	snapshot, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode replacement records: %w", err)
	}
	_, err = execer.ExecContext(ctx, `
		INSERT INTO replacement_records (id, snapshot, updated_at) VALUES (1, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET snapshot = excluded.snapshot, updated_at = CURRENT_TIMESTAMP`,
		string(snapshot))
	if err != nil {
		return fmt.Errorf("write replacement records: %w", err)
	}
	return nil
}

// replacementRow is the JSON-serializable shadow of types.ReplacementRecord:
// ReplacementRecord deliberately keeps its closed/open state behind an
// unexported pointer (illegal states unrepresentable), which also makes it
// unmarshalable by encoding/json directly. The storage layer owns this
// mapping rather than exporting the field, so the sum-type invariant stays
// enforced everywhere outside this package.
type replacementRow struct {
	MarkID         string
	OriginalLeadID string
	RepID          string
	Lane           types.Lane
	AccountNumber  string
	URL            string
	MarkedAt       time.Time

	Closed           bool
	ReplacedByLeadID string
	ReplacedAt       time.Time
}

func newReplacementRow(rec types.ReplacementRecord) replacementRow {
	row := replacementRow{
		MarkID:         rec.MarkID,
		OriginalLeadID: rec.OriginalLeadID,
		RepID:          rec.RepID,
		Lane:           rec.Lane,
		AccountNumber:  rec.AccountNumber,
		URL:            rec.URL,
		MarkedAt:       rec.MarkedAt,
	}
	if leadID, ok := rec.ReplacedByLeadID(); ok {
		row.Closed = true
		row.ReplacedByLeadID = leadID
		row.ReplacedAt, _ = rec.ReplacedAt()
	}
	return row
}

func (row replacementRow) toRecord() types.ReplacementRecord {
	rec := types.NewOpenRecord(row.MarkID, row.OriginalLeadID, row.RepID, row.Lane, row.AccountNumber, row.URL, row.MarkedAt)
	if row.Closed {
		rec = rec.Close(row.ReplacedByLeadID, row.ReplacedAt)
	}
	return rec
}

func (s *Storage) SetConfig(ctx context.Context, key, value string) error {
	return s.withWriteLock(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO config (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
		if err != nil {
			return fmt.Errorf("set config: %w", err)
		}
		return nil
	})
}

func (s *Storage) GetConfig(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM config WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get config: %w", err)
	}
	return value, nil
}

func (s *Storage) GetAllConfig(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM config`)
	if err != nil {
		return nil, fmt.Errorf("get all config: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan config row: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// transaction is the SQLite Transaction: a dedicated connection holding a
// BEGIN IMMEDIATE lock, so every write within it is visible to the others
// immediately and nothing else can write until it commits or rolls back.
// transaction buffers the events it appends in pending rather than
// mirroring them immediately: the mirror file has no rollback of its own,
// so a rolled-back transaction must never have written lines for events
// that never actually committed. RunInTransaction flushes pending to the
// mirror only after COMMIT succeeds.
type transaction struct {
	conn    *sql.Conn
	pending *[]types.Event
}

func (t transaction) AppendEvent(ctx context.Context, event types.Event) (int64, error) {
	ts := event.Ts
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	res, err := t.conn.ExecContext(ctx, `
		INSERT INTO events (ts, kind, lead_id, rep_id, lane, day, month, year, skip_target, original_lead_id, new_lead_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ts, string(event.Kind), event.LeadID, event.RepID, string(event.Lane),
		event.Day, event.Month, event.Year, string(event.SkipTarget),
		event.OriginalLeadID, event.NewLeadID)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	mirrored := event
	mirrored.Seq, mirrored.Ts = seq, ts
	*t.pending = append(*t.pending, mirrored)
	return seq, nil
}

func (t transaction) WriteRoster(ctx context.Context, reps []types.Rep) error {
	return writeRoster(ctx, t.conn, reps)
}

func (t transaction) WriteReplacementRecords(ctx context.Context, records []types.ReplacementRecord) error {
	return writeReplacementRecords(ctx, t.conn, records)
}

func (t transaction) SetConfig(ctx context.Context, key, value string) error {
	_, err := t.conn.ExecContext(ctx, `
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("set config: %w", err)
	}
	return nil
}

// RunInTransaction acquires the cross-process write lock, opens a
// dedicated connection, and issues BEGIN IMMEDIATE on it so fn's writes
// commit or roll back as one unit (spec.md §6's "reorder/upsert must
// densify then publish atomically", and delete_lead's replacement-store
// cascade, which must commit its compensating event alongside the record
// update).
func (s *Storage) RunInTransaction(ctx context.Context, fn func(tx storage.Transaction) error) error {
	return s.withWriteLock(ctx, func() error {
		conn, err := s.db.Conn(ctx)
		if err != nil {
			return fmt.Errorf("acquire connection: %w", err)
		}
		defer func() { _ = conn.Close() }()

		if err := beginImmediateWithRetry(ctx, conn); err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		committed := false
		defer func() {
			if !committed {
				_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
			}
		}()

		var lastSeq int64
		_ = s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events`).Scan(&lastSeq)

		var pending []types.Event
		if err := fn(transaction{conn: conn, pending: &pending}); err != nil {
			return err
		}

		if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		committed = true

		for _, e := range pending {
			if err := s.writeMirrorLine(e); err != nil {
				return err
			}
		}

		var newSeq int64
		if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM events`).Scan(&newSeq); err == nil && newSeq > lastSeq {
			s.notify(newSeq)
		}
		return nil
	})
}

var _ storage.Storage = (*Storage)(nil)
