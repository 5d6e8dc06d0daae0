package sqlite

// schema is applied with CREATE TABLE/INDEX IF NOT EXISTS on every open, so
// opening an existing database is idempotent; there is no separate
// migration runner and no schema version is recorded.
const schema = `
CREATE TABLE IF NOT EXISTS events (
    seq INTEGER PRIMARY KEY AUTOINCREMENT,
    ts DATETIME NOT NULL,
    kind TEXT NOT NULL,
    lead_id TEXT NOT NULL DEFAULT '',
    rep_id TEXT NOT NULL DEFAULT '',
    lane TEXT NOT NULL DEFAULT '',
    day INTEGER NOT NULL DEFAULT 0,
    month INTEGER NOT NULL DEFAULT 0,
    year INTEGER NOT NULL DEFAULT 0,
    skip_target TEXT NOT NULL DEFAULT '',
    original_lead_id TEXT NOT NULL DEFAULT '',
    new_lead_id TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_events_lane ON events(lane);
CREATE INDEX IF NOT EXISTS idx_events_rep_id ON events(rep_id);

-- roster and replacement_records each hold a single JSON-encoded snapshot
-- under a fixed id, matching the engine's "whole-roster atomic write"
-- semantics (spec.md §6 upsert/reorder must densify then publish as one
-- unit) rather than one row per rep.
CREATE TABLE IF NOT EXISTS roster (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    snapshot TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS replacement_records (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    snapshot TEXT NOT NULL,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS config (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`
