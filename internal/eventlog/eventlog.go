// Package eventlog is the append-only, totally ordered event stream
// (spec.md §4.2, component C2). Log is the persistence-port contract of
// §6: append_event, read_events, subscribe. Two implementations exist —
// an in-memory Log here for tests and single-process use, and a
// SQLite-backed one in internal/storage/sqlite for durable multi-process
// use — both satisfying this same interface.
package eventlog

import (
	"context"
	"sort"
	"sync"

	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

// Filter narrows a range read. A zero-value Filter matches everything.
type Filter struct {
	Lane    types.Lane // zero value matches all lanes
	RepID   string     // empty matches all reps
	Since   int64      // Seq > Since; zero means no lower bound
	Through int64      // Seq <= Through; zero means no upper bound
}

func (f Filter) matches(e types.Event) bool {
	if f.Lane != "" && e.Lane != f.Lane {
		// Skip(target=both) contributes to both lanes and is never
		// filtered out by lane.
		if !(e.Kind == types.EventSkip && e.SkipTarget == types.SkipTargetBoth) {
			return false
		}
	}
	if f.RepID != "" && e.RepID != f.RepID {
		return false
	}
	if f.Since != 0 && e.Seq <= f.Since {
		return false
	}
	if f.Through != 0 && e.Seq > f.Through {
		return false
	}
	return true
}

// Log is the event-log persistence port consumed by the derivation
// pipeline (spec.md §6).
type Log interface {
	// Append assigns the next sequence number and stores event,
	// returning the assigned Seq. Atomic: the event is either fully
	// visible to subsequent reads or not visible at all (spec.md §5).
	Append(ctx context.Context, event types.Event) (int64, error)

	// Range returns every event matching filter, ordered by Seq
	// ascending (spec.md's single source of truth for ordering).
	Range(ctx context.Context, filter Filter) ([]types.Event, error)

	// Subscribe registers onChange to be called (on a background
	// goroutine) after every successful Append. The returned function
	// unregisters the subscription. This is the cache-invalidation hook
	// described in spec.md §9: derived views are keyed by event_seq, and
	// a subscriber simply needs to know "something changed", not what.
	Subscribe(onChange func(latestSeq int64)) (unsubscribe func())

	// LatestSeq returns the highest sequence number appended so far, or 0
	// if the log is empty.
	LatestSeq(ctx context.Context) (int64, error)
}

// Memory is an in-process Log backed by a slice, guarded by a mutex. It
// is the backend used by --no-db mode and by every unit test in this
// module.
type Memory struct {
	mu     sync.Mutex
	events []types.Event
	seq    int64
	subs   map[int]func(int64)
	nextID int
}

// NewMemory returns an empty in-memory log.
func NewMemory() *Memory {
	return &Memory{subs: make(map[int]func(int64))}
}

func (m *Memory) Append(_ context.Context, event types.Event) (int64, error) {
	m.mu.Lock()
	m.seq++
	event.Seq = m.seq
	m.events = append(m.events, event)
	seq := m.seq
	subs := make([]func(int64), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.mu.Unlock()

	for _, fn := range subs {
		go fn(seq)
	}
	return seq, nil
}

func (m *Memory) Range(_ context.Context, filter Filter) ([]types.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]types.Event, 0, len(m.events))
	for _, e := range m.events {
		if filter.matches(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *Memory) Subscribe(onChange func(latestSeq int64)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs[id] = onChange
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.subs, id)
	}
}

func (m *Memory) LatestSeq(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seq, nil
}
