// Package roster maintains the active-rep list and per-lane base orders
// (spec.md §4.1, component C1). It is one of the two pieces of mutable
// shared state the engine holds directly in memory, beside the replacement
// store; every mutation densifies
// orders and bumps a version counter so derived caches elsewhere
// (hits, sequence, overlay) know to recompute (spec.md §9 re-architecture
// note).
package roster

import (
	"fmt"
	"sort"
	"sync"

	"github.com/maxwell903/sdr-lead-rotation/internal/rotationerr"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

// Roster holds the current rep set and base orders for both lanes.
type Roster struct {
	mu      sync.RWMutex
	reps    map[string]types.Rep
	version uint64
}

// New returns an empty roster.
func New() *Roster {
	return &Roster{reps: make(map[string]types.Rep)}
}

// Version returns the roster's current version. It increments on every
// mutation (upsert, remove, reorder) and is part of the derived-view cache
// key described in spec.md §9.
func (r *Roster) Version() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version
}

// ListActive returns active reps for lane, sorted by the lane's base
// order. For lane=1kplus only reps with CanHandle1kPlus are included.
// The returned slice is a fresh copy; callers may not mutate the roster
// through it.
func (r *Roster) ListActive(lane types.Lane) []types.Rep {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listActiveLocked(lane)
}

func (r *Roster) listActiveLocked(lane types.Lane) []types.Rep {
	var out []types.Rep
	for _, rep := range r.reps {
		if rep.Status != types.RepActive {
			continue
		}
		if lane == types.Lane1kPlus && !rep.Parameters.CanHandle1kPlus {
			continue
		}
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, _ := out[i].OrderForLane(lane)
		oj, _ := out[j].OrderForLane(lane)
		return oi < oj
	})
	return out
}

// Get returns a single rep by id.
func (r *Roster) Get(id string) (types.Rep, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rep, ok := r.reps[id]
	return rep, ok
}

// Reorder replaces lane's base order with newOrder, a list of rep ids in
// their desired position. newOrder must be exactly the set of reps
// currently eligible for lane (active, and CanHandle1kPlus for the
// 1kplus lane); otherwise ErrInvalidOrder.
func (r *Roster) Reorder(lane types.Lane, newOrder []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	eligible := r.listActiveLocked(lane)
	if len(eligible) != len(newOrder) {
		return fmt.Errorf("reorder lane %s: %w: expected %d reps, got %d", lane, rotationerr.ErrInvalidOrder, len(eligible), len(newOrder))
	}
	seen := make(map[string]bool, len(eligible))
	for _, rep := range eligible {
		seen[rep.ID] = true
	}
	position := make(map[string]int, len(newOrder))
	for i, id := range newOrder {
		if !seen[id] {
			return fmt.Errorf("reorder lane %s: %w: %s is not eligible for this lane", lane, rotationerr.ErrInvalidOrder, id)
		}
		if _, dup := position[id]; dup {
			return fmt.Errorf("reorder lane %s: %w: %s appears twice", lane, rotationerr.ErrInvalidOrder, id)
		}
		position[id] = i + 1
	}

	for id, pos := range position {
		rep := r.reps[id]
		switch lane {
		case types.LaneSub1k:
			rep.Sub1kOrder = pos
		case types.Lane1kPlus:
			p := pos
			rep.Over1kOrder = &p
		}
		r.reps[id] = rep
	}
	r.version++
	return nil
}

// UpsertRep creates or patches a rep, then densifies both lanes' orders
// to 1..N. A newly created active rep is appended to the end of each
// lane it participates in; an existing rep's position is preserved
// modulo densification.
func (r *Roster) UpsertRep(rep types.Rep) error {
	if rep.ID == "" {
		return fmt.Errorf("upsert rep: %w: id is required", rotationerr.ErrValidation)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// An unset order keeps the existing rep's position, or places a new rep
	// after every rep already in the roster; densify then closes the gaps.
	existing, exists := r.reps[rep.ID]
	if rep.Sub1kOrder <= 0 {
		if exists {
			rep.Sub1kOrder = existing.Sub1kOrder
		} else {
			rep.Sub1kOrder = len(r.reps) + 1
		}
	}
	if rep.Parameters.CanHandle1kPlus && rep.Over1kOrder == nil {
		o := len(r.reps) + 1
		if exists && existing.Over1kOrder != nil {
			o = *existing.Over1kOrder
		}
		rep.Over1kOrder = &o
	}

	r.reps[rep.ID] = rep
	r.densifyLocked()
	r.version++
	return nil
}

// RemoveRep deletes a rep and densifies both lanes' orders.
func (r *Roster) RemoveRep(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reps[id]; !ok {
		return fmt.Errorf("remove rep %s: %w: unknown rep", id, rotationerr.ErrValidation)
	}
	delete(r.reps, id)
	r.densifyLocked()
	r.version++
	return nil
}

// densifyLocked recomputes both lanes' base orders as dense 1..N
// permutations, preserving each rep's relative order within a lane.
// Callers must hold r.mu for writing.
func (r *Roster) densifyLocked() {
	for _, lane := range []types.Lane{types.LaneSub1k, types.Lane1kPlus} {
		members := r.membersForLaneLocked(lane)
		sort.Slice(members, func(i, j int) bool {
			oi, _ := members[i].OrderForLane(lane)
			oj, _ := members[j].OrderForLane(lane)
			return oi < oj
		})
		for i, rep := range members {
			pos := i + 1
			switch lane {
			case types.LaneSub1k:
				rep.Sub1kOrder = pos
			case types.Lane1kPlus:
				rep.Over1kOrder = &pos
			}
			r.reps[rep.ID] = rep
		}
	}
}

// membersForLaneLocked returns every rep (active or ooo) eligible for
// lane, since densification must re-pack orders for reps currently out of
// office too (they keep their slot, they're just filtered out of
// ListActive).
func (r *Roster) membersForLaneLocked(lane types.Lane) []types.Rep {
	var out []types.Rep
	for _, rep := range r.reps {
		if lane == types.Lane1kPlus && !rep.Parameters.CanHandle1kPlus {
			continue
		}
		out = append(out, rep)
	}
	return out
}

// Snapshot returns every rep currently in the roster (any status),
// primarily for persistence and YAML export.
func (r *Roster) Snapshot() []types.Rep {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.Rep, 0, len(r.reps))
	for _, rep := range r.reps {
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Load replaces the roster's contents wholesale (used when restoring a
// persisted snapshot) and bumps the version.
func (r *Roster) Load(reps []types.Rep) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reps = make(map[string]types.Rep, len(reps))
	for _, rep := range reps {
		r.reps[rep.ID] = rep
	}
	r.version++
}
