// Package replacement is the Replacement Store (spec.md §4.4, component
// C4). It holds one ReplacementRecord per original lead id, plus the index
// needed to run the three on_lead_deleted cascade rules, and derives the
// per-lane FIFO open queue on demand. It is a materialized view: durable
// storage persists it wholesale (Snapshot/Restore) rather than replaying
// every MarkForReplacement/FulfillReplacement/UnmarkForReplacement/
// ReopenReplacement event on every read, the same tradeoff roster makes for
// the rep set.
package replacement

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/maxwell903/sdr-lead-rotation/internal/rotationerr"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

// Store holds open and closed replacement records.
type Store struct {
	mu sync.Mutex

	// records is keyed by original_lead_id.
	records map[string]types.ReplacementRecord

	// byFulfillment maps a replacement (new) lead id to the original lead
	// id it closed, for closed records only. Used by OnLeadDeleted rule 2.
	byFulfillment map[string]string
}

// New returns an empty replacement store.
func New() *Store {
	return &Store{
		records:       make(map[string]types.ReplacementRecord),
		byFulfillment: make(map[string]string),
	}
}

// Mark opens a replacement record for lead, idempotent by lead.ID: a second
// mark on a lead whose record is still open returns that record unchanged;
// a mark on a lead whose record is closed fails with ErrMarkAlreadyClosed.
func (s *Store) Mark(lead types.Lead, markID string, at time.Time) (types.ReplacementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[lead.ID]; ok {
		if !existing.IsOpen() {
			return existing, fmt.Errorf("mark %s: %w", lead.ID, rotationerr.ErrMarkAlreadyClosed)
		}
		return existing, nil
	}
	rec := types.NewOpenRecord(markID, lead.ID, lead.AssignedRep, lead.Lane(), lead.AccountNumber, lead.URL, at)
	s.records[lead.ID] = rec
	return rec, nil
}

// Fulfill closes the open mark on originalLeadID with newLead. newLead must
// share the mark's rep and lane exactly.
func (s *Store) Fulfill(originalLeadID string, newLead types.Lead, at time.Time) (types.ReplacementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[originalLeadID]
	if !ok {
		return types.ReplacementRecord{}, fmt.Errorf("fulfill %s: %w: no mark found", originalLeadID, rotationerr.ErrValidation)
	}
	if !rec.IsOpen() {
		return types.ReplacementRecord{}, fmt.Errorf("fulfill %s: %w", originalLeadID, rotationerr.ErrMarkAlreadyOpen)
	}
	if newLead.AssignedRep != rec.RepID {
		return types.ReplacementRecord{}, fmt.Errorf("fulfill %s: %w", originalLeadID, rotationerr.ErrAssignmentMismatch)
	}
	if newLead.Lane() != rec.Lane {
		return types.ReplacementRecord{}, fmt.Errorf("fulfill %s: %w", originalLeadID, rotationerr.ErrLaneMismatch)
	}

	closed := rec.Close(newLead.ID, at)
	s.records[originalLeadID] = closed
	s.byFulfillment[newLead.ID] = originalLeadID
	return closed, nil
}

// Unmark removes the open mark on leadID, returning the record as it was
// immediately before removal so the caller can emit a compensating event
// against its rep and lane.
func (s *Store) Unmark(leadID string) (types.ReplacementRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[leadID]
	if !ok {
		return types.ReplacementRecord{}, fmt.Errorf("unmark %s: %w: no mark found", leadID, rotationerr.ErrValidation)
	}
	if !rec.IsOpen() {
		return types.ReplacementRecord{}, fmt.Errorf("unmark %s: %w", leadID, rotationerr.ErrMarkAlreadyClosed)
	}
	delete(s.records, leadID)
	return rec, nil
}

// DeleteEffect describes which §4.4 cascade rule fired for a deleted lead,
// so the caller knows which compensating event (if any) to append.
type DeleteEffect struct {
	// Blocked is true under rule 1: leadID is the original lead of a
	// closed mark. The caller must return ErrDeleteBlocked and append
	// nothing.
	Blocked bool

	// Reopened is set under rule 2: leadID was the replaced_by_lead_id of
	// some record, which has now been reopened. The caller should emit an
	// EventReopenReplacement crediting -1 to Reopened.RepID/Reopened.Lane.
	Reopened *types.ReplacementRecord

	// MarkRemoved is set under rule 3: leadID was the original lead of an
	// open mark, now dropped. The caller should emit an
	// EventUnmarkForReplacement crediting +1 to MarkRemoved.RepID/Lane,
	// exactly as a manual unmark would.
	MarkRemoved *types.ReplacementRecord
}

// OnLeadDeleted runs the three cascade rules of spec.md §4.4 for the
// deletion of leadID, which may be an original lead, a replacement lead, or
// unrelated to any mark (the zero DeleteEffect, in which case delete_lead
// proceeds with no replacement-store side effect).
func (s *Store) OnLeadDeleted(leadID string) (DeleteEffect, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.records[leadID]; ok {
		if !rec.IsOpen() {
			return DeleteEffect{Blocked: true}, nil
		}
		delete(s.records, leadID)
		removed := rec
		return DeleteEffect{MarkRemoved: &removed}, nil
	}

	if originalLeadID, ok := s.byFulfillment[leadID]; ok {
		rec := s.records[originalLeadID].Reopen()
		s.records[originalLeadID] = rec
		delete(s.byFulfillment, leadID)
		reopened := rec
		return DeleteEffect{Reopened: &reopened}, nil
	}

	return DeleteEffect{}, nil
}

// Get returns the replacement record for originalLeadID, if any.
func (s *Store) Get(originalLeadID string) (types.ReplacementRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[originalLeadID]
	return rec, ok
}

// Queue returns lane's FIFO open queue: records with that lane that are
// still open, sorted ascending by marked_at then mark_id. Duplicates are
// preserved — a rep with two open marks appears twice.
func (s *Store) Queue(lane types.Lane) []types.ReplacementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.ReplacementRecord
	for _, rec := range s.records {
		if rec.Lane != lane || !rec.IsOpen() {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].MarkedAt.Equal(out[j].MarkedAt) {
			return out[i].MarkedAt.Before(out[j].MarkedAt)
		}
		return out[i].MarkID < out[j].MarkID
	})
	return out
}

// Snapshot returns every record the store holds, open or closed, for
// persistence.
func (s *Store) Snapshot() []types.ReplacementRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ReplacementRecord, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MarkID < out[j].MarkID })
	return out
}

// Restore replaces the store's contents wholesale, rebuilding the
// byFulfillment index from each closed record's ReplacedByLeadID.
func (s *Store) Restore(records []types.ReplacementRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]types.ReplacementRecord, len(records))
	s.byFulfillment = make(map[string]string, len(records))
	for _, rec := range records {
		s.records[rec.OriginalLeadID] = rec
		if newLeadID, ok := rec.ReplacedByLeadID(); ok {
			s.byFulfillment[newLeadID] = rec.OriginalLeadID
		}
	}
}
