package types

import "time"

// ReplacementRecord tracks the lifecycle of a single marked-for-replacement
// lead. It is modeled as a closed sum over {Open, Closed} rather than a
// struct with an is_closed getter, so that "closed but missing
// replaced_by_lead_id" is unrepresentable (spec.md §9 re-architecture
// note).
type ReplacementRecord struct {
	MarkID         string
	OriginalLeadID string
	RepID          string
	Lane           Lane
	AccountNumber  string
	URL            string
	MarkedAt       time.Time

	// state is nil for an open record; non-nil for a closed one.
	state *closedState
}

type closedState struct {
	ReplacedByLeadID string
	ReplacedAt       time.Time
}

// NewOpenRecord constructs a freshly-marked, open replacement record.
func NewOpenRecord(markID, originalLeadID, repID string, lane Lane, accountNumber, url string, markedAt time.Time) ReplacementRecord {
	return ReplacementRecord{
		MarkID:         markID,
		OriginalLeadID: originalLeadID,
		RepID:          repID,
		Lane:           lane,
		AccountNumber:  accountNumber,
		URL:            url,
		MarkedAt:       markedAt,
	}
}

// IsOpen reports whether the record has not yet been fulfilled.
func (r ReplacementRecord) IsOpen() bool {
	return r.state == nil
}

// Close returns a copy of r transitioned to the closed state, recording
// which lead replaced the original and when.
func (r ReplacementRecord) Close(newLeadID string, at time.Time) ReplacementRecord {
	r.state = &closedState{ReplacedByLeadID: newLeadID, ReplacedAt: at}
	return r
}

// Reopen returns a copy of r transitioned back to the open state. Used by
// the delete-cascade rule when the lead that fulfilled a mark is itself
// deleted.
func (r ReplacementRecord) Reopen() ReplacementRecord {
	r.state = nil
	return r
}

// ReplacedByLeadID returns the lead that fulfilled this record, and
// whether the record is closed at all.
func (r ReplacementRecord) ReplacedByLeadID() (string, bool) {
	if r.state == nil {
		return "", false
	}
	return r.state.ReplacedByLeadID, true
}

// ReplacedAt returns when the record was fulfilled, and whether it is
// closed at all.
func (r ReplacementRecord) ReplacedAt() (time.Time, bool) {
	if r.state == nil {
		return time.Time{}, false
	}
	return r.state.ReplacedAt, true
}
