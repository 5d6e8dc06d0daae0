// Package types holds the domain model shared across the rotation engine:
// reps, leads, lanes, events and replacement records. Nothing here touches
// storage or derivation — those live in the sibling packages that consume
// these types.
package types

import "time"

// Lane is one of the two independent rotations the engine maintains.
type Lane string

const (
	LaneSub1k   Lane = "sub1k"
	Lane1kPlus  Lane = "1kplus"
)

// LaneForUnits derives the lane a lead belongs to from its unit count.
// Lane is never stored on a Lead; it is always recomputed from UnitCount.
func LaneForUnits(unitCount int) Lane {
	if unitCount >= 1000 {
		return Lane1kPlus
	}
	return LaneSub1k
}

// PropertyType is one of the categories a lead or rep can be tagged with.
type PropertyType string

const (
	PropertyMFH        PropertyType = "MFH"
	PropertyMF         PropertyType = "MF"
	PropertySFH        PropertyType = "SFH"
	PropertyCommercial PropertyType = "Commercial"
)

// PropertyTypeSet is a small set over PropertyType, used for both a rep's
// coverage and a lead's requested types.
type PropertyTypeSet map[PropertyType]struct{}

// NewPropertyTypeSet builds a set from a slice, deduplicating.
func NewPropertyTypeSet(types ...PropertyType) PropertyTypeSet {
	s := make(PropertyTypeSet, len(types))
	for _, t := range types {
		s[t] = struct{}{}
	}
	return s
}

// Intersects reports whether s and other share at least one property type.
func (s PropertyTypeSet) Intersects(other PropertyTypeSet) bool {
	for t := range s {
		if _, ok := other[t]; ok {
			return true
		}
	}
	return false
}

// ContainsAll reports whether s contains every property type in other.
func (s PropertyTypeSet) ContainsAll(other PropertyTypeSet) bool {
	for t := range other {
		if _, ok := s[t]; !ok {
			return false
		}
	}
	return true
}

// Slice returns the set's members in a deterministic (sorted) order.
func (s PropertyTypeSet) Slice() []PropertyType {
	out := make([]PropertyType, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sortPropertyTypes(out)
	return out
}

func sortPropertyTypes(pts []PropertyType) {
	for i := 1; i < len(pts); i++ {
		for j := i; j > 0 && pts[j-1] > pts[j]; j-- {
			pts[j-1], pts[j] = pts[j], pts[j-1]
		}
	}
}

// RepStatus is a rep's current availability.
type RepStatus string

const (
	RepActive RepStatus = "active"
	RepOOO    RepStatus = "ooo"
)

// RepParameters captures the eligibility-relevant attributes of a rep.
type RepParameters struct {
	PropertyTypes  PropertyTypeSet
	MaxUnits       *int // absent means no cap
	CanHandle1kPlus bool
}

// Rep is a sales representative participating in one or both lanes.
type Rep struct {
	ID          string
	DisplayName string
	Parameters  RepParameters

	// Sub1kOrder is the rep's position in the sub1k base order. Dense 1..N
	// among all sub1k-lane reps, active or ooo.
	Sub1kOrder int

	// Over1kOrder is the rep's position in the 1kplus base order. Present
	// iff Parameters.CanHandle1kPlus; dense 1..N among all 1kplus reps,
	// active or ooo.
	Over1kOrder *int

	Status RepStatus
}

// OrderForLane returns the rep's base-order position in lane, and whether
// the rep participates in that lane at all.
func (r Rep) OrderForLane(lane Lane) (int, bool) {
	switch lane {
	case LaneSub1k:
		return r.Sub1kOrder, true
	case Lane1kPlus:
		if r.Over1kOrder == nil {
			return 0, false
		}
		return *r.Over1kOrder, true
	default:
		return 0, false
	}
}

// Lead is an immutable (except for comments) assignment target. Lane is a
// derived attribute — it is never stored, always recomputed from UnitCount.
type Lead struct {
	ID            string
	AccountNumber string
	URL           string
	PropertyTypes PropertyTypeSet
	UnitCount     int
	AssignedRep   string
	Day           int
	Month         int
	Year          int
	Comments      []Comment
}

// Lane returns the lead's derived lane.
func (l Lead) Lane() Lane {
	return LaneForUnits(l.UnitCount)
}

// Comment is an append-only note attached to a lead.
type Comment struct {
	Author string
	Text   string
	At     time.Time
}

// SkipTarget selects which lane(s) a Skip event contributes a hit to.
type SkipTarget string

const (
	SkipTargetSub1k  SkipTarget = "sub1k"
	SkipTarget1kPlus SkipTarget = "1kplus"
	SkipTargetBoth   SkipTarget = "both"
)

// EventKind discriminates the Event union below.
type EventKind string

const (
	EventLeadPlaced           EventKind = "lead_placed"
	EventSkip                 EventKind = "skip"
	EventOOO                  EventKind = "ooo"
	EventMarkForReplacement   EventKind = "mark_for_replacement"
	EventFulfillReplacement   EventKind = "fulfill_replacement"
	EventUnmarkForReplacement EventKind = "unmark_for_replacement"

	// EventReopenReplacement is the compensating event of replacement §4.4
	// cascade rule 2: the lead that fulfilled a mark was itself deleted, so
	// the mark reopens and the fulfillment's +1 is withdrawn from RepID.
	// The abstract spec describes this as "a re-open event" without
	// naming it; it is not a user-issued command, only ever emitted by the
	// delete cascade.
	EventReopenReplacement EventKind = "reopen_replacement"
)

// Event is one entry in the append-only event log. Only the fields relevant
// to Kind are populated; this mirrors a tagged union without requiring a
// Go sum type (the engine never branches on anything but Kind).
type Event struct {
	// Seq is assigned by the log at append time and is the sole source of
	// truth for ordering. Zero until appended.
	Seq int64
	Ts  time.Time

	Kind EventKind

	// LeadPlaced, MarkForReplacement, UnmarkForReplacement
	LeadID string
	RepID  string
	Lane   Lane
	Day    int
	Month  int
	Year   int

	// Skip
	SkipTarget SkipTarget

	// FulfillReplacement
	OriginalLeadID string
	NewLeadID      string
}

// SortKey orders events deterministically: by Seq primarily (the spec's
// single source of truth), with Ts then (Kind, LeadID) as tiebreakers for
// callers that sort a batch before assignment of Seq.
type SortKey struct {
	Seq    int64
	Ts     time.Time
	Kind   EventKind
	LeadID string
}

func (e Event) SortKey() SortKey {
	return SortKey{Seq: e.Seq, Ts: e.Ts, Kind: e.Kind, LeadID: e.LeadID}
}

// Less orders two sort keys per spec.md §3: "ties broken by ts then
// (event_kind, lead_id)". Seq, once assigned, already encodes this order;
// Less is used only when ordering a pre-append batch.
func (k SortKey) Less(other SortKey) bool {
	if k.Seq != other.Seq {
		return k.Seq < other.Seq
	}
	if !k.Ts.Equal(other.Ts) {
		return k.Ts.Before(other.Ts)
	}
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}
	return k.LeadID < other.LeadID
}
