// Package hits derives per-(rep, lane) hit counts from an event range
// (spec.md §4.3, component C3). A hit is a unit of rotation delay: every
// net hit pushes a rep back one full cycle in the sequence (package
// sequence). The accumulator is a pure function of its input events; it
// holds no state of its own between calls.
package hits

import (
	"fmt"

	"github.com/maxwell903/sdr-lead-rotation/internal/rotationerr"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

// Key identifies one (rep, lane) accumulator slot.
type Key struct {
	RepID string
	Lane  types.Lane
}

// Counter is the net hit value per (rep, lane), spec.md's HitCounter.
type Counter map[Key]int

// Net returns the counter's value for (repID, lane), defaulting to 0.
func (c Counter) Net(repID string, lane types.Lane) int {
	return c[Key{RepID: repID, Lane: lane}]
}

// Options tunes accumulation behavior for the Open Question recorded in
// spec.md §9.1.
type Options struct {
	// WindowAwareMFR, when true, excludes a MarkForReplacement's -1
	// contribution unless the LeadPlaced event it cancels is itself
	// present in the same events slice (i.e. inside the active window).
	// When false (the source's apparent behavior), every
	// MarkForReplacement cancels a hit unconditionally. See DESIGN.md for
	// the product decision; config key hits.window-aware-mfr.
	WindowAwareMFR bool
}

// Accumulate derives a Counter from events, applying the contribution
// table of spec.md §4.3:
//
//	LeadPlaced lane=L            +1 in L, unless the lead is itself a
//	                              replacement fulfillment (absorbed into
//	                              the paired FulfillReplacement's +1)
//	Skip target=L                +1 in L
//	Skip target=both             +1 in both lanes
//	MarkForReplacement lane=L    -1 in L
//	FulfillReplacement           +1 in L to the new lead's rep
//	UnmarkForReplacement         +1 in L
//	ReopenReplacement            -1 in L to the deleted replacement lead's rep
//	OOO                          no hit contribution
//
// Accumulate asserts net >= 0 for every (rep, lane) it produces; a
// negative net is an InvariantViolation (spec.md §4.3 "Failure modes"),
// raised via rotationerr.Invariant rather than returned, since it
// indicates a bug in event emission, not a caller mistake.
func Accumulate(events []types.Event, opts Options) Counter {
	counter := make(Counter)

	absorbed := make(map[string]bool)
	placedInRange := make(map[string]bool)
	for _, e := range events {
		if e.Kind == types.EventFulfillReplacement {
			absorbed[e.NewLeadID] = true
		}
		if e.Kind == types.EventLeadPlaced {
			placedInRange[e.LeadID] = true
		}
	}

	for _, e := range events {
		switch e.Kind {
		case types.EventLeadPlaced:
			if absorbed[e.LeadID] {
				continue
			}
			counter[Key{RepID: e.RepID, Lane: e.Lane}]++

		case types.EventSkip:
			switch e.SkipTarget {
			case types.SkipTargetBoth:
				counter[Key{RepID: e.RepID, Lane: types.LaneSub1k}]++
				counter[Key{RepID: e.RepID, Lane: types.Lane1kPlus}]++
			default:
				counter[Key{RepID: e.RepID, Lane: e.Lane}]++
			}

		case types.EventMarkForReplacement:
			if opts.WindowAwareMFR && !placedInRange[e.LeadID] {
				continue
			}
			counter[Key{RepID: e.RepID, Lane: e.Lane}]--

		case types.EventFulfillReplacement:
			counter[Key{RepID: e.RepID, Lane: e.Lane}]++

		case types.EventUnmarkForReplacement:
			counter[Key{RepID: e.RepID, Lane: e.Lane}]++

		case types.EventReopenReplacement:
			counter[Key{RepID: e.RepID, Lane: e.Lane}]--

		case types.EventOOO:
			// No hit contribution; handled entirely by eligibility for
			// the affected day.
		}
	}

	for key, net := range counter {
		if net < 0 {
			rotationerr.Invariant(fmt.Sprintf("negative net hit count for rep %s lane %s: %d", key.RepID, key.Lane, net))
		}
	}

	return counter
}
