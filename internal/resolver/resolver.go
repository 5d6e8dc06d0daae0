// Package resolver is the Next-Rep Resolver (spec.md §4.8, component C8),
// the entry point for lead assignment. It is a pure function of its
// inputs: the resolver emits no events itself, leaving that to the caller
// on confirmation (spec.md §4.8, §5).
package resolver

import (
	"fmt"

	"github.com/maxwell903/sdr-lead-rotation/internal/eligibility"
	"github.com/maxwell903/sdr-lead-rotation/internal/overlay"
	"github.com/maxwell903/sdr-lead-rotation/internal/rotationerr"
	"github.com/maxwell903/sdr-lead-rotation/internal/sequence"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

// Request is the prospective lead plus an optional lock-in to a mark being
// fulfilled.
type Request struct {
	PropertyTypes   types.PropertyTypeSet
	UnitCount       int
	Day, Month, Year int

	// ReplacesLeadID, if set, names the original lead of an open mark this
	// placement fulfills. It locks the resulting assignment to that mark's
	// rep and lane, per spec.md §4.8 step 1.
	ReplacesLeadID string
}

// Mark is the subset of a replacement record the resolver needs to honor
// the replaces_lead_id lock-in.
type Mark struct {
	RepID string
	Lane  types.Lane
	Open  bool
}

// MarkLookup resolves ReplacesLeadID to its mark, if any.
type MarkLookup func(originalLeadID string) (Mark, bool)

// Resolve returns the rep who should receive req, given lane's base order
// (already sorted), hit-derived sequence, replacement queue, and the
// active eligibility policy. base, seq and queue must all already be
// scoped to the resolved lane.
func Resolve(req Request, base []types.Rep, seq []sequence.Entry, queue []string, ooo eligibility.OOOSet, match eligibility.PropertyMatch, lookupMark MarkLookup) (string, error) {
	lane := types.LaneForUnits(req.UnitCount)

	if req.ReplacesLeadID != "" {
		mark, ok := lookupMark(req.ReplacesLeadID)
		if !ok {
			return "", fmt.Errorf("resolve: %w: no mark found for %s", rotationerr.ErrValidation, req.ReplacesLeadID)
		}
		if !mark.Open {
			return "", fmt.Errorf("resolve: %w: mark for %s is already closed", rotationerr.ErrMarkAlreadyClosed, req.ReplacesLeadID)
		}
		if lane != mark.Lane {
			return "", fmt.Errorf("resolve: %w: replacement lead's lane (%s) differs from mark's lane (%s)", rotationerr.ErrLaneMismatch, lane, mark.Lane)
		}
		return mark.RepID, nil
	}

	eligibleSet := make(map[string]bool)
	for _, rep := range eligibility.Filter(base, eligibility.Lead{
		PropertyTypes: req.PropertyTypes,
		UnitCount:     req.UnitCount,
		Day:           req.Day,
		Month:         req.Month,
		Year:          req.Year,
	}, ooo, match) {
		eligibleSet[rep.ID] = true
	}

	for _, repID := range overlay.Walk(seq, queue) {
		if eligibleSet[repID] {
			return repID, nil
		}
	}
	return "", fmt.Errorf("resolve lane %s: %w", lane, rotationerr.ErrNoEligibleRep)
}
