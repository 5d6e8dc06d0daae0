// Package eligibility is the Eligibility Filter (spec.md §4.7, component
// C7). It narrows a lane's active, base-order-sorted rep list down to the
// reps who may legally receive a specific prospective lead.
package eligibility

import (
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

// PropertyMatch selects how a lead's requested property types are compared
// against a rep's covered property types. spec.md §9.2 leaves this an open
// question; this module pins AnyMatch as the default (config key
// eligibility.property-match).
type PropertyMatch string

const (
	// AnyMatch requires at least one shared property type.
	AnyMatch PropertyMatch = "any"
	// AllMatch requires the rep to cover every property type the lead
	// requests.
	AllMatch PropertyMatch = "all"
)

// Lead is the subset of lead attributes the filter needs.
type Lead struct {
	PropertyTypes types.PropertyTypeSet
	UnitCount     int
	Day           int
	Month         int
	Year          int
}

// OOOSet reports whether rep is out of office on the given calendar day.
type OOOSet interface {
	IsOOO(repID string, day, month, year int) bool
}

// Filter narrows candidates (already sorted in base order for the lead's
// lane) down to those eligible to receive lead, preserving their relative
// order.
func Filter(candidates []types.Rep, lead Lead, ooo OOOSet, match PropertyMatch) []types.Rep {
	out := make([]types.Rep, 0, len(candidates))
	for _, rep := range candidates {
		if rep.Status != types.RepActive {
			continue
		}
		if ooo != nil && ooo.IsOOO(rep.ID, lead.Day, lead.Month, lead.Year) {
			continue
		}
		if lead.UnitCount >= 1000 && !rep.Parameters.CanHandle1kPlus {
			continue
		}
		if rep.Parameters.MaxUnits != nil && lead.UnitCount > *rep.Parameters.MaxUnits {
			continue
		}
		if !propertyTypesMatch(lead.PropertyTypes, rep.Parameters.PropertyTypes, match) {
			continue
		}
		out = append(out, rep)
	}
	return out
}

func propertyTypesMatch(leadTypes, repTypes types.PropertyTypeSet, match PropertyMatch) bool {
	if len(leadTypes) == 0 {
		return true
	}
	switch match {
	case AllMatch:
		return repTypes.ContainsAll(leadTypes)
	default:
		return leadTypes.Intersects(repTypes)
	}
}
