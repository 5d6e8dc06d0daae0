package query_test

import (
	"testing"
	"time"

	"github.com/maxwell903/sdr-lead-rotation/internal/hits"
	"github.com/maxwell903/sdr-lead-rotation/internal/query"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

func TestBoundsDay(t *testing.T) {
	today := time.Date(2026, 9, 27, 15, 30, 0, 0, time.UTC)
	start, end := query.Bounds(query.WindowDay, today)
	if start != time.Date(2026, 9, 27, 0, 0, 0, 0, time.UTC) {
		t.Errorf("day start = %v", start)
	}
	if end != time.Date(2026, 9, 28, 0, 0, 0, 0, time.UTC) {
		t.Errorf("day end = %v", end)
	}
}

func TestBoundsWeekIsSixDaysBack(t *testing.T) {
	today := time.Date(2026, 9, 27, 0, 0, 0, 0, time.UTC)
	start, _ := query.Bounds(query.WindowWeek, today)
	if start != time.Date(2026, 9, 21, 0, 0, 0, 0, time.UTC) {
		t.Errorf("week start = %v, want 2026-09-21", start)
	}
}

func TestBoundsAllTimeHasNoLowerBound(t *testing.T) {
	today := time.Date(2026, 9, 27, 0, 0, 0, 0, time.UTC)
	start, _ := query.Bounds(query.WindowAllTime, today)
	if !start.IsZero() {
		t.Errorf("alltime start = %v, want zero", start)
	}
}

func TestComputeLeaderboard(t *testing.T) {
	events := []types.Event{
		{Kind: types.EventLeadPlaced, RepID: "A", Lane: types.LaneSub1k, LeadID: "L1"},
		{Kind: types.EventLeadPlaced, RepID: "A", Lane: types.LaneSub1k, LeadID: "L2"},
		{Kind: types.EventLeadPlaced, RepID: "B", Lane: types.LaneSub1k, LeadID: "L3"},
	}
	roster := []types.Rep{{ID: "A"}, {ID: "B"}, {ID: "C"}}

	stats := query.Compute(events, roster, 1, hits.Options{})
	if stats.TotalLeads != 3 {
		t.Errorf("TotalLeads = %d, want 3", stats.TotalLeads)
	}
	if stats.MostAssigned[0].RepID != "A" || stats.MostAssigned[0].Count != 2 {
		t.Errorf("MostAssigned[0] = %+v, want {A 2}", stats.MostAssigned[0])
	}
	// C has zero hits and must still appear for the least-assigned view.
	if stats.LeastAssigned[0].RepID != "C" || stats.LeastAssigned[0].Count != 0 {
		t.Errorf("LeastAssigned[0] = %+v, want {C 0}", stats.LeastAssigned[0])
	}
	if stats.LeadsNeedingReplacement != 1 {
		t.Errorf("LeadsNeedingReplacement = %d, want 1", stats.LeadsNeedingReplacement)
	}
}
