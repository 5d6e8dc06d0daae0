package engine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/maxwell903/sdr-lead-rotation/internal/engine"
	"github.com/maxwell903/sdr-lead-rotation/internal/query"
	"github.com/maxwell903/sdr-lead-rotation/internal/resolver"
	"github.com/maxwell903/sdr-lead-rotation/internal/rotationerr"
	"github.com/maxwell903/sdr-lead-rotation/internal/storage/memory"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

func twoRepRoster(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.Open(context.Background(), memory.New(), engine.DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := e.UpsertRep(context.Background(), types.Rep{ID: "A", Status: types.RepActive}); err != nil {
		t.Fatalf("UpsertRep(A) error = %v", err)
	}
	if err := e.UpsertRep(context.Background(), types.Rep{ID: "B", Status: types.RepActive}); err != nil {
		t.Fatalf("UpsertRep(B) error = %v", err)
	}
	return e
}

func TestResolveAndPlaceAdvancesRotation(t *testing.T) {
	ctx := context.Background()
	e := twoRepRoster(t)

	req := resolver.Request{UnitCount: 500, Day: 1, Month: 1, Year: 2026}
	first, err := e.ResolveNextRep(ctx, req)
	if err != nil {
		t.Fatalf("ResolveNextRep() error = %v", err)
	}

	if err := e.PlaceLead(ctx, engine.PlaceRequest{
		Lead: types.Lead{ID: "L1", AssignedRep: first, UnitCount: 500, Day: 1, Month: 1, Year: 2026},
	}); err != nil {
		t.Fatalf("PlaceLead() error = %v", err)
	}

	second, err := e.ResolveNextRep(ctx, req)
	if err != nil {
		t.Fatalf("ResolveNextRep() second error = %v", err)
	}
	if second == first {
		t.Fatalf("ResolveNextRep() second = %s, want a rep other than %s", second, first)
	}
}

func TestMarkForReplacementIsIdempotent(t *testing.T) {
	ctx := context.Background()
	e := twoRepRoster(t)

	lead := types.Lead{ID: "L1", AssignedRep: "A", UnitCount: 500}
	if err := e.MarkForReplacement(ctx, lead, "M1"); err != nil {
		t.Fatalf("MarkForReplacement() first error = %v", err)
	}
	if err := e.MarkForReplacement(ctx, lead, "M1"); err != nil {
		t.Fatalf("MarkForReplacement() second error = %v", err)
	}

	queue := e.QueryReplacementQueue(types.LaneSub1k)
	if len(queue) != 1 {
		t.Fatalf("QueryReplacementQueue() = %+v, want exactly 1 entry (no duplicate mark event)", queue)
	}
}

func TestMarkThenFulfillEmptiesQueue(t *testing.T) {
	ctx := context.Background()
	e := twoRepRoster(t)

	original := types.Lead{ID: "L1", AssignedRep: "A", UnitCount: 500}
	if err := e.MarkForReplacement(ctx, original, "M1"); err != nil {
		t.Fatalf("MarkForReplacement() error = %v", err)
	}

	queueBeforeFulfill := e.QueryReplacementQueue(types.LaneSub1k)
	if len(queueBeforeFulfill) != 1 || queueBeforeFulfill[0].RepID != "A" {
		t.Fatalf("QueryReplacementQueue() before fulfill = %+v", queueBeforeFulfill)
	}

	replacement := types.Lead{ID: "L2", AssignedRep: "A", UnitCount: 500}
	if err := e.PlaceLead(ctx, engine.PlaceRequest{Lead: replacement, ReplacesLeadID: "L1"}); err != nil {
		t.Fatalf("PlaceLead() (fulfillment) error = %v", err)
	}

	queueAfterFulfill := e.QueryReplacementQueue(types.LaneSub1k)
	if len(queueAfterFulfill) != 0 {
		t.Fatalf("QueryReplacementQueue() after fulfill = %+v, want empty", queueAfterFulfill)
	}
}

func TestUnmarkWithoutFulfillment(t *testing.T) {
	ctx := context.Background()
	e := twoRepRoster(t)

	lead := types.Lead{ID: "L1", AssignedRep: "A", UnitCount: 500}
	if err := e.MarkForReplacement(ctx, lead, "M1"); err != nil {
		t.Fatalf("MarkForReplacement() error = %v", err)
	}
	if err := e.Unmark(ctx, "L1"); err != nil {
		t.Fatalf("Unmark() error = %v", err)
	}

	queue := e.QueryReplacementQueue(types.LaneSub1k)
	if len(queue) != 0 {
		t.Fatalf("QueryReplacementQueue() after unmark = %+v, want empty", queue)
	}
}

func TestDeleteLeadBlockedOnClosedMark(t *testing.T) {
	ctx := context.Background()
	e := twoRepRoster(t)

	original := types.Lead{ID: "L1", AssignedRep: "A", UnitCount: 500}
	if err := e.MarkForReplacement(ctx, original, "M1"); err != nil {
		t.Fatalf("MarkForReplacement() error = %v", err)
	}
	replacement := types.Lead{ID: "L2", AssignedRep: "A", UnitCount: 500}
	if err := e.PlaceLead(ctx, engine.PlaceRequest{Lead: replacement, ReplacesLeadID: "L1"}); err != nil {
		t.Fatalf("PlaceLead() error = %v", err)
	}

	err := e.DeleteLead(ctx, "L1")
	if !errors.Is(err, rotationerr.ErrDeleteBlocked) {
		t.Fatalf("DeleteLead(original with closed mark) error = %v, want ErrDeleteBlocked", err)
	}
}

func TestDeleteReplacementLeadReopensMark(t *testing.T) {
	ctx := context.Background()
	e := twoRepRoster(t)

	original := types.Lead{ID: "L1", AssignedRep: "A", UnitCount: 500}
	if err := e.MarkForReplacement(ctx, original, "M1"); err != nil {
		t.Fatalf("MarkForReplacement() error = %v", err)
	}
	replacement := types.Lead{ID: "L2", AssignedRep: "A", UnitCount: 500}
	if err := e.PlaceLead(ctx, engine.PlaceRequest{Lead: replacement, ReplacesLeadID: "L1"}); err != nil {
		t.Fatalf("PlaceLead() error = %v", err)
	}

	if err := e.DeleteLead(ctx, "L2"); err != nil {
		t.Fatalf("DeleteLead(replacement lead) error = %v", err)
	}

	queue := e.QueryReplacementQueue(types.LaneSub1k)
	if len(queue) != 1 || queue[0].RepID != "A" {
		t.Fatalf("QueryReplacementQueue() after reopen = %+v, want mark for A reopened", queue)
	}
}

func TestDeleteOriginalLeadWithOpenMarkRemovesIt(t *testing.T) {
	ctx := context.Background()
	e := twoRepRoster(t)

	original := types.Lead{ID: "L1", AssignedRep: "A", UnitCount: 500}
	if err := e.MarkForReplacement(ctx, original, "M1"); err != nil {
		t.Fatalf("MarkForReplacement() error = %v", err)
	}

	if err := e.DeleteLead(ctx, "L1"); err != nil {
		t.Fatalf("DeleteLead(original, open mark) error = %v", err)
	}

	queue := e.QueryReplacementQueue(types.LaneSub1k)
	if len(queue) != 0 {
		t.Fatalf("QueryReplacementQueue() after delete = %+v, want empty", queue)
	}
}

func TestDeleteUnrelatedLeadIsNoop(t *testing.T) {
	ctx := context.Background()
	e := twoRepRoster(t)

	if err := e.DeleteLead(ctx, "L-does-not-exist"); err != nil {
		t.Fatalf("DeleteLead(unrelated) error = %v, want nil", err)
	}
}

func TestSkipAndSetOOODoNotError(t *testing.T) {
	ctx := context.Background()
	e := twoRepRoster(t)

	if err := e.Skip(ctx, "A", types.SkipTargetBoth, 1, 1, 2026); err != nil {
		t.Fatalf("Skip() error = %v", err)
	}
	if err := e.SetOOO(ctx, "B", 2, 1, 2026); err != nil {
		t.Fatalf("SetOOO() error = %v", err)
	}

	req := resolver.Request{UnitCount: 500, Day: 2, Month: 1, Year: 2026}
	rep, err := e.ResolveNextRep(ctx, req)
	if err != nil {
		t.Fatalf("ResolveNextRep() error = %v", err)
	}
	if rep == "B" {
		t.Fatalf("ResolveNextRep() = B, want A to be selected since B is OOO on this day")
	}
}

func TestQueryRotationCollapsedAndExpanded(t *testing.T) {
	ctx := context.Background()
	e := twoRepRoster(t)

	lead := types.Lead{ID: "L1", AssignedRep: "A", UnitCount: 500}
	if err := e.MarkForReplacement(ctx, lead, "M1"); err != nil {
		t.Fatalf("MarkForReplacement() error = %v", err)
	}

	collapsed, err := e.QueryRotation(ctx, types.LaneSub1k, query.WindowAllTime, engine.ViewCollapsed)
	if err != nil {
		t.Fatalf("QueryRotation(collapsed) error = %v", err)
	}
	if len(collapsed) != 2 {
		t.Fatalf("QueryRotation(collapsed) = %+v, want 2 rows (one per rep)", collapsed)
	}

	expanded, err := e.QueryRotation(ctx, types.LaneSub1k, query.WindowAllTime, engine.ViewExpanded)
	if err != nil {
		t.Fatalf("QueryRotation(expanded) error = %v", err)
	}
	if len(expanded) <= len(collapsed) {
		t.Fatalf("QueryRotation(expanded) = %d rows, want more than collapsed's %d (queue entry surfaced separately)", len(expanded), len(collapsed))
	}
}

func TestStatsCountsPlacedLeadsAndOpenMarks(t *testing.T) {
	ctx := context.Background()
	e := twoRepRoster(t)

	req := resolver.Request{UnitCount: 500}
	rep, err := e.ResolveNextRep(ctx, req)
	if err != nil {
		t.Fatalf("ResolveNextRep() error = %v", err)
	}
	if err := e.PlaceLead(ctx, engine.PlaceRequest{
		Lead: types.Lead{ID: "L1", AssignedRep: rep, UnitCount: 500},
	}); err != nil {
		t.Fatalf("PlaceLead() error = %v", err)
	}
	if err := e.MarkForReplacement(ctx, types.Lead{ID: "L1", AssignedRep: rep, UnitCount: 500}, "M1"); err != nil {
		t.Fatalf("MarkForReplacement() error = %v", err)
	}

	stats, err := e.Stats(ctx, query.WindowAllTime)
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if stats.TotalLeads != 1 {
		t.Errorf("Stats().TotalLeads = %d, want 1", stats.TotalLeads)
	}
	if stats.LeadsNeedingReplacement != 1 {
		t.Errorf("Stats().LeadsNeedingReplacement = %d, want 1", stats.LeadsNeedingReplacement)
	}
}

func TestReopenOnlyEngineSurvivesReload(t *testing.T) {
	ctx := context.Background()
	store := memory.New()

	e, err := engine.Open(ctx, store, engine.DefaultOptions())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := e.UpsertRep(ctx, types.Rep{ID: "A", Status: types.RepActive}); err != nil {
		t.Fatalf("UpsertRep() error = %v", err)
	}
	if err := e.MarkForReplacement(ctx, types.Lead{ID: "L1", AssignedRep: "A", UnitCount: 500}, "M1"); err != nil {
		t.Fatalf("MarkForReplacement() error = %v", err)
	}

	reloaded, err := engine.Open(ctx, store, engine.DefaultOptions())
	if err != nil {
		t.Fatalf("Open() (reload) error = %v", err)
	}
	queue := reloaded.QueryReplacementQueue(types.LaneSub1k)
	if len(queue) != 1 || queue[0].RepID != "A" {
		t.Fatalf("QueryReplacementQueue() after reload = %+v, want mark for A restored from storage", queue)
	}
}
