package replacement_test

import (
	"errors"
	"testing"
	"time"

	"github.com/maxwell903/sdr-lead-rotation/internal/replacement"
	"github.com/maxwell903/sdr-lead-rotation/internal/rotationerr"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

func lead(id, rep string, units int) types.Lead {
	return types.Lead{ID: id, AssignedRep: rep, UnitCount: units, AccountNumber: "ACC-" + id}
}

func TestMarkIdempotent(t *testing.T) {
	s := replacement.New()
	now := time.Date(2026, 9, 25, 9, 0, 0, 0, time.UTC)

	l := lead("L1", "rep-a", 500)
	first, err := s.Mark(l, "M1", now)
	if err != nil {
		t.Fatalf("Mark() error = %v", err)
	}

	second, err := s.Mark(l, "M2", now.Add(time.Hour))
	if err != nil {
		t.Fatalf("second Mark() error = %v", err)
	}
	if second.MarkID != first.MarkID {
		t.Errorf("Mark() not idempotent: got mark id %s, want %s", second.MarkID, first.MarkID)
	}
}

func TestFulfillRequiresMatchingRepAndLane(t *testing.T) {
	now := time.Now()

	t.Run("assignment mismatch", func(t *testing.T) {
		s := replacement.New()
		s.Mark(lead("L1", "rep-a", 500), "M1", now)
		_, err := s.Fulfill("L1", lead("L2", "rep-b", 500), now)
		if !errors.Is(err, rotationerr.ErrAssignmentMismatch) {
			t.Errorf("Fulfill() error = %v, want ErrAssignmentMismatch", err)
		}
	})

	t.Run("lane mismatch", func(t *testing.T) {
		s := replacement.New()
		s.Mark(lead("L1", "rep-a", 1500), "M1", now)
		_, err := s.Fulfill("L1", lead("L2", "rep-a", 800), now)
		if !errors.Is(err, rotationerr.ErrLaneMismatch) {
			t.Errorf("Fulfill() error = %v, want ErrLaneMismatch", err)
		}
	})

	t.Run("success closes the mark", func(t *testing.T) {
		s := replacement.New()
		s.Mark(lead("L1", "rep-a", 500), "M1", now)
		rec, err := s.Fulfill("L1", lead("L2", "rep-a", 500), now)
		if err != nil {
			t.Fatalf("Fulfill() error = %v", err)
		}
		if rec.IsOpen() {
			t.Error("Fulfill() left record open")
		}
		if replaced, _ := rec.ReplacedByLeadID(); replaced != "L2" {
			t.Errorf("ReplacedByLeadID() = %s, want L2", replaced)
		}
	})

	t.Run("second fulfill on closed mark loses the race", func(t *testing.T) {
		s := replacement.New()
		s.Mark(lead("L1", "rep-a", 500), "M1", now)
		if _, err := s.Fulfill("L1", lead("L2", "rep-a", 500), now); err != nil {
			t.Fatalf("first Fulfill() error = %v", err)
		}
		_, err := s.Fulfill("L1", lead("L3", "rep-a", 500), now)
		if !errors.Is(err, rotationerr.ErrMarkAlreadyOpen) {
			t.Errorf("second Fulfill() error = %v, want ErrMarkAlreadyOpen", err)
		}
	})
}

func TestUnmark(t *testing.T) {
	now := time.Now()

	t.Run("removes an open mark", func(t *testing.T) {
		s := replacement.New()
		s.Mark(lead("L1", "rep-a", 500), "M1", now)
		rec, err := s.Unmark("L1")
		if err != nil {
			t.Fatalf("Unmark() error = %v", err)
		}
		if rec.RepID != "rep-a" {
			t.Errorf("Unmark() returned rep %s, want rep-a", rec.RepID)
		}
		if _, ok := s.Get("L1"); ok {
			t.Error("Unmark() left a record behind")
		}
	})

	t.Run("fails on a closed mark", func(t *testing.T) {
		s := replacement.New()
		s.Mark(lead("L1", "rep-a", 500), "M1", now)
		s.Fulfill("L1", lead("L2", "rep-a", 500), now)
		_, err := s.Unmark("L1")
		if !errors.Is(err, rotationerr.ErrMarkAlreadyClosed) {
			t.Errorf("Unmark() error = %v, want ErrMarkAlreadyClosed", err)
		}
	})
}

func TestOnLeadDeletedCascadeRules(t *testing.T) {
	now := time.Now()

	t.Run("rule 1: closed mark forbids deleting the original", func(t *testing.T) {
		s := replacement.New()
		s.Mark(lead("L1", "rep-a", 500), "M1", now)
		s.Fulfill("L1", lead("L2", "rep-a", 500), now)

		effect, err := s.OnLeadDeleted("L1")
		if err != nil {
			t.Fatalf("OnLeadDeleted() error = %v", err)
		}
		if !effect.Blocked {
			t.Error("OnLeadDeleted() on original of closed mark should be Blocked")
		}
	})

	t.Run("rule 2: deleting the replacement lead reopens the mark", func(t *testing.T) {
		s := replacement.New()
		s.Mark(lead("L1", "rep-a", 500), "M1", now)
		s.Fulfill("L1", lead("L2", "rep-a", 500), now)

		effect, err := s.OnLeadDeleted("L2")
		if err != nil {
			t.Fatalf("OnLeadDeleted() error = %v", err)
		}
		if effect.Reopened == nil {
			t.Fatal("OnLeadDeleted() on replacement lead should reopen the mark")
		}
		if !effect.Reopened.IsOpen() {
			t.Error("reopened record reports IsOpen() = false")
		}
		if effect.Reopened.RepID != "rep-a" {
			t.Errorf("reopened record rep = %s, want rep-a", effect.Reopened.RepID)
		}

		rec, ok := s.Get("L1")
		if !ok || !rec.IsOpen() {
			t.Error("store did not persist the reopened record")
		}

		// Re-fulfilling with the same (or a new) lead must work again.
		if _, err := s.Fulfill("L1", lead("L3", "rep-a", 500), now); err != nil {
			t.Errorf("re-Fulfill() after reopen error = %v", err)
		}
	})

	t.Run("rule 3: deleting an open mark's original removes the mark", func(t *testing.T) {
		s := replacement.New()
		s.Mark(lead("L1", "rep-a", 500), "M1", now)

		effect, err := s.OnLeadDeleted("L1")
		if err != nil {
			t.Fatalf("OnLeadDeleted() error = %v", err)
		}
		if effect.MarkRemoved == nil {
			t.Fatal("OnLeadDeleted() on open mark's original should remove the mark")
		}
		if _, ok := s.Get("L1"); ok {
			t.Error("mark should no longer exist after delete")
		}
	})

	t.Run("unrelated lead is a no-op", func(t *testing.T) {
		s := replacement.New()
		effect, err := s.OnLeadDeleted("unrelated")
		if err != nil {
			t.Fatalf("OnLeadDeleted() error = %v", err)
		}
		if effect.Blocked || effect.Reopened != nil || effect.MarkRemoved != nil {
			t.Errorf("OnLeadDeleted() on unrelated lead produced an effect: %+v", effect)
		}
	})
}

func TestQueueFIFOWithDuplicates(t *testing.T) {
	s := replacement.New()
	t0 := time.Date(2026, 9, 26, 9, 0, 0, 0, time.UTC)

	s.Mark(lead("L-D1", "rep-d", 500), "M1", t0)
	s.Mark(lead("L-B1", "rep-b", 500), "M2", t0.Add(24*time.Hour+3*time.Hour))
	s.Mark(lead("L-D2", "rep-d", 500), "M3", t0.Add(24*time.Hour+9*time.Hour))

	q := s.Queue(types.LaneSub1k)
	if len(q) != 3 {
		t.Fatalf("Queue() len = %d, want 3", len(q))
	}
	want := []string{"rep-d", "rep-b", "rep-d"}
	for i, rec := range q {
		if rec.RepID != want[i] {
			t.Errorf("Queue()[%d].RepID = %s, want %s", i, rec.RepID, want[i])
		}
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	now := time.Now()
	s := replacement.New()
	s.Mark(lead("L1", "rep-a", 500), "M1", now)
	s.Mark(lead("L2", "rep-b", 1500), "M2", now)
	s.Fulfill("L2", lead("L3", "rep-b", 1500), now)

	snap := s.Snapshot()
	if len(snap) != 2 {
		t.Fatalf("Snapshot() len = %d, want 2", len(snap))
	}

	restored := replacement.New()
	restored.Restore(snap)

	effect, err := restored.OnLeadDeleted("L3")
	if err != nil {
		t.Fatalf("OnLeadDeleted() error = %v", err)
	}
	if effect.Reopened == nil {
		t.Fatal("Restore() did not rebuild the byFulfillment index: rule 2 did not fire")
	}
}
