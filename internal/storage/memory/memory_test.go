package memory_test

import (
	"context"
	"testing"

	"github.com/maxwell903/sdr-lead-rotation/internal/storage"
	"github.com/maxwell903/sdr-lead-rotation/internal/storage/memory"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

func TestRosterRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	reps := []types.Rep{{ID: "A", Status: types.RepActive}}
	if err := s.WriteRoster(ctx, reps); err != nil {
		t.Fatalf("WriteRoster() error = %v", err)
	}
	got, err := s.ReadRoster(ctx)
	if err != nil {
		t.Fatalf("ReadRoster() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "A" {
		t.Errorf("ReadRoster() = %+v", got)
	}
}

func TestEventLogThroughStorage(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	seq, err := s.Append(ctx, types.Event{Kind: types.EventLeadPlaced, LeadID: "L1"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}
}

func TestConfigGetSet(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	if err := s.SetConfig(ctx, "sequence.cap", "100"); err != nil {
		t.Fatalf("SetConfig() error = %v", err)
	}
	got, err := s.GetConfig(ctx, "sequence.cap")
	if err != nil {
		t.Fatalf("GetConfig() error = %v", err)
	}
	if got != "100" {
		t.Errorf("GetConfig() = %s, want 100", got)
	}
}

func TestRunInTransactionCommitsAllWrites(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	err := s.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if _, err := tx.AppendEvent(ctx, types.Event{Kind: types.EventLeadPlaced, LeadID: "L1"}); err != nil {
			return err
		}
		return tx.WriteRoster(ctx, []types.Rep{{ID: "A", Status: types.RepActive}})
	})
	if err != nil {
		t.Fatalf("RunInTransaction() error = %v", err)
	}

	roster, _ := s.ReadRoster(ctx)
	if len(roster) != 1 {
		t.Errorf("ReadRoster() after transaction = %+v, want 1 rep", roster)
	}
	seq, _ := s.LatestSeq(ctx)
	if seq != 1 {
		t.Errorf("LatestSeq() after transaction = %d, want 1", seq)
	}
}
