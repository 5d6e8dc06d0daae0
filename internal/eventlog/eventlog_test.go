package eventlog_test

import (
	"context"
	"sync"
	"testing"

	"github.com/maxwell903/sdr-lead-rotation/internal/eventlog"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

func TestAppendAssignsSequentialSeq(t *testing.T) {
	log := eventlog.NewMemory()
	ctx := context.Background()

	seq1, err := log.Append(ctx, types.Event{Kind: types.EventLeadPlaced, LeadID: "L1"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	seq2, err := log.Append(ctx, types.Event{Kind: types.EventLeadPlaced, LeadID: "L2"})
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if seq1 != 1 || seq2 != 2 {
		t.Errorf("seq1=%d seq2=%d, want 1, 2", seq1, seq2)
	}
}

func TestRangeOrdersBySeq(t *testing.T) {
	log := eventlog.NewMemory()
	ctx := context.Background()
	log.Append(ctx, types.Event{Kind: types.EventLeadPlaced, LeadID: "L1"})
	log.Append(ctx, types.Event{Kind: types.EventLeadPlaced, LeadID: "L2"})

	out, err := log.Range(ctx, eventlog.Filter{})
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if len(out) != 2 || out[0].LeadID != "L1" || out[1].LeadID != "L2" {
		t.Errorf("Range() = %+v", out)
	}
}

func TestFilterByLaneIncludesSkipBoth(t *testing.T) {
	log := eventlog.NewMemory()
	ctx := context.Background()
	log.Append(ctx, types.Event{Kind: types.EventLeadPlaced, LeadID: "L1", Lane: types.LaneSub1k})
	log.Append(ctx, types.Event{Kind: types.EventLeadPlaced, LeadID: "L2", Lane: types.Lane1kPlus})
	log.Append(ctx, types.Event{Kind: types.EventSkip, RepID: "A", SkipTarget: types.SkipTargetBoth})

	out, err := log.Range(ctx, eventlog.Filter{Lane: types.LaneSub1k})
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("Range() len = %d, want 2 (L1 + the both-lane skip)", len(out))
	}
}

func TestSubscribeFiresOnAppend(t *testing.T) {
	log := eventlog.NewMemory()
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(1)
	var gotSeq int64
	unsubscribe := log.Subscribe(func(seq int64) {
		gotSeq = seq
		wg.Done()
	})
	defer unsubscribe()

	if _, err := log.Append(ctx, types.Event{Kind: types.EventLeadPlaced, LeadID: "L1"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	wg.Wait()
	if gotSeq != 1 {
		t.Errorf("subscriber saw seq = %d, want 1", gotSeq)
	}
}

func TestLatestSeq(t *testing.T) {
	log := eventlog.NewMemory()
	ctx := context.Background()
	if seq, _ := log.LatestSeq(ctx); seq != 0 {
		t.Errorf("LatestSeq() on empty log = %d, want 0", seq)
	}
	log.Append(ctx, types.Event{Kind: types.EventLeadPlaced, LeadID: "L1"})
	if seq, _ := log.LatestSeq(ctx); seq != 1 {
		t.Errorf("LatestSeq() = %d, want 1", seq)
	}
}
