// Package engine wires components C1-C9 together behind the command
// surface spec.md §6 names (resolve_next_rep, place_lead,
// mark_for_replacement, unmark, delete_lead, skip, set_ooo,
// query_rotation, query_replacement_queue). It owns the one piece of
// control flow the component packages deliberately don't: which events a
// command appends, in what order, and how the Replacement Store's cascade
// effects (internal/replacement.DeleteEffect) translate into compensating
// events.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/maxwell903/sdr-lead-rotation/internal/eligibility"
	"github.com/maxwell903/sdr-lead-rotation/internal/eventlog"
	"github.com/maxwell903/sdr-lead-rotation/internal/hits"
	"github.com/maxwell903/sdr-lead-rotation/internal/overlay"
	"github.com/maxwell903/sdr-lead-rotation/internal/query"
	"github.com/maxwell903/sdr-lead-rotation/internal/replacement"
	"github.com/maxwell903/sdr-lead-rotation/internal/resolver"
	"github.com/maxwell903/sdr-lead-rotation/internal/roster"
	"github.com/maxwell903/sdr-lead-rotation/internal/rotationerr"
	"github.com/maxwell903/sdr-lead-rotation/internal/sequence"
	"github.com/maxwell903/sdr-lead-rotation/internal/storage"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

// Options tunes the derivation pipeline per the spec's recorded Open
// Question decisions (DESIGN.md).
type Options struct {
	SequenceCap   int
	PropertyMatch eligibility.PropertyMatch
	Hits          hits.Options
}

// DefaultOptions matches the config defaults in internal/config.
func DefaultOptions() Options {
	return Options{
		SequenceCap:   sequence.DefaultCap,
		PropertyMatch: eligibility.AnyMatch,
		Hits:          hits.Options{WindowAwareMFR: true},
	}
}

// Engine holds the in-memory derived state (roster, replacement store) and
// the durable log/snapshot backing store.Storage persists them to.
type Engine struct {
	store        storage.Storage
	roster       *roster.Roster
	replacements *replacement.Store
	opts         Options
}

// Open builds an Engine over store, hydrating the roster and replacement
// store from their last persisted snapshots (empty if this is a fresh
// database).
func Open(ctx context.Context, store storage.Storage, opts Options) (*Engine, error) {
	e := &Engine{
		store:        store,
		roster:       roster.New(),
		replacements: replacement.New(),
		opts:         opts,
	}

	reps, err := store.ReadRoster(ctx)
	if err != nil {
		return nil, fmt.Errorf("open engine: read roster: %w", err)
	}
	e.roster.Load(reps)

	records, err := store.ReadReplacementRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("open engine: read replacement records: %w", err)
	}
	e.replacements.Restore(records)

	return e, nil
}

// Roster exposes the underlying roster for the CLI's roster subcommands
// (list/reorder/upsert/remove), which persist through the methods below
// rather than mutating it directly.
func (e *Engine) Roster() *roster.Roster { return e.roster }

// UpsertRep creates or patches a rep and persists the densified roster.
func (e *Engine) UpsertRep(ctx context.Context, rep types.Rep) error {
	if err := e.roster.UpsertRep(rep); err != nil {
		return err
	}
	return e.persistRoster(ctx)
}

// RemoveRep removes a rep and persists the densified roster.
func (e *Engine) RemoveRep(ctx context.Context, id string) error {
	if err := e.roster.RemoveRep(id); err != nil {
		return err
	}
	return e.persistRoster(ctx)
}

// Reorder replaces lane's base order and persists it.
func (e *Engine) Reorder(ctx context.Context, lane types.Lane, newOrder []string) error {
	if err := e.roster.Reorder(lane, newOrder); err != nil {
		return err
	}
	return e.persistRoster(ctx)
}

func (e *Engine) persistRoster(ctx context.Context) error {
	return e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		return tx.WriteRoster(ctx, e.roster.Snapshot())
	})
}

func (e *Engine) persistReplacementsLocked(ctx context.Context, tx storage.Transaction) error {
	return tx.WriteReplacementRecords(ctx, e.replacements.Snapshot())
}

// allEvents reads the full, unfiltered event log. The resolver and
// eligibility checks always operate over full history — OOO-for-a-day and
// "is this mark still open" are not time-windowed concepts, unlike the
// statistics query.Compute renders.
func (e *Engine) allEvents(ctx context.Context) ([]types.Event, error) {
	return e.store.Range(ctx, eventlog.Filter{})
}

// oooIndex adapts a flat event slice to eligibility.OOOSet.
type oooIndex struct {
	days map[string]bool
}

func newOOOIndex(events []types.Event) oooIndex {
	idx := oooIndex{days: make(map[string]bool)}
	for _, e := range events {
		if e.Kind == types.EventOOO {
			idx.days[oooKey(e.RepID, e.Day, e.Month, e.Year)] = true
		}
	}
	return idx
}

func (idx oooIndex) IsOOO(repID string, day, month, year int) bool {
	return idx.days[oooKey(repID, day, month, year)]
}

func oooKey(repID string, day, month, year int) string {
	return fmt.Sprintf("%s|%d-%d-%d", repID, year, month, day)
}

// pipeline computes the sequence, overlay queue, and resolver lookups
// shared by ResolveNextRep and QueryRotation for one lane, over a given
// event slice (full history for resolve, windowed for query).
func (e *Engine) pipeline(lane types.Lane, events []types.Event) (base []types.Rep, seq []sequence.Entry, queue []string) {
	base = e.roster.ListActive(lane)
	counter := hits.Accumulate(events, e.opts.Hits)
	seq = sequence.Generate(base, counter, lane, e.opts.SequenceCap)
	for _, rec := range e.replacements.Queue(lane) {
		queue = append(queue, rec.RepID)
	}
	return base, seq, queue
}

func (e *Engine) lookupMark(originalLeadID string) (resolver.Mark, bool) {
	rec, ok := e.replacements.Get(originalLeadID)
	if !ok {
		return resolver.Mark{}, false
	}
	return resolver.Mark{RepID: rec.RepID, Lane: rec.Lane, Open: rec.IsOpen()}, true
}

// ResolveNextRep is the entry point for lead assignment (spec.md §4.8).
// It mutates nothing; the caller emits PlaceLead on confirmation.
func (e *Engine) ResolveNextRep(ctx context.Context, req resolver.Request) (string, error) {
	events, err := e.allEvents(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve_next_rep: %w", err)
	}
	lane := types.LaneForUnits(req.UnitCount)
	base, seq, queue := e.pipeline(lane, events)
	ooo := newOOOIndex(events)
	return resolver.Resolve(req, base, seq, queue, ooo, e.opts.PropertyMatch, e.lookupMark)
}

// PlaceRequest is place_lead's input: the lead to place, and optionally
// the original lead id of an open mark this placement fulfills.
type PlaceRequest struct {
	Lead           types.Lead
	ReplacesLeadID string
}

// PlaceLead appends LeadPlaced, and FulfillReplacement if req replaces an
// open mark, as one transaction (spec.md §6 command surface).
func (e *Engine) PlaceLead(ctx context.Context, req PlaceRequest) error {
	now := time.Now().UTC()
	lane := req.Lead.Lane()

	return e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		if req.ReplacesLeadID != "" {
			if _, err := e.replacements.Fulfill(req.ReplacesLeadID, req.Lead, now); err != nil {
				return fmt.Errorf("place_lead: %w", err)
			}
		}

		if _, err := tx.AppendEvent(ctx, types.Event{
			Ts: now, Kind: types.EventLeadPlaced,
			LeadID: req.Lead.ID, RepID: req.Lead.AssignedRep, Lane: lane,
			Day: req.Lead.Day, Month: req.Lead.Month, Year: req.Lead.Year,
		}); err != nil {
			return fmt.Errorf("place_lead: append LeadPlaced: %w", err)
		}

		if req.ReplacesLeadID != "" {
			if _, err := tx.AppendEvent(ctx, types.Event{
				Ts: now, Kind: types.EventFulfillReplacement,
				OriginalLeadID: req.ReplacesLeadID, NewLeadID: req.Lead.ID,
				RepID: req.Lead.AssignedRep, Lane: lane,
			}); err != nil {
				return fmt.Errorf("place_lead: append FulfillReplacement: %w", err)
			}
			if err := e.persistReplacementsLocked(ctx, tx); err != nil {
				return fmt.Errorf("place_lead: %w", err)
			}
		}
		return nil
	})
}

// MarkForReplacement opens a replacement mark on lead, idempotent by
// lead.ID: a second call against a lead whose mark is still open appends
// nothing, and a call against a lead whose mark is closed fails with
// ErrMarkAlreadyClosed.
func (e *Engine) MarkForReplacement(ctx context.Context, lead types.Lead, markID string) error {
	now := time.Now().UTC()

	return e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		// Checked inside the transaction, under the write lock
		// RunInTransaction holds, so a concurrent second mark can't
		// observe "not yet marked" and append a duplicate event.
		_, alreadyMarked := e.replacements.Get(lead.ID)
		if _, err := e.replacements.Mark(lead, markID, now); err != nil {
			return fmt.Errorf("mark_for_replacement: %w", err)
		}
		if alreadyMarked {
			return nil
		}
		if _, err := tx.AppendEvent(ctx, types.Event{
			Ts: now, Kind: types.EventMarkForReplacement,
			LeadID: lead.ID, RepID: lead.AssignedRep, Lane: lead.Lane(),
		}); err != nil {
			return fmt.Errorf("mark_for_replacement: append: %w", err)
		}
		return e.persistReplacementsLocked(ctx, tx)
	})
}

// Unmark closes an open mark without a fulfillment, restoring its rep's
// hit (spec.md §4.4 unmark).
func (e *Engine) Unmark(ctx context.Context, leadID string) error {
	now := time.Now().UTC()
	return e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		rec, err := e.replacements.Unmark(leadID)
		if err != nil {
			return fmt.Errorf("unmark: %w", err)
		}
		if _, err := tx.AppendEvent(ctx, types.Event{
			Ts: now, Kind: types.EventUnmarkForReplacement,
			LeadID: leadID, RepID: rec.RepID, Lane: rec.Lane,
		}); err != nil {
			return fmt.Errorf("unmark: append: %w", err)
		}
		return e.persistReplacementsLocked(ctx, tx)
	})
}

// DeleteLead runs the replacement-store cascade for leadID (spec.md §4.4)
// and appends whatever compensating event the cascade implies. A lead
// unrelated to any mark has no defined compensating event in the event
// catalog (spec.md §3) and is simply not retracted — the log has no
// generic "lead deleted" event, only the mark-specific compensations.
func (e *Engine) DeleteLead(ctx context.Context, leadID string) error {
	now := time.Now().UTC()
	return e.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		effect, err := e.replacements.OnLeadDeleted(leadID)
		if err != nil {
			return fmt.Errorf("delete_lead: %w", err)
		}
		if effect.Blocked {
			return fmt.Errorf("delete_lead %s: %w", leadID, rotationerr.ErrDeleteBlocked)
		}

		switch {
		case effect.Reopened != nil:
			if _, err := tx.AppendEvent(ctx, types.Event{
				Ts: now, Kind: types.EventReopenReplacement,
				LeadID: leadID, RepID: effect.Reopened.RepID, Lane: effect.Reopened.Lane,
			}); err != nil {
				return fmt.Errorf("delete_lead: append ReopenReplacement: %w", err)
			}
			return e.persistReplacementsLocked(ctx, tx)

		case effect.MarkRemoved != nil:
			if _, err := tx.AppendEvent(ctx, types.Event{
				Ts: now, Kind: types.EventUnmarkForReplacement,
				LeadID: leadID, RepID: effect.MarkRemoved.RepID, Lane: effect.MarkRemoved.Lane,
			}); err != nil {
				return fmt.Errorf("delete_lead: append UnmarkForReplacement: %w", err)
			}
			return e.persistReplacementsLocked(ctx, tx)

		default:
			return nil
		}
	})
}

// Skip appends a Skip event crediting repID's lane(s) one hit without an
// associated lead (spec.md §3's Skip event).
func (e *Engine) Skip(ctx context.Context, repID string, target types.SkipTarget, day, month, year int) error {
	lane := skipLane(target)
	_, err := e.store.Append(ctx, types.Event{
		Ts: time.Now().UTC(), Kind: types.EventSkip,
		RepID: repID, Lane: lane, SkipTarget: target,
		Day: day, Month: month, Year: year,
	})
	if err != nil {
		return fmt.Errorf("skip: %w", err)
	}
	return nil
}

func skipLane(target types.SkipTarget) types.Lane {
	switch target {
	case types.SkipTargetSub1k:
		return types.LaneSub1k
	case types.SkipTarget1kPlus:
		return types.Lane1kPlus
	default:
		return ""
	}
}

// SetOOO appends an OOO event excluding repID from selection for the given
// calendar day (spec.md §4.7 step 2).
func (e *Engine) SetOOO(ctx context.Context, repID string, day, month, year int) error {
	_, err := e.store.Append(ctx, types.Event{
		Ts: time.Now().UTC(), Kind: types.EventOOO,
		RepID: repID, Day: day, Month: month, Year: year,
	})
	if err != nil {
		return fmt.Errorf("set_ooo: %w", err)
	}
	return nil
}

// View selects query_rotation's collapsed or expanded rendering.
type View string

const (
	ViewCollapsed View = "collapsed"
	ViewExpanded  View = "expanded"
)

// QueryRotation computes lane's rotation rows for the given window and
// view (spec.md §4.9, §6 query_rotation).
func (e *Engine) QueryRotation(ctx context.Context, lane types.Lane, window query.Window, view View) ([]query.RotationRow, error) {
	events, err := e.allEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("query_rotation: %w", err)
	}

	start, end := query.Bounds(window, time.Now())
	windowed := make([]types.Event, 0, len(events))
	for _, e := range events {
		if query.InWindow(e, start, end) {
			windowed = append(windowed, e)
		}
	}

	base := e.roster.ListActive(lane)
	counter := hits.Accumulate(windowed, e.opts.Hits)
	seq := sequence.Generate(base, counter, lane, e.opts.SequenceCap)
	var queue []string
	for _, rec := range e.replacements.Queue(lane) {
		queue = append(queue, rec.RepID)
	}

	var entries []overlay.Entry
	if view == ViewExpanded {
		entries = overlay.Expanded(seq, queue)
	} else {
		entries = overlay.Collapsed(sequence.Collapsed(seq), queue)
	}

	walk := overlay.Walk(seq, queue)
	var nextRepID string
	if len(walk) > 0 {
		nextRepID = walk[0]
	}

	rows := make([]query.RotationRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, query.RotationRow{
			RepID:           entry.RepID,
			DisplayPosition: entry.DisplayPosition,
			Hits:            counter.Net(entry.RepID, lane),
			IsNext:          entry.RepID == nextRepID,
			HasOpenMark:     entry.HasOpenMark,
		})
	}
	return rows, nil
}

// QueryReplacementQueue lists lane's open replacement queue (spec.md §6
// query_replacement_queue).
func (e *Engine) QueryReplacementQueue(lane types.Lane) []query.QueueRow {
	records := e.replacements.Queue(lane)
	rows := make([]query.QueueRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, query.QueueRow{
			RepID:          rec.RepID,
			OriginalLeadID: rec.OriginalLeadID,
			MarkedAt:       rec.MarkedAt,
			AccountNumber:  rec.AccountNumber,
			URL:            rec.URL,
		})
	}
	return rows
}

// Stats computes query_rotation's panel statistics for window (spec.md
// §4.9's total leads / leaderboard / leads-needing-replacement bundle).
func (e *Engine) Stats(ctx context.Context, window query.Window) (query.Stats, error) {
	events, err := e.allEvents(ctx)
	if err != nil {
		return query.Stats{}, fmt.Errorf("stats: %w", err)
	}
	start, end := query.Bounds(window, time.Now())
	windowed := make([]types.Event, 0, len(events))
	for _, e := range events {
		if query.InWindow(e, start, end) {
			windowed = append(windowed, e)
		}
	}
	openMarks := len(e.replacements.Queue(types.LaneSub1k)) + len(e.replacements.Queue(types.Lane1kPlus))
	return query.Compute(windowed, e.roster.Snapshot(), openMarks, e.opts.Hits), nil
}
