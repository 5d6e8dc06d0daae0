// Package query is the Query Surface (spec.md §4.9, component C9). It
// turns a windowed event slice, the current roster, and the replacement
// store's open-mark count into the statistics and rotation/queue views the
// CLI's query commands render.
package query

import (
	"sort"
	"time"

	"github.com/maxwell903/sdr-lead-rotation/internal/hits"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

// Window is one of the five time windows spec.md §4.9 names.
type Window string

const (
	WindowDay     Window = "day"
	WindowWeek    Window = "week"
	WindowMonth   Window = "month"
	WindowYTD     Window = "ytd"
	WindowAllTime Window = "alltime"
)

// Bounds returns the half-open [start, end) range for window relative to
// today. end is always the start of the day after today; start depends on
// the window: day is today alone, week is the preceding 6 days inclusive
// of today, month is the 1st of today's calendar month, ytd is January 1st
// of today's year, and alltime has a zero start (no lower bound).
func Bounds(window Window, today time.Time) (start, end time.Time) {
	y, m, d := today.Date()
	loc := today.Location()
	startOfToday := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end = startOfToday.Add(24 * time.Hour)

	switch window {
	case WindowDay:
		return startOfToday, end
	case WindowWeek:
		return startOfToday.AddDate(0, 0, -6), end
	case WindowMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc), end
	case WindowYTD:
		return time.Date(y, 1, 1, 0, 0, 0, 0, loc), end
	default:
		return time.Time{}, end
	}
}

// InWindow reports whether e.Ts falls within [start, end).
func InWindow(e types.Event, start, end time.Time) bool {
	if !start.IsZero() && e.Ts.Before(start) {
		return false
	}
	return e.Ts.Before(end)
}

// RepCount is one rep's aggregate hit count, for leaderboard rendering.
type RepCount struct {
	RepID string
	Count int
}

// Stats is the statistics bundle spec.md §4.9 names: total leads,
// most/least-assigned reps, leads needing replacement, per-rep hits by
// lane, and the roster's original (base) order passed through unchanged.
type Stats struct {
	TotalLeads              int
	MostAssigned            []RepCount
	LeastAssigned           []RepCount
	LeadsNeedingReplacement int
	HitsByRepLane           hits.Counter
	OriginalOrder           []types.Rep
}

// Compute derives Stats from a windowed event slice, the full roster
// (for OriginalOrder and to include zero-hit reps in the leaderboard), the
// count of currently open replacement marks, and the accumulator options in
// force (hits.window-aware-mfr).
func Compute(events []types.Event, roster []types.Rep, openMarks int, opts hits.Options) Stats {
	counter := hits.Accumulate(events, opts)

	totalLeads := 0
	for _, e := range events {
		if e.Kind == types.EventLeadPlaced {
			totalLeads++
		}
	}

	perRep := make(map[string]int, len(roster))
	for _, rep := range roster {
		perRep[rep.ID] = 0
	}
	for key, n := range counter {
		perRep[key.RepID] += n
	}

	counts := make([]RepCount, 0, len(perRep))
	for repID, n := range perRep {
		counts = append(counts, RepCount{RepID: repID, Count: n})
	}

	most := append([]RepCount(nil), counts...)
	sort.Slice(most, func(i, j int) bool {
		if most[i].Count != most[j].Count {
			return most[i].Count > most[j].Count
		}
		return most[i].RepID < most[j].RepID
	})

	least := append([]RepCount(nil), counts...)
	sort.Slice(least, func(i, j int) bool {
		if least[i].Count != least[j].Count {
			return least[i].Count < least[j].Count
		}
		return least[i].RepID < least[j].RepID
	})

	return Stats{
		TotalLeads:              totalLeads,
		MostAssigned:            most,
		LeastAssigned:           least,
		LeadsNeedingReplacement: openMarks,
		HitsByRepLane:           counter,
		OriginalOrder:           roster,
	}
}

// QueueRow is one row of query_replacement_queue's output schema.
type QueueRow struct {
	RepID         string
	OriginalLeadID string
	MarkedAt      time.Time
	AccountNumber string
	URL           string
}

// RotationRow is one row of query_rotation's output schema.
type RotationRow struct {
	RepID           string
	DisplayPosition int
	Hits            int
	IsNext          bool
	HasOpenMark     bool
}
