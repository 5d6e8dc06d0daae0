// Package overlay is the Overlay Composer (spec.md §4.6, component C6). It
// merges a lane's replacement queue on top of its sequence output for
// display and for the resolver's walk, without touching hit counts — marks
// only ever affect presentational/selectional priority.
package overlay

import (
	"github.com/maxwell903/sdr-lead-rotation/internal/sequence"
)

// Entry is one row of an overlaid view.
type Entry struct {
	RepID           string
	DisplayPosition int
	HasOpenMark     bool
}

// Collapsed overlays queue (a lane's FIFO open-mark queue, by rep id, with
// duplicates preserved) onto a collapsed sequence view. Queue members are
// lifted to the top, renumbered 1..len(queue); every other rep keeps its
// original sequence position. An empty queue returns seq unchanged.
func Collapsed(seq []sequence.Entry, queue []string) []Entry {
	out := make([]Entry, 0, len(seq)+len(queue))
	inQueue := make(map[string]bool, len(queue))
	for i, repID := range queue {
		out = append(out, Entry{RepID: repID, DisplayPosition: i + 1, HasOpenMark: true})
		inQueue[repID] = true
	}
	for _, e := range seq {
		if inQueue[e.RepID] {
			continue
		}
		out = append(out, Entry{RepID: e.RepID, DisplayPosition: e.Position, HasOpenMark: false})
	}
	return out
}

// Expanded overlays queue onto a full sequence prefix: section A is queue
// renumbered 1..len(queue), section B is the full sequence prefix
// renumbered continuing after section A. Unlike Collapsed, section B is not
// filtered against section A — a rep with an open mark still appears in
// its ordinary sequence slot, since the two sections are presented
// separately rather than merged into one ranked list.
func Expanded(seq []sequence.Entry, queue []string) []Entry {
	out := make([]Entry, 0, len(seq)+len(queue))
	for i, repID := range queue {
		out = append(out, Entry{RepID: repID, DisplayPosition: i + 1, HasOpenMark: true})
	}
	offset := len(queue)
	for i, e := range seq {
		out = append(out, Entry{RepID: e.RepID, DisplayPosition: offset + i + 1, HasOpenMark: false})
	}
	return out
}

// Walk returns the overlay's rep ids in selection-priority order: queue
// members first (FIFO, duplicates preserved), then the rest of seq in its
// own order. This is the order the Next-Rep Resolver (C8) walks looking
// for the first eligible rep.
func Walk(seq []sequence.Entry, queue []string) []string {
	out := make([]string, 0, len(seq)+len(queue))
	inQueue := make(map[string]bool, len(queue))
	for _, repID := range queue {
		out = append(out, repID)
		inQueue[repID] = true
	}
	for _, e := range seq {
		if inQueue[e.RepID] {
			continue
		}
		out = append(out, e.RepID)
	}
	return out
}
