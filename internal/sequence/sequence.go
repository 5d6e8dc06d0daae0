// Package sequence is the Sequence Generator (spec.md §4.5, component C5).
// Given a lane's base order and its hit counts, it produces the
// infinite deterministic rotation S in which each net hit delays a rep by
// one full cycle of N positions, using Formulation B (the next-position
// formula) over a container/heap priority queue rather than Formulation A's
// virtual-hit simulation; spec.md states the two must agree, and B runs in
// O(log N) per emission instead of O(N) per step.
package sequence

import (
	"container/heap"

	"github.com/maxwell903/sdr-lead-rotation/internal/hits"
	"github.com/maxwell903/sdr-lead-rotation/internal/types"
)

// DefaultCap is the stopping-rule cap M from spec.md §4.5, used when the
// sequence never laps back into pure base order within a reasonable bound.
const DefaultCap = 100

// Entry is one emitted position in the sequence.
type Entry struct {
	RepID    string
	Position int // 1-based position within S
}

// Generate emits S for lane, stopping at the first contiguous run equal to
// base (a "lap" into pure base order) or at cap emissions, whichever comes
// first. base must already be sorted by lane base-order position.
func Generate(base []types.Rep, counter hits.Counter, lane types.Lane, cap int) []Entry {
	if cap <= 0 {
		cap = DefaultCap
	}
	n := len(base)
	if n == 0 {
		return nil
	}

	pq := make(priorityQueue, n)
	for i, rep := range base {
		h := counter.Net(rep.ID, lane)
		pq[i] = &item{repID: rep.ID, position: i + 1 + h*n, basePos: i + 1, hits: h, n: n}
	}
	heap.Init(&pq)

	baseOrder := make([]string, n)
	for i, rep := range base {
		baseOrder[i] = rep.ID
	}

	out := make([]Entry, 0, cap)
	for len(out) < cap {
		it := heap.Pop(&pq).(*item)
		out = append(out, Entry{RepID: it.repID, Position: len(out) + 1})
		it.hits++
		it.position = it.basePos + it.hits*it.n
		heap.Push(&pq, it)

		if len(out) >= n && lapsIntoBaseOrder(out, baseOrder) {
			break
		}
	}
	return out
}

// Collapsed returns the first appearance of each rep in s, in order of that
// first appearance (spec.md §4.5 "Collapsed view").
func Collapsed(s []Entry) []Entry {
	seen := make(map[string]bool, len(s))
	out := make([]Entry, 0, len(s))
	pos := 0
	for _, e := range s {
		if seen[e.RepID] {
			continue
		}
		seen[e.RepID] = true
		pos++
		out = append(out, Entry{RepID: e.RepID, Position: pos})
	}
	return out
}

// lapsIntoBaseOrder reports whether the last len(baseOrder) entries of out
// equal baseOrder exactly, rep for rep.
func lapsIntoBaseOrder(out []Entry, baseOrder []string) bool {
	n := len(baseOrder)
	if len(out) < n {
		return false
	}
	tail := out[len(out)-n:]
	for i, repID := range baseOrder {
		if tail[i].RepID != repID {
			return false
		}
	}
	return true
}

// item is one rep's entry in the priority queue: its next appearance
// position in S, per Formulation B (p(r) + h(r)*N).
type item struct {
	repID    string
	position int
	basePos  int
	hits     int
	n        int
	index    int
}

// priorityQueue orders items by next-appearance position ascending,
// breaking ties by base-order position ascending — the tie-break spec.md
// §4.5 calls "critical": two reps tied on hits are ordered by B, always.
type priorityQueue []*item

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].position != pq[j].position {
		return pq[i].position < pq[j].position
	}
	return pq[i].basePos < pq[j].basePos
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	it := x.(*item)
	it.index = len(*pq)
	*pq = append(*pq, it)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	it := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return it
}
