// Package topk implements the planner's top-K DP merge table (spec §4.4,
// §9): an ordered array of at most K surviving chains, merge-inserted under
// one mutex whose only critical section is the insert-and-prune itself
// (O(K) work per insert).
package topk

import "sync"

// Candidate is one entry a Table can rank: a total cost plus a tie-break
// order for entries of equal cost (spec §4.2's "prefer fewer pieces, then
// lexicographic (drafter_id, P)").
type Candidate interface {
	Cost() float64
	// Less reports whether this candidate should sort before other when
	// both have equal Cost(); used only to break ties deterministically.
	Less(other Candidate) bool
}

// Table holds the K cheapest Candidates seen so far, sorted ascending.
type Table struct {
	mu      sync.Mutex
	k       int
	entries []Candidate
}

// New creates a Table that keeps at most k entries.
func New(k int) *Table {
	if k < 1 {
		k = 1
	}
	return &Table{k: k}
}

// Insert merges c into the table, evicting the worst entry if the table is
// already at capacity and c is better than it.
func (t *Table) Insert(c Candidate) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pos := 0
	for pos < len(t.entries) && less(t.entries[pos], c) {
		pos++
	}
	t.entries = append(t.entries, nil)
	copy(t.entries[pos+1:], t.entries[pos:])
	t.entries[pos] = c
	if len(t.entries) > t.k {
		t.entries = t.entries[:t.k]
	}
}

// less orders a before b: smaller cost first, then a's own tie-break.
func less(a, b Candidate) bool {
	if a.Cost() != b.Cost() {
		return a.Cost() < b.Cost()
	}
	return a.Less(b)
}

// Entries returns the surviving candidates, ascending, len <= k.
func (t *Table) Entries() []Candidate {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Candidate, len(t.entries))
	copy(out, t.entries)
	return out
}

// Len reports how many candidates currently survive.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
