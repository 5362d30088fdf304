// Package pagestage collects page buffers produced by LayerBuilder's
// concurrent packing workers until they can be assembled into a Layer in
// page order.
//
// A build stage's page count is known before any worker starts: piece
// capacity per page is fixed for a given (drafter, dtype) pair, so pieces
// are partitioned into exactly nPages groups up front and every index
// 0..nPages-1 is staged exactly once, by exactly one worker. That is a much
// narrower contract than a general page cache, which must track an
// unbounded and arbitrary set of page numbers appearing and disappearing
// over a database's lifetime — so Map needs no hashing at all: it is a
// flat, pre-sized slab addressed directly by page index.
package pagestage

// Map holds one page buffer per index in [0, n), written by concurrent
// workers and read back once every index has been filled.
type Map struct {
	pages [][]byte
}

// New allocates a Map sized for exactly n pages.
func New(n int) *Map {
	return &Map{pages: make([][]byte, n)}
}

// Set stages data for pageIdx. Callers serialize writes to the same
// pageIdx (LayerBuilder assigns one worker per index), so no locking is
// done here.
func (m *Map) Set(pageIdx uint32, data []byte) {
	m.pages[pageIdx] = data
}

// Get returns the staged page for pageIdx, or nil if it hasn't been
// staged yet.
func (m *Map) Get(pageIdx uint32) []byte {
	return m.pages[pageIdx]
}

// Len returns the number of pages staged so far.
func (m *Map) Len() int {
	n := 0
	for _, p := range m.pages {
		if p != nil {
			n++
		}
	}
	return n
}
