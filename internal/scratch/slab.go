package scratch

// slab is a bump allocator over one scratch segment's slots, with a small
// LIFO free list for slots released before the segment fills.
//
// A candidate's pages are allocated once and then either kept or discarded
// all at once (ReleaseAll, or closing the Buffer, which is what the planner
// does when Build returns) — individual release is the exception, not the
// steady state, so
// there's no need to scan for the oldest free slot the way a long-lived
// buffer pool would: a bump counter covers the common case and the free
// list only matters for slots released out of allocation order.
type slab struct {
	numSlots uint32
	next     uint32
	free     []uint32
}

func newSlab(numSlots uint32) *slab {
	return &slab{numSlots: numSlots}
}

// allocate returns a fresh slot index, preferring the most recently
// released slot over bumping the high-water mark.
func (s *slab) allocate() (uint32, bool) {
	if n := len(s.free); n > 0 {
		slot := s.free[n-1]
		s.free = s.free[:n-1]
		return slot, true
	}
	if s.next >= s.numSlots {
		return 0, false
	}
	slot := s.next
	s.next++
	return slot, true
}

func (s *slab) release(slot uint32) {
	if slot >= s.numSlots {
		return
	}
	s.free = append(s.free, slot)
}

// reset discards every allocation, returning the slab to empty.
func (s *slab) reset() {
	s.next = 0
	s.free = s.free[:0]
}
