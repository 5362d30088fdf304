// Package scratch provides a memory-mapped buffer for staging candidate
// layer pages during a planner build stage.
//
// A top-K beam of width K keeps up to K*|candidates| page sets alive at
// once before a stage's survivors are chosen and the rest are thrown away.
// That churn is cheap on an mmap'd region — pages never leave the mapped
// file, so discarding a losing candidate costs a slab reset, not a GC
// sweep — but expensive as Go heap allocations, which is why build stages
// route their page buffers through here instead of plain make([]byte, ...).
package scratch

import (
	"os"
	"sync"

	"github.com/airindex-go/airindex/mmap"
)

// DefaultInitialCap is the default slot count per segment.
const DefaultInitialCap = 1024

// DefaultMaxSegments bounds total buffer growth.
const DefaultMaxSegments = 256

type segment struct {
	file *os.File
	mmap *mmap.Map
	path string
	sl   *slab
	cap  uint32
}

// Buffer is a memory-mapped scratch pool of fixed-size slots, one slot per
// staged page. Segments are added on demand so the pool can grow without
// invalidating previously returned slices.
type Buffer struct {
	mu         sync.Mutex
	basePath   string
	pageSize   uint32
	segmentCap uint32
	segments   []*segment
	curSegment int
}

// Slot identifies an allocated page buffer within a Buffer.
type Slot struct {
	segmentIdx int
	slotIdx    uint32
}

// New creates a scratch buffer backed by files under basePath, one slot per
// page of pageSize bytes. initialCap is the per-segment slot count; 0 uses
// DefaultInitialCap.
func New(basePath string, pageSize uint32, initialCap uint32) (*Buffer, error) {
	if initialCap == 0 {
		initialCap = DefaultInitialCap
	}
	b := &Buffer{basePath: basePath, pageSize: pageSize, segmentCap: initialCap}
	if err := b.addSegment(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Buffer) addSegment() error {
	if len(b.segments) >= DefaultMaxSegments {
		return errBufferFull
	}
	segIdx := len(b.segments)
	path := b.basePath
	if segIdx > 0 {
		path = b.basePath + "." + itoa(segIdx)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	size := int64(b.segmentCap) * int64(b.pageSize)
	if err := f.Truncate(size); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	m, err := mmap.New(int(f.Fd()), 0, int(size), true)
	if err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	b.segments = append(b.segments, &segment{file: f, mmap: m, path: path, sl: newSlab(b.segmentCap), cap: b.segmentCap})
	return nil
}

// Allocate returns a zeroed pageSize-byte slice and the Slot identifying it.
// Safe for concurrent use: the planner shares one Buffer per page size
// across every worker fitting a candidate at that size.
func (b *Buffer) Allocate() ([]byte, *Slot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for b.curSegment < len(b.segments) {
		seg := b.segments[b.curSegment]
		if idx, ok := seg.sl.allocate(); ok {
			return b.sliceOf(b.curSegment, idx), &Slot{segmentIdx: b.curSegment, slotIdx: idx}, nil
		}
		b.curSegment++
	}
	if err := b.addSegment(); err != nil {
		return nil, nil, err
	}
	seg := b.segments[b.curSegment]
	idx, ok := seg.sl.allocate()
	if !ok {
		return nil, nil, errBufferFull
	}
	return b.sliceOf(b.curSegment, idx), &Slot{segmentIdx: b.curSegment, slotIdx: idx}, nil
}

func (b *Buffer) sliceOf(segIdx int, slotIdx uint32) []byte {
	seg := b.segments[segIdx]
	off := int64(slotIdx) * int64(b.pageSize)
	data := seg.mmap.Data()[off : off+int64(b.pageSize)]
	for i := range data {
		data[i] = 0
	}
	return data
}

// Get returns the page data for a previously allocated slot.
func (b *Buffer) Get(s *Slot) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s == nil || s.segmentIdx >= len(b.segments) {
		return nil
	}
	return b.sliceOfNoZero(s.segmentIdx, s.slotIdx)
}

func (b *Buffer) sliceOfNoZero(segIdx int, slotIdx uint32) []byte {
	seg := b.segments[segIdx]
	off := int64(slotIdx) * int64(b.pageSize)
	return seg.mmap.Data()[off : off+int64(b.pageSize)]
}

// Release returns a slot to the pool.
func (b *Buffer) Release(s *Slot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s == nil || s.segmentIdx >= len(b.segments) {
		return
	}
	b.segments[s.segmentIdx].sl.release(s.slotIdx)
	if s.segmentIdx < b.curSegment {
		b.curSegment = s.segmentIdx
	}
}

// ReleaseAll discards every outstanding allocation without closing the
// buffer, making every slot of every segment available again. The planner
// does not call it: its scratch buffers are only closed when Build returns.
func (b *Buffer) ReleaseAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, seg := range b.segments {
		seg.sl.reset()
	}
	b.curSegment = 0
}

// Close unmaps and removes every backing segment file.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	var firstErr error
	for _, seg := range b.segments {
		if err := seg.mmap.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		seg.file.Close()
		os.Remove(seg.path)
	}
	b.segments = nil
	return firstErr
}

// PageSize returns the buffer's fixed slot size.
func (b *Buffer) PageSize() uint32 { return b.pageSize }

var errBufferFull = &bufferError{"scratch buffer full (max segments reached)"}

type bufferError struct{ msg string }

func (e *bufferError) Error() string { return "scratch: " + e.msg }

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	neg := n < 0
	if neg {
		n = -n
	}
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
