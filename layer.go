package airindex

import (
	"context"
	"sync"

	"github.com/airindex-go/airindex/internal/pagestage"
	"github.com/airindex-go/airindex/internal/scratch"
)

// Layer is one built level of the index: a drafter's pieces packed into
// fixed-size pages, plus the byte layout a Planner or Reader needs to
// address those pages (spec §4.3, §4.4, §6).
type Layer struct {
	DrafterID DrafterID
	PageSize  uint32
	Dtype     KeyDType
	Pages     [][]byte
	Extents   []PageExtent // byte range of each page within this layer's serialized blob
	FirstKeys []uint64     // first piece's LoKey on each page, parallel to Pages
	OwnCost   float64      // profile.Cost(1, PageSize): cost of fetching one page at this layer
}

// ByteLen returns the total serialized size of the layer's blob.
func (l *Layer) ByteLen() uint64 {
	if len(l.Extents) == 0 {
		return 0
	}
	last := l.Extents[len(l.Extents)-1]
	return last.Offset + uint64(last.Length)
}

// LayerBuilder packs a drafter's ordered pieces into pages. Page capacity is
// constant for a given (drafter, dtype) pair, so page boundaries are known
// before any page is encoded — this lets packing fan out across workers,
// one per page index, with no coordination needed between workers.
type LayerBuilder struct {
	Workers int
}

// NewLayerBuilder creates a LayerBuilder that packs up to workers pages
// concurrently.
func NewLayerBuilder(workers int) *LayerBuilder {
	if workers < 1 {
		workers = 1
	}
	return &LayerBuilder{Workers: workers}
}

// Build packs pieces (already ordered by LoKey) into pages of exactly
// pageSize bytes, except for a possibly-short final page (spec §4.3).
// profile may be nil, in which case OwnCost is left zero. scratchBuf may be
// nil; when set (and sized for exactly pageSize), page buffers are staged
// off-heap in it instead of being freshly allocated (spec §5's candidate
// layer buffers, see internal/scratch).
func (lb *LayerBuilder) Build(ctx context.Context, pieces []Piece, dtype KeyDType, id DrafterID, pageSize uint32, profile StorageProfile, scratchBuf *scratch.Buffer) (*Layer, error) {
	if len(pieces) == 0 {
		return nil, NewError(BuildError, "layer: no pieces to pack")
	}
	stride := pieceStride(dtype, id)
	capacity := (int(pageSize) - PageHeaderSize) / stride
	if capacity < 1 {
		return nil, NewError(BuildError, "layer: page size %d too small for a single %s piece", pageSize, id)
	}
	nPages := (len(pieces) + capacity - 1) / capacity
	if scratchBuf != nil && scratchBuf.PageSize() != pageSize {
		scratchBuf = nil // size mismatch: fall back to heap allocation
	}

	staged := pagestage.New(nPages)
	firstKeys := make([]uint64, nPages)

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, lb.Workers)

	for pageIdx := 0; pageIdx < nPages; pageIdx++ {
		if err := ctx.Err(); err != nil {
			wg.Wait()
			return nil, err
		}
		lo := pageIdx * capacity
		hi := lo + capacity
		if hi > len(pieces) {
			hi = len(pieces)
		}
		group := pieces[lo:hi]
		firstKeys[pageIdx] = group[0].LoKey
		last := pageIdx == nPages-1

		wg.Add(1)
		sem <- struct{}{}
		go func(idx int, grp []Piece, shortPage bool) {
			defer wg.Done()
			defer func() { <-sem }()
			var page []byte
			switch {
			case shortPage:
				page = EncodeShortPage(grp, dtype, id)
			case scratchBuf != nil:
				mu.Lock()
				buf, _, err := scratchBuf.Allocate()
				mu.Unlock()
				if err != nil {
					page = EncodePage(grp, dtype, id, pageSize)
				} else {
					EncodePageInto(buf, grp, dtype, id)
					page = buf
				}
			default:
				page = EncodePage(grp, dtype, id, pageSize)
			}
			mu.Lock()
			staged.Set(uint32(idx), page)
			mu.Unlock()
		}(pageIdx, group, last)
	}
	wg.Wait()

	pages := make([][]byte, nPages)
	extents := make([]PageExtent, nPages)
	var offset uint64
	for i := 0; i < nPages; i++ {
		p := staged.Get(uint32(i))
		pages[i] = p
		extents[i] = PageExtent{Offset: offset, Length: uint32(len(p))}
		offset += uint64(len(p))
	}

	layer := &Layer{
		DrafterID: id,
		PageSize:  pageSize,
		Dtype:     dtype,
		Pages:     pages,
		Extents:   extents,
		FirstKeys: firstKeys,
	}
	if profile != nil {
		layer.OwnCost = profile.Cost(1, uint64(pageSize))
	}
	return layer, nil
}

// BranchChildExtent resolves a branch piece's prediction into the child
// layer's page extent (spec §4.4: the stage-j+1 fit's "offsets" are the
// stage-j page's byte position, so predicting one locates a child page
// rather than a record). predicted is rounded down to the nearest child
// page boundary and clamped to the child layer's actual length, since the
// final child page may be short.
func BranchChildExtent(predicted uint64, childPageSize uint32, childLayerByteLen uint64) PageExtent {
	if childPageSize == 0 || childLayerByteLen == 0 {
		return outOfRangeExtent
	}
	maxPageIdx := (childLayerByteLen - 1) / uint64(childPageSize)
	pageIdx := predicted / uint64(childPageSize)
	if pageIdx > maxPageIdx {
		pageIdx = maxPageIdx
	}
	offset := pageIdx * uint64(childPageSize)
	length := uint64(childPageSize)
	if offset+length > childLayerByteLen {
		length = childLayerByteLen - offset
	}
	return PageExtent{Offset: offset, Length: uint32(length)}
}

// LeafDataExtent resolves a leaf piece's prediction into a single
// pageSize-byte read window over the dataset blob (spec §4.5's "one
// bounded read locates the record"). centered windows are used for band
// drafters, whose fitted error can fall on either side of the prediction;
// step's error is one-sided ahead of the prediction (drafter_step.go always
// predicts the run's minimum true offset), so its window starts there and
// extends forward.
func LeafDataExtent(predicted uint64, pageSize uint32, centered bool, dataBlobLen uint64) PageExtent {
	if pageSize == 0 || dataBlobLen == 0 {
		return outOfRangeExtent
	}
	half := uint64(pageSize) / 2
	var start uint64
	if centered && predicted > half {
		start = predicted - half
	} else if centered {
		start = 0
	} else {
		start = predicted
	}

	length := uint64(pageSize)
	if start >= dataBlobLen {
		start = 0
		if dataBlobLen < length {
			length = dataBlobLen
		}
		return PageExtent{Offset: start, Length: uint32(length)}
	}
	if start+length > dataBlobLen {
		if dataBlobLen > length {
			start = dataBlobLen - length
		} else {
			start = 0
			length = dataBlobLen
		}
	}
	return PageExtent{Offset: start, Length: uint32(length)}
}
