package airindex

import (
	"context"
	"sort"

	"github.com/airindex-go/airindex/storage"
)

// IndexReader serves lookups against an index already written to storage
// (spec §4.5). It caches only the root page — every layer below the root is
// fetched fresh per lookup, so memory use does not grow with depth or
// dataset size.
type IndexReader struct {
	baseURL  string
	manifest *Manifest
	root     []*Piece
	rootHi   uint64 // upper key bound of the cached root page (== MaxKey)
}

// OpenReader reads baseURL's manifest and caches the root page (spec §4.5:
// "the root page is small enough to keep resident"). A missing or corrupt
// manifest is reported as an IoError; out-of-range keys are a Lookup-time
// concern, not an open-time one.
func OpenReader(baseURL string) (*IndexReader, error) {
	manifestURL := blobURL(baseURL, "manifest")
	backend, err := storage.Open(manifestURL, false)
	if err != nil {
		return nil, NewError(IoError, "open manifest: %v", err)
	}
	defer backend.Close()

	ctx := context.Background()
	size, err := backend.Size(ctx)
	if err != nil {
		return nil, NewError(IoError, "stat manifest: %v", err)
	}
	data, err := backend.Read(ctx, 0, uint32(size))
	if err != nil {
		return nil, NewError(IoError, "read manifest: %v", err)
	}
	m, err := DecodeManifest(data)
	if err != nil {
		return nil, err
	}
	if len(m.Layers) == 0 {
		return nil, NewError(IoError, "manifest: no layers")
	}

	r := &IndexReader{baseURL: baseURL, manifest: m, rootHi: m.MaxKey}
	rootMeta := m.Layers[0]
	rootBackend, err := storage.Open(rootMeta.BlobURL, false)
	if err != nil {
		return nil, NewError(IoError, "open root layer: %v", err)
	}
	defer rootBackend.Close()
	rootPage, err := rootBackend.Read(ctx, 0, rootMeta.PageSize)
	if err != nil {
		// the root layer's single page may be short (spec §4.3)
		rootSize, sizeErr := rootBackend.Size(ctx)
		if sizeErr != nil {
			return nil, NewError(IoError, "read root page: %v", err)
		}
		rootPage, err = rootBackend.Read(ctx, 0, uint32(rootSize))
		if err != nil {
			return nil, NewError(IoError, "read root page: %v", err)
		}
	}
	pieces, err := DecodePage(rootPage, m.Dtype, rootMeta.DrafterID)
	if err != nil {
		return nil, err
	}
	fillLastHiKey(pieces, m.MaxKey)
	r.root = toPtrSlice(pieces)
	return r, nil
}

func toPtrSlice(pieces []Piece) []*Piece {
	out := make([]*Piece, len(pieces))
	for i := range pieces {
		out[i] = &pieces[i]
	}
	return out
}

// fillLastHiKey sets the final piece's HiKey to maxKey, the one boundary
// DecodePage cannot infer from a following piece (spec §6.2).
func fillLastHiKey(pieces []Piece, maxKey uint64) {
	if len(pieces) == 0 {
		return
	}
	pieces[len(pieces)-1].HiKey = maxKey
}

// searchPiecePtrLE is searchPieceLE over []*Piece, used for the cached root.
func searchPiecePtrLE(pieces []*Piece, key uint64) int {
	i := sort.Search(len(pieces), func(i int) bool { return pieces[i].LoKey > key })
	return i - 1
}

// Lookup resolves key to a PageExtent on the data blob by walking the index
// from the cached root down to the leaf (spec §4.5). A key outside
// [MinKey, MaxKey] is rejected in a single check — no traversal is
// performed — and reports NotFoundKind (scenario S5: "exactly one layer
// traversal" is the zero-traversal case when the key is out of range).
func (r *IndexReader) Lookup(ctx context.Context, key uint64) (PageExtent, error) {
	if key < r.manifest.MinKey || key > r.manifest.MaxKey {
		return outOfRangeExtent, NewError(NotFoundKind, "key %d out of range [%d, %d]", key, r.manifest.MinKey, r.manifest.MaxKey)
	}

	idx := searchPiecePtrLE(r.root, key)
	if idx < 0 {
		return outOfRangeExtent, NewError(NotFoundKind, "key %d below root's first piece", key)
	}
	piece := r.root[idx]
	predicted := piece.Predict(key)

	depth := len(r.manifest.Layers)
	if depth == 1 {
		return r.resolveLeaf(ctx, piece, predicted, key)
	}

	extent, err := r.descend(ctx, 1, predicted)
	if err != nil {
		return outOfRangeExtent, err
	}

	for layerIdx := 1; layerIdx < depth; layerIdx++ {
		meta := r.manifest.Layers[layerIdx]
		backend, err := storage.Open(meta.BlobURL, false)
		if err != nil {
			return outOfRangeExtent, NewError(IoError, "open layer %d: %v", layerIdx, err)
		}
		page, err := backend.Read(ctx, extent.Offset, extent.Length)
		backend.Close()
		if err != nil {
			return outOfRangeExtent, NewError(IoError, "read layer %d: %v", layerIdx, err)
		}
		pieces, err := DecodePage(page, r.manifest.Dtype, meta.DrafterID)
		if err != nil {
			return outOfRangeExtent, err
		}
		last := layerIdx == depth-1
		pi := searchPieceLE(pieces, key)
		if pi < 0 {
			return outOfRangeExtent, NewError(NotFoundKind, "key %d below layer %d's first piece", key, layerIdx)
		}
		p := pieces[pi]
		predicted = p.Predict(key)

		if last {
			return r.resolveLeaf(ctx, &p, predicted, key)
		}
		extent, err = r.descend(ctx, layerIdx+1, predicted)
		if err != nil {
			return outOfRangeExtent, err
		}
	}
	return outOfRangeExtent, NewError(NotFoundKind, "key %d not resolved", key)
}

// descend turns a predicted byte offset into the childLayerIdx layer's page
// extent (spec §4.4: a branch piece predicts a byte position in its child
// layer's serialized blob, not a record).
func (r *IndexReader) descend(ctx context.Context, childLayerIdx int, predicted uint64) (PageExtent, error) {
	meta := r.manifest.Layers[childLayerIdx]
	childLen := uint64(meta.PageSize) * uint64(meta.PageCount)
	if meta.PageCount > 0 {
		// the last page of a layer may be short; recover the true length
		// from storage rather than assuming full pages throughout.
		backend, err := storage.Open(meta.BlobURL, false)
		if err == nil {
			if sz, szErr := backend.Size(ctx); szErr == nil {
				childLen = sz
			}
			backend.Close()
		}
	}
	return BranchChildExtent(predicted, meta.PageSize, childLen), nil
}

// resolveLeaf turns a leaf piece's prediction into a data-blob extent (spec
// §4.5).
func (r *IndexReader) resolveLeaf(ctx context.Context, piece *Piece, predicted uint64, key uint64) (PageExtent, error) {
	meta := r.manifest.Layers[len(r.manifest.Layers)-1]
	extent := LeafDataExtent(predicted, meta.PageSize, meta.DrafterID.IsBand(), r.manifest.DataBlobLen)
	if extent.IsOutOfRange() {
		return extent, NewError(NotFoundKind, "key %d: no data extent", key)
	}
	return extent, nil
}

// Close releases the reader's cached state. It holds no open backends
// between calls, so Close never fails.
func (r *IndexReader) Close() error { return nil }
