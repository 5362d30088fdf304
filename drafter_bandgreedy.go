package airindex

import "math"

// bandGreedyDrafter fits linear pieces using the classic shrinking-cone PLA
// construction: maintain a feasible-slope cone anchored at the piece's
// first point; close the piece and restart when the next point would
// collapse the cone (spec §4.2).
type bandGreedyDrafter struct{}

func (bandGreedyDrafter) ID() DrafterID { return DrafterIDBandGreedy }

func (bandGreedyDrafter) PieceStride(dtype KeyDType) int {
	return dtype.Width() + 8 + 8 // key + offset + slope(f64)
}

func (bandGreedyDrafter) Fit(kb *KeyBuffer, recordSize uint32, pageSize uint32) (*ModelDraft, error) {
	n := kb.Len()
	if n == 0 {
		return nil, NewError(FitError, "band_greedy: empty key buffer")
	}

	eps := float64(epsMaxBytes(pageSize, recordSize))
	if eps == 0 {
		return nil, NewError(FitError, "band_greedy: page size %d too small for record size %d", pageSize, recordSize)
	}

	keys := kb.Keys()
	offsets := kb.Offsets()

	var pieces []Piece
	anchorIdx := 0
	haveCone := false
	var slopeMin, slopeMax float64

	closePiece := func(lastIdx int, hiKey uint64) {
		var slope float64
		if haveCone {
			slope = (slopeMin + slopeMax) / 2
		}
		pieces = append(pieces, Piece{
			LoKey:  keys[anchorIdx],
			HiKey:  hiKey,
			Offset: offsets[anchorIdx],
			Slope:  slope,
		})
		_ = lastIdx
	}

	for i := 1; i < n; i++ {
		x0 := float64(int64(keys[anchorIdx]))
		y0 := float64(offsets[anchorIdx])
		xi := float64(int64(keys[i]))
		yi := float64(offsets[i])

		dx := xi - x0
		sLo := ((yi - eps) - y0) / dx
		sHi := ((yi + eps) - y0) / dx

		var newMin, newMax float64
		if !haveCone {
			newMin, newMax = sLo, sHi
		} else {
			newMin = math.Max(slopeMin, sLo)
			newMax = math.Min(slopeMax, sHi)
		}

		if newMin > newMax {
			// Cone collapsed: close the piece at the previous point and
			// restart the cone at i.
			closePiece(i-1, keys[i]-1)
			anchorIdx = i
			haveCone = false
			continue
		}

		slopeMin, slopeMax = newMin, newMax
		haveCone = true
	}
	closePiece(n-1, keys[n-1])

	return &ModelDraft{DrafterID: DrafterIDBandGreedy, PageSize: pageSize, Pieces: pieces, MaxError: epsMax(pageSize, recordSize)}, nil
}
