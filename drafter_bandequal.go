package airindex

import "math"

// bandEqualDrafter partitions the key range into equal-count segments, each
// fit by ordinary least squares, choosing the smallest segment count whose
// worst per-segment residual is within ε_max (spec §4.2).
type bandEqualDrafter struct{}

func (bandEqualDrafter) ID() DrafterID { return DrafterIDBandEqual }

func (bandEqualDrafter) PieceStride(dtype KeyDType) int {
	return dtype.Width() + 8 + 8 // key + offset + slope(f64)
}

// lsqFit fits y = slope*(x - x[0]) + offset by ordinary least squares,
// returning the intercept at x[0] (the piece's Offset) and the slope.
func lsqFit(keys, offsets []uint64) (offset float64, slope float64) {
	n := len(keys)
	if n == 1 {
		return float64(offsets[0]), 0
	}
	x0 := float64(int64(keys[0]))
	var sumX, sumY, sumXY, sumXX float64
	for i := 0; i < n; i++ {
		x := float64(int64(keys[i])) - x0
		y := float64(offsets[i])
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}
	nf := float64(n)
	denom := nf*sumXX - sumX*sumX
	if denom == 0 {
		slope = 0
	} else {
		slope = (nf*sumXY - sumX*sumY) / denom
	}
	intercept := (sumY - slope*sumX) / nf
	return intercept, slope
}

func (bandEqualDrafter) Fit(kb *KeyBuffer, recordSize uint32, pageSize uint32) (*ModelDraft, error) {
	n := kb.Len()
	if n == 0 {
		return nil, NewError(FitError, "band_equal: empty key buffer")
	}
	eps := float64(epsMaxBytes(pageSize, recordSize))
	if eps == 0 {
		return nil, NewError(FitError, "band_equal: page size %d too small for record size %d", pageSize, recordSize)
	}
	keys := kb.Keys()
	offsets := kb.Offsets()

	fits := func(segCount int) ([]Piece, bool) {
		pieces := make([]Piece, 0, segCount)
		base := 0
		for s := 0; s < segCount; s++ {
			end := (s + 1) * n / segCount
			if end <= base {
				end = base + 1
			}
			if end > n {
				end = n
			}
			offset, slope := lsqFit(keys[base:end], offsets[base:end])
			maxErr := 0.0
			for i := base; i < end; i++ {
				pred := offset + slope*float64(int64(keys[i])-int64(keys[base]))
				e := math.Abs(pred - float64(offsets[i]))
				if e > maxErr {
					maxErr = e
				}
			}
			if maxErr > eps {
				return nil, false
			}
			pieces = append(pieces, Piece{
				LoKey:  keys[base],
				HiKey:  keys[end-1],
				Offset: uint64(math.Round(offset)),
				Slope:  slope,
			})
			base = end
		}
		for i := 0; i < len(pieces)-1; i++ {
			pieces[i].HiKey = pieces[i+1].LoKey - 1
		}
		return pieces, true
	}

	// Exponential search for a passing segment count (segCount == n always
	// passes trivially: one point per segment has zero residual), then
	// binary search down to the minimum passing count.
	lastFailed := 0
	count := 1
	for {
		if count >= n {
			count = n
			break
		}
		if _, ok := fits(count); ok {
			break
		}
		lastFailed = count
		count *= 2
	}
	lo, hi := lastFailed+1, count
	for lo < hi {
		mid := (lo + hi) / 2
		if _, ok := fits(mid); ok {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	finalPieces, ok := fits(lo)
	if !ok {
		finalPieces, ok = fits(n)
		if !ok {
			return nil, NewError(FitError, "band_equal: no segment count satisfies error bound for page size %d", pageSize)
		}
	}

	return &ModelDraft{DrafterID: DrafterIDBandEqual, PageSize: pageSize, Pieces: finalPieces, MaxError: epsMax(pageSize, recordSize)}, nil
}
