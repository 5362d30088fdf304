package airindex

// stepDrafter fits constant-offset pieces: a piece predicts the same
// offset for every key in its range. Greedy left-to-right (spec §4.2).
type stepDrafter struct{}

func (stepDrafter) ID() DrafterID { return DrafterIDStep }

func (stepDrafter) PieceStride(dtype KeyDType) int {
	return dtype.Width() + 8 // key + offset
}

func (stepDrafter) Fit(kb *KeyBuffer, recordSize uint32, pageSize uint32) (*ModelDraft, error) {
	n := kb.Len()
	if n == 0 {
		return nil, NewError(FitError, "step: empty key buffer")
	}

	eps := epsMaxBytes(pageSize, recordSize)
	if eps == 0 {
		return nil, NewError(FitError, "step: page size %d too small for record size %d", pageSize, recordSize)
	}

	keys := kb.Keys()
	offsets := kb.Offsets()

	var pieces []Piece
	baseIdx := 0
	baseOffset := offsets[0]

	closePiece := func(endIdx int, hiKey uint64) {
		pieces = append(pieces, Piece{
			LoKey:  keys[baseIdx],
			HiKey:  hiKey,
			Offset: baseOffset,
			Slope:  0,
		})
	}

	for i := 1; i < n; i++ {
		if offsets[i]-baseOffset <= eps {
			continue
		}
		// Close the run [baseIdx, i). The closed piece ends one key below
		// the next piece's first key (spec §3: "neighbour hi = next lo - 1").
		closePiece(i-1, keys[i]-1)
		baseIdx = i
		baseOffset = offsets[i]
	}
	closePiece(n-1, keys[n-1])

	return &ModelDraft{DrafterID: DrafterIDStep, PageSize: pageSize, Pieces: pieces, MaxError: epsMax(pageSize, recordSize)}, nil
}
