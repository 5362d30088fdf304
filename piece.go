package airindex

import "math"

// PageExtent is a byte range on some blob: (offset, length), with length
// bounded by the layer's configured page size P (spec §3).
type PageExtent struct {
	Offset uint64
	Length uint32
}

// outOfRangeExtent is the sentinel "out-of-range" extent returned when a
// lookup key falls outside [min_key, max_key] (spec §4.5).
var outOfRangeExtent = PageExtent{Offset: ^uint64(0), Length: 0}

// IsOutOfRange reports whether e is the out-of-range sentinel.
func (e PageExtent) IsOutOfRange() bool { return e == outOfRangeExtent }

// DrafterID names a drafter variant (spec §4.2). It doubles as the tag in
// the tagged-dispatch-table scheme spec §9 asks for instead of an
// inheritance hierarchy.
type DrafterID uint8

const (
	DrafterIDStep DrafterID = iota
	DrafterIDBandGreedy
	DrafterIDBandEqual
)

func (id DrafterID) String() string {
	switch id {
	case DrafterIDStep:
		return "step"
	case DrafterIDBandGreedy:
		return "band_greedy"
	case DrafterIDBandEqual:
		return "band_equal"
	default:
		return "unknown"
	}
}

// IsBand reports whether this drafter produces linear (slope != 0) pieces,
// as opposed to step's constant pieces. Used to decide whether a leaf
// piece's prediction error can fall on either side of the true offset
// (band) or only ahead of it (step) when sizing a read window.
func (id DrafterID) IsBand() bool {
	return id == DrafterIDBandGreedy || id == DrafterIDBandEqual
}

// Piece is a single model segment: a key range [LoKey, HiKey] with a linear
// (or constant, when Slope == 0) predictor for the record's position (spec
// §3, §4.2/§4.3).
//
// HiKey is never serialized (spec §6.2: "the next page's first key equals
// the current page's last-piece upper bound + 1") — after decoding it is
// reconstructed from context (the next piece's LoKey, or the KeyBuffer's
// max key for the very last piece) rather than read from the piece record.
// Likewise the "child: PageExtent" attribute spec §3 lists is not stored
// per piece: it is derived on demand from Predict(), because storing it
// would duplicate what the model params already encode (see
// BranchChildExtent/LeafDataExtent in layer.go).
type Piece struct {
	LoKey  uint64
	HiKey  uint64
	Offset uint64  // predicted position at LoKey (the intercept)
	Slope  float64 // 0 for step pieces
}

// Predict returns the piece's predicted position for key, rounding to the
// nearest integer (spec §4.2/§4.3).
func (p Piece) Predict(key uint64) uint64 {
	if p.Slope == 0 {
		return p.Offset
	}
	delta := float64(int64(key) - int64(p.LoKey))
	pred := float64(p.Offset) + p.Slope*delta
	if pred < 0 {
		return 0
	}
	return uint64(math.Round(pred))
}

// ModelDraft is a Drafter's output over a KeyBuffer window: an ordered,
// gap-free, overlap-free partition of the key range into Pieces, each
// within MaxError of the true position (spec §3, §4.2).
type ModelDraft struct {
	DrafterID DrafterID
	PageSize  uint32
	Pieces    []Piece
	MaxError  uint64 // ε_max, in position units
}

// compareDrafts implements spec §4.2's tie-break: "prefer fewer pieces,
// then lexicographic (drafter_id, P)". Returns <0 if a sorts before b.
func compareDrafts(a, b *ModelDraft) int {
	if len(a.Pieces) != len(b.Pieces) {
		return len(a.Pieces) - len(b.Pieces)
	}
	if a.DrafterID.String() != b.DrafterID.String() {
		if a.DrafterID.String() < b.DrafterID.String() {
			return -1
		}
		return 1
	}
	if a.PageSize != b.PageSize {
		if a.PageSize < b.PageSize {
			return -1
		}
		return 1
	}
	return 0
}

// epsMax computes ε_max = P / record_size (spec §4.2), in position units
// (records). recordSize must be > 0 for leaf-level fits; branch-level fits
// over a synthetic key sequence pass recordSize=1 since their "positions"
// are already byte offsets (spec §4.4's per-layer byte-granular predicted
// offsets).
func epsMax(pageSize uint32, recordSize uint32) uint64 {
	if recordSize == 0 {
		recordSize = 1
	}
	return uint64(pageSize) / uint64(recordSize)
}

// epsMaxBytes converts ε_max from record units back to the byte-offset
// units the drafters actually compare against: ε_max(records) * record_size
// ≈ P, the guarantee that a single P-byte read contains the answer.
func epsMaxBytes(pageSize uint32, recordSize uint32) uint64 {
	if recordSize == 0 {
		recordSize = 1
	}
	return epsMax(pageSize, recordSize) * uint64(recordSize)
}
