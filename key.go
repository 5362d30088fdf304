package airindex

// KeyDType identifies the on-disk width of a Key (spec §3: "unsigned integer,
// 32- or 64-bit").
type KeyDType uint8

const (
	KeyDTypeUint32 KeyDType = iota
	KeyDTypeUint64
)

// Width returns the serialized byte width of a key under this dtype.
func (d KeyDType) Width() int {
	if d == KeyDTypeUint32 {
		return 4
	}
	return 8
}

func (d KeyDType) String() string {
	if d == KeyDTypeUint32 {
		return "uint32"
	}
	return "uint64"
}

// KeyBuffer is an in-memory, sorted, strictly increasing sequence of
// (key, offset) positions scanned from a dataset's key column (spec §2, §3).
//
// Keys are kept widened to uint64 regardless of dtype; dtype only controls
// the wire width used when a key is later serialized into a piece record.
// Duplicate keys collapse to the lowest offset (spec §3's Key invariant).
type KeyBuffer struct {
	dtype      KeyDType
	keys       []uint64
	offsets    []uint64
	dataLength uint64 // last offset = dataset byte length (spec §3's KeyBuffer invariant)
}

// NewKeyBuffer creates an empty KeyBuffer for the given key width.
func NewKeyBuffer(dtype KeyDType) *KeyBuffer {
	return &KeyBuffer{dtype: dtype}
}

// Append adds a (key, offset) pair. Keys must arrive non-decreasing; a
// repeated key collapses to the lower of the two offsets, per spec §3.
func (b *KeyBuffer) Append(key, offset uint64) error {
	n := len(b.keys)
	if n > 0 {
		last := b.keys[n-1]
		if key < last {
			return NewError(ConfigError, "key %d is out of order after %d", key, last)
		}
		if key == last {
			if offset < b.offsets[n-1] {
				b.offsets[n-1] = offset
			}
			return nil
		}
	}
	b.keys = append(b.keys, key)
	b.offsets = append(b.offsets, offset)
	return nil
}

// SetDataLength records the dataset's total byte length, the implicit final
// offset of the KeyBuffer (spec §3).
func (b *KeyBuffer) SetDataLength(n uint64) { b.dataLength = n }

// DataLength returns the dataset's total byte length.
func (b *KeyBuffer) DataLength() uint64 { return b.dataLength }

// Dtype returns the key width.
func (b *KeyBuffer) Dtype() KeyDType { return b.dtype }

// Len returns the number of distinct keys.
func (b *KeyBuffer) Len() int { return len(b.keys) }

// At returns the i'th (key, offset) pair.
func (b *KeyBuffer) At(i int) (key, offset uint64) { return b.keys[i], b.offsets[i] }

// Keys returns the underlying sorted key slice. Callers must not mutate it;
// the buffer is shared read-only across build workers (spec §5, §9).
func (b *KeyBuffer) Keys() []uint64 { return b.keys }

// Offsets returns the underlying offset slice, parallel to Keys().
func (b *KeyBuffer) Offsets() []uint64 { return b.offsets }

// MinKey returns the smallest key, or (0, false) if the buffer is empty.
func (b *KeyBuffer) MinKey() (uint64, bool) {
	if len(b.keys) == 0 {
		return 0, false
	}
	return b.keys[0], true
}

// MaxKey returns the largest key, or (0, false) if the buffer is empty.
func (b *KeyBuffer) MaxKey() (uint64, bool) {
	if len(b.keys) == 0 {
		return 0, false
	}
	return b.keys[len(b.keys)-1], true
}

// Slice returns a read-only view over [lo, hi) sharing the backing arrays.
// This is the "KeyBuffer window" a Drafter fits (spec §4.2).
func (b *KeyBuffer) Slice(lo, hi int) *KeyBuffer {
	return &KeyBuffer{
		dtype:      b.dtype,
		keys:       b.keys[lo:hi],
		offsets:    b.offsets[lo:hi],
		dataLength: b.dataLength,
	}
}

// syntheticFromPieces builds a KeyBuffer whose "keys" are piece lower bounds
// and whose "offsets" are the piece's page index times the layer's page
// size, the stage-to-stage transform of spec §4.4: "Treat that Piece list as
// a new synthetic key sequence."
func syntheticFromPieces(pieces []Piece, pageExtents []PageExtent) *KeyBuffer {
	kb := &KeyBuffer{dtype: KeyDTypeUint64}
	kb.keys = make([]uint64, len(pieces))
	kb.offsets = make([]uint64, len(pieces))
	for i, p := range pieces {
		kb.keys[i] = p.LoKey
		kb.offsets[i] = pageExtents[i].Offset
	}
	if len(pageExtents) > 0 {
		last := pageExtents[len(pageExtents)-1]
		kb.dataLength = last.Offset + uint64(last.Length)
	}
	return kb
}
