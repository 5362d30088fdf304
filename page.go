package airindex

import (
	"encoding/binary"
	"math"
	"sort"
	"unsafe"
)

// pageHeader is the fixed 8-byte page header (spec §6.2): 4-byte
// little-endian piece_count, 4-byte reserved. Cast via unsafe.Pointer the
// the usual way a fixed-size binary header is read without a parser.
type pageHeader struct {
	PieceCount uint32
	Reserved   uint32
}

func headerOf(data []byte) *pageHeader {
	if len(data) < PageHeaderSize {
		return nil
	}
	return (*pageHeader)(unsafe.Pointer(&data[0]))
}

// encodePiece writes one piece record (key, then offset, then slope for
// band drafters) in little-endian order and returns the bytes written.
func encodePiece(buf []byte, dtype KeyDType, id DrafterID, p Piece) int {
	off := 0
	if dtype == KeyDTypeUint32 {
		binary.LittleEndian.PutUint32(buf[off:], uint32(p.LoKey))
		off += 4
	} else {
		binary.LittleEndian.PutUint64(buf[off:], p.LoKey)
		off += 8
	}
	binary.LittleEndian.PutUint64(buf[off:], p.Offset)
	off += 8
	if id.IsBand() {
		binary.LittleEndian.PutUint64(buf[off:], math.Float64bits(p.Slope))
		off += 8
	}
	return off
}

// decodePiece parses one piece record. HiKey is left zero; callers resolve
// it from the next piece's LoKey (or the layer's max key for the final
// piece), per spec §6.2.
func decodePiece(buf []byte, dtype KeyDType, id DrafterID) (Piece, int) {
	off := 0
	var key uint64
	if dtype == KeyDTypeUint32 {
		key = uint64(binary.LittleEndian.Uint32(buf[off:]))
		off += 4
	} else {
		key = binary.LittleEndian.Uint64(buf[off:])
		off += 8
	}
	offset := binary.LittleEndian.Uint64(buf[off:])
	off += 8
	var slope float64
	if id.IsBand() {
		slope = math.Float64frombits(binary.LittleEndian.Uint64(buf[off:]))
		off += 8
	}
	return Piece{LoKey: key, Offset: offset, Slope: slope}, off
}

// pieceStride returns the serialized size of one piece record.
func pieceStride(dtype KeyDType, id DrafterID) int {
	d, ok := DrafterByID(id)
	if !ok {
		return dtype.Width() + 8
	}
	return d.PieceStride(dtype)
}

// encodePagePiecesInto writes the page header and pieces into buf (which
// must be at least PageHeaderSize+len(pieces)*stride bytes) and returns the
// number of bytes written, excluding any trailing padding.
func encodePagePiecesInto(buf []byte, pieces []Piece, dtype KeyDType, id DrafterID) int {
	h := headerOf(buf)
	h.PieceCount = uint32(len(pieces))
	off := PageHeaderSize
	for _, p := range pieces {
		off += encodePiece(buf[off:], dtype, id, p)
	}
	return off
}

// EncodePage packs pieces (already sorted by LoKey) into a single page
// buffer of exactly pageSize bytes, padding any unused trailing bytes with
// zeros (spec §4.3/§6.2). Callers ensure len(pieces)*stride+header <=
// pageSize before calling.
func EncodePage(pieces []Piece, dtype KeyDType, id DrafterID, pageSize uint32) []byte {
	buf := make([]byte, pageSize)
	encodePagePiecesInto(buf, pieces, dtype, id)
	return buf
}

// EncodePageInto is EncodePage writing into a caller-supplied pageSize-byte
// buffer (spec §5's scratch-buffer path: a staged page need not be a fresh
// heap allocation).
func EncodePageInto(buf []byte, pieces []Piece, dtype KeyDType, id DrafterID) {
	encodePagePiecesInto(buf, pieces, dtype, id)
}

// EncodeShortPage is EncodePage for a layer's final, possibly-short page:
// no trailing padding (spec §4.3: "last page may be short").
func EncodeShortPage(pieces []Piece, dtype KeyDType, id DrafterID) []byte {
	stride := pieceStride(dtype, id)
	buf := make([]byte, PageHeaderSize+len(pieces)*stride)
	encodePagePiecesInto(buf, pieces, dtype, id)
	return buf
}

// DecodePage parses a page's pieces and fills in HiKey boundaries between
// pieces on the same page. The page's last piece keeps HiKey zero; the
// caller fills it in (from the next page's first key, or from the layer's
// max key as fillLastHiKey does for the root).
func DecodePage(data []byte, dtype KeyDType, id DrafterID) ([]Piece, error) {
	h := headerOf(data)
	if h == nil {
		return nil, NewError(IoError, "page too short: %d bytes", len(data))
	}
	stride := pieceStride(dtype, id)
	n := int(h.PieceCount)
	need := PageHeaderSize + n*stride
	if need > len(data) {
		return nil, NewError(IoError, "page truncated: need %d bytes, have %d", need, len(data))
	}
	pieces := make([]Piece, n)
	off := PageHeaderSize
	for i := 0; i < n; i++ {
		p, used := decodePiece(data[off:], dtype, id)
		pieces[i] = p
		off += used
	}
	for i := 0; i < n-1; i++ {
		pieces[i].HiKey = pieces[i+1].LoKey - 1
	}
	return pieces, nil
}

// searchPieceLE returns the index of the last piece whose LoKey <= key, or
// -1 if key is below every piece's LoKey (spec §4.3/§4.5 binary search).
func searchPieceLE(pieces []Piece, key uint64) int {
	i := sort.Search(len(pieces), func(i int) bool { return pieces[i].LoKey > key })
	return i - 1
}
