package airindex

import (
	"context"
	"encoding/binary"

	"github.com/airindex-go/airindex/storage"
)

// LayerMeta is one layer's manifest entry (spec §6.2): the drafter and load
// it was built with, how many pages it has, and the blob it lives on.
type LayerMeta struct {
	DrafterID DrafterID
	PageSize  uint32
	PageCount uint32
	BlobURL   string
}

// Manifest is the index's root metadata blob (spec §6.2): depth, per-layer
// (drafter_id, load P, page_count, blob_name), leaf record size, and key
// dtype, plus enough about the data blob for a reader to resolve final
// extents and reject out-of-range keys.
type Manifest struct {
	Layers      []LayerMeta
	RecordSize  uint32
	Dtype       KeyDType
	DataBlobURL string
	DataBlobLen uint64
	MinKey      uint64
	MaxKey      uint64
}

// manifestMagic guards against reading a foreign or truncated blob as a
// manifest.
const manifestMagic = Magic

func putString(buf []byte, s string) int {
	binary.LittleEndian.PutUint32(buf, uint32(len(s)))
	copy(buf[4:], s)
	return 4 + len(s)
}

func getString(buf []byte) (string, int) {
	n := binary.LittleEndian.Uint32(buf)
	return string(buf[4 : 4+n]), int(4 + n)
}

// EncodeManifest serializes m (spec §6.2). Format: magic, format version,
// depth, record size, dtype, min/max key, data blob length, data blob URL,
// then depth LayerMeta entries (drafter_id, page_size, page_count, blob
// URL).
func EncodeManifest(m *Manifest) []byte {
	size := 8 + 4 + 4 + 4 + 1 + 8 + 8 + 8 + 4 + len(m.DataBlobURL)
	for _, l := range m.Layers {
		size += 1 + 4 + 4 + 4 + len(l.BlobURL)
	}
	buf := make([]byte, size)
	off := 0
	binary.LittleEndian.PutUint64(buf[off:], manifestMagic)
	off += 8
	binary.LittleEndian.PutUint32(buf[off:], FormatVersion)
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], uint32(len(m.Layers)))
	off += 4
	binary.LittleEndian.PutUint32(buf[off:], m.RecordSize)
	off += 4
	buf[off] = byte(m.Dtype)
	off++
	binary.LittleEndian.PutUint64(buf[off:], m.MinKey)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], m.MaxKey)
	off += 8
	binary.LittleEndian.PutUint64(buf[off:], m.DataBlobLen)
	off += 8
	off += putString(buf[off:], m.DataBlobURL)
	for _, l := range m.Layers {
		buf[off] = byte(l.DrafterID)
		off++
		binary.LittleEndian.PutUint32(buf[off:], l.PageSize)
		off += 4
		binary.LittleEndian.PutUint32(buf[off:], l.PageCount)
		off += 4
		off += putString(buf[off:], l.BlobURL)
	}
	return buf[:off]
}

// DecodeManifest parses the bytes EncodeManifest produced.
func DecodeManifest(data []byte) (*Manifest, error) {
	if len(data) < 8 {
		return nil, NewError(IoError, "manifest: too short (%d bytes)", len(data))
	}
	off := 0
	magic := binary.LittleEndian.Uint64(data[off:])
	off += 8
	if magic != manifestMagic {
		return nil, NewError(IoError, "manifest: bad magic %x", magic)
	}
	version := binary.LittleEndian.Uint32(data[off:])
	off += 4
	if version != FormatVersion {
		return nil, NewError(IoError, "manifest: unsupported format version %d", version)
	}
	depth := binary.LittleEndian.Uint32(data[off:])
	off += 4
	m := &Manifest{}
	m.RecordSize = binary.LittleEndian.Uint32(data[off:])
	off += 4
	m.Dtype = KeyDType(data[off])
	off++
	m.MinKey = binary.LittleEndian.Uint64(data[off:])
	off += 8
	m.MaxKey = binary.LittleEndian.Uint64(data[off:])
	off += 8
	m.DataBlobLen = binary.LittleEndian.Uint64(data[off:])
	off += 8
	url, n := getString(data[off:])
	off += n
	m.DataBlobURL = url

	m.Layers = make([]LayerMeta, depth)
	for i := uint32(0); i < depth; i++ {
		var l LayerMeta
		l.DrafterID = DrafterID(data[off])
		off++
		l.PageSize = binary.LittleEndian.Uint32(data[off:])
		off += 4
		l.PageCount = binary.LittleEndian.Uint32(data[off:])
		off += 4
		u, n := getString(data[off:])
		off += n
		l.BlobURL = u
		m.Layers[i] = l
	}
	return m, nil
}

// blobURL builds the conventional per-layer blob name under baseURL (spec
// §6.2: "layer_j for each j in [0, depth)").
func blobURL(baseURL string, name string) string {
	if len(baseURL) > 0 && baseURL[len(baseURL)-1] == '/' {
		return baseURL + name
	}
	return baseURL + "/" + name
}

// WriteIndex serializes idx's layers and manifest under baseURL (a
// directory-like prefix, spec §6.2), writing every layer blob first and the
// manifest last: a reader that finds no manifest treats the index as
// absent, so a crash mid-write never exposes a partial index (spec §7).
func WriteIndex(idx *Index, baseURL string, dataBlobURL string) error {
	ctx := context.Background()
	m := &Manifest{
		RecordSize:  idx.RecordSize,
		Dtype:       idx.Dtype,
		DataBlobURL: dataBlobURL,
		DataBlobLen: idx.DataBlobLen,
		MinKey:      idx.MinKey,
		MaxKey:      idx.MaxKey,
	}

	for j, layer := range idx.Layers {
		name := layerBlobName(j)
		url := blobURL(baseURL, name)
		backend, err := storage.Open(url, true)
		if err != nil {
			return NewError(IoError, "write layer %d: %v", j, err)
		}
		var offset uint64
		for _, page := range layer.Pages {
			if err := backend.Write(ctx, offset, page); err != nil {
				backend.Close()
				return NewError(IoError, "write layer %d page: %v", j, err)
			}
			offset += uint64(len(page))
		}
		if err := backend.Close(); err != nil {
			return NewError(IoError, "close layer %d: %v", j, err)
		}
		m.Layers = append(m.Layers, LayerMeta{
			DrafterID: layer.DrafterID,
			PageSize:  layer.PageSize,
			PageCount: uint32(len(layer.Pages)),
			BlobURL:   url,
		})
	}

	manifestURL := blobURL(baseURL, "manifest")
	backend, err := storage.Open(manifestURL, true)
	if err != nil {
		return NewError(IoError, "write manifest: %v", err)
	}
	defer backend.Close()
	data := EncodeManifest(m)
	if err := backend.Write(ctx, 0, data); err != nil {
		return NewError(IoError, "write manifest: %v", err)
	}
	return nil
}

func layerBlobName(j int) string {
	return "layer_" + uintSuffix(uint32(j))
}
