package airindex

import "testing"

func TestEncodeDecodeManifestRoundTrip(t *testing.T) {
	m := &Manifest{
		RecordSize:  16,
		Dtype:       KeyDTypeUint64,
		DataBlobURL: "file:///tmp/data.bin",
		DataBlobLen: 1 << 20,
		MinKey:      0,
		MaxKey:      9999,
		Layers: []LayerMeta{
			{DrafterID: DrafterIDStep, PageSize: 4096, PageCount: 10, BlobURL: "file:///tmp/layer_0"},
			{DrafterID: DrafterIDBandGreedy, PageSize: 256, PageCount: 40, BlobURL: "file:///tmp/layer_1"},
		},
	}
	data := EncodeManifest(m)
	got, err := DecodeManifest(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.RecordSize != m.RecordSize || got.Dtype != m.Dtype || got.DataBlobURL != m.DataBlobURL ||
		got.DataBlobLen != m.DataBlobLen || got.MinKey != m.MinKey || got.MaxKey != m.MaxKey {
		t.Fatalf("manifest mismatch: got %+v, want %+v", got, m)
	}
	if len(got.Layers) != len(m.Layers) {
		t.Fatalf("layers = %d, want %d", len(got.Layers), len(m.Layers))
	}
	for i, l := range m.Layers {
		if got.Layers[i] != l {
			t.Errorf("layer %d = %+v, want %+v", i, got.Layers[i], l)
		}
	}
}

func TestDecodeManifestBadMagic(t *testing.T) {
	data := make([]byte, 16)
	if _, err := DecodeManifest(data); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestBlobURL(t *testing.T) {
	if got := blobURL("file:///tmp/idx", "manifest"); got != "file:///tmp/idx/manifest" {
		t.Errorf("blobURL = %q", got)
	}
	if got := blobURL("file:///tmp/idx/", "manifest"); got != "file:///tmp/idx/manifest" {
		t.Errorf("blobURL = %q", got)
	}
}
