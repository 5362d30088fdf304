package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestOpenUnsupportedScheme(t *testing.T) {
	_, err := Open("ftp://example.com/blob", false)
	if err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
	if _, ok := err.(*ErrUnsupportedScheme); !ok {
		t.Fatalf("expected ErrUnsupportedScheme, got %T: %v", err, err)
	}
}

func TestMmapBackendRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.bin")
	want := []byte("mapped bytes for the scratch buffer")

	w, err := Open("mmap://"+path, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Write(context.Background(), 0, want); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := Open("mmap://"+path, false)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	size, err := r.Size(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if size != uint64(len(want)) {
		t.Fatalf("Size = %d, want %d", size, len(want))
	}
	got, err := r.Read(context.Background(), 0, uint32(len(want)))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(want) {
		t.Fatalf("Read = %q, want %q", got, want)
	}
}

func TestMemoryBackendReset(t *testing.T) {
	ResetMemoryBackend()
	b, err := Open("mem://reset-key", true)
	if err != nil {
		t.Fatal(err)
	}
	if err := b.Write(context.Background(), 0, []byte("x")); err != nil {
		t.Fatal(err)
	}
	ResetMemoryBackend()
	size, err := b.Size(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if size != 0 {
		t.Fatalf("Size after reset = %d, want 0", size)
	}
}
