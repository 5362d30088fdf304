package airindex

import (
	"path/filepath"
	"testing"
)

func TestBTreeIndexBuildAndLookup(t *testing.T) {
	dir := t.TempDir()
	kb := NewKeyBuffer(KeyDTypeUint64)
	for i := 0; i < 2000; i++ {
		kb.Append(uint64(i), uint64(i)*16)
	}

	idx, err := BuildBTreeIndex(kb, filepath.Join(dir, "btree.db"), 4096)
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	for _, key := range []uint64{0, 1, 999, 1999} {
		offset, err := idx.Lookup(key)
		if err != nil {
			t.Fatalf("Lookup(%d): %v", key, err)
		}
		if offset != key*16 {
			t.Errorf("Lookup(%d) = %d, want %d", key, offset, key*16)
		}
	}

	if _, err := idx.Lookup(999999); err == nil {
		t.Fatal("expected error for missing key")
	}

	depth, err := idx.Depth()
	if err != nil {
		t.Fatal(err)
	}
	if depth < 1 {
		t.Errorf("Depth = %d, want >= 1", depth)
	}

	pages, err := idx.PageCount()
	if err != nil {
		t.Fatal(err)
	}
	if pages < 1 {
		t.Errorf("PageCount = %d, want >= 1", pages)
	}
}
