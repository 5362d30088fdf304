package airindex

import (
	"context"
	"testing"
)

func makePieces(n int, dtype KeyDType) []Piece {
	pieces := make([]Piece, n)
	for i := 0; i < n; i++ {
		pieces[i] = Piece{LoKey: uint64(i * 10), Offset: uint64(i * 100)}
	}
	return pieces
}

func TestLayerBuilderBuild(t *testing.T) {
	pieces := makePieces(50, KeyDTypeUint64)
	lb := NewLayerBuilder(4)
	profile := AffineProfile{LatencyNs: 1000, BandwidthMBps: 100}
	layer, err := lb.Build(context.Background(), pieces, KeyDTypeUint64, DrafterIDStep, 256, profile, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(layer.Pages) == 0 {
		t.Fatal("no pages built")
	}
	for i, p := range layer.Pages[:len(layer.Pages)-1] {
		if uint32(len(p)) != layer.PageSize {
			t.Errorf("page %d: len = %d, want %d", i, len(p), layer.PageSize)
		}
	}
	if layer.OwnCost <= 0 {
		t.Error("expected positive OwnCost with profile set")
	}
	if layer.ByteLen() == 0 {
		t.Error("expected nonzero ByteLen")
	}

	// round-trip every page
	stride := pieceStride(KeyDTypeUint64, DrafterIDStep)
	capacity := (int(layer.PageSize) - PageHeaderSize) / stride
	total := 0
	for i, page := range layer.Pages {
		got, err := DecodePage(page, KeyDTypeUint64, DrafterIDStep)
		if err != nil {
			t.Fatalf("page %d: %v", i, err)
		}
		total += len(got)
		if got[0].LoKey != layer.FirstKeys[i] {
			t.Errorf("page %d FirstKeys mismatch: %d vs %d", i, got[0].LoKey, layer.FirstKeys[i])
		}
		if len(got) > capacity {
			t.Errorf("page %d has %d pieces, capacity %d", i, len(got), capacity)
		}
	}
	if total != len(pieces) {
		t.Errorf("total decoded pieces = %d, want %d", total, len(pieces))
	}
}

func TestLayerBuilderEmptyPieces(t *testing.T) {
	lb := NewLayerBuilder(1)
	_, err := lb.Build(context.Background(), nil, KeyDTypeUint64, DrafterIDStep, 256, nil, nil)
	if err == nil {
		t.Fatal("expected error for empty pieces")
	}
}

func TestBranchChildExtent(t *testing.T) {
	e := BranchChildExtent(500, 256, 1024)
	if e.Offset != 256*1 || e.Length != 256 {
		t.Errorf("BranchChildExtent = %+v", e)
	}
	// clamp beyond end
	e2 := BranchChildExtent(10000, 256, 1024)
	if e2.Offset != 768 {
		t.Errorf("BranchChildExtent clamp: offset = %d, want 768", e2.Offset)
	}
}

func TestLeafDataExtentCentered(t *testing.T) {
	e := LeafDataExtent(1000, 256, true, 4096)
	if e.Offset != 1000-128 || e.Length != 256 {
		t.Errorf("LeafDataExtent centered = %+v", e)
	}
	// near the start: clamp to 0
	e2 := LeafDataExtent(10, 256, true, 4096)
	if e2.Offset != 0 {
		t.Errorf("LeafDataExtent near-start offset = %d, want 0", e2.Offset)
	}
}

func TestLeafDataExtentStepOneSided(t *testing.T) {
	e := LeafDataExtent(1000, 256, false, 4096)
	if e.Offset != 1000 {
		t.Errorf("LeafDataExtent step offset = %d, want 1000", e.Offset)
	}
}
