package airindex

import "testing"

func TestEncodeDecodePageRoundTrip(t *testing.T) {
	pieces := []Piece{
		{LoKey: 0, Offset: 0, Slope: 0},
		{LoKey: 10, Offset: 100, Slope: 1.5},
		{LoKey: 20, Offset: 250, Slope: 0},
	}
	page := EncodePage(pieces, KeyDTypeUint64, DrafterIDBandGreedy, 256)
	if len(page) != 256 {
		t.Fatalf("EncodePage: len = %d, want 256", len(page))
	}
	got, err := DecodePage(page, KeyDTypeUint64, DrafterIDBandGreedy)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(pieces) {
		t.Fatalf("DecodePage: %d pieces, want %d", len(got), len(pieces))
	}
	for i, p := range pieces {
		if got[i].LoKey != p.LoKey || got[i].Offset != p.Offset || got[i].Slope != p.Slope {
			t.Errorf("piece %d = %+v, want %+v", i, got[i], p)
		}
	}
	if got[0].HiKey != pieces[1].LoKey-1 {
		t.Errorf("piece 0 HiKey = %d, want %d", got[0].HiKey, pieces[1].LoKey-1)
	}
}

func TestEncodeShortPageNoPadding(t *testing.T) {
	pieces := []Piece{{LoKey: 5, Offset: 40, Slope: 0}}
	page := EncodeShortPage(pieces, KeyDTypeUint32, DrafterIDStep)
	stride := pieceStride(KeyDTypeUint32, DrafterIDStep)
	if len(page) != PageHeaderSize+stride {
		t.Fatalf("EncodeShortPage: len = %d, want %d", len(page), PageHeaderSize+stride)
	}
}

func TestDecodePageTruncated(t *testing.T) {
	pieces := []Piece{{LoKey: 0, Offset: 0}}
	page := EncodeShortPage(pieces, KeyDTypeUint64, DrafterIDStep)
	_, err := DecodePage(page[:len(page)-1], KeyDTypeUint64, DrafterIDStep)
	if err == nil {
		t.Fatal("expected error decoding truncated page")
	}
}

func TestSearchPieceLE(t *testing.T) {
	pieces := []Piece{{LoKey: 0}, {LoKey: 10}, {LoKey: 20}}
	cases := []struct {
		key  uint64
		want int
	}{
		{0, 0}, {5, 0}, {10, 1}, {15, 1}, {20, 2}, {100, 2},
	}
	for _, c := range cases {
		if got := searchPieceLE(pieces, c.key); got != c.want {
			t.Errorf("searchPieceLE(%d) = %d, want %d", c.key, got, c.want)
		}
	}
}
