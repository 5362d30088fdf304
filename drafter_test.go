package airindex

import "testing"

// linearKeyBuffer builds a KeyBuffer whose offsets are an exact affine
// function of key index, so every drafter should fit it in a single piece.
func linearKeyBuffer(n int, slope float64) *KeyBuffer {
	kb := NewKeyBuffer(KeyDTypeUint64)
	for i := 0; i < n; i++ {
		kb.Append(uint64(i), uint64(float64(i)*slope))
	}
	kb.SetDataLength(uint64(float64(n-1) * slope))
	return kb
}

func TestDraftersFitWithinEpsilon(t *testing.T) {
	kb := linearKeyBuffer(1000, 4.0)
	recordSize := uint32(1)
	pageSize := uint32(4096)
	eps := epsMaxBytes(pageSize, recordSize)

	for id := range drafterRegistry {
		d, _ := DrafterByID(id)
		draft, err := d.Fit(kb, recordSize, pageSize)
		if err != nil {
			t.Fatalf("%s: Fit error: %v", id, err)
		}
		if len(draft.Pieces) == 0 {
			t.Fatalf("%s: no pieces", id)
		}
		for i := 0; i < kb.Len(); i++ {
			key, offset := kb.At(i)
			idx := searchPieceLE(draft.Pieces, key)
			if idx < 0 {
				t.Fatalf("%s: key %d has no covering piece", id, key)
			}
			p := draft.Pieces[idx]
			pred := p.Predict(key)
			var diff uint64
			if pred > offset {
				diff = pred - offset
			} else {
				diff = offset - pred
			}
			if diff > eps {
				t.Fatalf("%s: key %d error %d exceeds eps %d", id, key, diff, eps)
			}
		}
	}
}

func TestDraftersCoverKeyRangeGapFree(t *testing.T) {
	kb := linearKeyBuffer(200, 2.0)
	for id := range drafterRegistry {
		d, _ := DrafterByID(id)
		draft, err := d.Fit(kb, 1, 1024)
		if err != nil {
			t.Fatalf("%s: %v", id, err)
		}
		for i := 1; i < len(draft.Pieces); i++ {
			prev, cur := draft.Pieces[i-1], draft.Pieces[i]
			if prev.HiKey+1 != cur.LoKey {
				t.Errorf("%s: gap/overlap between piece %d (hi=%d) and %d (lo=%d)", id, i-1, prev.HiKey, i, cur.LoKey)
			}
		}
	}
}

func TestParseDrafterID(t *testing.T) {
	cases := map[string]DrafterID{
		"step":        DrafterIDStep,
		"band_greedy": DrafterIDBandGreedy,
		"band_equal":  DrafterIDBandEqual,
	}
	for name, want := range cases {
		got, err := ParseDrafterID(name)
		if err != nil || got != want {
			t.Errorf("ParseDrafterID(%q) = %v, %v; want %v", name, got, err, want)
		}
	}
	if _, err := ParseDrafterID("bogus"); err == nil {
		t.Error("expected error for unknown drafter name")
	}
}
