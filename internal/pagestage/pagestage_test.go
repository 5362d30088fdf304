package pagestage

import "testing"

func TestMapGetSet(t *testing.T) {
	m := New(4)

	if m.Get(0) != nil {
		t.Error("expected nil for an unstaged index")
	}

	p0 := []byte("page zero")
	p2 := []byte("page two")
	m.Set(0, p0)
	m.Set(2, p2)

	if string(m.Get(0)) != string(p0) {
		t.Error("Get(0) did not return the staged page")
	}
	if string(m.Get(2)) != string(p2) {
		t.Error("Get(2) did not return the staged page")
	}
	if m.Get(1) != nil {
		t.Error("Get(1) should still be nil")
	}
}

func TestMapLen(t *testing.T) {
	m := New(3)
	if m.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", m.Len())
	}
	m.Set(0, []byte("a"))
	m.Set(1, []byte("b"))
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	m.Set(2, []byte("c"))
	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}
}

func TestMapOverwrite(t *testing.T) {
	m := New(1)
	m.Set(0, []byte("first"))
	m.Set(0, []byte("second"))
	if string(m.Get(0)) != "second" {
		t.Error("Set should overwrite a previously staged index")
	}
}
