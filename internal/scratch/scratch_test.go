package scratch

import (
	"path/filepath"
	"sync"
	"testing"
)

func TestAllocateReleaseReuse(t *testing.T) {
	dir := t.TempDir()
	buf, err := New(filepath.Join(dir, "pages"), 64, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Close()

	slots := make([]*Slot, 0, 4)
	for i := 0; i < 4; i++ {
		data, slot, err := buf.Allocate()
		if err != nil {
			t.Fatal(err)
		}
		if len(data) != 64 {
			t.Fatalf("allocated slice len = %d, want 64", len(data))
		}
		data[0] = byte(i + 1)
		slots = append(slots, slot)
	}

	// segment full: next Allocate must grow a new segment rather than fail
	if _, _, err := buf.Allocate(); err != nil {
		t.Fatalf("expected growth into a new segment, got %v", err)
	}

	for i, s := range slots {
		got := buf.Get(s)
		if got[0] != byte(i+1) {
			t.Errorf("slot %d: got %d, want %d", i, got[0], i+1)
		}
	}

	buf.Release(slots[0])
	data, _, err := buf.Allocate()
	if err != nil {
		t.Fatal(err)
	}
	if data[0] != 0 {
		t.Error("reused slot was not zeroed")
	}
}

func TestBufferConcurrentAllocate(t *testing.T) {
	dir := t.TempDir()
	buf, err := New(filepath.Join(dir, "pages"), 32, 8)
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Close()

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := buf.Allocate()
			if err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Allocate failed: %v", err)
	}
}

func TestReleaseAll(t *testing.T) {
	dir := t.TempDir()
	buf, err := New(filepath.Join(dir, "pages"), 16, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer buf.Close()

	for i := 0; i < 2; i++ {
		if _, _, err := buf.Allocate(); err != nil {
			t.Fatal(err)
		}
	}
	buf.ReleaseAll()
	if _, _, err := buf.Allocate(); err != nil {
		t.Fatalf("expected a free slot after ReleaseAll, got %v", err)
	}
}
