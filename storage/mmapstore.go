package storage

import (
	"context"
	"fmt"
	"os"

	"github.com/airindex-go/airindex/mmap"
)

// mmapBackend is the mmap:// scheme: the whole blob is mapped once at Open
// and Read slices directly out of the mapping, avoiding a syscall per read
// (the usual rationale for mapping a storage engine's data file).
// Writes fall back to ordinary pwrite, since growth would otherwise force a
// remap on every write.
type mmapBackend struct {
	m *mmap.Map
	f *os.File
}

func openMmap(rawURL string, writable bool) (Backend, error) {
	path := pathOf(rawURL)
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, fmt.Errorf("storage: open %q: %w", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if fi.Size() == 0 {
		// Nothing to map yet; the backend is still usable for Write, which
		// falls back to the file directly.
		return &mmapBackend{f: f}, nil
	}
	m, err := mmap.New(int(f.Fd()), 0, int(fi.Size()), writable)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("storage: mmap %q: %w", path, err)
	}
	return &mmapBackend{m: m, f: f}, nil
}

func (b *mmapBackend) Size(ctx context.Context) (uint64, error) {
	fi, err := b.f.Stat()
	if err != nil {
		return 0, err
	}
	return uint64(fi.Size()), nil
}

func (b *mmapBackend) Read(ctx context.Context, offset uint64, length uint32) ([]byte, error) {
	if b.m == nil {
		return nil, fmt.Errorf("storage: mmap backend has no mapping (empty blob)")
	}
	size := uint64(b.m.Size())
	if offset+uint64(length) > size {
		return nil, fmt.Errorf("storage: read [%d,%d) exceeds blob size %d", offset, offset+uint64(length), size)
	}
	out := make([]byte, length)
	copy(out, b.m.Data()[offset:offset+uint64(length)])
	return out, nil
}

func (b *mmapBackend) Write(ctx context.Context, offset uint64, data []byte) error {
	_, err := b.f.WriteAt(data, int64(offset))
	return err
}

func (b *mmapBackend) Close() error {
	if b.m != nil {
		if err := b.m.Close(); err != nil {
			b.f.Close()
			return err
		}
	}
	return b.f.Close()
}
