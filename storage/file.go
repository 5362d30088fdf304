package storage

import (
	"context"
	"fmt"
	"os"
)

// fileBackend is the file:// scheme: plain pread/pwrite over an *os.File.
type fileBackend struct {
	f *os.File
}

func openFile(rawURL string, writable bool) (Backend, error) {
	path := pathOf(rawURL)
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR | os.O_CREATE
	}
	f, err := os.OpenFile(path, flag, 0644)
	if err != nil {
		return nil, fmt.Errorf("storage: open %q: %w", path, err)
	}
	return &fileBackend{f: f}, nil
}

func (b *fileBackend) Size(ctx context.Context) (uint64, error) {
	fi, err := b.f.Stat()
	if err != nil {
		return 0, err
	}
	return uint64(fi.Size()), nil
}

func (b *fileBackend) Read(ctx context.Context, offset uint64, length uint32) ([]byte, error) {
	size, err := b.Size(ctx)
	if err != nil {
		return nil, err
	}
	if offset+uint64(length) > size {
		return nil, fmt.Errorf("storage: read [%d,%d) exceeds blob size %d", offset, offset+uint64(length), size)
	}
	buf := make([]byte, length)
	if _, err := b.f.ReadAt(buf, int64(offset)); err != nil {
		return nil, err
	}
	return buf, nil
}

func (b *fileBackend) Write(ctx context.Context, offset uint64, data []byte) error {
	_, err := b.f.WriteAt(data, int64(offset))
	return err
}

func (b *fileBackend) Close() error {
	return b.f.Close()
}
