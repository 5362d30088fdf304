package storage

import (
	"context"
	"fmt"
	"net/url"

	"github.com/tecbot/gorocksdb"
)

// rocksBackend is the rocks:// scheme: a third Backend whose page/block
// granularity is chosen by RocksDB itself, independent of bbolt's or
// mdbx's. No test in this package exercises it.
type rocksBackend struct {
	db  *gorocksdb.DB
	ro  *gorocksdb.ReadOptions
	wo  *gorocksdb.WriteOptions
	key []byte
}

func openRocks(rawURL string, writable bool) (Backend, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("storage: parse url %q: %w", rawURL, err)
	}
	dir := u.Host + u.Path
	key := u.Fragment
	if key == "" {
		key = "blob"
	}

	opts := gorocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	db, err := gorocksdb.OpenDb(opts, dir)
	if err != nil {
		return nil, fmt.Errorf("storage: gorocksdb.OpenDb %q: %w", dir, err)
	}
	return &rocksBackend{
		db:  db,
		ro:  gorocksdb.NewDefaultReadOptions(),
		wo:  gorocksdb.NewDefaultWriteOptions(),
		key: []byte(key),
	}, nil
}

func (b *rocksBackend) get() ([]byte, error) {
	v, err := b.db.Get(b.ro, b.key)
	if err != nil {
		return nil, err
	}
	defer v.Free()
	out := make([]byte, v.Size())
	copy(out, v.Data())
	return out, nil
}

func (b *rocksBackend) Size(ctx context.Context) (uint64, error) {
	v, err := b.get()
	if err != nil {
		return 0, err
	}
	return uint64(len(v)), nil
}

func (b *rocksBackend) Read(ctx context.Context, offset uint64, length uint32) ([]byte, error) {
	v, err := b.get()
	if err != nil {
		return nil, err
	}
	if offset+uint64(length) > uint64(len(v)) {
		return nil, fmt.Errorf("storage: read [%d,%d) exceeds blob size %d", offset, offset+uint64(length), len(v))
	}
	out := make([]byte, length)
	copy(out, v[offset:offset+uint64(length)])
	return out, nil
}

func (b *rocksBackend) Write(ctx context.Context, offset uint64, data []byte) error {
	cur, err := b.get()
	if err != nil {
		return err
	}
	need := offset + uint64(len(data))
	size := need
	if uint64(len(cur)) > size {
		size = uint64(len(cur))
	}
	grown := make([]byte, size)
	copy(grown, cur)
	copy(grown[offset:], data)
	return b.db.Put(b.wo, b.key, grown)
}

func (b *rocksBackend) Close() error {
	b.ro.Destroy()
	b.wo.Destroy()
	b.db.Close()
	return nil
}
