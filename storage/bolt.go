package storage

import (
	"context"
	"fmt"
	"net/url"

	bolt "go.etcd.io/bbolt"
)

var airindexBucket = []byte("airindex_blobs")

// boltBackend is the bolt:// scheme: the blob lives as a single
// overwrite-put value in a bbolt bucket. bolt://<path-to-db>#<blob-key>
// addresses one value; bbolt pages that value internally, so our
// Read/offset,length just slices the stored []byte.
type boltBackend struct {
	db  *bolt.DB
	key []byte
}

func openBolt(rawURL string, writable bool) (Backend, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("storage: parse url %q: %w", rawURL, err)
	}
	dbPath := u.Host + u.Path
	key := u.Fragment
	if key == "" {
		key = "blob"
	}
	db, err := bolt.Open(dbPath, 0644, nil)
	if err != nil {
		return nil, fmt.Errorf("storage: bolt.Open %q: %w", dbPath, err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(airindexBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &boltBackend{db: db, key: []byte(key)}, nil
}

func (b *boltBackend) Size(ctx context.Context) (uint64, error) {
	var n uint64
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(airindexBucket).Get(b.key)
		n = uint64(len(v))
		return nil
	})
	return n, err
}

func (b *boltBackend) Read(ctx context.Context, offset uint64, length uint32) ([]byte, error) {
	var out []byte
	err := b.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(airindexBucket).Get(b.key)
		if offset+uint64(length) > uint64(len(v)) {
			return fmt.Errorf("storage: read [%d,%d) exceeds blob size %d", offset, offset+uint64(length), len(v))
		}
		out = make([]byte, length)
		copy(out, v[offset:offset+uint64(length)])
		return nil
	})
	return out, err
}

func (b *boltBackend) Write(ctx context.Context, offset uint64, data []byte) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(airindexBucket)
		cur := bucket.Get(b.key)
		need := offset + uint64(len(data))
		size := need
		if uint64(len(cur)) > size {
			size = uint64(len(cur))
		}
		grown := make([]byte, size)
		copy(grown, cur)
		copy(grown[offset:], data)
		return bucket.Put(b.key, grown)
	})
}

func (b *boltBackend) Close() error {
	return b.db.Close()
}
