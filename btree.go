package airindex

import (
	"encoding/binary"

	bolt "go.etcd.io/bbolt"
)

// btreeBucket holds every (key, offset) entry of a BTreeIndex.
var btreeBucket = []byte("airindex_btree")

// BTreeIndex is the conventional-B+-tree baseline (spec §9 Open Question
// (b)): a real bbolt tree over (key -> offset), rather than a hand-rolled
// split/merge implementation. It answers the same Lookup(key) question an
// IndexReader does, so the two can be measured against each other under the
// same StorageProfile.
type BTreeIndex struct {
	db *bolt.DB
}

// BuildBTreeIndex writes every (key, offset) pair of kb into a fresh bbolt
// database at path, using pageSize as bbolt's own page size — the same
// P-palette knob the learned planner's LoadPalette sweeps, so the baseline
// is comparable at a given storage granularity (spec §4.4's candidateSpecs
// cross product, here fixed to a single "drafter").
func BuildBTreeIndex(kb *KeyBuffer, path string, pageSize int) (*BTreeIndex, error) {
	opts := &bolt.Options{PageSize: pageSize}
	db, err := bolt.Open(path, 0644, opts)
	if err != nil {
		return nil, NewError(BuildError, "btree: open %q: %v", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(btreeBucket)
		if err != nil {
			return err
		}
		keyBuf := make([]byte, 8)
		valBuf := make([]byte, 8)
		for i := 0; i < kb.Len(); i++ {
			key, offset := kb.At(i)
			binary.BigEndian.PutUint64(keyBuf, key) // big-endian: bbolt iterates keys byte-lexicographically
			binary.BigEndian.PutUint64(valBuf, offset)
			if err := bucket.Put(keyBuf, valBuf); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, NewError(BuildError, "btree: populate: %v", err)
	}
	return &BTreeIndex{db: db}, nil
}

// OpenBTreeIndex reopens a database BuildBTreeIndex previously wrote.
func OpenBTreeIndex(path string) (*BTreeIndex, error) {
	db, err := bolt.Open(path, 0644, &bolt.Options{ReadOnly: true})
	if err != nil {
		return nil, NewError(IoError, "btree: open %q: %v", path, err)
	}
	return &BTreeIndex{db: db}, nil
}

// Lookup finds key's offset via bbolt's own B+-tree traversal (spec §4.5's
// Lookup contract, baseline form: NotFoundKind for a missing key instead of
// AirIndex's out-of-range sentinel, since a conventional B+-tree has no
// predicted-window slack to report).
func (t *BTreeIndex) Lookup(key uint64) (uint64, error) {
	var offset uint64
	var found bool
	err := t.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(btreeBucket)
		if bucket == nil {
			return nil
		}
		keyBuf := make([]byte, 8)
		binary.BigEndian.PutUint64(keyBuf, key)
		v := bucket.Get(keyBuf)
		if v == nil {
			return nil
		}
		offset = binary.BigEndian.Uint64(v)
		found = true
		return nil
	})
	if err != nil {
		return 0, NewError(IoError, "btree: lookup: %v", err)
	}
	if !found {
		return 0, NewError(NotFoundKind, "btree: key %d not found", key)
	}
	return offset, nil
}

// Depth reports the tree's structural depth (spec §9 Open Question (b):
// "the baseline chain" AirIndex compares against is this number of levels,
// not a hand-counted one).
func (t *BTreeIndex) Depth() (int, error) {
	var depth int
	err := t.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(btreeBucket)
		if bucket == nil {
			return NewError(IoError, "btree: bucket missing")
		}
		depth = bucket.Stats().Depth
		return nil
	})
	if err != nil {
		return 0, err
	}
	return depth, nil
}

// PageCount reports the total branch+leaf page count bbolt allocated for
// the tree, the baseline's analogue of an AirIndex Layer's page count.
func (t *BTreeIndex) PageCount() (int, error) {
	var n int
	err := t.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(btreeBucket)
		if bucket == nil {
			return NewError(IoError, "btree: bucket missing")
		}
		s := bucket.Stats()
		n = s.BranchPageN + s.LeafPageN
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Close releases the underlying bbolt database.
func (t *BTreeIndex) Close() error {
	return t.db.Close()
}
