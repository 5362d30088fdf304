// Compatibility tests between this package's bolt:// / mdbx:// backends and
// the real engines behind them, mirroring the classic
// compat_test.go pattern: build a dataset with the real engine, read it back
// through our wrapper, and assert agreement.
package storage

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	bolt "go.etcd.io/bbolt"
	mdbx "github.com/erigontech/mdbx-go/mdbx"
)

func tempDir(t *testing.T) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "airindex-storage-compat-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })
	return dir
}

// TestBoltBackendReadsRealBbolt writes a value with the bbolt package
// directly, then confirms our bolt:// backend reads it back unchanged.
func TestBoltBackendReadsRealBbolt(t *testing.T) {
	dir := tempDir(t)
	dbPath := filepath.Join(dir, "blobs.db")
	want := []byte("the quick brown fox jumps over the lazy dog")

	db, err := bolt.Open(dbPath, 0644, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(airindexBucket)
		if err != nil {
			return err
		}
		return b.Put([]byte("blob"), want)
	}); err != nil {
		t.Fatal(err)
	}
	db.Close()

	backend, err := Open("bolt://"+dbPath+"#blob", false)
	if err != nil {
		t.Fatal(err)
	}
	defer backend.Close()

	got, err := backend.Read(context.Background(), 0, uint32(len(want)))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(want) {
		t.Fatalf("Read = %q, want %q", got, want)
	}
}

// TestMdbxBackendReadsRealMdbx writes a value with the real cgo mdbx-go
// binding, then confirms our mdbx:// backend reads it back unchanged, the
// same "build with a real engine, assert our code agrees" pattern this
// package uses against real MDBX files.
func TestMdbxBackendReadsRealMdbx(t *testing.T) {
	dir := tempDir(t)
	dbPath := filepath.Join(dir, "mdbxdata")
	want := []byte("airindex mdbx compat payload")

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	env, err := mdbx.NewEnv(mdbx.Label("airindex-compat"))
	if err != nil {
		t.Fatal(err)
	}
	defer env.Close()
	if err := env.SetOption(mdbx.OptMaxDB, 1); err != nil {
		t.Fatal(err)
	}
	if err := env.SetGeometry(-1, -1, 1<<30, -1, -1, DefaultMdbxPageSize); err != nil {
		t.Fatal(err)
	}
	if err := env.Open(dbPath, mdbx.NoSubdir|mdbx.Create, 0644); err != nil {
		t.Fatal(err)
	}

	txn, err := env.BeginTxn(nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	dbi, err := txn.OpenDBI(mdbxDBIName, mdbx.Create, nil, nil)
	if err != nil {
		txn.Abort()
		t.Fatal(err)
	}
	if err := txn.Put(dbi, []byte("blob"), want, 0); err != nil {
		txn.Abort()
		t.Fatal(err)
	}
	if _, err := txn.Commit(); err != nil {
		t.Fatal(err)
	}

	backend, err := Open("mdbx://"+dbPath+"#blob", false)
	if err != nil {
		t.Fatal(err)
	}
	defer backend.Close()

	got, err := backend.Read(context.Background(), 0, uint32(len(want)))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(want) {
		t.Fatalf("Read = %q, want %q", got, want)
	}
}

// TestBackendRoundTripAcrossSchemes writes the same payload through the
// file://, mem:// and bolt:// backends and confirms each reads its own data
// back, the minimal shared contract every Backend must satisfy regardless
// of engine.
func TestBackendRoundTripAcrossSchemes(t *testing.T) {
	ResetMemoryBackend()
	dir := tempDir(t)
	want := []byte("cross-backend round trip payload")

	urls := []string{
		"file://" + filepath.Join(dir, "plain.bin"),
		"mem://roundtrip-key",
		"bolt://" + filepath.Join(dir, "bolt2.db") + "#blob",
	}

	for _, u := range urls {
		u := u
		t.Run(u, func(t *testing.T) {
			backend, err := Open(u, true)
			if err != nil {
				t.Fatal(err)
			}
			if err := backend.Write(context.Background(), 0, want); err != nil {
				t.Fatal(err)
			}
			if err := backend.Close(); err != nil {
				t.Fatal(err)
			}

			reader, err := Open(u, false)
			if err != nil {
				t.Fatal(err)
			}
			defer reader.Close()
			got, err := reader.Read(context.Background(), 0, uint32(len(want)))
			if err != nil {
				t.Fatal(err)
			}
			if string(got) != string(want) {
				t.Fatalf("Read = %q, want %q", got, want)
			}
		})
	}
}
