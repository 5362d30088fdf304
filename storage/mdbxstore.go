package storage

import (
	"context"
	"fmt"
	"net/url"
	"runtime"

	mdbx "github.com/erigontech/mdbx-go/mdbx"
)

var mdbxDBIName = "airindex"

// mdbxBackend is the mdbx:// scheme, a second independent real B+-tree
// engine (alongside bolt.go's bbolt) used both as an alternate Backend and
// as the real engine in compat_test.go, the same role bbolt plays there:
// a blob written through real MDBX must read back unchanged through this
// backend.
type mdbxBackend struct {
	env *mdbx.Env
	dbi mdbx.DBI
	key []byte
}

func openMdbx(rawURL string, writable bool) (Backend, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("storage: parse url %q: %w", rawURL, err)
	}
	dir := u.Host + u.Path
	key := u.Fragment
	if key == "" {
		key = "blob"
	}

	env, err := mdbx.NewEnv(mdbx.Label("airindex"))
	if err != nil {
		return nil, fmt.Errorf("storage: mdbx.NewEnv: %w", err)
	}
	if err := env.SetGeometry(-1, -1, 1<<34, -1, -1, DefaultMdbxPageSize); err != nil {
		env.Close()
		return nil, fmt.Errorf("storage: mdbx SetGeometry: %w", err)
	}
	if err := env.SetOption(mdbx.OptMaxDB, 1); err != nil {
		env.Close()
		return nil, fmt.Errorf("storage: mdbx SetOption: %w", err)
	}

	flags := mdbx.NoSubdir
	if err := env.Open(dir, flags|mdbx.Create, 0644); err != nil {
		env.Close()
		return nil, fmt.Errorf("storage: mdbx.Open %q: %w", dir, err)
	}

	var dbi mdbx.DBI
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	txn, err := env.BeginTxn(nil, 0)
	if err != nil {
		env.Close()
		return nil, fmt.Errorf("storage: mdbx.BeginTxn: %w", err)
	}
	dbi, err = txn.OpenDBI(mdbxDBIName, mdbx.Create, nil, nil)
	if err != nil {
		txn.Abort()
		env.Close()
		return nil, fmt.Errorf("storage: mdbx.OpenDBI: %w", err)
	}
	if _, err := txn.Commit(); err != nil {
		env.Close()
		return nil, fmt.Errorf("storage: mdbx.Commit: %w", err)
	}

	return &mdbxBackend{env: env, dbi: dbi, key: []byte(key)}, nil
}

// DefaultMdbxPageSize matches AirIndex's DefaultPageSize (4096 bytes), the
// page size both openMdbx and compat_test.go give MDBX.
const DefaultMdbxPageSize = 4096

func (b *mdbxBackend) get() ([]byte, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	txn, err := b.env.BeginTxn(nil, mdbx.Readonly)
	if err != nil {
		return nil, err
	}
	defer txn.Abort()
	v, err := txn.Get(b.dbi, b.key)
	if err != nil {
		if mdbx.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (b *mdbxBackend) Size(ctx context.Context) (uint64, error) {
	v, err := b.get()
	if err != nil {
		return 0, err
	}
	return uint64(len(v)), nil
}

func (b *mdbxBackend) Read(ctx context.Context, offset uint64, length uint32) ([]byte, error) {
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

func (b *mdbxBackend) Write(ctx context.Context, offset uint64, data []byte) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
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

	txn, err := b.env.BeginTxn(nil, 0)
	if err != nil {
		return err
	}
	if err := txn.Put(b.dbi, b.key, grown, 0); err != nil {
		txn.Abort()
		return err
	}
	_, err = txn.Commit()
	return err
}

func (b *mdbxBackend) Close() error {
	b.env.Close()
	return nil
}
