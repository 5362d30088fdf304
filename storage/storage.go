// Package storage implements the two-operation storage capability the core
// consumes (spec §4.6): read(offset, length) -> bytes and write(offset,
// bytes), plus size, dispatched from a scheme-prefixed URL (spec §6.4).
//
// Every Backend here is bound to a single blob: a manifest, one layer_j, or
// the data blob. The core never locks a Backend; callers are expected to
// honor the "builder and reader never run together over the same index"
// non-goal themselves.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// Backend is the storage capability the AirIndex core depends on.
// Implementations must be atomic at the granularity of a single Read or
// Write and must reject requests beyond the blob's Size.
type Backend interface {
	// Read returns exactly length bytes starting at offset, or an error if
	// the range extends past the blob's size.
	Read(ctx context.Context, offset uint64, length uint32) ([]byte, error)
	// Write stores data at offset, growing the blob if necessary.
	Write(ctx context.Context, offset uint64, data []byte) error
	// Size returns the blob's current byte length.
	Size(ctx context.Context) (uint64, error)
	// Close releases any resources (file handles, mappings, db handles)
	// held by the backend.
	Close() error
}

// ErrUnsupportedScheme is returned by Open for a URL whose scheme has no
// registered backend (spec §1: "storage backends ... external collaborators"
// — only the schemes AirIndex itself implements are wired here; http(s)://
// and azblob:// are named in spec §6.4 but left to an external collaborator).
type ErrUnsupportedScheme struct {
	Scheme string
}

func (e *ErrUnsupportedScheme) Error() string {
	return fmt.Sprintf("storage: unsupported URL scheme %q", e.Scheme)
}

// Opener constructs a Backend for one blob URL. writable controls whether
// the backend must support Write (readers pass false).
type Opener func(rawURL string, writable bool) (Backend, error)

var openers = map[string]Opener{
	"file":  openFile,
	"mmap":  openMmap,
	"mem":   openMemory,
	"bolt":  openBolt,
	"mdbx":  openMdbx,
	"rocks": openRocks,
}

// Open dispatches rawURL to the registered Backend for its scheme (spec
// §6.4).
func Open(rawURL string, writable bool) (Backend, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("storage: parse url %q: %w", rawURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	opener, ok := openers[scheme]
	if !ok {
		return nil, &ErrUnsupportedScheme{Scheme: scheme}
	}
	return opener(rawURL, writable)
}

// pathOf strips the scheme off a "scheme://path" URL, leaving the
// filesystem path or backend-specific locator untouched.
func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	if u.Opaque != "" {
		return u.Opaque
	}
	p := u.Host + u.Path
	return p
}
