package storage

import (
	"context"
	"fmt"
	"sync"
)

// memStore is the process-wide registry backing the mem:// scheme: URLs
// are names into a shared map, so multiple Open calls in the same process
// (builder then reader, in a test) see the same blob.
var memStore = struct {
	mu   sync.Mutex
	blob map[string][]byte
}{blob: make(map[string][]byte)}

// memoryBackend is an in-process test fixture backend; it has no real
// storage cost and exists so unit tests can exercise the Backend contract
// without touching a filesystem.
type memoryBackend struct {
	key string
}

func openMemory(rawURL string, writable bool) (Backend, error) {
	return &memoryBackend{key: pathOf(rawURL)}, nil
}

func (b *memoryBackend) Size(ctx context.Context) (uint64, error) {
	memStore.mu.Lock()
	defer memStore.mu.Unlock()
	return uint64(len(memStore.blob[b.key])), nil
}

func (b *memoryBackend) Read(ctx context.Context, offset uint64, length uint32) ([]byte, error) {
	memStore.mu.Lock()
	defer memStore.mu.Unlock()
	data := memStore.blob[b.key]
	if offset+uint64(length) > uint64(len(data)) {
		return nil, fmt.Errorf("storage: read [%d,%d) exceeds blob size %d", offset, offset+uint64(length), len(data))
	}
	out := make([]byte, length)
	copy(out, data[offset:offset+uint64(length)])
	return out, nil
}

func (b *memoryBackend) Write(ctx context.Context, offset uint64, data []byte) error {
	memStore.mu.Lock()
	defer memStore.mu.Unlock()
	cur := memStore.blob[b.key]
	need := offset + uint64(len(data))
	if uint64(len(cur)) < need {
		grown := make([]byte, need)
		copy(grown, cur)
		cur = grown
	}
	copy(cur[offset:], data)
	memStore.blob[b.key] = cur
	return nil
}

func (b *memoryBackend) Close() error { return nil }

// ResetMemoryBackend clears the mem:// registry; tests call this between
// cases that reuse the same blob name.
func ResetMemoryBackend() {
	memStore.mu.Lock()
	defer memStore.mu.Unlock()
	memStore.blob = make(map[string][]byte)
}
