package surface

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

type memoryEntry struct {
	url    string
	closed bool
}

type MemoryRegistry struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{entries: make(map[string]*memoryEntry)}
}

func (r *MemoryRegistry) Open(_ context.Context, url string) (*Handle, error) {
	id := uuid.NewString()

	r.mu.Lock()
	r.entries[id] = &memoryEntry{url: strings.TrimSpace(url)}
	r.mu.Unlock()

	return &Handle{ID: id, URL: strings.TrimSpace(url)}, nil
}

func (r *MemoryRegistry) IsClosed(_ context.Context, h *Handle) bool {
	if h == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[h.ID]
	return !ok || entry.closed
}

func (r *MemoryRegistry) Close(_ context.Context, h *Handle) error {
	if h == nil {
		return nil
	}

	r.mu.Lock()
	delete(r.entries, h.ID)
	r.mu.Unlock()
	return nil
}

func (r *MemoryRegistry) Lookup(_ context.Context, id string) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return nil, ErrSurfaceNotFound
	}
	return &Handle{ID: id, URL: entry.url}, nil
}

func (r *MemoryRegistry) MarkClosed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[id]
	if !ok {
		return ErrSurfaceNotFound
	}
	entry.closed = true
	return nil
}
