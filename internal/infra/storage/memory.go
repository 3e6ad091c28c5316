package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/bryanwahyu/neuroscan/internal/domain/media"
)

// MemoryStore keeps blobs in process. Meant for local runs and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	base    string
	objects map[string][]byte
}

func NewMemory(base string) *MemoryStore {
	if base == "" {
		base = "memory://neuroscan"
	}
	return &MemoryStore{base: base, objects: make(map[string][]byte)}
}

func (m *MemoryStore) Put(_ context.Context, key string, data []byte, _ string) (media.Ref, error) {
	cp := make([]byte, len(data))
	copy(cp, data)
	m.mu.Lock()
	m.objects[key] = cp
	m.mu.Unlock()
	return media.Ref(m.base + "/" + key), nil
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.objects[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", media.ErrObjectNotFound, key)
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	return cp, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

// Keys lists stored keys in order.
func (m *MemoryStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
