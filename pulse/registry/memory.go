package registry

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/teranos/longrun/errors"
)

// MemoryBackend keeps records in process memory. Records do not survive a restart.
type MemoryBackend struct {
	mu      sync.RWMutex
	records map[uuid.UUID][]byte
}

var _ Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates an empty in-memory registry.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{records: make(map[uuid.UUID][]byte)}
}

func (m *MemoryBackend) Name() string { return BackendMemory }

func (m *MemoryBackend) Put(_ context.Context, id uuid.UUID, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[id] = bytes.Clone(data)
	return nil
}

func (m *MemoryBackend) Get(_ context.Context, id uuid.UUID) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.records[id]
	if !ok {
		return nil, errors.NewNotFoundError("job %s", id)
	}
	return bytes.Clone(data), nil
}

func (m *MemoryBackend) Remove(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, id)
	return nil
}

// Keys returns the stored identities in string order.
func (m *MemoryBackend) Keys(_ context.Context) ([]uuid.UUID, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]uuid.UUID, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}
