package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
	"github.com/adoptapet/petsearch-core/internal/core/ports/driven"
)

// MockPetStore is an in-memory PetStore for testing
type MockPetStore struct {
	mu      sync.RWMutex
	records map[string]*domain.PetRecord

	// SaveErr and ListErr inject failures
	SaveErr error
	ListErr error
}

// NewMockPetStore creates a new MockPetStore
func NewMockPetStore() *MockPetStore {
	return &MockPetStore{records: make(map[string]*domain.PetRecord)}
}

func (m *MockPetStore) SaveBatch(ctx context.Context, records []*domain.PetRecord) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, rec := range records {
		m.records[rec.PetID] = rec
	}
	return nil
}

func (m *MockPetStore) Get(ctx context.Context, petID string) (*domain.PetRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.records[petID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func (m *MockPetStore) List(ctx context.Context, offset, limit int) ([]*domain.PetRecord, error) {
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if offset >= len(ids) {
		return nil, nil
	}
	end := offset + limit
	if end > len(ids) {
		end = len(ids)
	}

	out := make([]*domain.PetRecord, 0, end-offset)
	for _, id := range ids[offset:end] {
		out = append(out, m.records[id])
	}
	return out, nil
}

func (m *MockPetStore) Count(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.records)), nil
}

func (m *MockPetStore) Ping(ctx context.Context) error {
	return nil
}

// Verify interface compliance
var _ driven.PetStore = (*MockPetStore)(nil)
