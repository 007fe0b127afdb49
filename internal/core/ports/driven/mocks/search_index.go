package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
	"github.com/adoptapet/petsearch-core/internal/core/ports/driven"
)

// MockSearchIndex is an in-memory implementation of SearchIndex for testing.
// Scores are assigned per pet_id via SetScore; Search honors term filters,
// ranks by score, and truncates to the query size like the real index.
type MockSearchIndex struct {
	mu      sync.RWMutex
	docs    map[string]driven.IndexDoc
	scores  map[string]float64
	queries []domain.VectorQuery

	// CreateErr, SearchErr, CountErr and HealthErr inject failures
	CreateErr error
	SearchErr error
	CountErr  error
	HealthErr error

	// FailSource makes any query filtered to this source fail with SearchErr
	FailSource domain.Source

	created bool
}

// NewMockSearchIndex creates a new MockSearchIndex
func NewMockSearchIndex() *MockSearchIndex {
	return &MockSearchIndex{
		docs:   make(map[string]driven.IndexDoc),
		scores: make(map[string]float64),
	}
}

// Add indexes a record with a fixed relevance score
func (m *MockSearchIndex) Add(record *domain.PetRecord, score float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[record.PetID] = driven.IndexDoc{
		Record:         record,
		TextEmbedding:  make([]float32, 512),
		ImageEmbedding: make([]float32, 512),
	}
	m.scores[record.PetID] = score
}

// Queries returns every vector query the mock has received
func (m *MockSearchIndex) Queries() []domain.VectorQuery {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.VectorQuery, len(m.queries))
	copy(out, m.queries)
	return out
}

// Created reports whether CreateIndex has been called
func (m *MockSearchIndex) Created() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.created
}

func (m *MockSearchIndex) CreateIndex(ctx context.Context) error {
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs = make(map[string]driven.IndexDoc)
	m.scores = make(map[string]float64)
	m.created = true
	return nil
}

func (m *MockSearchIndex) BulkIndex(ctx context.Context, docs []driven.IndexDoc) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, doc := range docs {
		m.docs[doc.Record.PetID] = doc
		if _, ok := m.scores[doc.Record.PetID]; !ok {
			m.scores[doc.Record.PetID] = 1.0
		}
	}
	return len(docs), nil
}

func (m *MockSearchIndex) Search(ctx context.Context, query domain.VectorQuery) ([]domain.Hit, error) {
	m.mu.Lock()
	m.queries = append(m.queries, query)
	m.mu.Unlock()

	filter := querySourceFilter(query)
	if m.SearchErr != nil {
		if m.FailSource == "" || filter == string(m.FailSource) {
			return nil, m.SearchErr
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var hits []domain.Hit
	for id, doc := range m.docs {
		if filter != "" && string(doc.Record.Source) != filter {
			continue
		}
		hits = append(hits, domain.Hit{
			Score:  m.scores[id],
			Fields: hitFields(doc),
		})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > query.Size {
		hits = hits[:query.Size]
	}
	return hits, nil
}

func (m *MockSearchIndex) Count(ctx context.Context) (int64, error) {
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.docs)), nil
}

func (m *MockSearchIndex) HealthCheck(ctx context.Context) error {
	return m.HealthErr
}

func querySourceFilter(query domain.VectorQuery) string {
	if len(query.KNN) == 0 || query.KNN[0].Filter == nil {
		return ""
	}
	return query.KNN[0].Filter.Value
}

// hitFields reproduces the stored document shape, embeddings included,
// the way the real index returns _source payloads.
func hitFields(doc driven.IndexDoc) map[string]any {
	rec := doc.Record
	fields := map[string]any{
		"pet_id":          rec.PetID,
		"source":          string(rec.Source),
		"name":            rec.Name,
		"species":         rec.Species,
		"breed":           rec.Breed,
		"gender":          rec.Gender,
		"description":     rec.Description,
		"image_path":      rec.ImagePath,
		"text_embedding":  doc.TextEmbedding,
		"image_embedding": doc.ImageEmbedding,
	}
	if rec.AgeMonths != nil {
		fields["age_months"] = float64(*rec.AgeMonths)
	}
	if rec.Metadata != nil {
		fields["metadata"] = rec.Metadata
	}
	return fields
}

// Verify interface compliance
var _ driven.SearchIndex = (*MockSearchIndex)(nil)
