package mocks

import (
	"context"
	"image"
	"math"
	"sync"

	"github.com/adoptapet/petsearch-core/internal/core/ports/driven"
)

// MockEmbeddingService is a deterministic in-memory EmbeddingService.
// Every vector it returns is unit-normalized, matching the provider
// contract the search core depends on.
type MockEmbeddingService struct {
	mu         sync.Mutex
	dims       int
	textCalls  int
	imageCalls int

	// EmbedErr injects failures into both encode paths
	EmbedErr error
}

// NewMockEmbeddingService creates a mock with 512-dimensional vectors
func NewMockEmbeddingService() *MockEmbeddingService {
	return &MockEmbeddingService{dims: 512}
}

// NewMockEmbeddingServiceWithDims creates a mock with custom dimensionality
func NewMockEmbeddingServiceWithDims(dims int) *MockEmbeddingService {
	return &MockEmbeddingService{dims: dims}
}

// TextCalls returns how many EmbedTexts calls the mock has served
func (m *MockEmbeddingService) TextCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.textCalls
}

// ImageCalls returns how many EmbedImage calls the mock has served
func (m *MockEmbeddingService) ImageCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.imageCalls
}

func (m *MockEmbeddingService) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if m.EmbedErr != nil {
		return nil, m.EmbedErr
	}
	m.mu.Lock()
	m.textCalls++
	m.mu.Unlock()

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = m.unitVector(text)
	}
	return out, nil
}

func (m *MockEmbeddingService) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	if m.EmbedErr != nil {
		return nil, m.EmbedErr
	}
	m.mu.Lock()
	m.imageCalls++
	m.mu.Unlock()
	return m.unitVector("image"), nil
}

func (m *MockEmbeddingService) Dimensions() int {
	return m.dims
}

func (m *MockEmbeddingService) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockEmbeddingService) Close() error {
	return nil
}

// unitVector derives a normalized vector from the input so distinct
// inputs embed to distinct directions.
func (m *MockEmbeddingService) unitVector(seed string) []float32 {
	v := make([]float32, m.dims)
	var sum float64
	for i := range v {
		h := float64((i*31+len(seed))%97) + 1
		for _, r := range seed {
			h += float64(r) / float64(i+1)
		}
		v[i] = float32(h)
		sum += h * h
	}
	norm := float32(math.Sqrt(sum))
	for i := range v {
		v[i] /= norm
	}
	return v
}

// Verify interface compliance
var _ driven.EmbeddingService = (*MockEmbeddingService)(nil)
