package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
	"github.com/adoptapet/petsearch-core/internal/core/ports/driven"
	"github.com/adoptapet/petsearch-core/internal/core/ports/driven/mocks"
)

// Mock services for testing

type mockSearchService struct {
	searchByTextFn  func(ctx context.Context, query string, topK int) (*domain.SearchResponse, error)
	searchByImageFn func(ctx context.Context, img image.Image, topK int) (*domain.SearchResponse, error)
	statsFn         func(ctx context.Context) (*domain.IndexStats, error)
}

func (m *mockSearchService) SearchByText(ctx context.Context, query string, topK int) (*domain.SearchResponse, error) {
	if m.searchByTextFn != nil {
		return m.searchByTextFn(ctx, query, topK)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSearchService) SearchByImage(ctx context.Context, img image.Image, topK int) (*domain.SearchResponse, error) {
	if m.searchByImageFn != nil {
		return m.searchByImageFn(ctx, img, topK)
	}
	return nil, errors.New("not implemented")
}

func (m *mockSearchService) Stats(ctx context.Context) (*domain.IndexStats, error) {
	if m.statsFn != nil {
		return m.statsFn(ctx)
	}
	return nil, errors.New("not implemented")
}

// memoryCache is a map-backed ResultCache for testing
type memoryCache struct {
	entries map[string]*domain.SearchResponse
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string]*domain.SearchResponse)}
}

func (c *memoryCache) Get(ctx context.Context, key string) (*domain.SearchResponse, error) {
	if resp, ok := c.entries[key]; ok {
		return resp, nil
	}
	return nil, domain.ErrNotFound
}

func (c *memoryCache) Set(ctx context.Context, key string, resp *domain.SearchResponse, ttl time.Duration) error {
	c.entries[key] = resp
	c.sets++
	return nil
}

func newTestServer(search *mockSearchService, index *mocks.MockSearchIndex, cache *memoryCache) *Server {
	if index == nil {
		index = mocks.NewMockSearchIndex()
	}

	// A nil *memoryCache must become a nil interface, not a typed nil
	var resultCache driven.ResultCache
	if cache != nil {
		resultCache = cache
	}

	return NewServer(DefaultConfig(), search, index, mocks.NewMockTaskQueue(), resultCache, nil, nil)
}

func textResponse(query string) *domain.SearchResponse {
	return &domain.SearchResponse{
		Query:     query,
		QueryType: domain.QueryModalityText,
		TotalHits: 1,
		Results: []*domain.SearchResult{
			{
				Pet: &domain.PetRecord{
					PetID:   "pf-001",
					Source:  domain.SourcePetfinder,
					Name:    "Rex",
					Species: "Dog",
					Breed:   "Beagle",
				},
				Score:       0.87,
				Explanation: "Match score: 0.870 | Source: petfinder | Breed: Beagle | Species: Dog",
			},
		},
	}
}

func TestHandleHealth(t *testing.T) {
	index := mocks.NewMockSearchIndex()
	s := newTestServer(&mockSearchService{}, index, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["status"] != "healthy" {
		t.Errorf("expected healthy status, got %q", body["status"])
	}
	if body["elasticsearch"] != "connected" {
		t.Errorf("expected connected, got %q", body["elasticsearch"])
	}
}

func TestHandleHealth_Degraded(t *testing.T) {
	index := mocks.NewMockSearchIndex()
	index.HealthErr = errors.New("cluster unreachable")
	s := newTestServer(&mockSearchService{}, index, nil)

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["status"] != "degraded" {
		t.Errorf("expected degraded status, got %q", body["status"])
	}
	if body["elasticsearch"] != "disconnected" {
		t.Errorf("expected disconnected, got %q", body["elasticsearch"])
	}
}

func TestHandleSearch(t *testing.T) {
	var gotQuery string
	var gotTopK int
	search := &mockSearchService{
		searchByTextFn: func(ctx context.Context, query string, topK int) (*domain.SearchResponse, error) {
			gotQuery = query
			gotTopK = topK
			return textResponse(query), nil
		},
	}
	s := newTestServer(search, nil, nil)

	req := httptest.NewRequest("GET", "/api/v1/search?q=playful+beagle&top_k=5", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotQuery != "playful beagle" {
		t.Errorf("expected query forwarded, got %q", gotQuery)
	}
	if gotTopK != 5 {
		t.Errorf("expected top_k 5, got %d", gotTopK)
	}

	var body domain.SearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if len(body.Results) != 1 || body.Results[0].Pet.PetID != "pf-001" {
		t.Errorf("unexpected results: %+v", body.Results)
	}
}

func TestHandleSearch_MissingQuery(t *testing.T) {
	s := newTestServer(&mockSearchService{}, nil, nil)

	req := httptest.NewRequest("GET", "/api/v1/search", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleSearch_InvalidTopK(t *testing.T) {
	s := newTestServer(&mockSearchService{}, nil, nil)

	for _, topK := range []string{"0", "-3", "abc"} {
		req := httptest.NewRequest("GET", "/api/v1/search?q=cat&top_k="+topK, nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("top_k=%s: expected 400, got %d", topK, rec.Code)
		}
	}
}

func TestHandleSearch_ServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"invalid input", domain.ErrInvalidInput, http.StatusBadRequest},
		{"index unavailable", domain.ErrIndexUnavailable, http.StatusServiceUnavailable},
		{"malformed hit", domain.ErrMalformedHit, http.StatusInternalServerError},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			search := &mockSearchService{
				searchByTextFn: func(ctx context.Context, query string, topK int) (*domain.SearchResponse, error) {
					return nil, tt.err
				},
			}
			s := newTestServer(search, nil, nil)

			req := httptest.NewRequest("GET", "/api/v1/search?q=cat", nil)
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
		})
	}
}

func TestHandleSearch_CachesResults(t *testing.T) {
	calls := 0
	search := &mockSearchService{
		searchByTextFn: func(ctx context.Context, query string, topK int) (*domain.SearchResponse, error) {
			calls++
			return textResponse(query), nil
		},
	}
	cache := newMemoryCache()
	s := newTestServer(search, nil, cache)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest("GET", "/api/v1/search?q=tabby", nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	if calls != 1 {
		t.Errorf("expected 1 service call with cache, got %d", calls)
	}
	if cache.sets != 1 {
		t.Errorf("expected 1 cache write, got %d", cache.sets)
	}
}

func TestHandleSearch_CacheKeyVariesWithTopK(t *testing.T) {
	calls := 0
	search := &mockSearchService{
		searchByTextFn: func(ctx context.Context, query string, topK int) (*domain.SearchResponse, error) {
			calls++
			return textResponse(query), nil
		},
	}
	s := newTestServer(search, nil, newMemoryCache())

	for _, path := range []string{"/api/v1/search?q=tabby&top_k=5", "/api/v1/search?q=tabby&top_k=10"} {
		req := httptest.NewRequest("GET", path, nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}

	if calls != 2 {
		t.Errorf("expected distinct cache keys per top_k, got %d calls", calls)
	}
}

// encodePNGForm builds a multipart body with a small generated PNG
func encodePNGForm(t *testing.T, topK string) (*bytes.Buffer, string) {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "query.png")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if err := png.Encode(part, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	if topK != "" {
		if err := writer.WriteField("top_k", topK); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	return &buf, writer.FormDataContentType()
}

func TestHandleImageSearch(t *testing.T) {
	var gotTopK int
	search := &mockSearchService{
		searchByImageFn: func(ctx context.Context, img image.Image, topK int) (*domain.SearchResponse, error) {
			gotTopK = topK
			return &domain.SearchResponse{
				Query:     domain.ImageQueryPlaceholder,
				QueryType: domain.QueryModalityImage,
			}, nil
		},
	}
	s := newTestServer(search, nil, nil)

	body, contentType := encodePNGForm(t, "7")
	req := httptest.NewRequest("POST", "/api/v1/search/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if gotTopK != 7 {
		t.Errorf("expected top_k 7, got %d", gotTopK)
	}

	var resp domain.SearchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if resp.Query != domain.ImageQueryPlaceholder {
		t.Errorf("expected placeholder query, got %q", resp.Query)
	}
}

func TestHandleImageSearch_MissingFile(t *testing.T) {
	s := newTestServer(&mockSearchService{}, nil, nil)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/v1/search/image", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleImageSearch_BadImage(t *testing.T) {
	s := newTestServer(&mockSearchService{}, nil, nil)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", "not-an-image.txt")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write([]byte("definitely not pixels")); err != nil {
		t.Fatalf("failed to write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/api/v1/search/image", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandleStats(t *testing.T) {
	search := &mockSearchService{
		statsFn: func(ctx context.Context) (*domain.IndexStats, error) {
			return &domain.IndexStats{TotalPets: 137}, nil
		},
	}
	s := newTestServer(search, nil, nil)

	req := httptest.NewRequest("GET", "/api/v1/stats", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var stats domain.IndexStats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if stats.TotalPets != 137 {
		t.Errorf("expected 137 pets, got %d", stats.TotalPets)
	}
}

func TestHandleReindex(t *testing.T) {
	queue := mocks.NewMockTaskQueue()
	s := NewServer(DefaultConfig(), &mockSearchService{}, mocks.NewMockSearchIndex(), queue, nil, nil, nil)

	req := httptest.NewRequest("POST", "/api/v1/admin/reindex", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["task_id"] == "" {
		t.Error("expected task_id in response")
	}
	if body["status"] != string(domain.TaskStatusPending) {
		t.Errorf("expected pending status, got %q", body["status"])
	}

	task, err := queue.GetTask(context.Background(), body["task_id"])
	if err != nil {
		t.Fatalf("task was not enqueued: %v", err)
	}
	if task.Type != domain.TaskTypeReindexAll {
		t.Errorf("expected reindex_all task, got %s", task.Type)
	}
}

func TestHandleVersion(t *testing.T) {
	s := newTestServer(&mockSearchService{}, nil, nil)

	req := httptest.NewRequest("GET", "/version", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["version"] != "dev" {
		t.Errorf("expected dev version, got %q", body["version"])
	}
}
