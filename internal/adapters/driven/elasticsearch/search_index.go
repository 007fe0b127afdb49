package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
	"github.com/adoptapet/petsearch-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.SearchIndex = (*SearchIndex)(nil)

// SearchIndex implements driven.SearchIndex against Elasticsearch 8.x
// using the kNN search API over two dense_vector fields.
type SearchIndex struct {
	baseURL    string
	index      string
	dims       int
	httpClient *http.Client
}

// Config holds Elasticsearch connection configuration
type Config struct {
	// BaseURL is the Elasticsearch endpoint (e.g., http://localhost:9200)
	BaseURL string

	// Index is the index name holding pet records
	Index string

	// Dims is the dense_vector dimensionality of both embedding fields
	Dims int

	// Timeout for HTTP requests
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL: baseURL,
		Index:   "pets",
		Dims:    512,
		Timeout: 30 * time.Second,
	}
}

// NewSearchIndex creates a new Elasticsearch-backed SearchIndex
func NewSearchIndex(cfg Config) *SearchIndex {
	if cfg.Index == "" {
		cfg.Index = "pets"
	}
	if cfg.Dims <= 0 {
		cfg.Dims = 512
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &SearchIndex{
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		index:   cfg.Index,
		dims:    cfg.Dims,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Dims returns the vector dimensionality of the index mapping
func (s *SearchIndex) Dims() int {
	return s.dims
}

// knnClause is one clause of the Elasticsearch knn search body
type knnClause struct {
	Field         string         `json:"field"`
	QueryVector   []float32      `json:"query_vector"`
	K             int            `json:"k"`
	NumCandidates int            `json:"num_candidates"`
	Boost         float64        `json:"boost"`
	Filter        map[string]any `json:"filter,omitempty"`
}

type searchRequest struct {
	Size int         `json:"size"`
	KNN  []knnClause `json:"knn"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int64 `json:"value"`
		} `json:"total"`
		Hits []struct {
			Score  float64        `json:"_score"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search executes a multi-field kNN query and returns raw hits in
// Elasticsearch ranking order.
func (s *SearchIndex) Search(ctx context.Context, query domain.VectorQuery) ([]domain.Hit, error) {
	req := searchRequest{
		Size: query.Size,
		KNN:  make([]knnClause, 0, len(query.KNN)),
	}
	for _, clause := range query.KNN {
		kc := knnClause{
			Field:         clause.Field,
			QueryVector:   clause.QueryVector,
			K:             clause.K,
			NumCandidates: clause.NumCandidates,
			Boost:         clause.Boost,
		}
		if clause.Filter != nil {
			// Term filters narrow the candidate pool before ranking
			kc.Filter = map[string]any{
				"term": map[string]string{clause.Filter.Field: clause.Filter.Value},
			}
		}
		req.KNN = append(req.KNN, kc)
	}

	resp, err := s.doJSON(ctx, http.MethodPost, fmt.Sprintf("/%s/_search", s.index), req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("elasticsearch search failed: %s - %s", resp.Status, string(respBody))
	}

	var searchResp searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}

	hits := make([]domain.Hit, 0, len(searchResp.Hits.Hits))
	for _, hit := range searchResp.Hits.Hits {
		hits = append(hits, domain.Hit{
			Score:  hit.Score,
			Fields: hit.Source,
		})
	}
	return hits, nil
}

// petIndexMapping builds the index settings and mapping: keyword fields
// for exact filtering, text fields for display, and the two dense_vector
// embedding fields with cosine similarity.
func (s *SearchIndex) petIndexMapping() map[string]any {
	denseVector := func() map[string]any {
		return map[string]any{
			"type":       "dense_vector",
			"dims":       s.dims,
			"index":      true,
			"similarity": "cosine",
		}
	}
	return map[string]any{
		"settings": map[string]any{
			"number_of_shards":   1,
			"number_of_replicas": 0,
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				"pet_id":  map[string]any{"type": "keyword"},
				"source":  map[string]any{"type": "keyword"},
				"name":    map[string]any{"type": "text", "analyzer": "standard"},
				"species": map[string]any{"type": "keyword"},
				"breed": map[string]any{
					"type":   "text",
					"fields": map[string]any{"keyword": map[string]any{"type": "keyword"}},
				},
				"age_months":      map[string]any{"type": "integer"},
				"gender":          map[string]any{"type": "keyword"},
				"description":     map[string]any{"type": "text", "analyzer": "standard"},
				"image_path":      map[string]any{"type": "keyword", "index": false},
				"metadata":        map[string]any{"type": "object", "enabled": false},
				"text_embedding":  denseVector(),
				"image_embedding": denseVector(),
			},
		},
	}
}

// CreateIndex deletes any existing pets index and recreates it with the
// dense-vector mapping.
func (s *SearchIndex) CreateIndex(ctx context.Context) error {
	// Drop the old index; 404 means there was none
	resp, err := s.doJSON(ctx, http.MethodDelete, "/"+s.index, nil)
	if err != nil {
		return fmt.Errorf("delete index: %w", err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("delete index failed: %s", resp.Status)
	}

	resp, err = s.doJSON(ctx, http.MethodPut, "/"+s.index, s.petIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("create index failed: %s - %s", resp.Status, string(respBody))
	}
	return nil
}

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []map[string]struct {
		Status int `json:"status"`
		Error  any `json:"error,omitempty"`
	} `json:"items"`
}

// BulkIndex upserts a batch of records with their embeddings via the
// _bulk API, one action/document NDJSON pair per record.
func (s *SearchIndex) BulkIndex(ctx context.Context, docs []driven.IndexDoc) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, doc := range docs {
		action := map[string]any{
			"index": map[string]any{"_index": s.index, "_id": doc.Record.PetID},
		}
		if err := enc.Encode(action); err != nil {
			return 0, fmt.Errorf("encode bulk action: %w", err)
		}

		body, err := indexDocument(doc)
		if err != nil {
			return 0, err
		}
		if err := enc.Encode(body); err != nil {
			return 0, fmt.Errorf("encode bulk document: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/_bulk", &buf)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/x-ndjson")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("bulk index failed: %s - %s", resp.Status, string(respBody))
	}

	var bulkResp bulkResponse
	if err := json.NewDecoder(resp.Body).Decode(&bulkResp); err != nil {
		return 0, fmt.Errorf("decode bulk response: %w", err)
	}

	indexed := 0
	for _, item := range bulkResp.Items {
		for _, result := range item {
			if result.Status < 300 {
				indexed++
			}
		}
	}
	if bulkResp.Errors {
		return indexed, fmt.Errorf("bulk index: %d of %d documents failed", len(docs)-indexed, len(docs))
	}
	return indexed, nil
}

// indexDocument flattens a record and its embedding pair into the stored
// document shape.
func indexDocument(doc driven.IndexDoc) (map[string]any, error) {
	raw, err := json.Marshal(doc.Record)
	if err != nil {
		return nil, fmt.Errorf("marshal record %s: %w", doc.Record.PetID, err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("flatten record %s: %w", doc.Record.PetID, err)
	}
	body["text_embedding"] = doc.TextEmbedding
	body["image_embedding"] = doc.ImageEmbedding
	return body, nil
}

// Count returns the total number of indexed records
func (s *SearchIndex) Count(ctx context.Context) (int64, error) {
	resp, err := s.doJSON(ctx, http.MethodGet, fmt.Sprintf("/%s/_count", s.index), nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", domain.ErrIndexUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("count failed: %s - %s", resp.Status, string(respBody))
	}

	var countResp struct {
		Count int64 `json:"count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&countResp); err != nil {
		return 0, fmt.Errorf("decode count response: %w", err)
	}
	return countResp.Count, nil
}

// HealthCheck verifies the cluster responds and is not red
func (s *SearchIndex) HealthCheck(ctx context.Context) error {
	resp, err := s.doJSON(ctx, http.MethodGet, "/_cluster/health", nil)
	if err != nil {
		return fmt.Errorf("elasticsearch health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("elasticsearch unhealthy: %s", resp.Status)
	}

	var health struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return fmt.Errorf("decode health response: %w", err)
	}
	if health.Status == "red" {
		return fmt.Errorf("elasticsearch cluster status is red")
	}
	return nil
}

// doJSON sends a request with an optional JSON body
func (s *SearchIndex) doJSON(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return s.httpClient.Do(req)
}
