package ai

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
)

// unitVec returns a unit-length vector of the given dimensionality
func unitVec(dims int) []float32 {
	v := make([]float32, dims)
	val := float32(1.0 / math.Sqrt(float64(dims)))
	for i := range v {
		v[i] = val
	}
	return v
}

func testEmbedder(t *testing.T, dims int, handler http.HandlerFunc) *CLIPEmbedding {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	svc, err := NewCLIPEmbedding(srv.URL, "ViT-B-32", dims)
	if err != nil {
		t.Fatalf("failed to create embedder: %v", err)
	}
	return svc.(*CLIPEmbedding)
}

func TestEmbedTexts(t *testing.T) {
	var captured textRequest
	e := testEmbedder(t, 8, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/encode/text" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(textResponse{
			Embeddings: [][]float32{unitVec(8), unitVec(8)},
		})
	})

	vecs, err := e.EmbedTexts(context.Background(), []string{"a dog", "a cat"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vecs) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(vecs))
	}
	if captured.Model != "ViT-B-32" || len(captured.Texts) != 2 {
		t.Errorf("unexpected request: %+v", captured)
	}

	// Every returned vector must be unit length within tolerance
	for i, vec := range vecs {
		var sum float64
		for _, v := range vec {
			sum += float64(v) * float64(v)
		}
		if math.Abs(math.Sqrt(sum)-1.0) > 0.01 {
			t.Errorf("vector %d: norm %v not within 0.01 of 1.0", i, math.Sqrt(sum))
		}
	}
}

func TestEmbedTexts_RejectsUnnormalized(t *testing.T) {
	e := testEmbedder(t, 4, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(textResponse{
			Embeddings: [][]float32{{1, 1, 1, 1}},
		})
	})

	_, err := e.EmbedTexts(context.Background(), []string{"a dog"})
	if !errors.Is(err, domain.ErrNotNormalized) {
		t.Fatalf("expected ErrNotNormalized, got %v", err)
	}
}

func TestEmbedTexts_DimensionMismatch(t *testing.T) {
	e := testEmbedder(t, 512, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(textResponse{
			Embeddings: [][]float32{unitVec(256)},
		})
	})

	_, err := e.EmbedTexts(context.Background(), []string{"a dog"})
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestEmbedTexts_ServerError(t *testing.T) {
	e := testEmbedder(t, 4, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(textResponse{Error: "model not loaded"})
	})

	_, err := e.EmbedTexts(context.Background(), []string{"a dog"})
	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Fatalf("expected server error surfaced, got %v", err)
	}
}

func TestEmbedImage(t *testing.T) {
	var captured imageRequest
	e := testEmbedder(t, 8, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/encode/image" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(imageResponse{Embedding: unitVec(8)})
	})

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	vec, err := e.EmbedImage(context.Background(), img)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 8 {
		t.Errorf("expected 8-dim vector, got %d", len(vec))
	}
	if captured.ImageB64 == "" {
		t.Error("expected image payload in request")
	}
}

func TestNewCLIPEmbedding_RequiresURL(t *testing.T) {
	if _, err := NewCLIPEmbedding("", "", 512); err == nil {
		t.Fatal("expected error for empty URL")
	}
}

func TestNewCLIPEmbedding_Defaults(t *testing.T) {
	svc, err := NewCLIPEmbedding("http://localhost:8001", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if svc.Dimensions() != 512 {
		t.Errorf("expected default 512 dims, got %d", svc.Dimensions())
	}
}
