package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
	"github.com/adoptapet/petsearch-core/internal/core/ports/driven"
)

// Ensure CLIPEmbedding implements EmbeddingService
var _ driven.EmbeddingService = (*CLIPEmbedding)(nil)

// normTolerance is how far an embedding's L2 norm may drift from 1.0
// before the vector is rejected.
const normTolerance = 0.01

// CLIPEmbedding implements EmbeddingService against a CLIP inference
// server exposing text and image encode endpoints. Text and image
// embeddings share one vector space, which is what makes cross-modal
// scoring meaningful.
type CLIPEmbedding struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

// NewCLIPEmbedding creates a new CLIP embedding service client
func NewCLIPEmbedding(baseURL, model string, dimensions int) (driven.EmbeddingService, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("CLIP server URL is required")
	}
	if model == "" {
		model = "ViT-B-32"
	}
	if dimensions <= 0 {
		dimensions = 512
	}

	return &CLIPEmbedding{
		baseURL:    baseURL,
		model:      model,
		dimensions: dimensions,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

// textRequest is the request body for the text encode endpoint
type textRequest struct {
	Model string   `json:"model"`
	Texts []string `json:"texts"`
}

type textResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
	Error      string      `json:"error,omitempty"`
}

// imageRequest carries one PNG-encoded image
type imageRequest struct {
	Model    string `json:"model"`
	ImageB64 string `json:"image_b64"`
}

type imageResponse struct {
	Embedding []float32 `json:"embedding"`
	Error     string    `json:"error,omitempty"`
}

// EmbedTexts generates embeddings for multiple texts, aligned by position
func (e *CLIPEmbedding) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	body, err := e.doRequest(ctx, "/encode/text", textRequest{Model: e.model, Texts: texts})
	if err != nil {
		return nil, err
	}

	var resp textResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("CLIP server error: %s", resp.Error)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("CLIP server returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	for i, vec := range resp.Embeddings {
		if err := e.validate(vec); err != nil {
			return nil, fmt.Errorf("text embedding %d: %w", i, err)
		}
	}
	return resp.Embeddings, nil
}

// EmbedImage generates an embedding for a single decoded image
func (e *CLIPEmbedding) EmbedImage(ctx context.Context, img image.Image) ([]float32, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	req := imageRequest{
		Model:    e.model,
		ImageB64: base64.StdEncoding.EncodeToString(buf.Bytes()),
	}
	body, err := e.doRequest(ctx, "/encode/image", req)
	if err != nil {
		return nil, err
	}

	var resp imageResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("CLIP server error: %s", resp.Error)
	}

	if err := e.validate(resp.Embedding); err != nil {
		return nil, fmt.Errorf("image embedding: %w", err)
	}
	return resp.Embedding, nil
}

// Dimensions returns the embedding dimension size
func (e *CLIPEmbedding) Dimensions() int {
	return e.dimensions
}

// HealthCheck verifies the CLIP server is available
func (e *CLIPEmbedding) HealthCheck(ctx context.Context) error {
	_, err := e.EmbedTexts(ctx, []string{"health check"})
	return err
}

// Close releases resources held by the embedding service
func (e *CLIPEmbedding) Close() error {
	e.client.CloseIdleConnections()
	return nil
}

// validate enforces the provider contract: vectors must match the
// configured dimensionality and be unit-normalized. A dimension mismatch
// is a fatal configuration error.
func (e *CLIPEmbedding) validate(vec []float32) error {
	if len(vec) != e.dimensions {
		return fmt.Errorf("%w: got %d dims, expected %d", domain.ErrDimensionMismatch, len(vec), e.dimensions)
	}

	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if math.Abs(norm-1.0) > normTolerance {
		return fmt.Errorf("%w: norm %.4f", domain.ErrNotNormalized, norm)
	}
	return nil
}

// doRequest posts a JSON body to the CLIP server and returns the raw response
func (e *CLIPEmbedding) doRequest(ctx context.Context, path string, reqBody any) ([]byte, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("CLIP server returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
