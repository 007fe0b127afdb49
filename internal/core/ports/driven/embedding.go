package driven

import (
	"context"
	"image"
)

// EmbeddingService maps text or image input to fixed-dimension
// unit-normalized vectors. Both modalities share one vector space, so
// cosine similarity is meaningful across them. Implementations must be
// safe for concurrent use by in-flight searches.
type EmbeddingService interface {
	// EmbedTexts generates embeddings for multiple texts, aligned by position
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedImage generates an embedding for a single decoded image
	EmbedImage(ctx context.Context, img image.Image) ([]float32, error)

	// Dimensions returns the embedding dimension size
	Dimensions() int

	// HealthCheck verifies the embedding service is available
	HealthCheck(ctx context.Context) error

	// Close releases resources held by the embedding service
	Close() error
}
