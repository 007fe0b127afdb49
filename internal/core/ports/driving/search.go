package driving

import (
	"context"
	"image"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
)

// SearchService is the public cross-modal search surface
type SearchService interface {
	// SearchByText encodes a natural-language query and returns ranked,
	// source-balanced results
	SearchByText(ctx context.Context, query string, topK int) (*domain.SearchResponse, error)

	// SearchByImage encodes an uploaded image and returns ranked,
	// source-balanced results
	SearchByImage(ctx context.Context, img image.Image, topK int) (*domain.SearchResponse, error)

	// Stats returns corpus-level counts for the homepage
	Stats(ctx context.Context) (*domain.IndexStats, error)
}
