package driven

import (
	"context"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
)

// IndexDoc is one record plus its embedding pair, ready for bulk indexing
type IndexDoc struct {
	Record         *domain.PetRecord
	TextEmbedding  []float32
	ImageEmbedding []float32
}

// SearchIndex is the document store holding pet records with two named
// dense-vector fields plus scalar metadata. It supports approximate kNN
// search per field with boost weighting and exact-match filters, and bulk
// write. Implementations must be safe for concurrent searches.
type SearchIndex interface {
	// CreateIndex drops any existing index and recreates it with the
	// dense-vector mapping. The only delete path for indexed records.
	CreateIndex(ctx context.Context) error

	// BulkIndex upserts a batch of records with their embeddings and
	// returns the number of successfully indexed documents.
	BulkIndex(ctx context.Context, docs []IndexDoc) (int, error)

	// Search executes a multi-field vector query and returns raw hits
	// in index ranking order.
	Search(ctx context.Context, query domain.VectorQuery) ([]domain.Hit, error)

	// Count returns the total number of indexed records
	Count(ctx context.Context) (int64, error)

	// HealthCheck verifies the index is reachable
	HealthCheck(ctx context.Context) error
}
