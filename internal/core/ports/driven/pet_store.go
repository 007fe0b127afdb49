package driven

import (
	"context"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
)

// PetStore is the staging store for normalized pet records. Ingestion
// writes records here; the indexing pipeline reads them back in batches
// when (re)building the search index.
type PetStore interface {
	// SaveBatch upserts records in a single transaction
	SaveBatch(ctx context.Context, records []*domain.PetRecord) error

	// Get retrieves a record by pet_id
	Get(ctx context.Context, petID string) (*domain.PetRecord, error)

	// List returns records ordered by pet_id, for batched iteration
	List(ctx context.Context, offset, limit int) ([]*domain.PetRecord, error)

	// Count returns the number of staged records
	Count(ctx context.Context) (int64, error)

	// Ping checks the store is reachable
	Ping(ctx context.Context) error
}
