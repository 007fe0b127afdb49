package driving

import "context"

// IndexingService builds the search index from staged pet records
type IndexingService interface {
	// Rebuild drops and recreates the index, then embeds and bulk-indexes
	// every staged record. Returns the number of indexed documents.
	Rebuild(ctx context.Context) (int, error)
}
