package driven

import (
	"context"
	"time"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
)

// ResultCache is a short-TTL cache for search responses. It sits with the
// caller, never inside the search facade: the facade stays read-only and
// retry/cache policy belongs to the layer invoking it.
type ResultCache interface {
	// Get returns the cached response for key, or domain.ErrNotFound
	Get(ctx context.Context, key string) (*domain.SearchResponse, error)

	// Set stores a response under key with the given TTL
	Set(ctx context.Context, key string, resp *domain.SearchResponse, ttl time.Duration) error
}
