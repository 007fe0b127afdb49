package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
	"github.com/adoptapet/petsearch-core/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

// Verify interface compliance
var _ driven.ResultCache = (*ResultCache)(nil)

const resultPrefix = "petsearch:result:"

// ResultCache implements driven.ResultCache using Redis.
// Entries expire via Redis TTL; a full reindex does not invalidate them,
// which is acceptable because TTLs are short.
type ResultCache struct {
	client *redis.Client
}

// NewResultCache creates a new Redis-backed ResultCache
func NewResultCache(client *redis.Client) *ResultCache {
	return &ResultCache{client: client}
}

// Get returns the cached response for key, or domain.ErrNotFound
func (c *ResultCache) Get(ctx context.Context, key string) (*domain.SearchResponse, error) {
	data, err := c.client.Get(ctx, resultPrefix+key).Bytes()
	if err == redis.Nil {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cached result: %w", err)
	}

	var resp domain.SearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}

	return &resp, nil
}

// Set stores a response under key with the given TTL
func (c *ResultCache) Set(ctx context.Context, key string, resp *domain.SearchResponse, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	if err := c.client.Set(ctx, resultPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}

	return nil
}
