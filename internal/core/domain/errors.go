package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidRecord indicates a pet record violates its schema invariants
	ErrInvalidRecord = errors.New("invalid pet record")

	// ErrMalformedHit indicates a search index hit is missing a required
	// record field. The whole request fails rather than silently dropping
	// the record: dropped hits would corrupt the source-balancing accounting.
	ErrMalformedHit = errors.New("malformed index hit")

	// ErrDimensionMismatch indicates the embedding provider and the search
	// index disagree on vector dimensionality. Fatal configuration error,
	// never retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNotNormalized indicates an embedding vector is not unit length
	ErrNotNormalized = errors.New("embedding vector not unit-normalized")

	// ErrIndexUnavailable indicates the search index could not be reached
	ErrIndexUnavailable = errors.New("search index unavailable")
)
