package services

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
	"github.com/adoptapet/petsearch-core/internal/core/ports/driven"
	"github.com/adoptapet/petsearch-core/internal/core/ports/driving"
)

// Ensure searchService implements SearchService
var _ driving.SearchService = (*searchService)(nil)

// SearchConfig holds tuning knobs for the search service
type SearchConfig struct {
	// Dims is the index vector dimensionality; encoded queries must match
	Dims int

	// NumCandidates is the approximate-kNN candidate pool size per clause
	NumCandidates int

	// DefaultTopK applies when a caller passes topK <= 0
	DefaultTopK int
}

// DefaultSearchConfig returns sensible defaults
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		Dims:          512,
		NumCandidates: 100,
		DefaultTopK:   20,
	}
}

// searchService implements the cross-modal search facade: it encodes the
// query, fans out source-filtered vector queries, and fuses the hits into
// the listings and images result sets.
type searchService struct {
	index    driven.SearchIndex
	embedder driven.EmbeddingService
	cfg      SearchConfig
	logger   *slog.Logger
}

// NewSearchService creates a new SearchService. The index and embedder are
// long-lived, process-wide collaborators shared across concurrent requests;
// the service holds no per-request state.
func NewSearchService(index driven.SearchIndex, embedder driven.EmbeddingService, cfg SearchConfig, logger *slog.Logger) driving.SearchService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Dims <= 0 {
		cfg.Dims = 512
	}
	if cfg.NumCandidates <= 0 {
		cfg.NumCandidates = 100
	}
	if cfg.DefaultTopK <= 0 {
		cfg.DefaultTopK = 20
	}
	return &searchService{
		index:    index,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}
}

// SearchByText searches pets by natural-language query
func (s *searchService) SearchByText(ctx context.Context, query string, topK int) (*domain.SearchResponse, error) {
	start := time.Now()

	vecs, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("encode text query: %w", err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("encode text query: expected 1 vector, got %d", len(vecs))
	}

	return s.search(ctx, query, domain.QueryModalityText, vecs[0], topK, start)
}

// SearchByImage searches pets by an uploaded, already-decoded image
func (s *searchService) SearchByImage(ctx context.Context, img image.Image, topK int) (*domain.SearchResponse, error) {
	start := time.Now()

	vec, err := s.embedder.EmbedImage(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("encode image query: %w", err)
	}

	return s.search(ctx, domain.ImageQueryPlaceholder, domain.QueryModalityImage, vec, topK, start)
}

// Stats returns corpus-level counts
func (s *searchService) Stats(ctx context.Context) (*domain.IndexStats, error) {
	total, err := s.index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count index: %w", err)
	}
	return &domain.IndexStats{TotalPets: total}, nil
}

// search runs the fusion engine for an encoded query and assembles the
// response. All per-source index queries are independent and run
// concurrently; any single failure fails the whole call.
func (s *searchService) search(ctx context.Context, query string, modality domain.QueryModality, vec []float32, topK int, start time.Time) (*domain.SearchResponse, error) {
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}
	if len(vec) != s.cfg.Dims {
		return nil, fmt.Errorf("%w: provider returned %d dims, index expects %d",
			domain.ErrDimensionMismatch, len(vec), s.cfg.Dims)
	}

	primaryK, secondaryK := splitAllocation(topK)

	var (
		listings      []*domain.SearchResult
		primaryHits   []*domain.SearchResult
		secondaryHits []*domain.SearchResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		listings, err = s.sourceSearch(gctx, vec, modality, topK, domain.SourcePetfinder)
		return err
	})
	g.Go(func() error {
		var err error
		primaryHits, err = s.sourceSearch(gctx, vec, modality, primaryK, domain.SourcePetfinder)
		return err
	})
	g.Go(func() error {
		var err error
		secondaryHits, err = s.sourceSearch(gctx, vec, modality, secondaryK, domain.SourceOxfordIIIT)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	images := mergeResults(topK, primaryHits, secondaryHits)

	elapsed := math.Round(float64(time.Since(start))/float64(time.Millisecond)*10) / 10

	resp := &domain.SearchResponse{
		Query:        query,
		QueryType:    modality,
		Results:      images,
		Listings:     listings,
		Images:       images,
		TotalHits:    len(listings) + len(images),
		SearchTimeMs: elapsed,
	}

	s.logger.Debug("search complete",
		"modality", modality,
		"top_k", topK,
		"listings", len(listings),
		"images", len(images),
		"took_ms", elapsed,
	)

	return resp, nil
}

// sourceSearch runs one source-filtered vector query and parses its hits.
// Filtering happens in the index before ranking, so the result is genuinely
// that source's top k, not a slice of a global ranking.
func (s *searchService) sourceSearch(ctx context.Context, vec []float32, modality domain.QueryModality, k int, source domain.Source) ([]*domain.SearchResult, error) {
	query := domain.BuildVectorQuery(vec, modality, k, s.cfg.NumCandidates, source)
	hits, err := s.index.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("search source %s: %w", source, err)
	}
	return parseHits(hits)
}

// splitAllocation divides topK between the sources: ceil(3/5) to PetFinder,
// the remainder to Oxford-IIIT, each at least 1. For topK >= 2 the
// allocations sum to exactly topK, so the merge never has to evict a
// source: every source stays visible even when the other's scores wholly
// dominate. At topK 1 both sources are still queried and the best hit wins.
func splitAllocation(topK int) (primaryK, secondaryK int) {
	primaryK = (topK*3 + 4) / 5
	if primaryK < 1 {
		primaryK = 1
	}
	secondaryK = topK - primaryK
	if secondaryK < 1 {
		secondaryK = 1
		if topK >= 2 {
			primaryK = topK - 1
		}
	}
	return primaryK, secondaryK
}

// mergeResults fuses per-source result lists: sorted by descending score,
// equal scores ordered by pet_id for determinism, deduplicated by pet_id,
// truncated to topK.
func mergeResults(topK int, lists ...[]*domain.SearchResult) []*domain.SearchResult {
	var all []*domain.SearchResult
	for _, list := range lists {
		all = append(all, list...)
	}

	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Score != all[j].Score {
			return all[i].Score > all[j].Score
		}
		return all[i].Pet.PetID < all[j].Pet.PetID
	})

	merged := make([]*domain.SearchResult, 0, topK)
	seen := make(map[string]struct{}, topK)
	for _, res := range all {
		if len(merged) >= topK {
			break
		}
		if _, ok := seen[res.Pet.PetID]; ok {
			continue
		}
		seen[res.Pet.PetID] = struct{}{}
		merged = append(merged, res)
	}
	return merged
}

// parseHits converts raw index hits into SearchResults. A malformed hit
// fails the whole batch: silently dropping records would corrupt the
// source-balancing allocation.
func parseHits(hits []domain.Hit) ([]*domain.SearchResult, error) {
	results := make([]*domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		pet, err := parseHit(hit.Fields)
		if err != nil {
			return nil, err
		}
		results = append(results, &domain.SearchResult{
			Pet:         pet,
			Score:       hit.Score,
			Explanation: explain(pet, hit.Score),
		})
	}
	return results, nil
}

// parseHit maps a loosely-typed hit payload onto the strict record schema.
// The embedding fields are deliberately never read: they must not leak
// into any response payload.
func parseHit(fields map[string]any) (*domain.PetRecord, error) {
	rec := &domain.PetRecord{}

	var err error
	if rec.PetID, err = requiredString(fields, "pet_id"); err != nil {
		return nil, err
	}
	source, err := requiredString(fields, "source")
	if err != nil {
		return nil, err
	}
	rec.Source = domain.Source(source)
	if !rec.Source.IsValid() {
		return nil, fmt.Errorf("%w: unknown source %q", domain.ErrMalformedHit, source)
	}
	if rec.Species, err = requiredString(fields, "species"); err != nil {
		return nil, err
	}
	if rec.Breed, err = requiredString(fields, "breed"); err != nil {
		return nil, err
	}
	if rec.Description, err = requiredString(fields, "description"); err != nil {
		return nil, err
	}
	if rec.ImagePath, err = requiredString(fields, "image_path"); err != nil {
		return nil, err
	}

	rec.Name = optionalString(fields, "name")
	if rec.Name == "" {
		rec.Name = "Unknown"
	}
	rec.Gender = optionalString(fields, "gender")

	if raw, ok := fields["age_months"]; ok && raw != nil {
		switch v := raw.(type) {
		case float64:
			age := int(v)
			rec.AgeMonths = &age
		case int:
			age := v
			rec.AgeMonths = &age
		default:
			return nil, fmt.Errorf("%w: age_months has type %T", domain.ErrMalformedHit, raw)
		}
	}

	if meta, ok := fields["metadata"].(map[string]any); ok {
		rec.Metadata = meta
	}

	return rec, nil
}

func requiredString(fields map[string]any, key string) (string, error) {
	v, ok := fields[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("%w: missing required field %q", domain.ErrMalformedHit, key)
	}
	return v, nil
}

func optionalString(fields map[string]any, key string) string {
	v, _ := fields[key].(string)
	return v
}

// explain builds the human-readable match explanation. Presentational
// only; callers must not parse it.
func explain(pet *domain.PetRecord, score float64) string {
	parts := []string{
		fmt.Sprintf("Match score: %.3f", score),
		"Source: " + string(pet.Source),
		"Breed: " + pet.Breed,
	}
	if pet.Species != "" {
		parts = append(parts, "Species: "+pet.Species)
	}
	return strings.Join(parts, " | ")
}
