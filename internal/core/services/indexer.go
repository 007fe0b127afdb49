package services

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	// Primary photos are JPEG or PNG on disk
	_ "image/jpeg"
	_ "image/png"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
	"github.com/adoptapet/petsearch-core/internal/core/ports/driven"
	"github.com/adoptapet/petsearch-core/internal/core/ports/driving"
)

// Ensure indexingService implements IndexingService
var _ driving.IndexingService = (*indexingService)(nil)

// IndexerConfig holds configuration for the indexing pipeline
type IndexerConfig struct {
	// ImageRoot is the directory pet image paths are resolved against
	ImageRoot string

	// BatchSize is the number of records embedded and bulk-written at once
	BatchSize int
}

// indexingService builds the search index from the staging store: it reads
// records in batches, embeds descriptions and primary photos, and
// bulk-writes the record/embedding-pair documents.
type indexingService struct {
	pets     driven.PetStore
	index    driven.SearchIndex
	embedder driven.EmbeddingService
	cfg      IndexerConfig
	logger   *slog.Logger
}

// NewIndexingService creates a new IndexingService
func NewIndexingService(pets driven.PetStore, index driven.SearchIndex, embedder driven.EmbeddingService, cfg IndexerConfig, logger *slog.Logger) driving.IndexingService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &indexingService{
		pets:     pets,
		index:    index,
		embedder: embedder,
		cfg:      cfg,
		logger:   logger,
	}
}

// Rebuild drops and recreates the index, then embeds and indexes every
// staged record. Records are immutable once indexed; this is the only
// path that removes them.
func (s *indexingService) Rebuild(ctx context.Context) (int, error) {
	if err := s.index.CreateIndex(ctx); err != nil {
		return 0, fmt.Errorf("create index: %w", err)
	}

	total := 0
	for offset := 0; ; offset += s.cfg.BatchSize {
		records, err := s.pets.List(ctx, offset, s.cfg.BatchSize)
		if err != nil {
			return total, fmt.Errorf("list records at offset %d: %w", offset, err)
		}
		if len(records) == 0 {
			break
		}

		n, err := s.indexBatch(ctx, records)
		if err != nil {
			return total, err
		}
		total += n
		s.logger.Info("indexed batch", "offset", offset, "count", n)
	}

	s.logger.Info("reindex complete", "total", total)
	return total, nil
}

// indexBatch embeds one batch of records and bulk-writes it. Descriptions
// are embedded in a single provider call; photos are decoded and embedded
// one by one through the provider's single-image path.
func (s *indexingService) indexBatch(ctx context.Context, records []*domain.PetRecord) (int, error) {
	texts := make([]string, len(records))
	for i, rec := range records {
		if err := rec.Validate(); err != nil {
			return 0, fmt.Errorf("record %s: %w", rec.PetID, err)
		}
		texts[i] = rec.Description
	}

	textVecs, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embed descriptions: %w", err)
	}
	if len(textVecs) != len(records) {
		return 0, fmt.Errorf("embed descriptions: got %d vectors for %d records", len(textVecs), len(records))
	}

	docs := make([]driven.IndexDoc, 0, len(records))
	for i, rec := range records {
		img, err := s.loadImage(rec.ImagePath)
		if err != nil {
			return 0, fmt.Errorf("record %s: %w", rec.PetID, err)
		}
		imgVec, err := s.embedder.EmbedImage(ctx, img)
		if err != nil {
			return 0, fmt.Errorf("record %s: embed image: %w", rec.PetID, err)
		}
		docs = append(docs, driven.IndexDoc{
			Record:         rec,
			TextEmbedding:  textVecs[i],
			ImageEmbedding: imgVec,
		})
	}

	n, err := s.index.BulkIndex(ctx, docs)
	if err != nil {
		return 0, fmt.Errorf("bulk index: %w", err)
	}
	return n, nil
}

func (s *indexingService) loadImage(path string) (image.Image, error) {
	f, err := os.Open(filepath.Join(s.cfg.ImageRoot, path))
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}
	return img, nil
}
