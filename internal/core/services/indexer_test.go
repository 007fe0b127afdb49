package services

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
	"github.com/adoptapet/petsearch-core/internal/core/ports/driven/mocks"
)

// writeTestImage writes a small PNG under root and returns its relative path
func writeTestImage(t *testing.T, root, name string) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	path := filepath.Join(root, name)

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create image file: %v", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	return name
}

func stagedRecord(id string, source domain.Source, imagePath string) *domain.PetRecord {
	return &domain.PetRecord{
		PetID:       id,
		Source:      source,
		Name:        "Test Pet",
		Species:     "Dog",
		Breed:       "Beagle",
		Description: "A friendly beagle who loves walks",
		ImagePath:   imagePath,
	}
}

func TestRebuild(t *testing.T) {
	root := t.TempDir()
	imgName := writeTestImage(t, root, "pet.png")

	pets := mocks.NewMockPetStore()
	ctx := context.Background()
	records := []*domain.PetRecord{
		stagedRecord("pf-1", domain.SourcePetfinder, imgName),
		stagedRecord("pf-2", domain.SourcePetfinder, imgName),
		stagedRecord("ox-1", domain.SourceOxfordIIIT, imgName),
	}
	if err := pets.SaveBatch(ctx, records); err != nil {
		t.Fatalf("failed to stage records: %v", err)
	}

	index := mocks.NewMockSearchIndex()
	embedder := mocks.NewMockEmbeddingService()

	svc := NewIndexingService(pets, index, embedder, IndexerConfig{ImageRoot: root}, nil)

	total, err := svc.Rebuild(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 3 {
		t.Errorf("expected 3 indexed records, got %d", total)
	}
	if !index.Created() {
		t.Error("expected index to be recreated")
	}

	count, err := index.Count(ctx)
	if err != nil {
		t.Fatalf("unexpected error counting: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 documents in index, got %d", count)
	}
}

func TestRebuild_Batching(t *testing.T) {
	root := t.TempDir()
	imgName := writeTestImage(t, root, "pet.png")

	pets := mocks.NewMockPetStore()
	ctx := context.Background()
	var records []*domain.PetRecord
	for i := 0; i < 5; i++ {
		records = append(records, stagedRecord(
			fmt.Sprintf("pf-%03d", i), domain.SourcePetfinder, imgName))
	}
	if err := pets.SaveBatch(ctx, records); err != nil {
		t.Fatalf("failed to stage records: %v", err)
	}

	index := mocks.NewMockSearchIndex()
	embedder := mocks.NewMockEmbeddingService()

	svc := NewIndexingService(pets, index, embedder, IndexerConfig{
		ImageRoot: root,
		BatchSize: 2, // forces multiple List/BulkIndex rounds
	}, nil)

	total, err := svc.Rebuild(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 5 {
		t.Errorf("expected 5 indexed records, got %d", total)
	}
}

func TestRebuild_EmptyStore(t *testing.T) {
	svc := NewIndexingService(
		mocks.NewMockPetStore(),
		mocks.NewMockSearchIndex(),
		mocks.NewMockEmbeddingService(),
		IndexerConfig{ImageRoot: t.TempDir()},
		nil)

	total, err := svc.Rebuild(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 0 {
		t.Errorf("expected 0 indexed records, got %d", total)
	}
}

func TestRebuild_InvalidRecord(t *testing.T) {
	root := t.TempDir()
	imgName := writeTestImage(t, root, "pet.png")

	pets := mocks.NewMockPetStore()
	ctx := context.Background()
	bad := stagedRecord("pf-1", domain.SourcePetfinder, imgName)
	bad.Description = ""
	if err := pets.SaveBatch(ctx, []*domain.PetRecord{bad}); err != nil {
		t.Fatalf("failed to stage record: %v", err)
	}

	svc := NewIndexingService(pets, mocks.NewMockSearchIndex(), mocks.NewMockEmbeddingService(),
		IndexerConfig{ImageRoot: root}, nil)

	_, err := svc.Rebuild(ctx)
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestRebuild_MissingImage(t *testing.T) {
	pets := mocks.NewMockPetStore()
	ctx := context.Background()
	rec := stagedRecord("pf-1", domain.SourcePetfinder, "no-such-image.png")
	if err := pets.SaveBatch(ctx, []*domain.PetRecord{rec}); err != nil {
		t.Fatalf("failed to stage record: %v", err)
	}

	svc := NewIndexingService(pets, mocks.NewMockSearchIndex(), mocks.NewMockEmbeddingService(),
		IndexerConfig{ImageRoot: t.TempDir()}, nil)

	if _, err := svc.Rebuild(ctx); err == nil {
		t.Error("expected error for missing image file")
	}
}

func TestRebuild_EmbedderFailure(t *testing.T) {
	root := t.TempDir()
	imgName := writeTestImage(t, root, "pet.png")

	pets := mocks.NewMockPetStore()
	ctx := context.Background()
	if err := pets.SaveBatch(ctx, []*domain.PetRecord{
		stagedRecord("pf-1", domain.SourcePetfinder, imgName),
	}); err != nil {
		t.Fatalf("failed to stage record: %v", err)
	}

	embedder := mocks.NewMockEmbeddingService()
	embedder.EmbedErr = errors.New("encoder offline")

	svc := NewIndexingService(pets, mocks.NewMockSearchIndex(), embedder,
		IndexerConfig{ImageRoot: root}, nil)

	if _, err := svc.Rebuild(ctx); err == nil {
		t.Error("expected error when embedding fails")
	}
}
