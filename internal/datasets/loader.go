// Package datasets turns the raw PetFinder and Oxford-IIIT datasets into
// staged pet records ready for embedding and indexing.
package datasets

import (
	"log/slog"
	"math/rand"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
)

// Species and gender codes used by the PetFinder CSVs
var (
	speciesNames = map[string]string{"1": "Dog", "2": "Cat"}
	genderNames  = map[string]string{"1": "Male", "2": "Female", "3": "Mixed"}
)

// Config holds loader configuration
type Config struct {
	// DataRoot is the directory holding extracted datasets; stored image
	// paths are relative to it so the indexer can resolve them
	DataRoot string

	// PetFinderDir and OxfordDir are subdirectories of DataRoot
	PetFinderDir string
	OxfordDir    string

	// PetFinderSample and OxfordSample bound how many records each
	// dataset contributes
	PetFinderSample int
	OxfordSample    int

	// Seed makes sampling reproducible
	Seed int64
}

// DefaultConfig returns sensible defaults
func DefaultConfig(dataRoot string) Config {
	return Config{
		DataRoot:        dataRoot,
		PetFinderDir:    "petfinder",
		OxfordDir:       "oxford",
		PetFinderSample: 1000,
		OxfordSample:    500,
		Seed:            42,
	}
}

// Loader reads extracted dataset files from disk and produces normalized
// pet records
type Loader struct {
	cfg    Config
	logger *slog.Logger
}

// NewLoader creates a new dataset Loader
func NewLoader(cfg Config, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.PetFinderDir == "" {
		cfg.PetFinderDir = "petfinder"
	}
	if cfg.OxfordDir == "" {
		cfg.OxfordDir = "oxford"
	}
	return &Loader{cfg: cfg, logger: logger}
}

// LoadAll processes both datasets and merges their records
func (l *Loader) LoadAll() ([]*domain.PetRecord, error) {
	petfinder, err := l.PetFinder()
	if err != nil {
		return nil, err
	}

	oxford, err := l.Oxford()
	if err != nil {
		return nil, err
	}

	merged := append(petfinder, oxford...)
	l.logger.Info("merged datasets",
		"petfinder", len(petfinder),
		"oxford", len(oxford),
		"total", len(merged),
	)
	return merged, nil
}

// sample returns up to n records chosen deterministically from the seed
func sample(records []*domain.PetRecord, n int, seed int64) []*domain.PetRecord {
	if n <= 0 || n >= len(records) {
		return records
	}

	rng := rand.New(rand.NewSource(seed))
	shuffled := make([]*domain.PetRecord, len(records))
	copy(shuffled, records)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled[:n]
}
