package domain

import (
	"fmt"
	"strings"
)

// Source identifies the dataset a pet record originates from
type Source string

const (
	// SourcePetfinder is the PetFinder adoption listings dataset
	SourcePetfinder Source = "petfinder"
	// SourceOxfordIIIT is the Oxford-IIIT pet images dataset
	SourceOxfordIIIT Source = "oxford_iiit"
)

// AllSources lists every dataset source, in allocation-priority order.
// PetFinder comes first: it carries the adoption metadata and gets the
// larger share of the balanced image results.
var AllSources = []Source{SourcePetfinder, SourceOxfordIIIT}

// IsValid reports whether the source is a known dataset
func (s Source) IsValid() bool {
	return s == SourcePetfinder || s == SourceOxfordIIIT
}

// IDPrefix returns the pet_id prefix used by records from this source
func (s Source) IDPrefix() string {
	switch s {
	case SourcePetfinder:
		return "pf-"
	case SourceOxfordIIIT:
		return "ox-"
	}
	return ""
}

// PetRecord is a normalized adoptable-pet entity, unified across sources.
// Records are immutable once indexed; the only delete path is a full reindex.
// Embeddings are never part of the record itself - they live only in the
// search index and are stripped at the hit-parsing boundary.
type PetRecord struct {
	// PetID is globally unique, prefixed by originating source (pf- / ox-)
	PetID     string `json:"pet_id"`
	Source    Source `json:"source"`
	Name      string `json:"name"`
	Species   string `json:"species"`
	Breed     string `json:"breed"`
	AgeMonths *int   `json:"age_months,omitempty"`
	Gender    string `json:"gender,omitempty"`
	// Description is the free text the text embedding is derived from
	Description string `json:"description"`
	// ImagePath references the primary photo, relative to the data directory
	ImagePath string `json:"image_path"`
	// Metadata is an open-ended source-specific bag; not searchable
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Validate checks the invariants a record must satisfy before it can be
// embedded and indexed.
func (p *PetRecord) Validate() error {
	if p.PetID == "" {
		return fmt.Errorf("%w: pet_id is required", ErrInvalidRecord)
	}
	if !p.Source.IsValid() {
		return fmt.Errorf("%w: unknown source %q", ErrInvalidRecord, p.Source)
	}
	if !strings.HasPrefix(p.PetID, p.Source.IDPrefix()) {
		return fmt.Errorf("%w: pet_id %q does not carry the %q prefix", ErrInvalidRecord, p.PetID, p.Source.IDPrefix())
	}
	if strings.TrimSpace(p.Description) == "" {
		return fmt.Errorf("%w: description is required for embedding", ErrInvalidRecord)
	}
	if p.Breed == "" {
		return fmt.Errorf("%w: breed is required", ErrInvalidRecord)
	}
	if p.ImagePath == "" {
		return fmt.Errorf("%w: image_path is required", ErrInvalidRecord)
	}
	return nil
}
