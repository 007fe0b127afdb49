package domain

import (
	"errors"
	"testing"
)

func validRecord() *PetRecord {
	return &PetRecord{
		PetID:       "pf-1001",
		Source:      SourcePetfinder,
		Name:        "Biscuit",
		Species:     "Dog",
		Breed:       "Beagle",
		Description: "Friendly beagle who loves long walks",
		ImagePath:   "petfinder/train_images/1001-1.jpg",
	}
}

func TestPetRecord_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*PetRecord)
		wantErr bool
	}{
		{
			name:   "valid petfinder record",
			mutate: func(*PetRecord) {},
		},
		{
			name: "valid oxford record",
			mutate: func(p *PetRecord) {
				p.PetID = "ox-beagle_101"
				p.Source = SourceOxfordIIIT
			},
		},
		{
			name:    "missing pet_id",
			mutate:  func(p *PetRecord) { p.PetID = "" },
			wantErr: true,
		},
		{
			name:    "unknown source",
			mutate:  func(p *PetRecord) { p.Source = "craigslist" },
			wantErr: true,
		},
		{
			name:    "id prefix does not match source",
			mutate:  func(p *PetRecord) { p.PetID = "ox-1001" },
			wantErr: true,
		},
		{
			name:    "blank description",
			mutate:  func(p *PetRecord) { p.Description = "   " },
			wantErr: true,
		},
		{
			name:    "missing breed",
			mutate:  func(p *PetRecord) { p.Breed = "" },
			wantErr: true,
		},
		{
			name:    "missing image path",
			mutate:  func(p *PetRecord) { p.ImagePath = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(rec)

			err := rec.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidRecord) {
					t.Errorf("expected ErrInvalidRecord, got %v", err)
				}
			} else if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSource_IDPrefix(t *testing.T) {
	if got := SourcePetfinder.IDPrefix(); got != "pf-" {
		t.Errorf("expected pf-, got %s", got)
	}
	if got := SourceOxfordIIIT.IDPrefix(); got != "ox-" {
		t.Errorf("expected ox-, got %s", got)
	}
	if got := Source("unknown").IDPrefix(); got != "" {
		t.Errorf("expected empty prefix for unknown source, got %s", got)
	}
}
