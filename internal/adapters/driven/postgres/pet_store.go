package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
	"github.com/adoptapet/petsearch-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.PetStore = (*PetStore)(nil)

// PetStore implements driven.PetStore using PostgreSQL
type PetStore struct {
	db *DB
}

// NewPetStore creates a new PetStore
func NewPetStore(db *DB) *PetStore {
	return &PetStore{db: db}
}

const upsertPet = `
	INSERT INTO pets (pet_id, source, name, species, breed, age_months, gender, description, image_path, metadata, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, now())
	ON CONFLICT (pet_id) DO UPDATE SET
		source = EXCLUDED.source,
		name = EXCLUDED.name,
		species = EXCLUDED.species,
		breed = EXCLUDED.breed,
		age_months = EXCLUDED.age_months,
		gender = EXCLUDED.gender,
		description = EXCLUDED.description,
		image_path = EXCLUDED.image_path,
		metadata = EXCLUDED.metadata,
		updated_at = now()
`

// SaveBatch upserts records in a single transaction
func (s *PetStore) SaveBatch(ctx context.Context, records []*domain.PetRecord) error {
	if len(records) == 0 {
		return nil
	}

	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertPet)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, rec := range records {
			if err := rec.Validate(); err != nil {
				return err
			}

			metadataJSON, err := json.Marshal(rec.Metadata)
			if err != nil {
				return fmt.Errorf("marshal metadata for %s: %w", rec.PetID, err)
			}

			var age sql.NullInt64
			if rec.AgeMonths != nil {
				age = sql.NullInt64{Int64: int64(*rec.AgeMonths), Valid: true}
			}

			_, err = stmt.ExecContext(ctx,
				rec.PetID,
				string(rec.Source),
				rec.Name,
				rec.Species,
				rec.Breed,
				age,
				nullString(rec.Gender),
				rec.Description,
				rec.ImagePath,
				metadataJSON,
			)
			if err != nil {
				return fmt.Errorf("upsert %s: %w", rec.PetID, err)
			}
		}

		return nil
	})
}

// Get retrieves a record by pet_id
func (s *PetStore) Get(ctx context.Context, petID string) (*domain.PetRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT pet_id, source, name, species, breed, age_months, gender, description, image_path, metadata
		FROM pets
		WHERE pet_id = $1
	`, petID)

	rec, err := scanPet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return rec, err
}

// List returns records ordered by pet_id, for batched iteration
func (s *PetStore) List(ctx context.Context, offset, limit int) ([]*domain.PetRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT pet_id, source, name, species, breed, age_months, gender, description, image_path, metadata
		FROM pets
		ORDER BY pet_id
		OFFSET $1 LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.PetRecord
	for rows.Next() {
		rec, err := scanPet(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of staged records
func (s *PetStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pets`).Scan(&count)
	return count, err
}

// Ping checks the store is reachable
func (s *PetStore) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// scanner covers both *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}

func scanPet(row scanner) (*domain.PetRecord, error) {
	var (
		rec          domain.PetRecord
		source       string
		age          sql.NullInt64
		gender       sql.NullString
		metadataJSON []byte
	)

	err := row.Scan(
		&rec.PetID,
		&source,
		&rec.Name,
		&rec.Species,
		&rec.Breed,
		&age,
		&gender,
		&rec.Description,
		&rec.ImagePath,
		&metadataJSON,
	)
	if err != nil {
		return nil, err
	}

	rec.Source = domain.Source(source)
	if age.Valid {
		months := int(age.Int64)
		rec.AgeMonths = &months
	}
	rec.Gender = gender.String

	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &rec.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal metadata for %s: %w", rec.PetID, err)
		}
	}

	return &rec, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
