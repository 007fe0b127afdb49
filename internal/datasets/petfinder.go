package datasets

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
)

// PetFinder processes the PetFinder adoption dataset into pet records.
// It joins train.csv with the breed and color label files, keeps rows
// that have both a description and a photo on disk, and samples.
func (l *Loader) PetFinder() ([]*domain.PetRecord, error) {
	dir := filepath.Join(l.cfg.DataRoot, l.cfg.PetFinderDir)

	trainPath := filepath.Join(dir, "train.csv")
	if _, err := os.Stat(trainPath); err != nil {
		trainPath = filepath.Join(dir, "train", "train.csv")
	}

	rows, err := readCSV(trainPath)
	if err != nil {
		return nil, fmt.Errorf("read train.csv: %w", err)
	}

	breeds, err := readLabelMap(filepath.Join(dir, "breed_labels.csv"), "BreedID", "BreedName")
	if err != nil {
		return nil, fmt.Errorf("read breed labels: %w", err)
	}
	colors, err := readLabelMap(filepath.Join(dir, "color_labels.csv"), "ColorID", "ColorName")
	if err != nil {
		return nil, fmt.Errorf("read color labels: %w", err)
	}

	imagesDir, err := l.findImagesDir(dir)
	if err != nil {
		return nil, err
	}

	var records []*domain.PetRecord
	for _, row := range rows {
		description := strings.TrimSpace(row["Description"])
		if description == "" {
			continue
		}
		if photos, _ := strconv.ParseFloat(row["PhotoAmt"], 64); photos <= 0 {
			continue
		}

		petID := row["PetID"]
		imageRel := filepath.Join(imagesDir, petID+"-1.jpg")
		if _, err := os.Stat(filepath.Join(l.cfg.DataRoot, imageRel)); err != nil {
			continue
		}

		breed := breeds[row["Breed1"]]
		if breed == "" {
			breed = "Mixed"
		}
		color := colors[row["Color1"]]
		if color == "" {
			color = "Unknown"
		}
		species := speciesNames[row["Type"]]

		name := strings.TrimSpace(row["Name"])
		if name == "" {
			name = "Unknown"
		}

		rec := &domain.PetRecord{
			PetID:       "pf-" + petID,
			Source:      domain.SourcePetfinder,
			Name:        name,
			Species:     species,
			Breed:       breed,
			Gender:      genderNames[row["Gender"]],
			Description: buildPetFinderDescription(row, name, breed, species),
			ImagePath:   imageRel,
			Metadata: map[string]any{
				"color":          color,
				"fee":            atoiOr(row["Fee"], 0),
				"vaccinated":     atoiOr(row["Vaccinated"], 0),
				"sterilized":     atoiOr(row["Sterilized"], 0),
				"adoption_speed": atoiOr(row["AdoptionSpeed"], -1),
			},
		}

		if age, err := strconv.Atoi(row["Age"]); err == nil {
			rec.AgeMonths = &age
		}

		records = append(records, rec)
	}

	sampled := sample(records, l.cfg.PetFinderSample, l.cfg.Seed)
	l.logger.Info("processed petfinder dataset",
		"rows", len(rows),
		"valid", len(records),
		"sampled", len(sampled),
	)
	return sampled, nil
}

// buildPetFinderDescription combines structured fields with the free-text
// description, keeping within the encoder's short context window
func buildPetFinderDescription(row map[string]string, name, breed, species string) string {
	var parts []string
	if name != "" && name != "Unknown" {
		parts = append(parts, name)
	}

	if species == "" {
		species = "pet"
	}
	parts = append(parts, fmt.Sprintf("a %s %s", breed, strings.ToLower(species)))

	if age, err := strconv.Atoi(row["Age"]); err == nil {
		if age < 12 {
			parts = append(parts, fmt.Sprintf("%d months old", age))
		} else {
			parts = append(parts, fmt.Sprintf("%d years old", age/12))
		}
	}

	description := strings.TrimSpace(row["Description"])
	if description != "" {
		runes := []rune(description)
		if len(runes) > 200 {
			description = string(runes[:200])
		}
		parts = append(parts, description)
	}

	return strings.Join(parts, ". ")
}

// findImagesDir locates the PetFinder images directory, returning a path
// relative to DataRoot. Every staged record needs an image on disk, so a
// missing directory is an error here rather than a validation failure per
// record deep in staging.
func (l *Loader) findImagesDir(dir string) (string, error) {
	candidates := []string{
		filepath.Join(dir, "train_images"),
		filepath.Join(dir, "train_images", "train_images"),
	}
	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			rel, err := filepath.Rel(l.cfg.DataRoot, path)
			if err == nil {
				return rel, nil
			}
		}
	}
	return "", fmt.Errorf("petfinder images not extracted under %s", dir)
}

// readCSV reads a headered CSV into one map per row
func readCSV(path string) ([]map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	var rows []map[string]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(record) {
				row[col] = record[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// readLabelMap reads a two-column lookup CSV (e.g. BreedID to BreedName)
func readLabelMap(path, keyCol, valCol string) (map[string]string, error) {
	rows, err := readCSV(path)
	if err != nil {
		return nil, err
	}

	labels := make(map[string]string, len(rows))
	for _, row := range rows {
		if key := row[keyCol]; key != "" {
			labels[key] = row[valCol]
		}
	}
	return labels, nil
}

func atoiOr(s string, fallback int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n
	}
	return fallback
}
