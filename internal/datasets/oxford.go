package datasets

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/adoptapet/petsearch-core/internal/core/domain"
)

// oxfordEntry is one parsed row of the annotations list
type oxfordEntry struct {
	filename  string
	speciesID int
	breed     string
}

// Oxford processes the Oxford-IIIT Pet Dataset into pet records. Breed
// comes from the image filename; descriptions are synthesized since the
// dataset carries none.
func (l *Loader) Oxford() ([]*domain.PetRecord, error) {
	dir := filepath.Join(l.cfg.DataRoot, l.cfg.OxfordDir)

	entries, err := parseOxfordAnnotations(filepath.Join(dir, "annotations", "list.txt"))
	if err != nil {
		return nil, fmt.Errorf("parse annotations: %w", err)
	}

	imagesRel := filepath.Join(l.cfg.OxfordDir, "images")

	var records []*domain.PetRecord
	for _, entry := range entries {
		imageRel := filepath.Join(imagesRel, entry.filename+".jpg")
		if _, err := os.Stat(filepath.Join(l.cfg.DataRoot, imageRel)); err != nil {
			continue
		}

		breed := titleCase(strings.ReplaceAll(entry.breed, "_", " "))
		species := speciesNames[strconv.Itoa(entry.speciesID)]
		if species == "" {
			species = "Unknown"
		}

		records = append(records, &domain.PetRecord{
			PetID:   "ox-" + entry.filename,
			Source:  domain.SourceOxfordIIIT,
			Name:    breed,
			Species: species,
			Breed:   breed,
			Description: fmt.Sprintf("A %s %s. This is a photo from the Oxford-IIIT Pet Dataset.",
				breed, strings.ToLower(species)),
			ImagePath: imageRel,
		})
	}

	sampled := sample(records, l.cfg.OxfordSample, l.cfg.Seed)
	l.logger.Info("processed oxford dataset",
		"annotations", len(entries),
		"valid", len(records),
		"sampled", len(sampled),
	)
	return sampled, nil
}

// parseOxfordAnnotations reads list.txt rows of the form:
// Image CLASS-ID SPECIES BREED-ID
func parseOxfordAnnotations(path string) ([]oxfordEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []oxfordEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Fields(line)
		if len(parts) < 4 {
			continue
		}

		speciesID, err := strconv.Atoi(parts[2])
		if err != nil {
			continue
		}

		filename := parts[0]
		segments := strings.Split(filename, "_")
		breed := strings.Join(segments[:len(segments)-1], "_")

		entries = append(entries, oxfordEntry{
			filename:  filename,
			speciesID: speciesID,
			breed:     breed,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

// titleCase capitalizes each space-separated word
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + strings.ToLower(word[1:])
	}
	return strings.Join(words, " ")
}
