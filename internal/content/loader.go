// Package content reads the static vocabulary files that seed the card
// store: a manifest describing the level/part layout and one JSON file per
// part.
package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/lernkarten/internal/entity"
)

// Manifest describes the level/part file layout of a content directory.
type Manifest struct {
	Levels []ManifestLevel `json:"levels"`
}

// ManifestLevel names one level and how many part files it has. Part
// files follow the convention {prefix}-{level lower}.{sub}-part{N}.json.
type ManifestLevel struct {
	Level    string `json:"level"`
	SubLevel string `json:"subLevel"`
	Parts    int    `json:"parts"`
}

// ID returns the level identifier, e.g. "A1.1".
func (m ManifestLevel) ID() string {
	return fmt.Sprintf("%s.%s", m.Level, m.SubLevel)
}

// PartFile is the on-disk shape of one vocabulary part.
type PartFile struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Cards       []ContentCard `json:"cards"`
}

// ContentCard is one vocabulary entry as supplied by content authors.
type ContentCard struct {
	Front      string `json:"front"`
	Back       string `json:"back"`
	Gloss      string `json:"gloss,omitempty"`
	Category   string `json:"category,omitempty"`
	Difficulty int    `json:"difficulty,omitempty"`
}

// Loader reads content files from a directory.
type Loader struct {
	dir    string
	prefix string
	logger logrus.FieldLogger
}

// NewLoader builds a loader over dir. prefix is the file-name stem, e.g.
// "german" for german-a1.1-part1.json.
func NewLoader(dir, prefix string, logger logrus.FieldLogger) *Loader {
	return &Loader{dir: dir, prefix: prefix, logger: logger}
}

// LoadManifest reads the manifest file at path.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}

// Load reads every part file named by the manifest, one goroutine per
// file, and assembles the level tree with deterministic card ids
// ({partID}_{index}). Missing or malformed part files are logged and
// skipped so one bad file never blocks the rest of the content.
func (l *Loader) Load(manifest Manifest) ([]*entity.Level, error) {
	levels := make([]*entity.Level, len(manifest.Levels))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for i, ml := range manifest.Levels {
		levels[i] = &entity.Level{
			ID:    ml.ID(),
			Name:  ml.ID(),
			Parts: make([]*entity.Part, ml.Parts),
		}
		for num := 1; num <= ml.Parts; num++ {
			wg.Add(1)
			go func(level *entity.Level, ml ManifestLevel, num int) {
				defer wg.Done()
				part, err := l.loadPart(level.ID, ml, num)
				if err != nil {
					l.logger.WithError(err).WithField("part", fmt.Sprintf("%s-part%d", level.ID, num)).
						Warn("skipping part file")
					return
				}
				mu.Lock()
				level.Parts[num-1] = part
				mu.Unlock()
			}(levels[i], ml, num)
		}
	}
	wg.Wait()

	// Compact out skipped parts, keeping order.
	total := 0
	for _, level := range levels {
		kept := level.Parts[:0]
		for _, part := range level.Parts {
			if part != nil {
				kept = append(kept, part)
				total += len(part.Cards)
			}
		}
		level.Parts = kept
	}
	if total == 0 {
		return nil, fmt.Errorf("no cards loaded from %s", l.dir)
	}
	return levels, nil
}

func (l *Loader) loadPart(levelID string, ml ManifestLevel, num int) (*entity.Part, error) {
	filename := fmt.Sprintf("%s-%s.%s-part%d.json", l.prefix, strings.ToLower(ml.Level), ml.SubLevel, num)
	data, err := os.ReadFile(filepath.Join(l.dir, filename))
	if err != nil {
		return nil, err
	}
	var pf PartFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}

	partID := fmt.Sprintf("%s-part%d", levelID, num)
	part := &entity.Part{
		ID:          partID,
		Name:        pf.Name,
		Description: pf.Description,
		LevelID:     levelID,
		Number:      num,
	}
	if part.Name == "" {
		part.Name = fmt.Sprintf("Part %d", num)
	}
	for i, cc := range pf.Cards {
		difficulty := cc.Difficulty
		if difficulty == 0 {
			difficulty = 3
		}
		part.Cards = append(part.Cards, &entity.Card{
			ID:             fmt.Sprintf("%s_%d", partID, i),
			PartID:         partID,
			Front:          cc.Front,
			Back:           cc.Back,
			Gloss:          cc.Gloss,
			Category:       cc.Category,
			BaseDifficulty: difficulty,
		})
	}
	return part, nil
}
