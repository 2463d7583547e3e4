package content

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadBuildsDeterministicIDs(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "german-a1.1-part1.json"), PartFile{
		Name: "Begrüßungen",
		Cards: []ContentCard{
			{Front: "hallo", Back: "hello"},
			{Front: "danke", Back: "thanks", Difficulty: 4},
		},
	})
	writeJSON(t, filepath.Join(dir, "german-a1.1-part2.json"), PartFile{
		Cards: []ContentCard{{Front: "tschüss", Back: "bye", Gloss: "informal"}},
	})

	manifest := Manifest{Levels: []ManifestLevel{{Level: "A1", SubLevel: "1", Parts: 2}}}
	levels, err := NewLoader(dir, "german", testLogger()).Load(manifest)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(levels) != 1 || levels[0].ID != "A1.1" {
		t.Fatalf("expected level A1.1, got %+v", levels)
	}
	parts := levels[0].Parts
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(parts))
	}
	if parts[0].ID != "A1.1-part1" || parts[0].Name != "Begrüßungen" {
		t.Errorf("unexpected first part %+v", parts[0])
	}
	if parts[1].Name != "Part 2" {
		t.Errorf("expected default part name, got %q", parts[1].Name)
	}

	card := parts[0].Cards[0]
	if card.ID != "A1.1-part1_0" || card.PartID != "A1.1-part1" {
		t.Errorf("expected deterministic id A1.1-part1_0, got %q in part %q", card.ID, card.PartID)
	}
	if card.BaseDifficulty != 3 {
		t.Errorf("expected default difficulty 3, got %d", card.BaseDifficulty)
	}
	if parts[0].Cards[1].BaseDifficulty != 4 {
		t.Errorf("expected explicit difficulty kept, got %d", parts[0].Cards[1].BaseDifficulty)
	}
	if parts[1].Cards[0].Gloss != "informal" {
		t.Errorf("expected gloss carried over, got %q", parts[1].Cards[0].Gloss)
	}
}

func TestLoadSkipsMissingPartFiles(t *testing.T) {
	dir := t.TempDir()
	writeJSON(t, filepath.Join(dir, "german-a1.1-part1.json"), PartFile{
		Cards: []ContentCard{{Front: "eins", Back: "one"}},
	})

	manifest := Manifest{Levels: []ManifestLevel{{Level: "A1", SubLevel: "1", Parts: 3}}}
	levels, err := NewLoader(dir, "german", testLogger()).Load(manifest)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(levels[0].Parts) != 1 {
		t.Errorf("expected only the existing part kept, got %d parts", len(levels[0].Parts))
	}
}

func TestLoadFailsWhenNothingLoads(t *testing.T) {
	manifest := Manifest{Levels: []ManifestLevel{{Level: "A1", SubLevel: "1", Parts: 2}}}
	if _, err := NewLoader(t.TempDir(), "german", testLogger()).Load(manifest); err == nil {
		t.Error("expected an error when no part file yields cards")
	}
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.json")
	writeJSON(t, path, Manifest{Levels: []ManifestLevel{
		{Level: "A1", SubLevel: "1", Parts: 2},
		{Level: "A1", SubLevel: "2", Parts: 1},
	}})

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if len(m.Levels) != 2 || m.Levels[0].ID() != "A1.1" || m.Levels[1].ID() != "A1.2" {
		t.Errorf("unexpected manifest %+v", m)
	}
}

func TestWritePartFilesRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cards := make([]ContentCard, 0, 5)
	for _, front := range []string{"eins", "zwei", "drei", "vier", "fünf"} {
		cards = append(cards, ContentCard{Front: front, Back: front + "-en"})
	}

	parts, err := WritePartFiles(dir, "german", "A2", "1", cards, 2)
	if err != nil {
		t.Fatalf("WritePartFiles failed: %v", err)
	}
	if parts != 3 {
		t.Fatalf("expected 5 cards split into 3 parts of 2, got %d", parts)
	}

	manifest := Manifest{Levels: []ManifestLevel{{Level: "A2", SubLevel: "1", Parts: parts}}}
	levels, err := NewLoader(dir, "german", testLogger()).Load(manifest)
	if err != nil {
		t.Fatalf("reloading written parts failed: %v", err)
	}
	total := 0
	for _, part := range levels[0].Parts {
		total += len(part.Cards)
	}
	if total != 5 {
		t.Errorf("expected all 5 cards back, got %d", total)
	}
	if levels[0].Parts[2].Cards[0].Front != "fünf" {
		t.Errorf("expected the last part to hold the remainder, got %q", levels[0].Parts[2].Cards[0].Front)
	}
}
