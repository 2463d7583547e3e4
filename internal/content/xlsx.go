package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXConfig tells the importer where to find card fields in a sheet.
// Columns are letters; rows before StartRow are skipped.
type XLSXConfig struct {
	Sheet            string
	FrontColumn      string
	BackColumn       string
	GlossColumn      string
	CategoryColumn   string
	DifficultyColumn string
	StartRow         int
}

// DefaultXLSXConfig matches the word-list layout front/back/gloss/category/
// difficulty in columns A-E with a header row.
func DefaultXLSXConfig() XLSXConfig {
	return XLSXConfig{
		Sheet:            "Sheet1",
		FrontColumn:      "A",
		BackColumn:       "B",
		GlossColumn:      "C",
		CategoryColumn:   "D",
		DifficultyColumn: "E",
		StartRow:         2,
	}
}

// ReadXLSX extracts vocabulary cards from a spreadsheet word list.
func ReadXLSX(path string, cfg XLSXConfig) ([]ContentCard, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := f.GetRows(cfg.Sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", cfg.Sheet, err)
	}

	col := func(letter string) int {
		n, err := excelize.ColumnNameToNumber(letter)
		if err != nil {
			return 0
		}
		return n - 1
	}
	cell := func(row []string, letter string) string {
		idx := col(letter)
		if idx < 0 || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var cards []ContentCard
	for i, row := range rows {
		if i+1 < cfg.StartRow {
			continue
		}
		front := cell(row, cfg.FrontColumn)
		back := cell(row, cfg.BackColumn)
		if front == "" || back == "" {
			continue
		}
		card := ContentCard{
			Front:    front,
			Back:     back,
			Gloss:    cell(row, cfg.GlossColumn),
			Category: cell(row, cfg.CategoryColumn),
		}
		if d, err := strconv.Atoi(cell(row, cfg.DifficultyColumn)); err == nil {
			card.Difficulty = d
		}
		cards = append(cards, card)
	}
	return cards, nil
}

// WritePartFiles splits cards into part files of perPart cards each, named
// by the loader's convention, and returns the number of parts written.
// The caller adds the level to the manifest.
func WritePartFiles(dir, prefix, level, subLevel string, cards []ContentCard, perPart int) (int, error) {
	if perPart < 1 {
		perPart = 20
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create content dir: %w", err)
	}
	parts := 0
	for start := 0; start < len(cards); start += perPart {
		end := start + perPart
		if end > len(cards) {
			end = len(cards)
		}
		parts++
		pf := PartFile{
			Name:  fmt.Sprintf("Part %d", parts),
			Cards: cards[start:end],
		}
		data, err := json.MarshalIndent(pf, "", "  ")
		if err != nil {
			return parts, fmt.Errorf("encode part %d: %w", parts, err)
		}
		filename := fmt.Sprintf("%s-%s.%s-part%d.json", prefix, strings.ToLower(level), subLevel, parts)
		if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
			return parts, fmt.Errorf("write %s: %w", filename, err)
		}
	}
	return parts, nil
}
