/*
Copyright © 2025 Ambor <saltbo@foxmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/eslsoft/lernkarten/internal/content"
	"github.com/eslsoft/lernkarten/internal/infrastructure/config"
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import a word list spreadsheet into content part files",
	Long: `Reads vocabulary rows from an xlsx word list (columns front, back,
gloss, category, difficulty), splits them into part files in the content
directory and registers the level in the manifest.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		level, _ := cmd.Flags().GetString("level")
		subLevel, _ := cmd.Flags().GetString("sub-level")
		sheet, _ := cmd.Flags().GetString("sheet")
		perPart, _ := cmd.Flags().GetInt("per-part")

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		xlsxCfg := content.DefaultXLSXConfig()
		if sheet != "" {
			xlsxCfg.Sheet = sheet
		}
		cards, err := content.ReadXLSX(file, xlsxCfg)
		if err != nil {
			return err
		}
		if len(cards) == 0 {
			return fmt.Errorf("no usable rows in %s", file)
		}

		parts, err := content.WritePartFiles(cfg.Content.Dir, cfg.Content.Prefix, level, subLevel, cards, perPart)
		if err != nil {
			return err
		}

		if err := registerLevel(cfg.Content.Manifest, level, subLevel, parts); err != nil {
			return err
		}

		fmt.Printf("Imported %d cards into level %s.%s as %d part(s).\n", len(cards), level, subLevel, parts)
		return nil
	},
}

// registerLevel adds or updates the level entry in the manifest file,
// creating the manifest when it does not exist yet.
func registerLevel(path, level, subLevel string, parts int) error {
	var manifest content.Manifest
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &manifest); err != nil {
			return fmt.Errorf("parse manifest %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return fmt.Errorf("read manifest %s: %w", path, err)
	}

	updated := false
	for i, ml := range manifest.Levels {
		if ml.Level == level && ml.SubLevel == subLevel {
			manifest.Levels[i].Parts = parts
			updated = true
			break
		}
	}
	if !updated {
		manifest.Levels = append(manifest.Levels, content.ManifestLevel{
			Level:    level,
			SubLevel: subLevel,
			Parts:    parts,
		})
	}

	out, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringP("file", "f", "", "xlsx word list to import")
	importCmd.Flags().String("level", "A1", "CEFR level, e.g. A1")
	importCmd.Flags().String("sub-level", "1", "sub level, e.g. 1 for A1.1")
	importCmd.Flags().String("sheet", "", "sheet name (default Sheet1)")
	importCmd.Flags().Int("per-part", 20, "cards per part file")
	_ = importCmd.MarkFlagRequired("file")
}
