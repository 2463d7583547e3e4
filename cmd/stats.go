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
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// statsCmd represents the stats command
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning progress and review load",
	RunE: func(cmd *cobra.Command, args []string) error {
		verify, _ := cmd.Flags().GetBool("verify")

		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		now := time.Now()
		progress := app.progress.Progress()

		fmt.Printf("User %s\n", app.userID)
		fmt.Printf("  learned words:  %d / %d\n", len(progress.LearnedWords), app.cards.TotalCards())
		fmt.Printf("  total reviews:  %d (%d correct)\n", progress.TotalReviews, progress.CorrectAnswers)
		fmt.Printf("  streak:         %d day(s), last studied %s\n", progress.LearningStreak, orNever(progress.LastStudyDate))
		fmt.Printf("  due for review: %d card(s)\n\n", len(app.cards.Due(now)))

		for _, level := range app.cards.Levels() {
			marker := " "
			if level.Unlocked {
				marker = "*"
			}
			fmt.Printf("%s %s  %.0f%%\n", marker, level.Name, level.Progress)
			for _, part := range level.Parts {
				marker = " "
				if part.Unlocked {
					marker = "*"
				}
				fmt.Printf("  %s %-24s %3d/%d learned\n", marker, part.Name, part.LearnedCount(), len(part.Cards))
			}
		}

		if verify {
			if drift := app.progress.Verify(); len(drift) > 0 {
				fmt.Println("\nLedger drift detected:")
				for _, d := range drift {
					fmt.Printf("  - %s\n", d)
				}
			} else {
				fmt.Println("\nLedger consistent with card state.")
			}
		}
		return nil
	},
}

func orNever(date string) string {
	if date == "" {
		return "never"
	}
	return date
}

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().Bool("verify", false, "check ledger counters against card state")
}
