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
	"bufio"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eslsoft/lernkarten/internal/entity"
	"github.com/eslsoft/lernkarten/internal/usecase"
)

// studyCmd represents the study command
var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "Run an interactive study session",
	Long: `Opens a study session over unlearned cards of the unlocked parts
(or one part with --part), shows each card front, flips on enter and asks
for a difficulty rating from 1 (very hard) to 5 (very easy). Rating a card
4 or better marks it learned.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		count, _ := cmd.Flags().GetInt("count")
		partID, _ := cmd.Flags().GetString("part")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		syncer := app.syncer()
		if syncer != nil {
			if err := syncer.Start(ctx); err != nil {
				app.logger.WithError(err).Warn("sync unavailable, studying offline")
			}
			defer syncer.Stop()
		}

		if count <= 0 {
			count = app.progress.Settings().CardsPerSession
		}
		sessions := usecase.NewSessionUsecase(app.cards, app.policy(), app.progress, app.logger)
		session, err := sessions.Start(count, partID)
		if err != nil {
			if errors.Is(err, entity.ErrEmptyCandidateSet) {
				fmt.Println("Nothing to study right now. Import content or wait for reviews to come due.")
				return nil
			}
			return err
		}
		fmt.Printf("Session started: %d cards. Enter flips, 1-5 rates, q quits.\n\n", session.Target)

		in := bufio.NewScanner(os.Stdin)
		for {
			card, err := sessions.Current()
			if err != nil {
				return err
			}
			fmt.Printf("  %s\n", card.Front)
			if !prompt(in, "  [enter to flip] ") {
				break
			}
			if strings.TrimSpace(in.Text()) == "q" {
				break
			}
			fmt.Printf("  = %s", card.Back)
			if card.Gloss != "" {
				fmt.Printf("  (%s)", card.Gloss)
			}
			fmt.Println()

			rating, ok := readRating(in)
			if !ok {
				break
			}
			res, err := sessions.RecordAnswer(ctx, rating)
			if err != nil {
				return err
			}
			if res.Learned {
				fmt.Printf("  learned! next review in %d day(s)\n\n", res.IntervalDays)
			} else {
				fmt.Printf("  next review in %d day(s)\n\n", res.IntervalDays)
			}
			if !res.SessionComplete {
				continue
			}
			if !prompt(in, "Target reached. [e <n> extends, anything else ends] ") {
				break
			}
			fields := strings.Fields(in.Text())
			if len(fields) == 0 || fields[0] != "e" {
				break
			}
			by := count
			if len(fields) > 1 {
				if n, err := strconv.Atoi(fields[1]); err == nil && n > 0 {
					by = n
				}
			}
			if err := sessions.Extend(by); err != nil {
				return err
			}
			fmt.Printf("Extended to %d cards.\n\n", sessions.Session().Target)
		}

		if summary := sessions.End(); summary != nil {
			fmt.Printf("\nSession over: %d answered, %d learned, %.0f%% correct.\n",
				summary.TotalAnswers, summary.WordsLearned, summary.Accuracy()*100)
		}
		if err := app.progress.Save(ctx); err != nil {
			app.logger.WithError(err).Warn("persist snapshot")
		}
		if syncer != nil {
			if err := syncer.SyncNow(ctx); err != nil {
				app.logger.WithError(err).Warn("final sync")
			}
		}
		return nil
	},
}

// prompt prints the text and reads one line, false on EOF.
func prompt(in *bufio.Scanner, text string) bool {
	fmt.Print(text)
	return in.Scan()
}

func readRating(in *bufio.Scanner) (entity.Rating, bool) {
	for {
		if !prompt(in, "  rate 1-5: ") {
			return 0, false
		}
		text := strings.TrimSpace(in.Text())
		if text == "q" {
			return 0, false
		}
		n, err := strconv.Atoi(text)
		if err == nil && entity.Rating(n).Valid() {
			return entity.Rating(n), true
		}
		fmt.Println("  please answer 1 (very hard) to 5 (very easy), or q")
	}
}

func init() {
	rootCmd.AddCommand(studyCmd)

	studyCmd.Flags().IntP("count", "n", 0, "cards per session (default from settings)")
	studyCmd.Flags().StringP("part", "p", "", "limit the session to one part, e.g. A1.1-part2")
}
