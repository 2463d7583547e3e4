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
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	syncsvc "github.com/eslsoft/lernkarten/internal/sync"
)

// syncCmd represents the sync command
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize local progress with the remote once",
	Long: `Pulls the remote snapshot, merges it with local progress so that
neither side loses learned words or counters, saves the result and pushes
it back. A missing remote snapshot is seeded from the local one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		remoteURL, _ := cmd.Flags().GetString("remote")

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		app, err := buildApp(ctx)
		if err != nil {
			return err
		}
		defer app.Close()

		if remoteURL == "" {
			remoteURL = app.cfg.Sync.RemoteURL
		}
		if remoteURL == "" {
			return fmt.Errorf("no remote configured: set sync.remote_url or pass --remote")
		}

		remote := syncsvc.NewHTTPRemote(remoteURL, app.logger)
		syncer := syncsvc.NewSyncer(remote, app.progress, app.userID, time.Minute, app.logger)
		if err := syncer.SyncNow(ctx); err != nil {
			return fmt.Errorf("sync: %w", err)
		}

		progress := app.progress.Progress()
		fmt.Printf("Synced user %s: %d words learned, %d reviews, streak %d.\n",
			app.userID, len(progress.LearnedWords), progress.TotalReviews, progress.LearningStreak)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)

	syncCmd.Flags().String("remote", "", "remote base URL, overrides sync.remote_url")
}
