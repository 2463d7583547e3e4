package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	adapterrepo "github.com/eslsoft/lernkarten/internal/adapter/repository"
	"github.com/eslsoft/lernkarten/internal/content"
	"github.com/eslsoft/lernkarten/internal/entity"
	"github.com/eslsoft/lernkarten/internal/infrastructure/config"
	"github.com/eslsoft/lernkarten/internal/infrastructure/server"
	"github.com/eslsoft/lernkarten/internal/repository"
	"github.com/eslsoft/lernkarten/internal/scheduler"
	"github.com/eslsoft/lernkarten/internal/store"
	syncsvc "github.com/eslsoft/lernkarten/internal/sync"
	"github.com/eslsoft/lernkarten/internal/usecase"
)

// app bundles the wiring shared by the study, sync and stats commands:
// config, content, card store, local persistence and the progress ledger.
type app struct {
	cfg      *config.Config
	logger   *logrus.Logger
	cards    *store.Store
	local    repository.LocalStore
	progress usecase.ProgressUsecase
	userID   string
}

func buildApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := server.NewLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}

	local, err := adapterrepo.NewSQLiteStore(cfg.Storage.Path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	userID, err := syncsvc.EnsureUserID(ctx, local, cfg.Sync.UserID)
	if err != nil {
		_ = local.Close()
		return nil, fmt.Errorf("resolve user id: %w", err)
	}

	manifest, err := content.LoadManifest(cfg.Content.Manifest)
	if err != nil {
		_ = local.Close()
		return nil, fmt.Errorf("load manifest: %w", err)
	}
	loader := content.NewLoader(cfg.Content.Dir, cfg.Content.Prefix, logger)
	levels, err := loader.Load(manifest)
	if err != nil {
		_ = local.Close()
		return nil, fmt.Errorf("load content: %w", err)
	}

	cards := store.New()
	if err := cards.Load(levels); err != nil {
		_ = local.Close()
		return nil, fmt.Errorf("index cards: %w", err)
	}

	progress := usecase.NewProgressUsecase(cards, local, userID, logger)
	if err := progress.Load(ctx); err != nil && !errors.Is(err, entity.ErrSnapshotNotFound) {
		logger.WithError(err).Warn("load local snapshot, starting from content defaults")
	}
	progress.RecomputeUnlocks()

	return &app{
		cfg:      cfg,
		logger:   logger,
		cards:    cards,
		local:    local,
		progress: progress,
		userID:   userID,
	}, nil
}

func (a *app) Close() {
	_ = a.local.Close()
}

// policy builds the scheduling policy named in the config. The adaptive
// scheduler is guarded by a fixed-interval fallback so an answer can
// always be scheduled.
func (a *app) policy() scheduler.Policy {
	simple := scheduler.NewSimple()
	if a.cfg.Learning.Scheduler == "simple" {
		return simple
	}
	adaptive, err := scheduler.NewAdaptive()
	if err != nil {
		a.logger.WithError(err).Warn("adaptive scheduler unavailable, using fixed intervals")
		return simple
	}
	return scheduler.WithFallback(adaptive, simple, a.logger)
}

// syncer wires the remote gateway when sync is configured, nil otherwise.
// It also registers the syncer as the card store hydrator so review state
// for cards answered on another device can be pulled on demand.
func (a *app) syncer() *syncsvc.Syncer {
	if !a.cfg.Sync.Enabled || a.cfg.Sync.RemoteURL == "" {
		return nil
	}
	remote := syncsvc.NewHTTPRemote(a.cfg.Sync.RemoteURL, a.logger)
	s := syncsvc.NewSyncer(remote, a.progress, a.userID, a.cfg.Sync.Interval, a.logger)
	a.cards.SetHydrator(s)
	return s
}
