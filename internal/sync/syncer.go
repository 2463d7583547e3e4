package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/lernkarten/internal/entity"
	"github.com/eslsoft/lernkarten/internal/merge"
	"github.com/eslsoft/lernkarten/internal/usecase"
)

// Syncer reconciles the local snapshot with the remote document. It owns
// the serialization discipline for merges: an in-progress guard ensures
// two merges never execute concurrently against the same local state. A
// change notification arriving mid-sync is deferred and replayed once the
// running sync settles.
type Syncer struct {
	remote   Remote
	progress usecase.ProgressUsecase
	userID   string
	interval time.Duration
	logger   logrus.FieldLogger

	mu         sync.Mutex
	inFlight   bool
	pending    bool
	lastPushed time.Time

	unsubscribe func()
	scheduler   *gocron.Scheduler
}

// NewSyncer wires the gateway over the progress usecase.
func NewSyncer(remote Remote, progress usecase.ProgressUsecase, userID string, interval time.Duration, logger logrus.FieldLogger) *Syncer {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Syncer{
		remote:   remote,
		progress: progress,
		userID:   userID,
		interval: interval,
		logger:   logger,
	}
}

// Start subscribes to remote change notifications and schedules periodic
// pushes. An immediate initial sync runs before returning; its failure is
// deferred, not fatal.
func (s *Syncer) Start(ctx context.Context) error {
	if err := s.SyncNow(ctx); err != nil {
		return err
	}
	unsub, err := s.remote.Subscribe(ctx, s.userID, func(snap entity.Snapshot) {
		// A notification for our own last push carries nothing new and
		// would re-trigger forever on stores that echo the writer.
		if s.isEcho(snap) {
			return
		}
		// The notification's payload is advisory; a full pull-merge-push
		// round keeps one code path for every reconciliation.
		if err := s.SyncNow(ctx); err != nil {
			s.logger.WithError(err).Warn("sync on change notification failed")
		}
	})
	if err != nil {
		// Offline start: local operations continue, periodic pushes will
		// retry connectivity.
		s.logger.WithError(err).Warn("change subscription unavailable")
	} else {
		s.unsubscribe = unsub
	}

	s.scheduler = gocron.NewScheduler(time.UTC)
	_, err = s.scheduler.Every(s.interval).Do(func() {
		if err := s.SyncNow(ctx); err != nil {
			s.logger.WithError(err).Warn("periodic sync failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule periodic sync: %w", err)
	}
	s.scheduler.StartAsync()
	return nil
}

// Stop tears down the subscription and the periodic schedule.
func (s *Syncer) Stop() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	if s.scheduler != nil {
		s.scheduler.Stop()
		s.scheduler = nil
	}
}

// SyncNow runs one pull-merge-apply-push round. If a round is already in
// flight the request is coalesced into a rerun once it settles; the method
// then returns immediately. Remote unavailability is deferred (logged,
// nil error); only genuine local failures surface.
func (s *Syncer) SyncNow(ctx context.Context) error {
	if !s.begin() {
		return nil
	}
	err := s.run(ctx)
	s.settle(ctx)
	return err
}

func (s *Syncer) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		s.pending = true
		return false
	}
	s.inFlight = true
	return true
}

func (s *Syncer) settle(ctx context.Context) {
	s.mu.Lock()
	rerun := s.pending
	s.pending = false
	s.inFlight = false
	s.mu.Unlock()
	if rerun && ctx.Err() == nil {
		if err := s.SyncNow(ctx); err != nil {
			s.logger.WithError(err).Warn("deferred sync failed")
		}
	}
}

func (s *Syncer) run(ctx context.Context) error {
	local := s.progress.Snapshot()

	remote, err := s.remote.Pull(ctx, s.userID)
	switch {
	case errors.Is(err, entity.ErrSnapshotNotFound):
		// First sync from this user: seed the remote with local state.
		return s.push(ctx, local)
	case errors.Is(err, entity.ErrSyncUnavailable):
		s.logger.WithError(err).Info("remote unavailable, sync deferred")
		return nil
	case err != nil:
		return fmt.Errorf("pull snapshot: %w", err)
	}

	merged := merge.Snapshots(local, remote)
	merged.SyncedAt = time.Now()
	s.progress.Apply(merged)
	if err := s.progress.Save(ctx); err != nil {
		s.logger.WithError(err).Warn("merged snapshot not persisted locally")
	}
	return s.push(ctx, merged)
}

func (s *Syncer) push(ctx context.Context, snap entity.Snapshot) error {
	s.mu.Lock()
	if snap.LastModified.After(s.lastPushed) {
		s.lastPushed = snap.LastModified
	}
	s.mu.Unlock()
	if err := s.remote.Push(ctx, snap); err != nil {
		if errors.Is(err, entity.ErrSyncUnavailable) {
			s.logger.WithError(err).Info("push deferred until next sync")
			return nil
		}
		return fmt.Errorf("push snapshot: %w", err)
	}
	return nil
}

func (s *Syncer) isEcho(snap entity.Snapshot) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !snap.LastModified.After(s.lastPushed)
}

// CardState lets the card store hydrate individual cards from the last
// known remote document before first scheduling.
func (s *Syncer) CardState(ctx context.Context, cardID string) (entity.CardState, bool, error) {
	remote, err := s.remote.Pull(ctx, s.userID)
	if err != nil {
		if errors.Is(err, entity.ErrSnapshotNotFound) || errors.Is(err, entity.ErrSyncUnavailable) {
			return entity.CardState{}, false, nil
		}
		return entity.CardState{}, false, err
	}
	state, ok := remote.Cards[cardID]
	return state, ok, nil
}
