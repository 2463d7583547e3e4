package sync

import (
	"context"
	"fmt"
	"io"
	stdsync "sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/lernkarten/internal/entity"
	"github.com/eslsoft/lernkarten/internal/store"
	"github.com/eslsoft/lernkarten/internal/usecase"
)

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type fakeLocalStore struct {
	mu    stdsync.Mutex
	snaps map[string]entity.Snapshot
	meta  map[string]string
}

func newFakeLocalStore() *fakeLocalStore {
	return &fakeLocalStore{
		snaps: make(map[string]entity.Snapshot),
		meta:  make(map[string]string),
	}
}

func (f *fakeLocalStore) Save(ctx context.Context, snap entity.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snaps[snap.UserID] = snap.Clone()
	return nil
}

func (f *fakeLocalStore) Load(ctx context.Context, userID string) (entity.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	snap, ok := f.snaps[userID]
	if !ok {
		return entity.Snapshot{}, entity.ErrSnapshotNotFound
	}
	return snap.Clone(), nil
}

func (f *fakeLocalStore) Meta(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.meta[key], nil
}

func (f *fakeLocalStore) SetMeta(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.meta[key] = value
	return nil
}

func (f *fakeLocalStore) Close() error { return nil }

func testProgress(t *testing.T, cardCount int) (usecase.ProgressUsecase, *store.Store) {
	t.Helper()
	part := &entity.Part{ID: "A1.1-part1", Name: "Part 1", LevelID: "A1.1", Number: 1, Unlocked: true}
	for i := 0; i < cardCount; i++ {
		part.Cards = append(part.Cards, &entity.Card{
			ID:     fmt.Sprintf("A1.1-part1_%d", i),
			PartID: "A1.1-part1",
		})
	}
	level := &entity.Level{ID: "A1.1", Name: "Level A1.1", Parts: []*entity.Part{part}, Unlocked: true}
	cards := store.New()
	if err := cards.Load([]*entity.Level{level}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return usecase.NewProgressUsecase(cards, newFakeLocalStore(), "u1", testLogger()), cards
}

func TestSyncSeedsRemoteWhenMissing(t *testing.T) {
	ctx := context.Background()
	progress, cards := testProgress(t, 2)
	now := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	if _, err := cards.MarkReviewed("A1.1-part1_0", entity.RatingEasy, now); err != nil {
		t.Fatalf("MarkReviewed failed: %v", err)
	}
	progress.RecordReview("A1.1-part1_0", entity.RatingEasy, now)

	remote := NewMemoryRemote()
	syncer := NewSyncer(remote, progress, "u1", time.Minute, testLogger())
	if err := syncer.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}

	doc, err := remote.Pull(ctx, "u1")
	if err != nil {
		t.Fatalf("expected remote seeded, Pull failed: %v", err)
	}
	if !doc.Progress.LearnedWords.Has("A1.1-part1_0") {
		t.Error("expected seeded snapshot to carry the learned word")
	}
	if len(doc.Cards) != 1 {
		t.Errorf("expected 1 card state in the seeded snapshot, got %d", len(doc.Cards))
	}
}

func TestSyncMergesRemoteProgress(t *testing.T) {
	ctx := context.Background()
	progress, cards := testProgress(t, 3)
	now := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	if _, err := cards.MarkReviewed("A1.1-part1_0", entity.RatingEasy, now); err != nil {
		t.Fatalf("MarkReviewed failed: %v", err)
	}
	progress.RecordReview("A1.1-part1_0", entity.RatingEasy, now)

	remoteLedger := entity.NewProgress("A1.1")
	remoteLedger.LearnedWords.Add("A1.1-part1_1")
	remoteLedger.TotalReviews = 4
	remoteLedger.LastModified = now.Add(-time.Hour)
	remote := NewMemoryRemote()
	if err := remote.Push(ctx, entity.Snapshot{
		UserID:   "u1",
		Progress: remoteLedger,
		Cards: map[string]entity.CardState{
			"A1.1-part1_1": {ReviewCount: 2, CorrectCount: 2, Learned: true, LastModified: now.Add(-time.Hour)},
		},
		LastModified: now.Add(-time.Hour),
	}); err != nil {
		t.Fatalf("seeding remote failed: %v", err)
	}

	syncer := NewSyncer(remote, progress, "u1", time.Minute, testLogger())
	if err := syncer.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}

	merged := progress.Progress()
	if !merged.LearnedWords.Has("A1.1-part1_0") || !merged.LearnedWords.Has("A1.1-part1_1") {
		t.Errorf("expected both sides' learned words, got %v", merged.LearnedWords.Sorted())
	}
	if merged.TotalReviews != 4 {
		t.Errorf("expected counter max 4, got %d", merged.TotalReviews)
	}
	card, err := cards.Get("A1.1-part1_1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if card.ReviewCount != 2 || !card.Learned {
		t.Errorf("expected remote card state applied locally, got %+v", card)
	}

	doc, err := remote.Pull(ctx, "u1")
	if err != nil {
		t.Fatalf("Pull failed: %v", err)
	}
	if !doc.Progress.LearnedWords.Has("A1.1-part1_0") {
		t.Error("expected the merged snapshot pushed back to the remote")
	}
	if doc.SyncedAt.IsZero() {
		t.Error("expected syncedAt stamped on the merged snapshot")
	}
}

type flakyRemote struct {
	*MemoryRemote
}

func (r *flakyRemote) Pull(ctx context.Context, userID string) (entity.Snapshot, error) {
	return entity.Snapshot{}, fmt.Errorf("%w: connection refused", entity.ErrSyncUnavailable)
}

func TestSyncUnavailableIsDeferredNotFatal(t *testing.T) {
	progress, _ := testProgress(t, 1)
	syncer := NewSyncer(&flakyRemote{NewMemoryRemote()}, progress, "u1", time.Minute, testLogger())

	if err := syncer.SyncNow(context.Background()); err != nil {
		t.Fatalf("expected remote unavailability to be deferred, got %v", err)
	}
}

type countingRemote struct {
	*MemoryRemote
	mu         stdsync.Mutex
	pulls      int
	duringPush func()
	fired      bool
}

func (r *countingRemote) Pull(ctx context.Context, userID string) (entity.Snapshot, error) {
	r.mu.Lock()
	r.pulls++
	r.mu.Unlock()
	return r.MemoryRemote.Pull(ctx, userID)
}

func (r *countingRemote) Push(ctx context.Context, snap entity.Snapshot) error {
	if err := r.MemoryRemote.Push(ctx, snap); err != nil {
		return err
	}
	r.mu.Lock()
	fire := r.duringPush != nil && !r.fired
	r.fired = true
	r.mu.Unlock()
	if fire {
		r.duringPush()
	}
	return nil
}

func TestNotificationDuringSyncIsCoalesced(t *testing.T) {
	ctx := context.Background()
	progress, _ := testProgress(t, 1)
	remote := &countingRemote{MemoryRemote: NewMemoryRemote()}
	if err := remote.MemoryRemote.Push(ctx, entity.Snapshot{
		UserID:   "u1",
		Progress: entity.NewProgress("A1.1"),
	}); err != nil {
		t.Fatalf("seeding remote failed: %v", err)
	}

	syncer := NewSyncer(remote, progress, "u1", time.Minute, testLogger())
	// A change notification lands while the push is still in flight: it
	// must coalesce into exactly one follow-up round, not run concurrently.
	remote.duringPush = func() {
		if err := syncer.SyncNow(ctx); err != nil {
			t.Errorf("nested SyncNow failed: %v", err)
		}
	}

	if err := syncer.SyncNow(ctx); err != nil {
		t.Fatalf("SyncNow failed: %v", err)
	}

	remote.mu.Lock()
	pulls := remote.pulls
	remote.mu.Unlock()
	if pulls != 2 {
		t.Errorf("expected the deferred round to pull exactly once more, got %d pulls", pulls)
	}
}

func TestSettingsChangeReachesOtherDevices(t *testing.T) {
	ctx := context.Background()
	remote := NewMemoryRemote()
	now := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)

	deviceA, cardsA := testProgress(t, 2)
	if _, err := cardsA.MarkReviewed("A1.1-part1_0", entity.RatingEasy, now); err != nil {
		t.Fatalf("MarkReviewed failed: %v", err)
	}
	deviceA.RecordReview("A1.1-part1_0", entity.RatingEasy, now)
	syncerA := NewSyncer(remote, deviceA, "u1", time.Minute, testLogger())
	if err := syncerA.SyncNow(ctx); err != nil {
		t.Fatalf("first device sync failed: %v", err)
	}

	deviceB, _ := testProgress(t, 2)
	deviceB.UpdateSettings(now.Add(time.Hour), func(s *entity.Settings) { s.Theme = "dark" })
	syncerB := NewSyncer(remote, deviceB, "u1", time.Minute, testLogger())
	if err := syncerB.SyncNow(ctx); err != nil {
		t.Fatalf("second device sync failed: %v", err)
	}

	if err := syncerA.SyncNow(ctx); err != nil {
		t.Fatalf("first device resync failed: %v", err)
	}
	if got := deviceA.Settings().Theme; got != "dark" {
		t.Errorf("expected the later settings change to reach the first device, got %q", got)
	}
	if !deviceB.Progress().LearnedWords.Has("A1.1-part1_0") {
		t.Error("expected the first device's learned word on the second device")
	}
}

func TestOwnPushEchoIsIgnored(t *testing.T) {
	progress, cards := testProgress(t, 1)
	now := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	if _, err := cards.MarkReviewed("A1.1-part1_0", entity.RatingEasy, now); err != nil {
		t.Fatalf("MarkReviewed failed: %v", err)
	}
	progress.RecordReview("A1.1-part1_0", entity.RatingEasy, now)
	remote := NewMemoryRemote()
	syncer := NewSyncer(remote, progress, "u1", time.Minute, testLogger())

	snap := progress.Snapshot()
	if err := syncer.push(context.Background(), snap); err != nil {
		t.Fatalf("push failed: %v", err)
	}
	if !syncer.isEcho(snap) {
		t.Error("expected our own pushed snapshot to be recognized as an echo")
	}
	newer := snap
	newer.LastModified = snap.LastModified.Add(time.Second)
	if syncer.isEcho(newer) {
		t.Error("expected a genuinely newer snapshot not to be treated as an echo")
	}
}

func TestSyncerHydratesCardState(t *testing.T) {
	ctx := context.Background()
	progress, _ := testProgress(t, 1)
	remote := NewMemoryRemote()
	now := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	if err := remote.Push(ctx, entity.Snapshot{
		UserID:   "u1",
		Progress: entity.NewProgress("A1.1"),
		Cards: map[string]entity.CardState{
			"A1.1-part1_0": {ReviewCount: 2, Learned: true, LastModified: now},
		},
		LastModified: now,
	}); err != nil {
		t.Fatalf("seeding remote failed: %v", err)
	}

	syncer := NewSyncer(remote, progress, "u1", time.Minute, testLogger())
	state, found, err := syncer.CardState(ctx, "A1.1-part1_0")
	if err != nil || !found {
		t.Fatalf("expected hydration hit, got found=%v err=%v", found, err)
	}
	if state.ReviewCount != 2 {
		t.Errorf("expected hydrated reviewCount 2, got %d", state.ReviewCount)
	}

	_, found, err = syncer.CardState(ctx, "unknown")
	if err != nil || found {
		t.Errorf("expected miss for unknown card, got found=%v err=%v", found, err)
	}
}

func TestEnsureUserID(t *testing.T) {
	ctx := context.Background()
	local := newFakeLocalStore()

	id, err := EnsureUserID(ctx, local, "")
	if err != nil {
		t.Fatalf("EnsureUserID failed: %v", err)
	}
	if id == "" {
		t.Fatal("expected a generated user id")
	}

	again, err := EnsureUserID(ctx, local, "")
	if err != nil {
		t.Fatalf("second EnsureUserID failed: %v", err)
	}
	if again != id {
		t.Errorf("expected the generated id to be stable, got %q then %q", id, again)
	}

	configured, err := EnsureUserID(ctx, local, "alice")
	if err != nil {
		t.Fatalf("configured EnsureUserID failed: %v", err)
	}
	if configured != "alice" {
		t.Errorf("expected the configured id to win, got %q", configured)
	}
	if stored, _ := local.Meta(ctx, "user_id"); stored != "alice" {
		t.Errorf("expected configured id persisted, got %q", stored)
	}
}
