package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/lernkarten/internal/entity"
	"github.com/eslsoft/lernkarten/internal/repository"
	"github.com/eslsoft/lernkarten/internal/store"
)

// ProgressUsecase owns the aggregate progress ledger: learned-word set,
// streak, daily activity, and the unlock projection over levels and parts.
type ProgressUsecase interface {
	Progress() *entity.Progress
	Settings() *entity.Settings
	// UpdateSettings applies a preference change and records when it
	// happened, so snapshots carry the change's timestamp for
	// last-writer-wins reconciliation.
	UpdateSettings(now time.Time, change func(*entity.Settings))
	// RecordReview folds one answered card into the ledger: counters,
	// learned set, daily activity, streak, unlock recompute.
	RecordReview(cardID string, rating entity.Rating, now time.Time)
	RecordActivity(date string)
	UpdateStreak(today string)
	RecomputeUnlocks()
	// Verify recomputes the cached aggregate counters from card state and
	// reports any drift. An empty result means the ledger is consistent.
	Verify() []string
	// Snapshot assembles the full durable state for persistence or sync.
	// Its LastModified is the newest mutation across ledger, settings and
	// card state, never the assembly time, so a device that merely syncs
	// cannot outrank a device that actually changed something.
	Snapshot() entity.Snapshot
	// Apply replaces ledger, settings and card state from a (typically
	// merged) snapshot and recomputes unlocks.
	Apply(snap entity.Snapshot)
	// Save persists the current snapshot locally. Failures are returned
	// for reporting but leave the in-memory state authoritative.
	Save(ctx context.Context) error
	// Load restores the locally persisted snapshot, if any.
	Load(ctx context.Context) error
}

// NewProgressUsecase wires the ledger over the card store and local
// persistence.
func NewProgressUsecase(cards *store.Store, local repository.LocalStore, userID string, logger logrus.FieldLogger) ProgressUsecase {
	firstLevel := ""
	if levels := cards.Levels(); len(levels) > 0 {
		firstLevel = levels[0].ID
	}
	return &progressUsecase{
		cards:    cards,
		local:    local,
		userID:   userID,
		progress: entity.NewProgress(firstLevel),
		settings: entity.DefaultSettings(),
		logger:   logger,
	}
}

type progressUsecase struct {
	cards    *store.Store
	local    repository.LocalStore
	userID   string
	progress *entity.Progress
	settings *entity.Settings
	logger   logrus.FieldLogger

	settingsModified time.Time
}

func (u *progressUsecase) Progress() *entity.Progress { return u.progress }

func (u *progressUsecase) Settings() *entity.Settings { return u.settings }

func (u *progressUsecase) UpdateSettings(now time.Time, change func(*entity.Settings)) {
	change(u.settings)
	if now.After(u.settingsModified) {
		u.settingsModified = now
	}
}

func (u *progressUsecase) RecordReview(cardID string, rating entity.Rating, now time.Time) {
	u.progress.TotalReviews++
	if rating.Successful() {
		u.progress.CorrectAnswers++
		u.progress.LearnedWords.Add(cardID)
	}
	today := now.Format(entity.DateLayout)
	u.RecordActivity(today)
	u.UpdateStreak(today)
	u.RecomputeUnlocks()
	u.progress.LastModified = now
}

func (u *progressUsecase) RecordActivity(date string) {
	u.progress.DailyActivity[date]++
}

// UpdateStreak advances or resets the consecutive-day counter. Multiple
// reviews on the same calendar day leave it unchanged.
func (u *progressUsecase) UpdateStreak(today string) {
	p := u.progress
	if p.LastStudyDate == today {
		return
	}
	defer func() { p.LastStudyDate = today }()
	if p.LastStudyDate == "" {
		p.LearningStreak = 1
		return
	}
	last, errLast := time.Parse(entity.DateLayout, p.LastStudyDate)
	cur, errCur := time.Parse(entity.DateLayout, today)
	if errLast != nil || errCur != nil {
		p.LearningStreak = 1
		return
	}
	// A gap other than exactly one day resets; that includes negative
	// gaps from clock skew.
	if gap := int(cur.Sub(last).Hours() / 24); gap == 1 {
		p.LearningStreak++
	} else {
		p.LearningStreak = 1
	}
}

// RecomputeUnlocks projects unlock and completion flags from card state.
// The first level and its first part are always unlocked; a part unlocks
// when its predecessor is fully learned; a level unlocks when the previous
// level's aggregate progress reaches 100%. Idempotent and run after every
// answer.
func (u *progressUsecase) RecomputeUnlocks() {
	levels := u.cards.Levels()
	p := u.progress

	for _, level := range levels {
		for _, part := range level.Parts {
			// The ledger's learned set is monotone across merges; card
			// flags follow it, never the other way around.
			for _, card := range part.Cards {
				if p.LearnedWords.Has(card.ID) {
					card.Learned = true
				}
			}
			learned := lo.CountBy(part.Cards, func(c *entity.Card) bool { return c.Learned })
			part.Progress = percent(learned, len(part.Cards))
			part.Completed = len(part.Cards) > 0 && learned == len(part.Cards)
			part.Unlocked = false
			if part.Completed {
				p.CompletedParts.Add(part.ID)
			}
		}
		level.Progress = percent(level.LearnedCount(), level.CardCount())
		level.Unlocked = p.UnlockedLevels.Has(level.ID)
	}

	if len(levels) > 0 {
		levels[0].Unlocked = true
		if len(levels[0].Parts) > 0 {
			levels[0].Parts[0].Unlocked = true
		}
	}
	for _, level := range levels {
		if len(level.Parts) > 0 {
			level.Parts[0].Unlocked = true
		}
		for i := 0; i < len(level.Parts)-1; i++ {
			if level.Parts[i].Completed {
				level.Parts[i+1].Unlocked = true
			}
		}
	}
	for i := 0; i < len(levels)-1; i++ {
		if levels[i].Progress >= 100 {
			levels[i+1].Unlocked = true
		}
	}
	for _, level := range levels {
		if level.Unlocked {
			p.UnlockedLevels.Add(level.ID)
		}
	}
}

func (u *progressUsecase) Verify() []string {
	var drift []string
	learned := 0
	reviews := 0
	for _, level := range u.cards.Levels() {
		for _, part := range level.Parts {
			for _, card := range part.Cards {
				if card.Learned {
					learned++
				}
				reviews += card.ReviewCount
				if card.ReviewCount != card.CorrectCount+card.IncorrectCount {
					drift = append(drift, fmt.Sprintf("card %s: reviewCount %d != correct %d + incorrect %d",
						card.ID, card.ReviewCount, card.CorrectCount, card.IncorrectCount))
				}
			}
		}
	}
	if size := len(u.progress.LearnedWords); size > u.cards.TotalCards() {
		drift = append(drift, fmt.Sprintf("ledger has %d learned words but only %d cards exist", size, u.cards.TotalCards()))
	}
	if learned > len(u.progress.LearnedWords) {
		drift = append(drift, fmt.Sprintf("%d cards learned but ledger records %d", learned, len(u.progress.LearnedWords)))
	}
	if reviews > u.progress.TotalReviews {
		drift = append(drift, fmt.Sprintf("cards carry %d reviews but ledger records %d", reviews, u.progress.TotalReviews))
	}
	return drift
}

func (u *progressUsecase) Snapshot() entity.Snapshot {
	settings := *u.settings
	cards := u.cards.ExportStates()
	modified := u.progress.LastModified
	if u.settingsModified.After(modified) {
		modified = u.settingsModified
	}
	for _, state := range cards {
		if state.LastModified.After(modified) {
			modified = state.LastModified
		}
	}
	return entity.Snapshot{
		UserID:       u.userID,
		Progress:     u.progress.Clone(),
		Settings:     &settings,
		Cards:        cards,
		LastModified: modified,
	}
}

func (u *progressUsecase) Apply(snap entity.Snapshot) {
	snap.Normalize()
	u.progress = snap.Progress.Clone()
	if snap.Settings != nil {
		settings := *snap.Settings
		u.settings = &settings
		if snap.LastModified.After(u.settingsModified) {
			u.settingsModified = snap.LastModified
		}
	}
	for id, state := range snap.Cards {
		u.cards.ApplyState(id, state)
	}
	u.RecomputeUnlocks()
}

func (u *progressUsecase) Save(ctx context.Context) error {
	if err := u.local.Save(ctx, u.Snapshot()); err != nil {
		return fmt.Errorf("persist progress: %w", err)
	}
	return nil
}

func (u *progressUsecase) Load(ctx context.Context) error {
	snap, err := u.local.Load(ctx, u.userID)
	if err != nil {
		return err
	}
	u.Apply(snap)
	return nil
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}
