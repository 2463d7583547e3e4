package usecase

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/eslsoft/lernkarten/internal/entity"
	"github.com/eslsoft/lernkarten/internal/scheduler"
	"github.com/eslsoft/lernkarten/internal/store"
)

// AnswerResult reports the effect of one recorded answer.
type AnswerResult struct {
	Card            *entity.Card
	IntervalDays    int
	NextReview      time.Time
	Learned         bool
	SessionComplete bool
	// Next is the upcoming card, nil when the session completed.
	Next *entity.Card
}

// SessionUsecase walks the learner through a bounded working set of cards
// and records outcomes through the scheduler and card store. State machine:
// Idle -> InSession -> Idle.
type SessionUsecase interface {
	// Start opens a session over unlearned cards of the named part, or of
	// every unlocked part when partID is empty. When no unlearned cards
	// remain it falls back to learned cards due for spaced review rather
	// than blocking the learner. Fails with entity.ErrSessionActive when
	// already in a session and entity.ErrEmptyCandidateSet when nothing
	// is available at all.
	Start(targetCount int, partID string) (*entity.Session, error)
	// Current returns the card being shown. Idle -> entity.ErrSessionNotActive.
	Current() (*entity.Card, error)
	// RecordAnswer applies the rating to the current card, updates the
	// ledger, persists the snapshot, and advances. Reaching the target
	// marks the session complete but keeps it open so Extend can resume
	// it; further answers before an Extend fail with
	// entity.ErrSessionComplete.
	RecordAnswer(ctx context.Context, rating entity.Rating) (*AnswerResult, error)
	// Extend raises the answer target without resetting progress,
	// resuming a completed session. Allowed only while in a session; the
	// target never exceeds the working set.
	Extend(by int) error
	// End discards the session, complete or not, and returns to Idle.
	// It returns the finished session for summary display, nil when idle.
	End() *entity.Session
	Active() bool
	Session() *entity.Session
}

// NewSessionUsecase wires the session walk over the card store, scheduling
// policy and progress ledger.
func NewSessionUsecase(cards *store.Store, policy scheduler.Policy, progress ProgressUsecase, logger logrus.FieldLogger) SessionUsecase {
	return &sessionUsecase{
		cards:    cards,
		policy:   policy,
		progress: progress,
		logger:   logger,
		clock:    time.Now,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

type sessionUsecase struct {
	cards    *store.Store
	policy   scheduler.Policy
	progress ProgressUsecase
	logger   logrus.FieldLogger
	clock    func() time.Time
	rng      *rand.Rand

	session *entity.Session
	queue   []*entity.Card
	index   int
}

func (u *sessionUsecase) Start(targetCount int, partID string) (*entity.Session, error) {
	if u.session != nil {
		return nil, entity.ErrSessionActive
	}
	if targetCount < 1 {
		return nil, fmt.Errorf("target count %d must be positive", targetCount)
	}

	pool, err := u.cards.Unlearned(partID)
	if err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		// Everything is learned: offer due cards for spaced review so the
		// learner never hits a dead end. A named part keeps the session
		// inside that part.
		now := u.clock()
		pool = u.cards.Due(now)
		if partID != "" {
			pool = lo.Filter(pool, func(c *entity.Card, _ int) bool { return c.PartID == partID })
		}
		if len(pool) == 0 {
			if pool, err = u.cards.Learned(partID); err != nil {
				return nil, err
			}
		}
	}
	if len(pool) == 0 {
		return nil, entity.ErrEmptyCandidateSet
	}

	queue := append([]*entity.Card(nil), pool...)
	u.rng.Shuffle(len(queue), func(i, j int) { queue[i], queue[j] = queue[j], queue[i] })

	target := targetCount
	if target > len(queue) {
		target = len(queue)
	}
	u.queue = queue
	u.index = 0
	u.session = entity.NewSession(target, u.clock())
	return u.session, nil
}

func (u *sessionUsecase) Current() (*entity.Card, error) {
	if u.session == nil {
		return nil, entity.ErrSessionNotActive
	}
	if u.exhausted() {
		return nil, entity.ErrSessionComplete
	}
	return u.queue[u.index], nil
}

func (u *sessionUsecase) exhausted() bool {
	return u.session.Complete() || u.index >= len(u.queue)
}

func (u *sessionUsecase) RecordAnswer(ctx context.Context, rating entity.Rating) (*AnswerResult, error) {
	if u.session == nil {
		return nil, entity.ErrSessionNotActive
	}
	if u.exhausted() {
		return nil, entity.ErrSessionComplete
	}
	if !rating.Valid() {
		return nil, fmt.Errorf("%w: %d", entity.ErrInvalidRating, rating)
	}

	card := u.queue[u.index]
	now := u.clock()

	if err := u.cards.EnsureLoaded(ctx, card.ID); err != nil {
		// Hydration failure degrades to local-only state for this card.
		u.logger.WithError(err).WithField("card", card.ID).Warn("card hydration failed")
	}

	wasLearned := card.Learned
	if _, err := u.cards.MarkReviewed(card.ID, rating, now); err != nil {
		return nil, err
	}
	outcome, err := u.policy.Schedule(card, rating, now)
	if err != nil {
		return nil, fmt.Errorf("schedule %s: %w", card.ID, err)
	}
	if err := u.cards.ApplyOutcome(card.ID, outcome.NextReview, outcome.Memory); err != nil {
		return nil, err
	}

	u.session.Record(rating, card.Learned && !wasLearned)
	u.progress.RecordReview(card.ID, rating, now)

	// End-of-answer transaction boundary: persist, but never interrupt
	// the session over a local write failure.
	if err := u.progress.Save(ctx); err != nil {
		u.logger.WithError(err).Warn("snapshot save failed, in-memory state remains authoritative")
	}

	result := &AnswerResult{
		Card:         card,
		IntervalDays: outcome.IntervalDays,
		NextReview:   outcome.NextReview,
		Learned:      card.Learned,
	}
	u.index++
	if u.exhausted() {
		result.SessionComplete = true
		return result, nil
	}
	result.Next = u.queue[u.index]
	return result, nil
}

func (u *sessionUsecase) Extend(by int) error {
	if u.session == nil {
		return entity.ErrSessionNotActive
	}
	if by < 1 {
		return fmt.Errorf("extension %d must be positive", by)
	}
	target := u.session.Target + by
	if target > len(u.queue) {
		target = len(u.queue)
	}
	u.session.Target = target
	return nil
}

func (u *sessionUsecase) End() *entity.Session {
	finished := u.session
	u.session = nil
	u.queue = nil
	u.index = 0
	return finished
}

func (u *sessionUsecase) Active() bool { return u.session != nil }

func (u *sessionUsecase) Session() *entity.Session { return u.session }
