// Package scheduler decides when a card is next due for review. Two
// interchangeable policies exist: a dependency-free geometric backoff and
// an adaptive forgetting-curve scheduler, with automatic per-call fallback
// from the latter to the former.
package scheduler

import (
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eslsoft/lernkarten/internal/entity"
)

// Outcome is a scheduling decision for one review.
type Outcome struct {
	IntervalDays int
	NextReview   time.Time
	// Memory is the updated adaptive state, nil when the policy does not
	// maintain one. The caller writes it back onto the card.
	Memory *entity.MemoryState
}

// Policy computes the next review for a card given the user's rating.
// The card has already been marked reviewed (counters include the current
// review). Implementations must return an interval of at least one day and
// a NextReview strictly after now.
type Policy interface {
	Schedule(card *entity.Card, rating entity.Rating, now time.Time) (Outcome, error)
}

type fallbackPolicy struct {
	primary  Policy
	fallback Policy
	logger   logrus.FieldLogger
}

// WithFallback wraps primary so that any scheduling error is recovered by
// retrying the same call on fallback. The failure is logged, never
// surfaced: a scheduler problem must not interrupt a session.
func WithFallback(primary, fallback Policy, logger logrus.FieldLogger) Policy {
	return &fallbackPolicy{primary: primary, fallback: fallback, logger: logger}
}

func (p *fallbackPolicy) Schedule(card *entity.Card, rating entity.Rating, now time.Time) (Outcome, error) {
	out, err := p.primary.Schedule(card, rating, now)
	if err == nil {
		return out, nil
	}
	if p.logger != nil {
		p.logger.WithError(err).WithField("card", card.ID).Warn("adaptive scheduling failed, using simple policy")
	}
	return p.fallback.Schedule(card, rating, now)
}
