package scheduler

import (
	"fmt"
	"math"
	"time"

	"github.com/eslsoft/lernkarten/internal/entity"
)

// Simple is the always-available interval policy: a geometric backoff on
// the review count weighted by the reported rating,
// round(max(1.3, rating*0.5)^(reviewCount-1)) days, floored at one day.
// It keeps no per-card state.
type Simple struct {
	// MaxIntervalDays caps the computed interval; zero means uncapped.
	MaxIntervalDays int
}

// NewSimple returns the simple policy with a one-year interval cap.
func NewSimple() *Simple {
	return &Simple{MaxIntervalDays: 365}
}

// Schedule implements Policy.
func (s *Simple) Schedule(card *entity.Card, rating entity.Rating, now time.Time) (Outcome, error) {
	if !rating.Valid() {
		return Outcome{}, fmt.Errorf("%w: %d", entity.ErrInvalidRating, rating)
	}
	reviews := card.ReviewCount
	if reviews < 1 {
		reviews = 1
	}
	multiplier := math.Max(1.3, float64(rating)*0.5)
	days := int(math.Round(math.Pow(multiplier, float64(reviews-1))))
	if days < 1 {
		days = 1
	}
	if s.MaxIntervalDays > 0 && days > s.MaxIntervalDays {
		days = s.MaxIntervalDays
	}
	return Outcome{
		IntervalDays: days,
		NextReview:   now.AddDate(0, 0, days),
	}, nil
}
