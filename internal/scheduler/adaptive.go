package scheduler

import (
	"fmt"
	"math"
	"time"

	"github.com/sky-flux/flux"

	"github.com/eslsoft/lernkarten/internal/entity"
)

// Adaptive schedules reviews with the FSRS forgetting-curve model,
// maintaining per-card difficulty/stability state. Fuzzing is disabled so
// identical inputs always produce identical schedules.
type Adaptive struct {
	sched *flux.Scheduler
}

// NewAdaptive constructs the adaptive policy with default parameters.
func NewAdaptive() (*Adaptive, error) {
	sched, err := flux.NewScheduler(flux.SchedulerConfig{DisableFuzzing: true})
	if err != nil {
		return nil, fmt.Errorf("adaptive scheduler: %w", err)
	}
	return &Adaptive{sched: sched}, nil
}

// ordinal maps the 1-5 rating scale onto the scheduler's four-step scale.
// Both 4 and 5 are successful recalls; only 5 earns the Easy bonus.
func ordinal(r entity.Rating) flux.Rating {
	switch r {
	case entity.RatingVeryHard:
		return flux.Again
	case entity.RatingHard:
		return flux.Hard
	case entity.RatingVeryEasy:
		return flux.Easy
	default:
		return flux.Good
	}
}

// Schedule implements Policy. Internal failures are returned as errors so
// the fallback wrapper can recover with the simple policy for this call.
func (a *Adaptive) Schedule(card *entity.Card, rating entity.Rating, now time.Time) (out Outcome, err error) {
	if !rating.Valid() {
		return Outcome{}, fmt.Errorf("%w: %d", entity.ErrInvalidRating, rating)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("adaptive schedule %s: %v", card.ID, r)
		}
	}()

	reviewed, _ := a.sched.ReviewCard(toFluxCard(card, now), ordinal(rating), now)
	if reviewed.Stability == nil || reviewed.Difficulty == nil {
		return Outcome{}, fmt.Errorf("adaptive schedule %s: no memory state returned", card.ID)
	}

	days := int(math.Ceil(reviewed.Due.Sub(now).Hours() / 24))
	if days < 1 {
		days = 1
	}
	memory := &entity.MemoryState{
		Difficulty:     *reviewed.Difficulty,
		Stability:      *reviewed.Stability,
		Retrievability: 1,
		Stage:          int(reviewed.State),
		Due:            reviewed.Due,
		LastReview:     reviewed.LastReview,
	}
	if reviewed.Step != nil {
		step := *reviewed.Step
		memory.Step = &step
	}
	return Outcome{
		IntervalDays: days,
		NextReview:   now.AddDate(0, 0, days),
		Memory:       memory,
	}, nil
}

// toFluxCard reconstructs the scheduler's card from the durable memory
// state, or a fresh learning-stage card when the card has none.
func toFluxCard(card *entity.Card, now time.Time) flux.Card {
	m := card.Memory
	if m == nil || m.Stage == 0 {
		step := 0
		return flux.Card{State: flux.Learning, Step: &step, Due: now}
	}
	fc := flux.Card{
		State:      flux.State(m.Stage),
		Due:        m.Due,
		LastReview: m.LastReview,
	}
	if m.Step != nil {
		step := *m.Step
		fc.Step = &step
	}
	if m.Stability > 0 {
		stability := m.Stability
		fc.Stability = &stability
	}
	if m.Difficulty > 0 {
		difficulty := m.Difficulty
		fc.Difficulty = &difficulty
	}
	return fc
}
