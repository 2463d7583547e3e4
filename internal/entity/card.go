package entity

import (
	"math"
	"time"
)

// MaxDifficultyHistory bounds the per-card rating history; the oldest
// entries are truncated beyond this count.
const MaxDifficultyHistory = 8

// RatingEvent records a single self-assessment at a point in time.
type RatingEvent struct {
	Rating Rating    `json:"rating"`
	At     time.Time `json:"at"`
}

// MemoryState carries the adaptive scheduler's per-card internals.
// Nil until the adaptive policy first schedules the card; the simple policy
// leaves it untouched.
type MemoryState struct {
	Difficulty     float64    `json:"difficulty"`
	Stability      float64    `json:"stability"`
	Retrievability float64    `json:"retrievability"`
	Stage          int        `json:"stage,omitempty"`
	Step           *int       `json:"step,omitempty"`
	Due            time.Time  `json:"due,omitzero"`
	LastReview     *time.Time `json:"lastReview,omitempty"`
}

// Clone returns a deep copy of the memory state.
func (m *MemoryState) Clone() *MemoryState {
	if m == nil {
		return nil
	}
	out := *m
	if m.Step != nil {
		v := *m.Step
		out.Step = &v
	}
	if m.LastReview != nil {
		v := *m.LastReview
		out.LastReview = &v
	}
	return &out
}

// Card is one vocabulary item with its own independent review schedule.
// The card store is the exclusive owner of Card values; everything else
// holds ids.
type Card struct {
	ID             string
	PartID         string
	Front          string
	Back           string
	Gloss          string
	Category       string
	BaseDifficulty int

	ReviewCount       int
	CorrectCount      int
	IncorrectCount    int
	LastReviewed      *time.Time
	NextReview        *time.Time
	Learned           bool
	LastDifficulty    Rating
	DifficultyHistory []RatingEvent
	LastModified      time.Time
	Memory            *MemoryState
}

// ApplyReview applies the bookkeeping for one review: counters, history,
// learned classification, write timestamp. Scheduling the next review is
// the policy's concern, performed in the same logical transaction.
func (c *Card) ApplyReview(rating Rating, now time.Time) {
	c.ReviewCount++
	if rating.Successful() {
		c.CorrectCount++
		c.Learned = true
	} else {
		c.IncorrectCount++
	}
	c.LastDifficulty = rating
	c.DifficultyHistory = append(c.DifficultyHistory, RatingEvent{Rating: rating, At: now})
	if n := len(c.DifficultyHistory); n > MaxDifficultyHistory {
		c.DifficultyHistory = append([]RatingEvent(nil), c.DifficultyHistory[n-MaxDifficultyHistory:]...)
	}
	reviewed := now
	c.LastReviewed = &reviewed
	c.LastModified = now
}

// Due reports whether the card's scheduled review time has passed.
func (c *Card) Due(now time.Time) bool {
	return c.NextReview != nil && !c.NextReview.After(now)
}

// Retrievability estimates the current recall probability from the
// forgetting curve exp(-t/S). Cards without adaptive state report 1.
func (c *Card) Retrievability(now time.Time) float64 {
	if c.LastReviewed == nil || c.Memory == nil || c.Memory.Stability <= 0 {
		return 1
	}
	days := now.Sub(*c.LastReviewed).Hours() / 24
	if days < 0 {
		days = 0
	}
	return math.Exp(-days / c.Memory.Stability)
}

// State extracts the durable review state carried in snapshots.
func (c *Card) State() CardState {
	return CardState{
		ReviewCount:       c.ReviewCount,
		CorrectCount:      c.CorrectCount,
		IncorrectCount:    c.IncorrectCount,
		Learned:           c.Learned,
		LastDifficulty:    c.LastDifficulty,
		DifficultyHistory: append([]RatingEvent(nil), c.DifficultyHistory...),
		LastReviewed:      copyTime(c.LastReviewed),
		NextReview:        copyTime(c.NextReview),
		Memory:            c.Memory.Clone(),
		LastModified:      c.LastModified,
	}
}

// SetState replaces the card's durable review state with s.
func (c *Card) SetState(s CardState) {
	c.ReviewCount = s.ReviewCount
	c.CorrectCount = s.CorrectCount
	c.IncorrectCount = s.IncorrectCount
	c.Learned = s.Learned
	c.LastDifficulty = s.LastDifficulty
	c.DifficultyHistory = append([]RatingEvent(nil), s.DifficultyHistory...)
	c.LastReviewed = copyTime(s.LastReviewed)
	c.NextReview = copyTime(s.NextReview)
	c.Memory = s.Memory.Clone()
	c.LastModified = s.LastModified
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
