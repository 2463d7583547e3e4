package entity

import "time"

// Session tracks one learning sitting. It is ephemeral: created at session
// start, discarded at session end, never persisted or merged.
type Session struct {
	Target         int
	WordsLearned   int
	CorrectAnswers int
	TotalAnswers   int
	Buckets        map[string]int
	StartedAt      time.Time
}

// NewSession starts tracking a sitting with the given answer target.
func NewSession(target int, now time.Time) *Session {
	return &Session{
		Target:    target,
		Buckets:   make(map[string]int),
		StartedAt: now,
	}
}

// Record updates the counters and histogram for one answered card.
// newlyLearned is true when this answer marked the card learned.
func (s *Session) Record(rating Rating, newlyLearned bool) {
	s.TotalAnswers++
	if rating.Successful() {
		s.CorrectAnswers++
	}
	if newlyLearned {
		s.WordsLearned++
	}
	s.Buckets[rating.Bucket()]++
}

// Complete reports whether the answer target has been reached.
func (s *Session) Complete() bool {
	return s.TotalAnswers >= s.Target
}

// Accuracy returns the fraction of successful answers, 0 when empty.
func (s *Session) Accuracy() float64 {
	if s.TotalAnswers == 0 {
		return 0
	}
	return float64(s.CorrectAnswers) / float64(s.TotalAnswers)
}
