package entity

import "time"

// CardState is the durable subset of a card's review state: what snapshots
// carry across devices and what the merge engine reconciles per card.
type CardState struct {
	ReviewCount       int           `json:"reviewCount"`
	CorrectCount      int           `json:"correctCount"`
	IncorrectCount    int           `json:"incorrectCount"`
	Learned           bool          `json:"learned"`
	LastDifficulty    Rating        `json:"lastDifficulty,omitempty"`
	DifficultyHistory []RatingEvent `json:"difficultyHistory,omitempty"`
	LastReviewed      *time.Time    `json:"lastReviewed,omitempty"`
	NextReview        *time.Time    `json:"nextReview,omitempty"`
	Memory            *MemoryState  `json:"memory,omitempty"`
	LastModified      time.Time     `json:"lastModified"`
}

// Clone returns an independent deep copy of the state.
func (s CardState) Clone() CardState {
	out := s
	out.DifficultyHistory = append([]RatingEvent(nil), s.DifficultyHistory...)
	out.LastReviewed = copyTime(s.LastReviewed)
	out.NextReview = copyTime(s.NextReview)
	out.Memory = s.Memory.Clone()
	return out
}

// Snapshot is a full serializable copy of a user's progress at a point in
// time: the ledger, settings, and per-card review state keyed by card id.
// It is the unit of local persistence and of remote sync.
type Snapshot struct {
	UserID       string               `json:"userId"`
	Progress     *Progress            `json:"progress"`
	Settings     *Settings            `json:"settings,omitempty"`
	Cards        map[string]CardState `json:"cards,omitempty"`
	LastModified time.Time            `json:"lastModified"`
	SyncedAt     time.Time            `json:"syncedAt,omitzero"`
}

// Clone returns an independent deep copy of the snapshot.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Progress = s.Progress.Clone()
	if s.Settings != nil {
		v := *s.Settings
		out.Settings = &v
	}
	if s.Cards != nil {
		out.Cards = make(map[string]CardState, len(s.Cards))
		for id, cs := range s.Cards {
			out.Cards[id] = cs.Clone()
		}
	}
	return out
}

// Normalize fills nil collections after deserialization.
func (s *Snapshot) Normalize() {
	if s.Progress == nil {
		s.Progress = NewProgress("")
	}
	s.Progress.Normalize()
	if s.Cards == nil {
		s.Cards = make(map[string]CardState)
	}
}
