package entity

import "time"

// DateLayout is the calendar-day key used for daily activity and streaks.
const DateLayout = "2006-01-02"

// Progress is the durable aggregate progress ledger for one user. Set
// fields grow only and counters are monotonic; the merge engine relies on
// both properties. LearningStreak is the one value that may reset.
type Progress struct {
	LearnedWords   StringSet      `json:"learnedWords"`
	CompletedParts StringSet      `json:"completedParts"`
	UnlockedLevels StringSet      `json:"unlockedLevels"`
	TotalReviews   int            `json:"totalReviews"`
	CorrectAnswers int            `json:"correctAnswers"`
	LearningStreak int            `json:"learningStreak"`
	DailyActivity  map[string]int `json:"dailyActivity"`
	LastStudyDate  string         `json:"lastStudyDate,omitempty"`
	LastModified   time.Time      `json:"lastModified"`
}

// NewProgress returns an empty ledger with the first level unlocked.
func NewProgress(firstLevelID string) *Progress {
	unlocked := NewStringSet()
	if firstLevelID != "" {
		unlocked.Add(firstLevelID)
	}
	return &Progress{
		LearnedWords:   NewStringSet(),
		CompletedParts: NewStringSet(),
		UnlockedLevels: unlocked,
		DailyActivity:  make(map[string]int),
	}
}

// Normalize fills nil collections after deserialization.
func (p *Progress) Normalize() {
	if p.LearnedWords == nil {
		p.LearnedWords = NewStringSet()
	}
	if p.CompletedParts == nil {
		p.CompletedParts = NewStringSet()
	}
	if p.UnlockedLevels == nil {
		p.UnlockedLevels = NewStringSet()
	}
	if p.DailyActivity == nil {
		p.DailyActivity = make(map[string]int)
	}
}

// Clone returns an independent deep copy of the ledger.
func (p *Progress) Clone() *Progress {
	if p == nil {
		return nil
	}
	out := *p
	out.LearnedWords = p.LearnedWords.Clone()
	out.CompletedParts = p.CompletedParts.Clone()
	out.UnlockedLevels = p.UnlockedLevels.Clone()
	out.DailyActivity = make(map[string]int, len(p.DailyActivity))
	for k, v := range p.DailyActivity {
		out.DailyActivity[k] = v
	}
	return &out
}
