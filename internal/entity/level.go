package entity

// Part is an ordered set of cards sharing a lesson grouping. Progress,
// Unlocked and Completed are projections recomputed from card state after
// every answer; they are never persisted as source of truth.
type Part struct {
	ID          string
	Name        string
	Description string
	LevelID     string
	Number      int
	Cards       []*Card

	Progress  float64
	Unlocked  bool
	Completed bool
}

// LearnedCount returns the number of learned cards in the part.
func (p *Part) LearnedCount() int {
	n := 0
	for _, c := range p.Cards {
		if c.Learned {
			n++
		}
	}
	return n
}

// Level is an ordered set of parts. Like Part, its derived fields are a
// pure projection of card state.
type Level struct {
	ID    string
	Name  string
	Parts []*Part

	Progress float64
	Unlocked bool
}

// CardCount returns the total number of cards across the level's parts.
func (l *Level) CardCount() int {
	n := 0
	for _, p := range l.Parts {
		n += len(p.Cards)
	}
	return n
}

// LearnedCount returns the number of learned cards across the level's parts.
func (l *Level) LearnedCount() int {
	n := 0
	for _, p := range l.Parts {
		n += p.LearnedCount()
	}
	return n
}
