package entity

// Learning directions: which side of the card is shown first.
const (
	DirectionFrontBack = "front-back"
	DirectionBackFront = "back-front"
)

// Settings are per-user preferences carried through snapshots. Unlike the
// ledger they are plain last-writer-wins data.
type Settings struct {
	LearningDirection string `json:"learningDirection"`
	VoiceEnabled      bool   `json:"voiceEnabled"`
	CardsPerSession   int    `json:"cardsPerSession"`
	CurrentLevel      string `json:"currentLevel"`
	Theme             string `json:"theme"`
	CurrentView       string `json:"currentView"`
}

// DefaultSettings returns the out-of-the-box preferences.
func DefaultSettings() *Settings {
	return &Settings{
		LearningDirection: DirectionFrontBack,
		VoiceEnabled:      true,
		CardsPerSession:   20,
		Theme:             "system",
		CurrentView:       "dashboard",
	}
}
