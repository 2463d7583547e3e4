package entity

// Rating is the learner's 1-5 self-assessment of recall quality for a card
// just reviewed. Polarity is fixed project-wide: 1 is the hardest recall,
// 5 the easiest. Flipping this flips the learned classification, so it is
// encoded here once and nowhere else.
type Rating int

const (
	RatingVeryHard Rating = 1
	RatingHard     Rating = 2
	RatingMedium   Rating = 3
	RatingEasy     Rating = 4
	RatingVeryEasy Rating = 5
)

// Valid reports whether r is within the 1-5 scale.
func (r Rating) Valid() bool {
	return r >= RatingVeryHard && r <= RatingVeryEasy
}

// Successful reports whether the rating counts as a successful recall.
// A successful recall marks the card as learned; learned never reverts.
func (r Rating) Successful() bool {
	return r >= RatingEasy
}

// Bucket names the session histogram bucket for the rating.
func (r Rating) Bucket() string {
	switch r {
	case RatingVeryHard:
		return "very_hard"
	case RatingHard:
		return "hard"
	case RatingMedium:
		return "medium"
	case RatingEasy:
		return "easy"
	case RatingVeryEasy:
		return "very_easy"
	default:
		return "unknown"
	}
}
