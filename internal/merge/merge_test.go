package merge

import (
	"testing"
	"time"

	"github.com/eslsoft/lernkarten/internal/entity"
)

func ledger(learned []string, reviews, correct, streak int, modified time.Time) *entity.Progress {
	p := entity.NewProgress("")
	for _, w := range learned {
		p.LearnedWords.Add(w)
	}
	p.TotalReviews = reviews
	p.CorrectAnswers = correct
	p.LearningStreak = streak
	p.LastModified = modified
	return p
}

func TestProgressMergeIsIdempotent(t *testing.T) {
	mod := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	p := ledger([]string{"a", "b"}, 10, 7, 3, mod)
	p.DailyActivity["2024-06-01"] = 5
	p.LastStudyDate = "2024-06-01"

	out := Progress(p, p.Clone())
	if !out.LearnedWords.Equal(p.LearnedWords) {
		t.Errorf("expected learned words unchanged, got %v", out.LearnedWords.Sorted())
	}
	if out.TotalReviews != 10 || out.CorrectAnswers != 7 || out.LearningStreak != 3 {
		t.Errorf("expected counters unchanged, got %d/%d/%d", out.TotalReviews, out.CorrectAnswers, out.LearningStreak)
	}
	if out.DailyActivity["2024-06-01"] != 5 {
		t.Errorf("expected daily activity not inflated by self-merge, got %d", out.DailyActivity["2024-06-01"])
	}
	if out.LastStudyDate != "2024-06-01" {
		t.Errorf("expected lastStudyDate preserved, got %q", out.LastStudyDate)
	}
}

func TestProgressMergeNeverLosesLearnedWords(t *testing.T) {
	older := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	local := ledger([]string{"a", "b"}, 4, 3, 2, older)
	remote := ledger([]string{"b", "c"}, 6, 4, 1, newer)

	ab := Progress(local, remote)
	ba := Progress(remote, local)

	want := entity.NewStringSet("a", "b", "c")
	if !ab.LearnedWords.Equal(want) || !ba.LearnedWords.Equal(want) {
		t.Errorf("expected union {a b c} in both directions, got %v and %v", ab.LearnedWords.Sorted(), ba.LearnedWords.Sorted())
	}
	if ab.TotalReviews != 6 || ba.TotalReviews != 6 {
		t.Errorf("expected counter max 6 in both directions, got %d and %d", ab.TotalReviews, ba.TotalReviews)
	}
	if ab.LearningStreak != 2 || ba.LearningStreak != 2 {
		t.Errorf("expected streak max 2 in both directions, got %d and %d", ab.LearningStreak, ba.LearningStreak)
	}
}

func TestProgressMergeDailyActivityPerDateMax(t *testing.T) {
	mod := time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC)
	local := ledger(nil, 0, 0, 0, mod)
	local.DailyActivity["2024-06-01"] = 3
	local.DailyActivity["2024-06-02"] = 1
	remote := ledger(nil, 0, 0, 0, mod)
	remote.DailyActivity["2024-06-01"] = 2
	remote.DailyActivity["2024-06-03"] = 4

	out := Progress(local, remote)
	if out.DailyActivity["2024-06-01"] != 3 {
		t.Errorf("expected per-date max 3, got %d", out.DailyActivity["2024-06-01"])
	}
	if out.DailyActivity["2024-06-02"] != 1 || out.DailyActivity["2024-06-03"] != 4 {
		t.Errorf("expected both sides' dates kept, got %v", out.DailyActivity)
	}
}

func TestProgressMergeLastStudyDateFollowsNewerWithBackfill(t *testing.T) {
	older := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	local := ledger(nil, 0, 0, 0, older)
	local.LastStudyDate = "2024-06-01"
	remote := ledger(nil, 0, 0, 0, newer)
	remote.LastStudyDate = "2024-06-02"

	if out := Progress(local, remote); out.LastStudyDate != "2024-06-02" {
		t.Errorf("expected the newer side's study date, got %q", out.LastStudyDate)
	}

	remote.LastStudyDate = ""
	if out := Progress(local, remote); out.LastStudyDate != "2024-06-01" {
		t.Errorf("expected backfill from the older side, got %q", out.LastStudyDate)
	}
}

func TestCardStateMergeKeepsMonotonicFields(t *testing.T) {
	older := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	newerReview := newer.Add(-time.Minute)

	local := entity.CardState{
		ReviewCount:  5,
		CorrectCount: 4,
		Learned:      true,
		LastModified: older,
	}
	remote := entity.CardState{
		ReviewCount:    3,
		CorrectCount:   1,
		IncorrectCount: 2,
		LastDifficulty: entity.RatingHard,
		LastReviewed:   &newerReview,
		LastModified:   newer,
	}

	out := CardState(local, remote)
	if out.ReviewCount != 5 || out.CorrectCount != 4 || out.IncorrectCount != 2 {
		t.Errorf("expected element-wise max counters 5/4/2, got %d/%d/%d", out.ReviewCount, out.CorrectCount, out.IncorrectCount)
	}
	if !out.Learned {
		t.Error("expected learned to survive even though the unlearned side is newer")
	}
	if out.LastReviewed == nil || !out.LastReviewed.Equal(newerReview) {
		t.Errorf("expected the newer side's lastReviewed, got %v", out.LastReviewed)
	}
	if !out.LastModified.Equal(newer) {
		t.Errorf("expected lastModified %v, got %v", newer, out.LastModified)
	}
}

func TestCardStateMergeBackfillsMissingScheduling(t *testing.T) {
	older := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	next := newer.AddDate(0, 0, 3)

	local := entity.CardState{
		NextReview:     &next,
		Memory:         &entity.MemoryState{Stability: 2.5},
		LastDifficulty: entity.RatingEasy,
		LastModified:   older,
	}
	remote := entity.CardState{LastModified: newer}

	out := CardState(local, remote)
	if out.NextReview == nil || !out.NextReview.Equal(next) {
		t.Errorf("expected nextReview backfilled from the older side, got %v", out.NextReview)
	}
	if out.Memory == nil || out.Memory.Stability != 2.5 {
		t.Errorf("expected memory backfilled, got %+v", out.Memory)
	}
	if out.LastDifficulty != entity.RatingEasy {
		t.Errorf("expected lastDifficulty backfilled, got %d", out.LastDifficulty)
	}
}

func TestMergeHistoryDedupesAndTruncates(t *testing.T) {
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	event := func(i int, r entity.Rating) entity.RatingEvent {
		return entity.RatingEvent{Rating: r, At: base.Add(time.Duration(i) * time.Hour)}
	}

	var a, b []entity.RatingEvent
	for i := 0; i < 6; i++ {
		a = append(a, event(i, entity.RatingMedium))
	}
	b = append(b, event(3, entity.RatingMedium)) // duplicate of a[3]
	for i := 6; i < 12; i++ {
		b = append(b, event(i, entity.RatingEasy))
	}

	out := mergeHistory(a, b)
	if len(out) != entity.MaxDifficultyHistory {
		t.Fatalf("expected history truncated to %d, got %d", entity.MaxDifficultyHistory, len(out))
	}
	for i := 1; i < len(out); i++ {
		if out[i].At.Before(out[i-1].At) {
			t.Fatalf("expected chronological order, got %v before %v", out[i].At, out[i-1].At)
		}
	}
	if !out[len(out)-1].At.Equal(base.Add(11 * time.Hour)) {
		t.Errorf("expected newest entry kept, got %v", out[len(out)-1].At)
	}
	if !out[0].At.Equal(base.Add(4 * time.Hour)) {
		t.Errorf("expected oldest entries dropped, history starts at %v", out[0].At)
	}
}

func TestSnapshotsMergeSettingsFollowNewerSide(t *testing.T) {
	older := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	localSettings := entity.DefaultSettings()
	localSettings.Theme = "dark"
	remoteSettings := entity.DefaultSettings()
	remoteSettings.Theme = "light"

	local := entity.Snapshot{
		UserID:       "u1",
		Progress:     ledger([]string{"a"}, 1, 1, 1, older),
		Settings:     localSettings,
		LastModified: older,
	}
	remote := entity.Snapshot{
		UserID:       "u1",
		Progress:     ledger([]string{"b"}, 2, 1, 1, newer),
		Settings:     remoteSettings,
		LastModified: newer,
	}

	out := Snapshots(local, remote)
	if out.Settings == nil || out.Settings.Theme != "light" {
		t.Errorf("expected the newer side's settings, got %+v", out.Settings)
	}
	if !out.Progress.LearnedWords.Equal(entity.NewStringSet("a", "b")) {
		t.Errorf("expected learned words unioned, got %v", out.Progress.LearnedWords.Sorted())
	}
	if !out.LastModified.Equal(newer) {
		t.Errorf("expected lastModified %v, got %v", newer, out.LastModified)
	}

	// Local side wins settings on a timestamp tie.
	remote.LastModified = older
	remote.Progress.LastModified = older
	out = Snapshots(local, remote)
	if out.Settings == nil || out.Settings.Theme != "dark" {
		t.Errorf("expected local settings on tie, got %+v", out.Settings)
	}
}

func TestSnapshotsMergeKeepsCardsFromBothSides(t *testing.T) {
	mod := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	local := entity.Snapshot{
		UserID:   "u1",
		Progress: ledger(nil, 0, 0, 0, mod),
		Cards: map[string]entity.CardState{
			"c1": {ReviewCount: 1, LastModified: mod},
		},
		LastModified: mod,
	}
	remote := entity.Snapshot{
		UserID:   "u1",
		Progress: ledger(nil, 0, 0, 0, mod),
		Cards: map[string]entity.CardState{
			"c2": {ReviewCount: 2, Learned: true, LastModified: mod},
		},
		LastModified: mod,
	}

	out := Snapshots(local, remote)
	if len(out.Cards) != 2 {
		t.Fatalf("expected both cards in the merge, got %d", len(out.Cards))
	}
	if out.Cards["c2"].ReviewCount != 2 || !out.Cards["c2"].Learned {
		t.Errorf("expected remote-only card carried over, got %+v", out.Cards["c2"])
	}
}
