// Package merge reconciles two snapshots of the same logical user into one
// that is at least as advanced as either input. Set fields union, counters
// take the element-wise max, and only genuinely last-writer-wins fields are
// timestamp-gated. The result is idempotent and, on its monotonic fields,
// commutative, which makes it safe to re-apply on every remote change
// without a vector clock or transaction log.
package merge

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/eslsoft/lernkarten/internal/entity"
)

// Snapshots merges local and remote without mutating either input.
func Snapshots(local, remote entity.Snapshot) entity.Snapshot {
	local.Normalize()
	remote.Normalize()

	localNewer := !remote.LastModified.After(local.LastModified)
	out := entity.Snapshot{
		UserID:       local.UserID,
		Progress:     Progress(local.Progress, remote.Progress),
		Settings:     mergeSettings(local.Settings, remote.Settings, localNewer),
		Cards:        mergeCards(local.Cards, remote.Cards),
		LastModified: laterOf(local.LastModified, remote.LastModified),
		SyncedAt:     laterOf(local.SyncedAt, remote.SyncedAt),
	}
	if out.UserID == "" {
		out.UserID = remote.UserID
	}
	return out
}

// Progress merges two ledgers: union on sets, max on counters, max-union
// on the daily activity map. LastStudyDate is the one last-writer-wins
// field, gated by the ledgers' own write timestamps.
func Progress(local, remote *entity.Progress) *entity.Progress {
	if local == nil {
		return remote.Clone()
	}
	if remote == nil {
		return local.Clone()
	}

	out := entity.NewProgress("")
	out.LearnedWords = local.LearnedWords.Union(remote.LearnedWords)
	out.CompletedParts = local.CompletedParts.Union(remote.CompletedParts)
	out.UnlockedLevels = local.UnlockedLevels.Union(remote.UnlockedLevels)
	out.TotalReviews = max(local.TotalReviews, remote.TotalReviews)
	out.CorrectAnswers = max(local.CorrectAnswers, remote.CorrectAnswers)
	out.LearningStreak = max(local.LearningStreak, remote.LearningStreak)

	// Per-date max rather than sum: merging the same snapshot twice must
	// not inflate counts.
	for _, date := range lo.Uniq(append(lo.Keys(local.DailyActivity), lo.Keys(remote.DailyActivity)...)) {
		out.DailyActivity[date] = max(local.DailyActivity[date], remote.DailyActivity[date])
	}

	newer, older := local, remote
	if remote.LastModified.After(local.LastModified) {
		newer, older = remote, local
	}
	out.LastStudyDate = newer.LastStudyDate
	if out.LastStudyDate == "" {
		out.LastStudyDate = older.LastStudyDate
	}
	out.LastModified = laterOf(local.LastModified, remote.LastModified)
	return out
}

// CardState merges one card's review state from both sides. Counters are
// monotonic and the learned flag only ever turns on, regardless of which
// side is newer; scheduling fields follow the side with the strictly
// greater write timestamp.
func CardState(local, remote entity.CardState) entity.CardState {
	newer, older := local, remote
	if remote.LastModified.After(local.LastModified) {
		newer, older = remote, local
	}

	out := newer.Clone()
	// Tie or missing data: backfill from the other side.
	if out.LastReviewed == nil {
		out.LastReviewed = older.LastReviewed
	}
	if out.NextReview == nil {
		out.NextReview = older.NextReview
	}
	if out.Memory == nil {
		out.Memory = older.Memory.Clone()
	}
	if out.LastDifficulty == 0 {
		out.LastDifficulty = older.LastDifficulty
	}

	out.ReviewCount = max(local.ReviewCount, remote.ReviewCount)
	out.CorrectCount = max(local.CorrectCount, remote.CorrectCount)
	out.IncorrectCount = max(local.IncorrectCount, remote.IncorrectCount)
	out.Learned = local.Learned || remote.Learned
	out.DifficultyHistory = mergeHistory(local.DifficultyHistory, remote.DifficultyHistory)
	out.LastModified = laterOf(local.LastModified, remote.LastModified)
	return out
}

func mergeCards(local, remote map[string]entity.CardState) map[string]entity.CardState {
	out := make(map[string]entity.CardState, len(local))
	for id, state := range local {
		if other, ok := remote[id]; ok {
			out[id] = CardState(state, other)
		} else {
			out[id] = state.Clone()
		}
	}
	for id, state := range remote {
		if _, ok := local[id]; !ok {
			out[id] = state.Clone()
		}
	}
	return out
}

// mergeHistory unions both histories, de-duplicated by (timestamp, rating),
// chronological, truncated to the newest MaxDifficultyHistory entries.
func mergeHistory(a, b []entity.RatingEvent) []entity.RatingEvent {
	if len(a) == 0 && len(b) == 0 {
		return nil
	}
	type key struct {
		at     int64
		rating entity.Rating
	}
	seen := make(map[key]struct{}, len(a)+len(b))
	var out []entity.RatingEvent
	for _, ev := range append(append([]entity.RatingEvent(nil), a...), b...) {
		k := key{at: ev.At.UnixNano(), rating: ev.Rating}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, ev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	if len(out) > entity.MaxDifficultyHistory {
		out = append([]entity.RatingEvent(nil), out[len(out)-entity.MaxDifficultyHistory:]...)
	}
	return out
}

func mergeSettings(local, remote *entity.Settings, localNewer bool) *entity.Settings {
	newer, older := local, remote
	if !localNewer {
		newer, older = remote, local
	}
	if newer == nil {
		newer = older
	}
	if newer == nil {
		return nil
	}
	out := *newer
	return &out
}

func laterOf(a, b time.Time) time.Time {
	if b.After(a) {
		return b
	}
	return a
}
