package services

import (
	"context"
	"log"
	"time"

	"epicourierAPI/internal/criteria"
	"epicourierAPI/internal/stats"
	"epicourierAPI/internal/types/challenge"
)

// ProgressUpdate is one pending write for a joined, not-yet-completed challenge.
type ProgressUpdate struct {
	UserChallengeID int64
	Progress        criteria.Progress
	Complete        bool
}

// PlanProgressUpdates evaluates every open participation record against the
// snapshot. Completed records never appear in the result.
func PlanProgressUpdates(challenges []challenge.Challenge, participation map[int64]challenge.UserChallenge, s stats.UserStats) []ProgressUpdate {
	var updates []ProgressUpdate
	for _, c := range challenges {
		uc, ok := participation[c.ID]
		if !ok || uc.IsCompleted() {
			continue
		}

		progress := criteria.Evaluate(c.Criteria, s)
		updates = append(updates, ProgressUpdate{
			UserChallengeID: uc.ID,
			Progress:        progress,
			Complete:        progress.Reached(),
		})
	}
	return updates
}

// ProgressSyncer persists computed challenge progress on a best-effort basis.
type ProgressSyncer struct {
	store ChallengeStore
}

func NewProgressSyncer(store ChallengeStore) *ProgressSyncer {
	return &ProgressSyncer{store: store}
}

// Sync writes each update independently. Completion is stamped in the same
// write as the progress. Failures are logged per record and never returned.
func (p *ProgressSyncer) Sync(ctx context.Context, updates []ProgressUpdate, now time.Time) {
	for _, u := range updates {
		var completedAt *time.Time
		if u.Complete {
			completedAt = &now
		}

		if err := p.store.UpdateUserChallengeProgress(ctx, u.UserChallengeID, u.Progress, completedAt); err != nil {
			progressSyncFailures.Inc()
			log.Printf("Progress Sync: failed to persist user challenge %d: %v", u.UserChallengeID, err)
			continue
		}

		if u.Complete {
			challengesCompleted.Inc()
			log.Printf("Progress Sync: user challenge %d completed (%d/%d)", u.UserChallengeID, u.Progress.Current, u.Progress.Target)
		}
	}
}
