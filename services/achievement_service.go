package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"epicourierAPI/internal/criteria"
	"epicourierAPI/internal/types/achievement"
)

const (
	autoAwardTrigger = "auto_check"
	autoAwardSource  = "GET /api/v1/achievements"

	pushTimeout = 15 * time.Second
)

type AchievementService struct {
	store     Store
	collector *StatsCollector
	notifier  *AchievementNotifier
	now       Clock

	// in-flight push fan-outs
	wg sync.WaitGroup
}

func NewAchievementService(store Store, collector *StatsCollector, now Clock) *AchievementService {
	return &AchievementService{
		store:     store,
		collector: collector,
		now:       now,
	}
}

// SetNotifier enables push notifications for manually checked awards.
func (s *AchievementService) SetNotifier(notifier *AchievementNotifier) {
	s.notifier = notifier
}

type pendingAward struct {
	definition achievement.Definition
	progress   achievement.Progress
}

// GetAchievements evaluates every unearned definition and awards the ones
// whose criteria are met before answering.
//
// The earned bucket only ever holds rows read back from the store. If the
// award insert or the re-read fails, the affected definitions stay available
// with their progress attached and the call still succeeds.
func (s *AchievementService) GetAchievements(ctx context.Context, clerkID string) (*achievement.AchievementsResponse, error) {
	identity, err := resolveIdentity(ctx, s.store, clerkID)
	if err != nil {
		return nil, err
	}

	definitions, err := s.store.ListAchievementDefinitions(ctx)
	if err != nil {
		return nil, err
	}

	earnedRows, err := s.store.ListUserAchievements(ctx, identity.AuthUserID)
	if err != nil {
		return nil, err
	}
	earnedIDs := earnedSet(earnedRows)

	now := s.now()
	userStats, err := s.collector.Collect(ctx, identity, now)
	if err != nil {
		return nil, fmt.Errorf("failed to collect stats: %w", err)
	}

	progressMap := make(map[string]achievement.Progress)
	var pending []pendingAward

	for _, d := range definitions {
		if _, ok := earnedIDs[d.ID]; ok {
			continue
		}

		p := criteria.Evaluate(criteria.AllTime(d.Criteria), userStats)
		progress := achievement.NewProgress(p, now)

		if criteria.Met(p, d.Criteria.Type) {
			pending = append(pending, pendingAward{definition: d, progress: progress})
			continue
		}
		progressMap[d.Name] = progress
	}

	if len(pending) > 0 {
		awards := make([]achievement.Award, 0, len(pending))
		for _, pa := range pending {
			awards = append(awards, achievement.Award{
				UserID:        identity.AuthUserID,
				AchievementID: pa.definition.ID,
				EarnedAt:      now,
				Progress: achievement.Provenance{
					FinalValue: pa.progress.Current,
					Trigger:    autoAwardTrigger,
					Source:     autoAwardSource,
				},
			})
		}

		if err := s.store.InsertAchievements(ctx, awards); err != nil {
			log.Printf("Achievement Service: auto-award of %d achievements failed for user %s: %v", len(awards), identity.AuthUserID, err)
		} else {
			achievementsAwarded.WithLabelValues(autoAwardTrigger).Add(float64(len(awards)))

			refreshed, err := s.store.ListUserAchievements(ctx, identity.AuthUserID)
			if err != nil {
				log.Printf("Achievement Service: failed to re-read achievements for user %s: %v", identity.AuthUserID, err)
			} else {
				earnedRows = refreshed
				earnedIDs = earnedSet(earnedRows)
			}
		}

		// anything not confirmed by the store is still available
		for _, pa := range pending {
			if _, ok := earnedIDs[pa.definition.ID]; !ok {
				progressMap[pa.definition.Name] = pa.progress
			}
		}
	}

	response := &achievement.AchievementsResponse{
		Earned:    earnedRows,
		Available: []achievement.Definition{},
		Progress:  progressMap,
	}
	if response.Earned == nil {
		response.Earned = []achievement.UserAchievement{}
	}
	for _, d := range definitions {
		if _, ok := earnedIDs[d.ID]; !ok {
			response.Available = append(response.Available, d)
		}
	}

	return response, nil
}

// CheckAchievements is the explicit award pass. Already earned definitions
// are skipped without evaluation and each met definition is inserted on its
// own, so one failure never blocks the others.
func (s *AchievementService) CheckAchievements(ctx context.Context, clerkID, trigger string) (*achievement.CheckResponse, error) {
	if trigger == "" {
		return nil, ErrMissingTrigger
	}

	identity, err := resolveIdentity(ctx, s.store, clerkID)
	if err != nil {
		return nil, err
	}

	definitions, err := s.store.ListAchievementDefinitions(ctx)
	if err != nil {
		return nil, err
	}

	earnedRows, err := s.store.ListUserAchievements(ctx, identity.AuthUserID)
	if err != nil {
		return nil, err
	}
	earnedIDs := earnedSet(earnedRows)

	now := s.now()
	userStats, err := s.collector.Collect(ctx, identity, now)
	if err != nil {
		return nil, fmt.Errorf("failed to collect stats: %w", err)
	}

	newlyEarned := []achievement.Definition{}
	for _, d := range definitions {
		if _, ok := earnedIDs[d.ID]; ok {
			continue
		}

		p := criteria.Evaluate(criteria.AllTime(d.Criteria), userStats)
		if !criteria.Met(p, d.Criteria.Type) {
			continue
		}

		award := achievement.Award{
			UserID:        identity.AuthUserID,
			AchievementID: d.ID,
			EarnedAt:      now,
			Progress:      achievement.Provenance{FinalValue: p.Current, Trigger: trigger},
		}
		if err := s.store.InsertAchievements(ctx, []achievement.Award{award}); err != nil {
			if errors.Is(err, ErrAchievementConflict) {
				log.Printf("Achievement Service: %s was awarded concurrently for user %s", d.Name, identity.AuthUserID)
			} else {
				log.Printf("Achievement Service: failed to award %s to user %s: %v", d.Name, identity.AuthUserID, err)
			}
			continue
		}

		achievementsAwarded.WithLabelValues(trigger).Inc()
		newlyEarned = append(newlyEarned, d)
	}

	message := "No new achievements earned."
	if len(newlyEarned) > 0 {
		message = fmt.Sprintf("Congratulations! You earned %d new achievement(s)!", len(newlyEarned))
		s.notifyInBackground(identity.AuthUserID, newlyEarned)
	}

	return &achievement.CheckResponse{
		NewlyEarned: newlyEarned,
		Message:     message,
	}, nil
}

// Wait blocks until every background push fan-out has finished.
func (s *AchievementService) Wait() {
	s.wg.Wait()
}

func (s *AchievementService) notifyInBackground(userID uuid.UUID, earned []achievement.Definition) {
	if s.notifier == nil {
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()

		sent, failed, err := s.notifier.NotifyEarned(ctx, userID, earned)
		if err != nil {
			log.Printf("Achievement Service: push notifications failed for user %s: %v", userID, err)
			return
		}
		if sent > 0 {
			log.Printf("Achievement Service: push notifications sent for %d achievements: %d succeeded, %d failed", len(earned), sent, failed)
		}
	}()
}

func earnedSet(rows []achievement.UserAchievement) map[int64]struct{} {
	ids := make(map[int64]struct{}, len(rows))
	for _, ua := range rows {
		ids[ua.AchievementID] = struct{}{}
	}
	return ids
}
