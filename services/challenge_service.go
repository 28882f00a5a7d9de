package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"epicourierAPI/internal/criteria"
	"epicourierAPI/internal/stats"
	"epicourierAPI/internal/types/achievement"
	"epicourierAPI/internal/types/challenge"
)

const progressSyncTimeout = 10 * time.Second

type ChallengeService struct {
	store     Store
	collector *StatsCollector
	syncer    *ProgressSyncer
	now       Clock

	// in-flight progress syncs
	wg sync.WaitGroup
}

func NewChallengeService(store Store, collector *StatsCollector, syncer *ProgressSyncer, now Clock) *ChallengeService {
	return &ChallengeService{
		store:     store,
		collector: collector,
		syncer:    syncer,
		now:       now,
	}
}

// ListChallenges returns every active challenge bucketed by the caller's
// participation, with freshly computed progress. Progress for joined,
// open challenges is persisted in the background after the response is built.
func (s *ChallengeService) ListChallenges(ctx context.Context, clerkID string) (*challenge.ChallengesResponse, error) {
	identity, err := resolveIdentity(ctx, s.store, clerkID)
	if err != nil {
		return nil, err
	}

	challenges, err := s.store.ListActiveChallenges(ctx)
	if err != nil {
		return nil, err
	}

	userChallenges, err := s.store.ListUserChallenges(ctx, identity.AuthUserID)
	if err != nil {
		return nil, err
	}

	rewards := s.rewardsFor(ctx, challenges)

	now := s.now()
	userStats, err := s.collector.Collect(ctx, identity, now)
	if err != nil {
		return nil, fmt.Errorf("failed to collect stats: %w", err)
	}

	participation := make(map[int64]challenge.UserChallenge, len(userChallenges))
	for _, uc := range userChallenges {
		participation[uc.ChallengeID] = uc
	}

	response := &challenge.ChallengesResponse{
		Active:    []challenge.ChallengeWithStatus{},
		Joined:    []challenge.ChallengeWithStatus{},
		Completed: []challenge.ChallengeWithStatus{},
	}

	for _, c := range challenges {
		uc, joined := participation[c.ID]
		status := withStatus(c, joined, userStats, rewards, now)

		switch {
		case joined && uc.IsCompleted():
			response.Completed = append(response.Completed, status)
		case joined:
			response.Joined = append(response.Joined, status)
		default:
			response.Active = append(response.Active, status)
		}
	}

	if updates := PlanProgressUpdates(challenges, participation, userStats); len(updates) > 0 {
		s.syncInBackground(updates, now)
	}

	return response, nil
}

// GetChallenge returns one challenge, active or not, with the caller's progress.
func (s *ChallengeService) GetChallenge(ctx context.Context, clerkID string, challengeID int64) (*challenge.ChallengeWithStatus, error) {
	identity, err := resolveIdentity(ctx, s.store, clerkID)
	if err != nil {
		return nil, err
	}

	c, err := s.store.GetChallenge(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	uc, err := s.store.GetUserChallenge(ctx, identity.AuthUserID, challengeID)
	if err != nil {
		log.Printf("Challenge Service: failed to fetch participation for challenge %d: %v", challengeID, err)
	}

	rewards := s.rewardsFor(ctx, []challenge.Challenge{*c})

	now := s.now()
	userStats, err := s.collector.Collect(ctx, identity, now)
	if err != nil {
		return nil, fmt.Errorf("failed to collect stats: %w", err)
	}

	status := withStatus(*c, uc != nil, userStats, rewards, now)
	return &status, nil
}

// JoinChallenge creates the participation record for an active challenge.
func (s *ChallengeService) JoinChallenge(ctx context.Context, clerkID string, challengeID int64) (*challenge.JoinResponse, error) {
	identity, err := resolveIdentity(ctx, s.store, clerkID)
	if err != nil {
		return nil, err
	}

	if challengeID <= 0 {
		return nil, ErrInvalidChallengeID
	}

	c, err := s.store.GetChallenge(ctx, challengeID)
	if err != nil {
		if errors.Is(err, ErrChallengeNotFound) {
			return nil, ErrChallengeInactive
		}
		return nil, err
	}
	if !c.IsActive {
		return nil, ErrChallengeInactive
	}

	existing, err := s.store.GetUserChallenge(ctx, identity.AuthUserID, challengeID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyJoined
	}

	created, err := s.store.InsertUserChallenge(ctx, challenge.UserChallenge{
		UserID:      identity.AuthUserID,
		ChallengeID: challengeID,
		JoinedAt:    s.now(),
		Progress:    &criteria.Progress{Current: 0, Target: c.Criteria.Target},
	})
	if err != nil {
		return nil, err
	}

	log.Printf("Challenge Service: user %s joined challenge %d (%s)", identity.AuthUserID, c.ID, c.Name)

	return &challenge.JoinResponse{
		Success:       true,
		UserChallenge: created,
		Message:       fmt.Sprintf("Successfully joined challenge: %s", c.Title),
	}, nil
}

// GetStats returns the caller's current statistics snapshot.
func (s *ChallengeService) GetStats(ctx context.Context, clerkID string) (*stats.UserStats, error) {
	identity, err := resolveIdentity(ctx, s.store, clerkID)
	if err != nil {
		return nil, err
	}

	userStats, err := s.collector.Collect(ctx, identity, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to collect stats: %w", err)
	}
	return &userStats, nil
}

// Wait blocks until every background progress sync has finished.
func (s *ChallengeService) Wait() {
	s.wg.Wait()
}

func (s *ChallengeService) syncInBackground(updates []ProgressUpdate, now time.Time) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		// detached from the request, which is already answered
		ctx, cancel := context.WithTimeout(context.Background(), progressSyncTimeout)
		defer cancel()

		s.syncer.Sync(ctx, updates, now)
	}()
}

// rewardsFor looks up the reward achievements referenced by challenges.
// A failed lookup only drops the rewards from the response.
func (s *ChallengeService) rewardsFor(ctx context.Context, challenges []challenge.Challenge) map[int64]achievement.Definition {
	var ids []int64
	for _, c := range challenges {
		if c.RewardAchievementID != nil {
			ids = append(ids, *c.RewardAchievementID)
		}
	}

	rewards := make(map[int64]achievement.Definition, len(ids))
	if len(ids) == 0 {
		return rewards
	}

	definitions, err := s.store.ListAchievementsByIDs(ctx, ids)
	if err != nil {
		log.Printf("Challenge Service: failed to fetch reward achievements: %v", err)
		return rewards
	}
	for _, d := range definitions {
		rewards[d.ID] = d
	}
	return rewards
}

func withStatus(c challenge.Challenge, joined bool, s stats.UserStats, rewards map[int64]achievement.Definition, now time.Time) challenge.ChallengeWithStatus {
	status := challenge.ChallengeWithStatus{
		Challenge:     c,
		IsJoined:      joined,
		Progress:      criteria.Evaluate(c.Criteria, s),
		DaysRemaining: c.DaysRemaining(now),
	}
	if c.RewardAchievementID != nil {
		if reward, ok := rewards[*c.RewardAchievementID]; ok {
			status.RewardAchievement = &reward
		}
	}
	return status
}
