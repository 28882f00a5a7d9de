package services_test

import (
	"sync"
	"time"

	"epicourierAPI/internal/criteria"
	"epicourierAPI/internal/memstore"
	"epicourierAPI/internal/types/achievement"
	"epicourierAPI/internal/types/challenge"
	"epicourierAPI/internal/types/user"
	"epicourierAPI/services"
)

// Wednesday; the week started on Monday 2024-01-15.
var wednesday = time.Date(2024, 1, 17, 12, 0, 0, 0, time.UTC)

const clerkID = "user_2abc"

type fixture struct {
	store    *memstore.Store
	identity user.Identity
	clock    *stepClock
}

func newFixture() *fixture {
	store := memstore.New()
	return &fixture{
		store:    store,
		identity: store.AddUser(clerkID, 42),
		clock:    &stepClock{now: wednesday},
	}
}

func (f *fixture) collector() *services.StatsCollector {
	return services.NewStatsCollector(f.store)
}

func (f *fixture) challengeService() *services.ChallengeService {
	return services.NewChallengeService(f.store, f.collector(), services.NewProgressSyncer(f.store), f.clock.Now)
}

func (f *fixture) achievementService() *services.AchievementService {
	return services.NewAchievementService(f.store, f.collector(), f.clock.Now)
}

func (f *fixture) meals(dates ...string) {
	for _, d := range dates {
		f.store.AddMeal(f.identity.PublicUserID, d)
	}
}

type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func countCriteria(metric string, target int, period string) criteria.Criteria {
	return criteria.Criteria{Type: criteria.TypeCount, Metric: metric, Target: target, Period: period}
}

func weeklyChallenge(id int64, name string, c criteria.Criteria) challenge.Challenge {
	return challenge.Challenge{
		ID:       id,
		Name:     name,
		Title:    name,
		Type:     challenge.RecurrenceWeekly,
		Criteria: c,
		IsActive: true,
	}
}

func definition(id int64, name string, c criteria.Criteria) achievement.Definition {
	tier := achievement.TierBronze
	return achievement.Definition{ID: id, Name: name, Title: name, Tier: &tier, Criteria: c}
}
