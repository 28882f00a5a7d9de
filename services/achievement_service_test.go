package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epicourierAPI/internal/criteria"
	"epicourierAPI/internal/stats"
	"epicourierAPI/internal/types/achievement"
	"epicourierAPI/internal/types/notification"
	"epicourierAPI/services"
)

func TestGetAchievements_AwardsFirstMeal(t *testing.T) {
	f := newFixture()
	f.meals("2024-01-17")
	f.store.Definitions = []achievement.Definition{
		definition(1, "first_meal", countCriteria(stats.MealsLogged, 1, "")),
	}

	resp, err := f.achievementService().GetAchievements(context.Background(), clerkID)
	require.NoError(t, err)

	require.Len(t, resp.Earned, 1)
	assert.Empty(t, resp.Available)
	assert.Empty(t, resp.Progress)

	earned := resp.Earned[0]
	assert.Equal(t, int64(1), earned.AchievementID)
	assert.True(t, earned.EarnedAt.Equal(wednesday))
	require.NotNil(t, earned.Achievement)
	assert.Equal(t, "first_meal", earned.Achievement.Name)
	assert.Equal(t, map[string]any{
		"final_value": 1,
		"trigger":     "auto_check",
		"source":      "GET /api/v1/achievements",
	}, earned.Progress)
}

func TestGetAchievements_ProgressForUnmet(t *testing.T) {
	f := newFixture()
	f.meals("2024-01-16", "2024-01-17")
	f.store.Definitions = []achievement.Definition{
		definition(1, "three_meals", countCriteria(stats.MealsLogged, 3, "")),
		definition(2, "eco_warrior", countCriteria(stats.GreenRecipes, 5, "")),
	}

	resp, err := f.achievementService().GetAchievements(context.Background(), clerkID)
	require.NoError(t, err)

	assert.Empty(t, resp.Earned)
	assert.Len(t, resp.Available, 2)
	assert.Equal(t, achievement.Progress{
		Progress:    criteria.Progress{Current: 2, Target: 3},
		Percentage:  67,
		LastUpdated: wednesday,
	}, resp.Progress["three_meals"])
	assert.Equal(t, 0, resp.Progress["eco_warrior"].Percentage)
	assert.Zero(t, f.store.CallCount("InsertAchievements"))
}

func TestGetAchievements_IgnoresPeriod(t *testing.T) {
	f := newFixture()
	// only one of these falls in the current week
	f.meals("2023-12-01", "2023-12-02", "2024-01-17")
	f.store.Definitions = []achievement.Definition{
		definition(1, "three_meals", countCriteria(stats.MealsLogged, 3, criteria.PeriodWeek)),
	}

	resp, err := f.achievementService().GetAchievements(context.Background(), clerkID)
	require.NoError(t, err)

	assert.Len(t, resp.Earned, 1)
}

func TestGetAchievements_AlreadyEarnedAreNotReevaluated(t *testing.T) {
	f := newFixture()
	f.meals("2024-01-17")
	f.store.Definitions = []achievement.Definition{
		definition(1, "first_meal", countCriteria(stats.MealsLogged, 1, "")),
	}
	f.store.UserAchievements = []achievement.UserAchievement{
		{ID: 7, UserID: f.identity.AuthUserID, AchievementID: 1, EarnedAt: wednesday.AddDate(0, -1, 0)},
	}

	resp, err := f.achievementService().GetAchievements(context.Background(), clerkID)
	require.NoError(t, err)

	assert.Len(t, resp.Earned, 1)
	assert.Empty(t, resp.Available)
	assert.NotContains(t, resp.Progress, "first_meal")
	assert.Zero(t, f.store.CallCount("InsertAchievements"))
}

func TestGetAchievements_UnknownCriteriaTypeIsNeverAwarded(t *testing.T) {
	f := newFixture()
	f.meals("2024-01-17")
	f.store.Definitions = []achievement.Definition{
		definition(1, "mystery", criteria.Criteria{Type: "percentile", Metric: stats.MealsLogged, Target: 1}),
	}

	resp, err := f.achievementService().GetAchievements(context.Background(), clerkID)
	require.NoError(t, err)

	assert.Empty(t, resp.Earned)
	assert.Len(t, resp.Available, 1)
	assert.Equal(t, 100, resp.Progress["mystery"].Percentage)
}

func TestGetAchievements_InsertFailureKeepsAvailable(t *testing.T) {
	f := newFixture()
	f.meals("2024-01-17")
	f.store.Definitions = []achievement.Definition{
		definition(1, "first_meal", countCriteria(stats.MealsLogged, 1, "")),
		definition(2, "ten_meals", countCriteria(stats.MealsLogged, 10, "")),
	}
	f.store.FailOn["InsertAchievements"] = errors.New("insert or update violates foreign key constraint")

	resp, err := f.achievementService().GetAchievements(context.Background(), clerkID)
	require.NoError(t, err)

	assert.Empty(t, resp.Earned)
	assert.Len(t, resp.Available, 2)
	assert.Equal(t, criteria.Progress{Current: 1, Target: 1}, resp.Progress["first_meal"].Progress)
	assert.Equal(t, 100, resp.Progress["first_meal"].Percentage)
	assert.Empty(t, f.store.UserAchievements)
}

func TestGetAchievements_RereadFailureNeverSynthesizesEarned(t *testing.T) {
	f := newFixture()
	f.meals("2024-01-17")
	f.store.Definitions = []achievement.Definition{
		definition(1, "first_meal", countCriteria(stats.MealsLogged, 1, "")),
	}
	// the initial read succeeds, the re-read after the insert fails
	f.store.FailOn["ListUserAchievements"] = errors.New("canceling statement due to statement timeout")
	f.store.FailAfter["ListUserAchievements"] = 1

	resp, err := f.achievementService().GetAchievements(context.Background(), clerkID)
	require.NoError(t, err)

	assert.Empty(t, resp.Earned)
	require.Len(t, resp.Available, 1)
	assert.Equal(t, criteria.Progress{Current: 1, Target: 1}, resp.Progress["first_meal"].Progress)
	assert.Len(t, f.store.UserAchievements, 1, "the award itself was persisted")
}

func TestGetAchievements_CatalogFailuresAreFatal(t *testing.T) {
	for _, method := range []string{"ListAchievementDefinitions", "ListUserAchievements"} {
		t.Run(method, func(t *testing.T) {
			f := newFixture()
			f.store.FailOn[method] = errors.New("relation does not exist")

			resp, err := f.achievementService().GetAchievements(context.Background(), clerkID)

			assert.Nil(t, resp)
			assert.Error(t, err)
		})
	}
}

func TestGetAchievements_UnknownUser(t *testing.T) {
	f := newFixture()

	_, err := f.achievementService().GetAchievements(context.Background(), "user_missing")

	assert.ErrorIs(t, err, services.ErrUnauthorized)
	assert.Zero(t, f.store.CallCount("ListAchievementDefinitions"))
}

func TestCheckAchievements(t *testing.T) {
	f := newFixture()
	f.meals("2024-01-16", "2024-01-17")
	f.store.Definitions = []achievement.Definition{
		definition(1, "first_meal", countCriteria(stats.MealsLogged, 1, "")),
		definition(2, "two_day_streak", criteria.Criteria{Type: criteria.TypeStreak, Metric: stats.StreakDays, Target: 2}),
		definition(3, "ten_meals", countCriteria(stats.MealsLogged, 10, "")),
	}
	f.store.UserAchievements = []achievement.UserAchievement{
		{ID: 7, UserID: f.identity.AuthUserID, AchievementID: 1, EarnedAt: wednesday.AddDate(0, 0, -1)},
	}

	resp, err := f.achievementService().CheckAchievements(context.Background(), clerkID, "meal_logged")
	require.NoError(t, err)

	require.Len(t, resp.NewlyEarned, 1)
	assert.Equal(t, "two_day_streak", resp.NewlyEarned[0].Name)
	assert.Equal(t, "Congratulations! You earned 1 new achievement(s)!", resp.Message)
	assert.Equal(t, 1, f.store.CallCount("InsertAchievements"))

	awarded := f.store.UserAchievements[1]
	assert.Equal(t, map[string]any{"final_value": 2, "trigger": "meal_logged"}, awarded.Progress)
}

func TestCheckAchievements_NothingNew(t *testing.T) {
	f := newFixture()
	f.store.Definitions = []achievement.Definition{
		definition(1, "first_meal", countCriteria(stats.MealsLogged, 1, "")),
	}

	resp, err := f.achievementService().CheckAchievements(context.Background(), clerkID, "page_view")
	require.NoError(t, err)

	assert.Empty(t, resp.NewlyEarned)
	assert.NotNil(t, resp.NewlyEarned)
	assert.Equal(t, "No new achievements earned.", resp.Message)
}

func TestCheckAchievements_MissingTrigger(t *testing.T) {
	f := newFixture()

	_, err := f.achievementService().CheckAchievements(context.Background(), clerkID, "")

	assert.ErrorIs(t, err, services.ErrMissingTrigger)
	assert.Zero(t, f.store.CallCount("ResolveIdentity"))
	assert.Zero(t, f.store.CallCount("CountLoggedMeals"))
}

func TestCheckAchievements_OneFailedInsertDoesNotBlockOthers(t *testing.T) {
	f := newFixture()
	f.meals("2024-01-17")
	f.store.Definitions = []achievement.Definition{
		definition(1, "first_meal", countCriteria(stats.MealsLogged, 1, "")),
		definition(2, "first_day", countCriteria(stats.DaysTracked, 1, "")),
		definition(3, "first_streak", countCriteria(stats.StreakDays, 1, "")),
	}
	f.store.FailOn["InsertAchievements"] = services.ErrAchievementConflict
	f.store.FailAfter["InsertAchievements"] = 1

	resp, err := f.achievementService().CheckAchievements(context.Background(), clerkID, "meal_logged")
	require.NoError(t, err)

	require.Len(t, resp.NewlyEarned, 1)
	assert.Equal(t, "first_meal", resp.NewlyEarned[0].Name)
	assert.Equal(t, 3, f.store.CallCount("InsertAchievements"))
}

type recordingPush struct {
	mu       sync.Mutex
	messages []notification.Message
	stale    []string
}

func (p *recordingPush) SendPush(_ context.Context, tokens []notification.DeviceToken, msg notification.Message) (*notification.PushResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	return &notification.PushResult{Sent: len(tokens) - len(p.stale), Failed: len(p.stale), Stale: p.stale}, nil
}

func TestCheckAchievements_PushesNewlyEarned(t *testing.T) {
	f := newFixture()
	f.meals("2024-01-17")
	f.store.Definitions = []achievement.Definition{
		definition(1, "first_meal", countCriteria(stats.MealsLogged, 1, "")),
	}
	f.store.Devices[f.identity.AuthUserID] = []notification.DeviceToken{
		{ID: 1, Token: "live", Platform: notification.PlatformAndroid},
		{ID: 2, Token: "gone", Platform: notification.PlatformWeb},
	}
	push := &recordingPush{stale: []string{"gone"}}

	svc := f.achievementService()
	svc.SetNotifier(services.NewAchievementNotifier(f.store, push, "https://epicourier.app"))

	_, err := svc.CheckAchievements(context.Background(), clerkID, "meal_logged")
	require.NoError(t, err)
	svc.Wait()

	require.Len(t, push.messages, 1)
	assert.Equal(t, "🏆 Achievement Unlocked!", push.messages[0].Title)
	assert.Equal(t, []notification.DeviceToken{{ID: 1, Token: "live", Platform: notification.PlatformAndroid}}, f.store.Devices[f.identity.AuthUserID])
}

func TestCheckAchievements_NoPushWithoutAwards(t *testing.T) {
	f := newFixture()
	push := &recordingPush{}

	svc := f.achievementService()
	svc.SetNotifier(services.NewAchievementNotifier(f.store, push, ""))

	_, err := svc.CheckAchievements(context.Background(), clerkID, "meal_logged")
	require.NoError(t, err)
	svc.Wait()

	assert.Empty(t, push.messages)
	assert.Zero(t, f.store.CallCount("ListDeviceTokens"))
}
