package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"epicourierAPI/internal/stats"
)

func TestCollect(t *testing.T) {
	f := newFixture()
	uid := f.identity.PublicUserID
	f.store.AddMeal(uid, "2024-01-17", "Eco-Friendly")
	f.store.AddMeal(uid, "2024-01-16", "Vegetarian")
	f.store.AddMeal(uid, "2024-01-15", "Quick", "Green Choice")
	f.store.AddMeal(uid, "2024-01-10", "sustainable")
	f.store.AddMeal(uid, "2023-12-30")

	for _, d := range []string{"2024-01-01", "2024-01-01", "2024-01-03", "2023-12-20"} {
		f.store.AddNutrientDate(f.identity.AuthUserID, d)
	}

	got, err := f.collector().Collect(context.Background(), &f.identity, wednesday)
	require.NoError(t, err)

	assert.Equal(t, stats.UserStats{
		MealsLogged:             5,
		TotalMeals:              5,
		GreenRecipes:            3,
		StreakDays:              3,
		DaysTracked:             5,
		NutrientGoalDays:        2,
		DashboardViews:          4,
		NutrientAwareMeals:      4,
		NutrientAwarePercentage: 80,
		WeeklyMealsLogged:       3,
		WeeklyGreenRecipes:      2,
		WeeklyUniqueDays:        3,
		MonthlyMealsLogged:      4,
		MonthlyGreenRecipes:     3,
		MonthlyNutrientGoalDays: 2,
	}, got)
}

func TestCollect_NutrientDaysAreDistinct(t *testing.T) {
	f := newFixture()
	for _, d := range []string{"2024-01-01", "2024-01-01", "2024-01-03"} {
		f.store.AddNutrientDate(f.identity.AuthUserID, d)
	}

	got, err := f.collector().Collect(context.Background(), &f.identity, wednesday)
	require.NoError(t, err)

	assert.Equal(t, 2, got.MonthlyNutrientGoalDays)
	assert.Equal(t, got.MonthlyNutrientGoalDays, got.NutrientGoalDays)
}

func TestCollect_UniqueDaysIgnoreRepeatMeals(t *testing.T) {
	f := newFixture()
	f.meals("2024-01-17", "2024-01-17", "2024-01-17", "2024-01-15")

	got, err := f.collector().Collect(context.Background(), &f.identity, wednesday)
	require.NoError(t, err)

	assert.Equal(t, 4, got.WeeklyMealsLogged)
	assert.Equal(t, 2, got.WeeklyUniqueDays)
	assert.Equal(t, 1, got.StreakDays)
}

func TestCollect_WindowsNeverExceedAllTime(t *testing.T) {
	f := newFixture()
	f.meals("2023-11-30", "2023-12-31", "2024-01-01", "2024-01-07", "2024-01-08", "2024-01-14", "2024-01-15", "2024-01-21", "2024-02-01")

	for day := 0; day < 45; day++ {
		now := time.Date(2023, 12, 20, 8, 0, 0, 0, time.UTC).AddDate(0, 0, day)

		got, err := f.collector().Collect(context.Background(), &f.identity, now)
		require.NoError(t, err)

		assert.LessOrEqual(t, got.WeeklyMealsLogged, got.MealsLogged, now)
		assert.LessOrEqual(t, got.MonthlyMealsLogged, got.MealsLogged, now)
		assert.LessOrEqual(t, got.WeeklyGreenRecipes, got.GreenRecipes, now)
		assert.LessOrEqual(t, got.MonthlyGreenRecipes, got.GreenRecipes, now)
		assert.LessOrEqual(t, got.WeeklyUniqueDays, got.DaysTracked, now)
	}
}

func TestCollect_FailedReadDefaultsOnlyItsStats(t *testing.T) {
	f := newFixture()
	f.store.AddMeal(f.identity.PublicUserID, "2024-01-17", "eco")
	f.store.AddMeal(f.identity.PublicUserID, "2024-01-16", "eco")
	f.store.FailOn["ListLoggedMealsWithTags"] = errors.New("relation \"RecipeTag\" does not exist")

	got, err := f.collector().Collect(context.Background(), &f.identity, wednesday)
	require.NoError(t, err)

	assert.Zero(t, got.GreenRecipes)
	assert.Zero(t, got.WeeklyGreenRecipes)
	assert.Zero(t, got.MonthlyGreenRecipes)
	assert.Equal(t, 2, got.MealsLogged)
	assert.Equal(t, 2, got.WeeklyMealsLogged)
	assert.Equal(t, 2, got.StreakDays)
}

func TestCollect_EveryReadFails(t *testing.T) {
	f := newFixture()
	f.meals("2024-01-17")
	boom := errors.New("connection reset")
	for _, method := range []string{"CountLoggedMeals", "ListLoggedMealDates", "ListLoggedMealsWithTags", "ListNutrientDates", "CountNutrientEntries"} {
		f.store.FailOn[method] = boom
	}

	got, err := f.collector().Collect(context.Background(), &f.identity, wednesday)

	require.NoError(t, err)
	assert.Equal(t, stats.UserStats{}, got)
}

func TestCollect_NoMealsMeansNoPercentage(t *testing.T) {
	f := newFixture()
	f.store.AddNutrientDate(f.identity.AuthUserID, "2024-01-02")

	got, err := f.collector().Collect(context.Background(), &f.identity, wednesday)
	require.NoError(t, err)

	assert.Equal(t, 1, got.NutrientAwareMeals)
	assert.Zero(t, got.NutrientAwarePercentage)
}

func TestCollect_CanceledContext(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.collector().Collect(ctx, &f.identity, wednesday)

	assert.ErrorIs(t, err, context.Canceled)
}
