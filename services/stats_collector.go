package services

import (
	"context"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"epicourierAPI/internal/datewindow"
	"epicourierAPI/internal/stats"
	"epicourierAPI/internal/streak"
	"epicourierAPI/internal/types/user"
)

// StatsCollector builds a UserStats snapshot from raw activity rows.
type StatsCollector struct {
	store ActivityStore
}

func NewStatsCollector(store ActivityStore) *StatsCollector {
	return &StatsCollector{store: store}
}

// Collect issues the activity reads concurrently and derives every counter.
//
// A failed read is logged and leaves the stats it feeds at zero; the rest of
// the snapshot is still returned. The only error is a done context.
func (c *StatsCollector) Collect(ctx context.Context, identity *user.Identity, now time.Time) (stats.UserStats, error) {
	var s stats.UserStats

	weekStart := datewindow.ToDateString(datewindow.StartOfWeek(now))
	monthStart := datewindow.ToDateString(datewindow.StartOfMonth(now))

	// each goroutine owns a disjoint set of fields on s
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		count, err := c.store.CountLoggedMeals(gctx, identity.PublicUserID)
		if err != nil {
			statUnavailable("meals_logged", identity, err)
			return nil
		}
		s.MealsLogged = count
		s.TotalMeals = count
		return nil
	})

	g.Go(func() error {
		dates, err := c.store.ListLoggedMealDates(gctx, identity.PublicUserID)
		if err != nil {
			statUnavailable("meal_dates", identity, err)
			return nil
		}

		unique := make(map[string]struct{}, len(dates))
		weekDays := make(map[string]struct{})
		for _, d := range dates {
			if d == "" {
				continue
			}
			unique[d] = struct{}{}
			if d >= weekStart {
				s.WeeklyMealsLogged++
				weekDays[d] = struct{}{}
			}
			if d >= monthStart {
				s.MonthlyMealsLogged++
			}
		}

		distinct := make([]string, 0, len(unique))
		for d := range unique {
			distinct = append(distinct, d)
		}

		s.WeeklyUniqueDays = len(weekDays)
		s.DaysTracked = len(distinct)
		s.StreakDays = streak.Calculate(distinct, now)
		return nil
	})

	g.Go(func() error {
		meals, err := c.store.ListLoggedMealsWithTags(gctx, identity.PublicUserID)
		if err != nil {
			statUnavailable("green_recipes", identity, err)
			return nil
		}

		for _, meal := range meals {
			if !meal.IsGreen() {
				continue
			}
			s.GreenRecipes++
			if meal.OnOrAfter(weekStart) {
				s.WeeklyGreenRecipes++
			}
			if meal.OnOrAfter(monthStart) {
				s.MonthlyGreenRecipes++
			}
		}
		return nil
	})

	g.Go(func() error {
		dates, err := c.store.ListNutrientDates(gctx, identity.AuthUserID, monthStart)
		if err != nil {
			statUnavailable("nutrient_goal_days", identity, err)
			return nil
		}

		distinct := make(map[string]struct{}, len(dates))
		for _, d := range dates {
			distinct[d] = struct{}{}
		}
		s.MonthlyNutrientGoalDays = len(distinct)
		// the all-time figure tracks the monthly one
		s.NutrientGoalDays = s.MonthlyNutrientGoalDays
		return nil
	})

	var nutrientEntries int
	g.Go(func() error {
		count, err := c.store.CountNutrientEntries(gctx, identity.AuthUserID)
		if err != nil {
			statUnavailable("nutrient_entries", identity, err)
			return nil
		}
		nutrientEntries = count
		return nil
	})

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return stats.UserStats{}, err
	}

	s.DashboardViews = nutrientEntries
	s.NutrientAwareMeals = nutrientEntries
	if s.TotalMeals > 0 {
		s.NutrientAwarePercentage = int(math.Round(float64(s.NutrientAwareMeals) / float64(s.TotalMeals) * 100))
	}

	return s, nil
}

func statUnavailable(stat string, identity *user.Identity, err error) {
	statReadFailures.WithLabelValues(stat).Inc()
	log.Printf("Stats Collector: %s unavailable for user %s, defaulting to 0: %v", stat, identity.AuthUserID, err)
}
