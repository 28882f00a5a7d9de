package stats

// Metric names used by challenge and achievement criteria.
const (
	MealsLogged             = "meals_logged"
	GreenRecipes            = "green_recipes"
	NutrientGoalDays        = "nutrient_goal_days"
	StreakDays              = "streak_days"
	DaysTracked             = "days_tracked"
	DashboardViews          = "dashboard_views"
	NutrientAwarePercentage = "nutrient_aware_percentage"
	TotalMeals              = "total_meals"
	NutrientAwareMeals      = "nutrient_aware_meals"

	WeeklyMealsLogged       = "weekly_meals_logged"
	WeeklyGreenRecipes      = "weekly_green_recipes"
	WeeklyUniqueDays        = "weekly_unique_days"
	MonthlyMealsLogged      = "monthly_meals_logged"
	MonthlyGreenRecipes     = "monthly_green_recipes"
	MonthlyNutrientGoalDays = "monthly_nutrient_goal_days"
)

// UserStats is recomputed from raw activity on every request and never persisted.
// Weekly and monthly counters are subsets of their all-time counterparts.
type UserStats struct {
	MealsLogged             int `json:"meals_logged"`
	GreenRecipes            int `json:"green_recipes"`
	NutrientGoalDays        int `json:"nutrient_goal_days"`
	StreakDays              int `json:"streak_days"`
	DaysTracked             int `json:"days_tracked"`
	DashboardViews          int `json:"dashboard_views"`
	NutrientAwareMeals      int `json:"nutrient_aware_meals"`
	NutrientAwarePercentage int `json:"nutrient_aware_percentage"`
	TotalMeals              int `json:"total_meals"`

	WeeklyMealsLogged  int `json:"weekly_meals_logged"`
	WeeklyGreenRecipes int `json:"weekly_green_recipes"`
	WeeklyUniqueDays   int `json:"weekly_unique_days"`

	MonthlyMealsLogged      int `json:"monthly_meals_logged"`
	MonthlyGreenRecipes     int `json:"monthly_green_recipes"`
	MonthlyNutrientGoalDays int `json:"monthly_nutrient_goal_days"`
}

// Lookup returns the counter stored under a metric name, or 0 for unknown names.
func (s UserStats) Lookup(metric string) int {
	switch metric {
	case MealsLogged:
		return s.MealsLogged
	case GreenRecipes:
		return s.GreenRecipes
	case NutrientGoalDays:
		return s.NutrientGoalDays
	case StreakDays:
		return s.StreakDays
	case DaysTracked:
		return s.DaysTracked
	case DashboardViews:
		return s.DashboardViews
	case NutrientAwareMeals:
		return s.NutrientAwareMeals
	case NutrientAwarePercentage:
		return s.NutrientAwarePercentage
	case TotalMeals:
		return s.TotalMeals
	case WeeklyMealsLogged:
		return s.WeeklyMealsLogged
	case WeeklyGreenRecipes:
		return s.WeeklyGreenRecipes
	case WeeklyUniqueDays:
		return s.WeeklyUniqueDays
	case MonthlyMealsLogged:
		return s.MonthlyMealsLogged
	case MonthlyGreenRecipes:
		return s.MonthlyGreenRecipes
	case MonthlyNutrientGoalDays:
		return s.MonthlyNutrientGoalDays
	default:
		return 0
	}
}
