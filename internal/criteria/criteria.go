// Package criteria turns a declarative challenge or achievement rule plus a
// UserStats snapshot into a current/target progress pair.
package criteria

import "epicourierAPI/internal/stats"

type Type string

const (
	TypeCount     Type = "count"
	TypeStreak    Type = "streak"
	TypeThreshold Type = "threshold"
)

const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// Criteria is stored as JSON on the definition row.
type Criteria struct {
	Type   Type   `json:"type,omitempty"`
	Metric string `json:"metric"`
	Target int    `json:"target"`
	Period string `json:"period,omitempty"`
}

type Progress struct {
	Current int `json:"current"`
	Target  int `json:"target"`
}

// Reached reports whether current has caught up with target.
func (p Progress) Reached() bool {
	return p.Current >= p.Target
}

// Evaluate maps a criteria object onto the matching stat.
//
// Weekly and monthly periods read their windowed counters; any other period
// reads the all-time counter named by the metric. Combinations without a
// windowed counter yield zero. Target is always copied verbatim.
//
// A weekly streak_days rule is measured as distinct active days this week,
// not as consecutive days.
func Evaluate(c Criteria, s stats.UserStats) Progress {
	var current int

	switch c.Period {
	case PeriodWeek:
		switch c.Metric {
		case stats.MealsLogged:
			current = s.WeeklyMealsLogged
		case stats.GreenRecipes:
			current = s.WeeklyGreenRecipes
		case stats.StreakDays:
			current = s.WeeklyUniqueDays
		}
	case PeriodMonth:
		switch c.Metric {
		case stats.MealsLogged:
			current = s.MonthlyMealsLogged
		case stats.GreenRecipes:
			current = s.MonthlyGreenRecipes
		case stats.NutrientGoalDays:
			current = s.MonthlyNutrientGoalDays
		}
	default:
		current = s.Lookup(c.Metric)
	}

	return Progress{Current: current, Target: c.Target}
}

// AllTime drops the period so the rule is evaluated against all-time counters.
// Achievements are never windowed.
func AllTime(c Criteria) Criteria {
	c.Period = ""
	return c
}

// Met reports whether progress satisfies a rule of the given type.
// Unknown types are never met.
func Met(p Progress, t Type) bool {
	switch t {
	case TypeCount, TypeStreak, TypeThreshold:
		return p.Reached()
	default:
		return false
	}
}
