package streak

import (
	"sort"
	"time"

	"epicourierAPI/internal/datewindow"
)

// Calculate returns the current consecutive-day streak for a set of
// YYYY-MM-DD activity dates.
//
// The streak stays alive while the most recent activity is today or
// yesterday relative to now; it does not have to include today. Duplicate
// and unparseable dates are ignored.
func Calculate(dates []string, now time.Time) int {
	days := uniqueDays(dates)
	if len(days) == 0 {
		return 0
	}

	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	if daysBetween(days[0], today) > 1 {
		return 0
	}

	count := 1
	for i := 1; i < len(days); i++ {
		if daysBetween(days[i], days[i-1]) != 1 {
			break
		}
		count++
	}

	return count
}

// uniqueDays parses dates as UTC calendar days so that day arithmetic is
// never skewed by DST transitions in the caller's location.
func uniqueDays(dates []string) []time.Time {
	seen := make(map[string]struct{}, len(dates))
	days := make([]time.Time, 0, len(dates))

	for _, s := range dates {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}

		t, err := datewindow.ParseDate(s, time.UTC)
		if err != nil {
			continue
		}
		days = append(days, t)
	}

	return days
}

func daysBetween(earlier, later time.Time) int {
	return int(later.Sub(earlier) / (24 * time.Hour))
}
