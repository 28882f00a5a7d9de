// Package datewindow holds the calendar-boundary helpers used to scope
// activity into "this week" and "this month" windows.
//
// All functions operate on the location carried by the time value they are
// given, so callers decide what "local" means by converting "now" first.
package datewindow

import (
	"fmt"
	"math"
	"time"
)

const (
	RecurrenceWeekly  = "weekly"
	RecurrenceMonthly = "monthly"

	day = 24 * time.Hour
)

// StartOfWeek returns the Monday of t's week at local midnight.
// Sunday is treated as the seventh day of the week that started six days earlier.
func StartOfWeek(t time.Time) time.Time {
	weekday := int(t.Weekday())
	offset := weekday - 1
	if weekday == 0 {
		offset = 6
	}
	y, m, d := t.Date()
	return time.Date(y, m, d-offset, 0, 0, 0, 0, t.Location())
}

// EndOfWeek returns the Sunday of t's week at 23:59:59.999.
func EndOfWeek(t time.Time) time.Time {
	start := StartOfWeek(t)
	y, m, d := start.Date()
	return time.Date(y, m, d+6, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

func StartOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, t.Location())
}

// EndOfMonth returns the last day of t's month at 23:59:59.999.
func EndOfMonth(t time.Time) time.Time {
	y, m, _ := t.Date()
	// day 0 of the next month normalizes to the last day of this one
	return time.Date(y, m+1, 0, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// ToDateString formats t as YYYY-MM-DD using its local calendar fields.
// Activity dates are persisted in this format and window membership is a
// plain string comparison against it.
func ToDateString(t time.Time) string {
	y, m, d := t.Date()
	return fmt.Sprintf("%04d-%02d-%02d", y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string as midnight in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(time.DateOnly, s, loc)
}

// DaysRemaining reports how many days are left before a definition closes.
// An explicit end date wins; otherwise weekly and monthly recurrences run
// until the end of the current week or month. Anything else has no deadline
// and reports 0.
func DaysRemaining(endDate *time.Time, recurrence string, now time.Time) int {
	switch {
	case endDate != nil:
		return ceilDays(endDate.Sub(now))
	case recurrence == RecurrenceWeekly:
		return ceilDays(EndOfWeek(now).Sub(now))
	case recurrence == RecurrenceMonthly:
		return ceilDays(EndOfMonth(now).Sub(now))
	default:
		return 0
	}
}

func ceilDays(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(float64(d) / float64(day)))
}
