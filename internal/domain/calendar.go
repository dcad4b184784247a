/**
 * @description
 * Civil-date arithmetic for billing due dates.
 */
package domain

import (
	"fmt"
	"time"
)

// DateLayout is the civil-date format used on the wire and in SQL parameters.
const DateLayout = "2006-01-02"

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ResolveDueDate returns the due date for a billing day in the target month,
// clamped to the month's last day, at local midnight.
func ResolveDueDate(billingDay, month, year int, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	last := LastDayOfMonth(year, time.Month(month))
	day := billingDay
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns the last nanosecond of t's day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// IsLastDayOfMonth reports whether t falls on the last day of its month.
func IsLastDayOfMonth(t time.Time) bool {
	return t.Day() == LastDayOfMonth(t.Year(), t.Month())
}

// NextMonth returns the month and year following t.
func NextMonth(t time.Time) (int, int) {
	if t.Month() == time.December {
		return 1, t.Year() + 1
	}
	return int(t.Month()) + 1, t.Year()
}

// SameDay reports whether a and b share a civil date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateOnly renders the civil date of t.
func DateOnly(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDate accepts a civil date or an RFC 3339 timestamp and returns the
// civil date at midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(DateLayout, value, loc); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", value)
	}
	return StartOfDay(t.In(loc)), nil
}
