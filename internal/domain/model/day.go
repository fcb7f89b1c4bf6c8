// Package model defines the records exchanged between the roomrate pipeline stages and the stores.
package model

import (
	"strings"
	"time"
)

// Day truncates t to midnight UTC of its calendar date.
// Every stay date in the pipeline is normalised with Day so dates compare with ==.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DayIn converts t into loc first, then truncates it like Day.
func DayIn(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		return Day(t)
	}
	return Day(t.In(loc))
}

// ParseDay parses an ISO date (YYYY-MM-DD).
func ParseDay(s string) (time.Time, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return Day(t), nil
}

// FormatDay renders a stay date as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(time.DateOnly)
}

// DayOfWeek returns the weekday index with Monday=0 and Sunday=6.
func DayOfWeek(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
