package utils

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the ISO calendar-date format used on the wire.
const DateLayout = "2006-01-02"

// Midnight returns t's calendar date at 00:00 UTC. The calendar date is read
// in t's own location so a late-evening local timestamp stays on its day.
func Midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b (b - a).
func DaysBetween(a, b time.Time) int {
	diff := Midnight(b).Sub(Midnight(a)).Hours() / 24
	return int(math.Round(diff))
}

// IsAfterDay reports whether a falls on a later calendar day than b.
func IsAfterDay(a, b time.Time) bool {
	return DaysBetween(b, a) > 0
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD: %w", s, err)
	}
	return t, nil
}

func FormatDate(t time.Time) string {
	return Midnight(t).Format(DateLayout)
}

// MustDate parses s or panics. Meant for fixtures and tests.
func MustDate(s string) time.Time {
	t, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return t
}
