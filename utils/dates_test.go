package utils

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMidnight(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	pacific := time.FixedZone("UTC-8", -8*60*60)
	kiritimati := time.FixedZone("UTC+14", 14*60*60)

	tests := []struct {
		name string
		in   time.Time
		want string
	}{
		{"utc midnight", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), "2024-01-05"},
		{"late evening west of utc", time.Date(2024, 1, 5, 23, 30, 0, 0, pacific), "2024-01-05"},
		{"early morning east of utc", time.Date(2024, 1, 5, 0, 15, 0, 0, kiritimati), "2024-01-05"},
		{"new york before dst", time.Date(2024, 3, 10, 1, 59, 0, 0, newYork), "2024-03-10"},
		{"new york after dst", time.Date(2024, 3, 10, 3, 1, 0, 0, newYork), "2024-03-10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Midnight(tt.in)
			assert.Equal(t, MustDate(tt.want), got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestDaysBetween(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	pacific := time.FixedZone("UTC-8", -8*60*60)

	tests := []struct {
		name string
		a, b time.Time
		want int
	}{
		{"same day", MustDate("2024-01-05"), MustDate("2024-01-05"), 0},
		{"forward", MustDate("2024-01-01"), MustDate("2024-01-10"), 9},
		{"backward", MustDate("2024-01-10"), MustDate("2024-01-01"), -9},
		{"leap day", MustDate("2024-02-28"), MustDate("2024-03-01"), 2},
		{"late evening to next morning", time.Date(2024, 1, 5, 23, 59, 0, 0, pacific), time.Date(2024, 1, 6, 0, 1, 0, 0, pacific), 1},
		{"same local day spanning utc midnight", time.Date(2024, 1, 5, 8, 0, 0, 0, pacific), time.Date(2024, 1, 5, 23, 0, 0, 0, pacific), 0},
		{"across spring forward", time.Date(2024, 3, 9, 23, 0, 0, 0, newYork), time.Date(2024, 3, 11, 1, 0, 0, 0, newYork), 2},
		{"across fall back", time.Date(2024, 11, 2, 12, 0, 0, 0, newYork), time.Date(2024, 11, 4, 12, 0, 0, 0, newYork), 2},
		{"mixed zones compare calendar dates", time.Date(2024, 1, 5, 23, 0, 0, 0, pacific), MustDate("2024-01-06"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DaysBetween(tt.a, tt.b))
		})
	}
}

func TestIsAfterDayIgnoresTimeOfDay(t *testing.T) {
	morning := time.Date(2024, 1, 5, 6, 0, 0, 0, time.UTC)
	evening := time.Date(2024, 1, 5, 22, 0, 0, 0, time.UTC)

	assert.False(t, IsAfterDay(evening, morning))
	assert.True(t, IsAfterDay(MustDate("2024-01-06"), evening))
}

func TestParseAndFormatDate(t *testing.T) {
	d, err := ParseDate("2024-02-29")
	require.NoError(t, err)
	assert.Equal(t, "2024-02-29", FormatDate(d))

	for _, bad := range []string{"", "2024-2-29", "29/02/2024", "2023-02-29"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}

	assert.Panics(t, func() { MustDate("yesterday") })
}
