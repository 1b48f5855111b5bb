package accounting

import (
	"sort"
	"time"

	"wellnessAPI/internal/types/challenge"
	"wellnessAPI/internal/types/streak"
	"wellnessAPI/utils"
)

// ComputeStreak walks the entries for the current and longest runs of
// consecutive satisfied days.
//
// The current streak only counts when the most recent entry is dated today or
// yesterday relative to now. LastCompletedDate is the most recent satisfied
// entry, whether or not it is part of the current streak.
func ComputeStreak(entries []challenge.ProgressEntry, target float64, now time.Time) streak.Streak {
	var result streak.Streak
	if len(entries) == 0 {
		return result
	}

	sorted := make([]challenge.ProgressEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	for _, e := range sorted {
		if e.Satisfies(target) {
			d := utils.Midnight(e.Date)
			result.LastCompletedDate = &d
			break
		}
	}

	result.CurrentStreak = currentStreak(sorted, target, now)
	result.LongestStreak = longestStreak(sorted, target)
	return result
}

// currentStreak expects entries sorted newest first.
func currentStreak(desc []challenge.ProgressEntry, target float64, now time.Time) int {
	sinceLatest := utils.DaysBetween(desc[0].Date, now)
	if sinceLatest != 0 && sinceLatest != 1 {
		return 0
	}

	count := 0
	for i, e := range desc {
		if !e.Satisfies(target) {
			break
		}
		if i > 0 && utils.DaysBetween(e.Date, desc[i-1].Date) != 1 {
			break
		}
		count++
	}
	return count
}

// longestStreak expects entries sorted newest first and scans them oldest first.
func longestStreak(desc []challenge.ProgressEntry, target float64) int {
	longest, run := 0, 0
	for i := len(desc) - 1; i >= 0; i-- {
		e := desc[i]
		if i < len(desc)-1 && utils.DaysBetween(desc[i+1].Date, e.Date) > 1 {
			run = 0
		}
		if !e.Satisfies(target) {
			run = 0
			continue
		}
		run++
		if run > longest {
			longest = run
		}
	}
	return longest
}
