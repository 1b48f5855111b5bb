// Package accounting derives progress metrics from a challenge and its daily
// progress entries. Everything here is pure: no I/O, no shared state, and
// malformed ranges degrade to zero values instead of failing.
package accounting

import (
	"math"
	"time"

	"wellnessAPI/internal/types/challenge"
	"wellnessAPI/utils"
)

// Strategy selects how satisfied entries are turned into completed periods.
type Strategy string

const (
	// StrategyEntries counts every satisfied entry as one completed period,
	// regardless of frequency. For weekly and monthly challenges this can
	// exceed the number of periods.
	StrategyEntries Strategy = "entries"
	// StrategyPeriods buckets satisfied entries into their period and counts
	// each period at most once.
	StrategyPeriods Strategy = "periods"
)

func (s Strategy) Valid() bool {
	return s == StrategyEntries || s == StrategyPeriods
}

const (
	DefaultMonthLengthDays = 30
	weekLengthDays         = 7
)

type Config struct {
	MonthLengthDays int
	Strategy        Strategy
}

func DefaultConfig() Config {
	return Config{
		MonthLengthDays: DefaultMonthLengthDays,
		Strategy:        StrategyEntries,
	}
}

type Accountant struct {
	cfg Config
}

// New builds an Accountant. Zero-valued config fields fall back to defaults.
func New(cfg Config) *Accountant {
	if cfg.MonthLengthDays <= 0 {
		cfg.MonthLengthDays = DefaultMonthLengthDays
	}
	if !cfg.Strategy.Valid() {
		cfg.Strategy = StrategyEntries
	}
	return &Accountant{cfg: cfg}
}

func (a *Accountant) Config() Config {
	return a.cfg
}

// periodLength returns the number of days in one period of f. Unknown
// frequencies are treated as daily.
func (a *Accountant) periodLength(f challenge.Frequency) int {
	switch f {
	case challenge.FrequencyWeekly:
		return weekLengthDays
	case challenge.FrequencyMonthly:
		return a.cfg.MonthLengthDays
	default:
		return 1
	}
}

// WindowDays is the inclusive day count of the challenge window, or 0 when
// the range is inverted.
func WindowDays(c *challenge.Challenge) int {
	days := utils.DaysBetween(c.StartDate, c.EndDate) + 1
	if days < 0 {
		return 0
	}
	return days
}

// TotalPeriods returns the number of frequency-aligned periods in the window.
// Months are a fixed MonthLengthDays long.
func (a *Accountant) TotalPeriods(c *challenge.Challenge) int {
	days := WindowDays(c)
	if days == 0 {
		return 0
	}
	length := a.periodLength(c.Frequency)
	return (days + length - 1) / length
}

// CompletedPeriods counts satisfied entries inside [StartDate, EndDate]
// according to the configured strategy.
func (a *Accountant) CompletedPeriods(c *challenge.Challenge, entries []challenge.ProgressEntry) int {
	if WindowDays(c) == 0 {
		return 0
	}

	if a.cfg.Strategy == StrategyPeriods {
		length := a.periodLength(c.Frequency)
		buckets := make(map[int]struct{})
		for _, e := range entries {
			if !inWindow(c, e.Date) || !e.Satisfies(c.TargetValue) {
				continue
			}
			buckets[utils.DaysBetween(c.StartDate, e.Date)/length] = struct{}{}
		}
		return len(buckets)
	}

	completed := 0
	for _, e := range entries {
		if inWindow(c, e.Date) && e.Satisfies(c.TargetValue) {
			completed++
		}
	}
	return completed
}

// CompletionPercentage returns round(completed / total * 100), capped at 100.
// A challenge with no periods is always at 0.
func (a *Accountant) CompletionPercentage(c *challenge.Challenge, entries []challenge.ProgressEntry) int {
	return percentage(a.CompletedPeriods(c, entries), a.TotalPeriods(c))
}

func percentage(completed, total int) int {
	if total == 0 {
		return 0
	}
	pct := int(math.Round(float64(completed) / float64(total) * 100))
	if pct > 100 {
		return 100
	}
	return pct
}

// DaysRemaining is the inclusive day count from now to EndDate, or 0 once
// now is past EndDate.
func DaysRemaining(c *challenge.Challenge, now time.Time) int {
	if utils.IsAfterDay(now, c.EndDate) {
		return 0
	}
	return utils.DaysBetween(now, c.EndDate) + 1
}

// Compute returns the full metric set for c at now.
func (a *Accountant) Compute(c *challenge.Challenge, entries []challenge.ProgressEntry, now time.Time) challenge.DerivedMetrics {
	total := a.TotalPeriods(c)
	completed := a.CompletedPeriods(c, entries)
	s := ComputeStreak(entries, c.TargetValue, now)

	return challenge.DerivedMetrics{
		TotalPeriods:         total,
		CompletedPeriods:     completed,
		CompletionPercentage: percentage(completed, total),
		DaysRemaining:        DaysRemaining(c, now),
		CurrentStreak:        s.CurrentStreak,
		LongestStreak:        s.LongestStreak,
		LastCompletedDate:    s.LastCompletedDate,
	}
}

func inWindow(c *challenge.Challenge, date time.Time) bool {
	return !utils.IsAfterDay(c.StartDate, date) && !utils.IsAfterDay(date, c.EndDate)
}
