package challenge

import (
	"time"

	"github.com/google/uuid"
)

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusAbandoned Status = "abandoned"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusAbandoned:
		return true
	}
	return false
}

// Challenge is a recurring goal. StartDate and EndDate are calendar dates and
// the range is inclusive.
type Challenge struct {
	ID          uuid.UUID `json:"id" db:"id"`
	OwnerID     string    `json:"owner_id" db:"owner_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Type        string    `json:"type" db:"type"`
	Frequency   Frequency `json:"frequency" db:"frequency"`
	StartDate   time.Time `json:"start_date" db:"start_date"`
	EndDate     time.Time `json:"end_date" db:"end_date"`
	TargetValue float64   `json:"target_value" db:"target_value"`
	Status      Status    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ProgressEntry is the single record for one (challenge, date) pair.
type ProgressEntry struct {
	ID          uuid.UUID `json:"id" db:"id"`
	ChallengeID uuid.UUID `json:"challenge_id" db:"challenge_id"`
	Date        time.Time `json:"date" db:"date"`
	Value       float64   `json:"value" db:"value"`
	Note        *string   `json:"note,omitempty" db:"note"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Satisfies reports whether the entry meets the challenge target for its period.
func (e ProgressEntry) Satisfies(target float64) bool {
	return e.Value >= target
}

// DerivedMetrics is recomputed on demand from a challenge and its entries.
type DerivedMetrics struct {
	TotalPeriods         int        `json:"total_periods"`
	CompletedPeriods     int        `json:"completed_periods"`
	CompletionPercentage int        `json:"completion_percentage"`
	DaysRemaining        int        `json:"days_remaining"`
	CurrentStreak        int        `json:"current_streak"`
	LongestStreak        int        `json:"longest_streak"`
	LastCompletedDate    *time.Time `json:"last_completed_date"`
}

// EnrichedChallenge is a challenge merged with its metrics at an evaluation instant.
type EnrichedChallenge struct {
	Challenge
	DerivedMetrics
	StatusChanged bool     `json:"status_changed"`
	Warnings      []string `json:"warnings,omitempty"`
}
