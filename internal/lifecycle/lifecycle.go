// Package lifecycle owns the challenge status state machine and the
// auto-transition rules evaluated after each metrics recomputation.
package lifecycle

import (
	"time"

	"wellnessAPI/internal/apperrors"
	"wellnessAPI/internal/types/challenge"
	"wellnessAPI/utils"
)

const DefaultInactivityThresholdDays = 14

// transitions is the table of legal manual status changes.
var transitions = map[challenge.Status][]challenge.Status{
	challenge.StatusActive:    {challenge.StatusCompleted, challenge.StatusAbandoned},
	challenge.StatusCompleted: {challenge.StatusActive},
	challenge.StatusAbandoned: {challenge.StatusActive},
}

// Reason explains why an auto-transition fired.
type Reason string

const (
	ReasonNone              Reason = ""
	ReasonCompletedAfterEnd Reason = "completed_after_end"
	ReasonLapsed            Reason = "lapsed"
	ReasonInactive          Reason = "inactive"
	ReasonNeverStarted      Reason = "never_started"
)

type Config struct {
	InactivityThresholdDays int
}

func DefaultConfig() Config {
	return Config{InactivityThresholdDays: DefaultInactivityThresholdDays}
}

type Governor struct {
	cfg Config
}

func NewGovernor(cfg Config) *Governor {
	if cfg.InactivityThresholdDays <= 0 {
		cfg.InactivityThresholdDays = DefaultInactivityThresholdDays
	}
	return &Governor{cfg: cfg}
}

func (g *Governor) Config() Config {
	return g.cfg
}

// CanTransition reports whether from -> to is in the transition table.
// Self-transitions are never legal.
func CanTransition(from, to challenge.Status) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition validates a manual status change and returns the new status.
func (g *Governor) Transition(from, to challenge.Status) (challenge.Status, error) {
	if !CanTransition(from, to) {
		return from, &apperrors.TransitionError{From: string(from), To: string(to)}
	}
	return to, nil
}

// Input is what the governor needs to decide on an auto-transition.
type Input struct {
	Status               challenge.Status
	CompletionPercentage int
	EndDate              time.Time
	CreatedAt            time.Time
	// LastActivity is the date of the most recent progress entry, nil when
	// the challenge has none.
	LastActivity *time.Time
}

type Decision struct {
	Status  challenge.Status
	Changed bool
	Reason  Reason
}

// Evaluate applies the auto-transition rules. Only active challenges move.
// Auto-complete is checked first and auto-abandon only when it did not fire.
func (g *Governor) Evaluate(in Input, now time.Time) Decision {
	unchanged := Decision{Status: in.Status}
	if in.Status != challenge.StatusActive {
		return unchanged
	}

	pastEnd := utils.IsAfterDay(now, in.EndDate)

	if pastEnd && in.CompletionPercentage == 100 {
		return Decision{Status: challenge.StatusCompleted, Changed: true, Reason: ReasonCompletedAfterEnd}
	}

	if reason := g.abandonReason(in, now, pastEnd); reason != ReasonNone {
		return Decision{Status: challenge.StatusAbandoned, Changed: true, Reason: reason}
	}

	return unchanged
}

func (g *Governor) abandonReason(in Input, now time.Time, pastEnd bool) Reason {
	switch {
	case pastEnd:
		return ReasonLapsed
	case in.LastActivity != nil && utils.DaysBetween(*in.LastActivity, now) > g.cfg.InactivityThresholdDays:
		return ReasonInactive
	case in.LastActivity == nil && utils.DaysBetween(in.CreatedAt, now) > g.cfg.InactivityThresholdDays:
		return ReasonNeverStarted
	}
	return ReasonNone
}
