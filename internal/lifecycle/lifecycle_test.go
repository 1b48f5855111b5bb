package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellnessAPI/internal/apperrors"
	"wellnessAPI/internal/types/challenge"
	"wellnessAPI/utils"
)

func TestTransitionTable(t *testing.T) {
	g := NewGovernor(DefaultConfig())

	legal := []struct{ from, to challenge.Status }{
		{challenge.StatusActive, challenge.StatusCompleted},
		{challenge.StatusActive, challenge.StatusAbandoned},
		{challenge.StatusCompleted, challenge.StatusActive},
		{challenge.StatusAbandoned, challenge.StatusActive},
	}
	for _, tt := range legal {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			got, err := g.Transition(tt.from, tt.to)
			require.NoError(t, err)
			assert.Equal(t, tt.to, got)
		})
	}

	illegal := []struct{ from, to challenge.Status }{
		{challenge.StatusCompleted, challenge.StatusAbandoned},
		{challenge.StatusAbandoned, challenge.StatusCompleted},
		{challenge.StatusActive, challenge.StatusActive},
		{challenge.StatusCompleted, challenge.StatusCompleted},
		{challenge.StatusAbandoned, challenge.StatusAbandoned},
		{challenge.StatusActive, "paused"},
	}
	for _, tt := range illegal {
		t.Run(string(tt.from)+"-x->"+string(tt.to), func(t *testing.T) {
			got, err := g.Transition(tt.from, tt.to)
			require.Error(t, err)
			assert.Equal(t, tt.from, got)

			var terr *apperrors.TransitionError
			require.ErrorAs(t, err, &terr)
			assert.Equal(t, string(tt.from), terr.From)
			assert.Equal(t, string(tt.to), terr.To)
		})
	}
}

func activeInput(end string, pct int, last *time.Time) Input {
	return Input{
		Status:               challenge.StatusActive,
		CompletionPercentage: pct,
		EndDate:              utils.MustDate(end),
		CreatedAt:            utils.MustDate("2024-01-01"),
		LastActivity:         last,
	}
}

func datePtr(s string) *time.Time {
	d := utils.MustDate(s)
	return &d
}

func TestEvaluate(t *testing.T) {
	g := NewGovernor(DefaultConfig())

	tests := []struct {
		name    string
		in      Input
		now     string
		status  challenge.Status
		changed bool
		reason  Reason
	}{
		{
			name:   "within window and recently active",
			in:     activeInput("2024-01-10", 50, datePtr("2024-01-05")),
			now:    "2024-01-05",
			status: challenge.StatusActive,
		},
		{
			name:   "on the end date is not past end",
			in:     activeInput("2024-01-10", 100, datePtr("2024-01-10")),
			now:    "2024-01-10",
			status: challenge.StatusActive,
		},
		{
			name:    "past end at 100 percent completes",
			in:      activeInput("2024-01-10", 100, datePtr("2024-01-10")),
			now:     "2024-01-20",
			status:  challenge.StatusCompleted,
			changed: true,
			reason:  ReasonCompletedAfterEnd,
		},
		{
			name:    "complete wins over inactivity",
			in:      activeInput("2024-01-10", 100, datePtr("2024-01-01")),
			now:     "2024-03-01",
			status:  challenge.StatusCompleted,
			changed: true,
			reason:  ReasonCompletedAfterEnd,
		},
		{
			name:    "past end below 100 percent abandons",
			in:      activeInput("2024-01-10", 50, datePtr("2024-01-05")),
			now:     "2024-01-20",
			status:  challenge.StatusAbandoned,
			changed: true,
			reason:  ReasonLapsed,
		},
		{
			name:    "inactive for more than fourteen days",
			in:      activeInput("2024-12-31", 10, datePtr("2024-01-05")),
			now:     "2024-01-20",
			status:  challenge.StatusAbandoned,
			changed: true,
			reason:  ReasonInactive,
		},
		{
			name:   "inactive for exactly fourteen days stays active",
			in:     activeInput("2024-12-31", 10, datePtr("2024-01-05")),
			now:    "2024-01-19",
			status: challenge.StatusActive,
		},
		{
			name:    "no entries and created more than fourteen days ago",
			in:      activeInput("2024-12-31", 0, nil),
			now:     "2024-01-16",
			status:  challenge.StatusAbandoned,
			changed: true,
			reason:  ReasonNeverStarted,
		},
		{
			name:   "no entries and recently created",
			in:     activeInput("2024-12-31", 0, nil),
			now:    "2024-01-15",
			status: challenge.StatusActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := g.Evaluate(tt.in, utils.MustDate(tt.now))
			assert.Equal(t, tt.status, d.Status)
			assert.Equal(t, tt.changed, d.Changed)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestEvaluateOnlyMovesActiveChallenges(t *testing.T) {
	g := NewGovernor(DefaultConfig())

	for _, status := range []challenge.Status{challenge.StatusCompleted, challenge.StatusAbandoned} {
		in := activeInput("2024-01-10", 10, nil)
		in.Status = status

		d := g.Evaluate(in, utils.MustDate("2024-06-01"))
		assert.Equal(t, status, d.Status)
		assert.False(t, d.Changed)
	}
}

func TestEvaluateCustomThreshold(t *testing.T) {
	g := NewGovernor(Config{InactivityThresholdDays: 3})

	d := g.Evaluate(activeInput("2024-12-31", 10, datePtr("2024-01-05")), utils.MustDate("2024-01-09"))
	assert.Equal(t, challenge.StatusAbandoned, d.Status)
	assert.Equal(t, ReasonInactive, d.Reason)

	assert.Equal(t, DefaultInactivityThresholdDays, NewGovernor(Config{}).Config().InactivityThresholdDays)
}
