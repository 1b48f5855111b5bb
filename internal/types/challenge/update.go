package challenge

import "time"

// Optional carries a value together with a presence flag, so an absent field
// can be told apart from a zero value.
type Optional[T any] struct {
	Value T
	Set   bool
}

func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// ChallengeUpdate is a partial update. Only fields with Set == true are applied.
// Status changes go through the lifecycle governor instead.
type ChallengeUpdate struct {
	Title       Optional[string]
	Description Optional[string]
	Type        Optional[string]
	Frequency   Optional[Frequency]
	StartDate   Optional[time.Time]
	EndDate     Optional[time.Time]
	TargetValue Optional[float64]
}

// Apply returns a copy of c with the present fields overwritten.
func (u ChallengeUpdate) Apply(c Challenge) Challenge {
	if u.Title.Set {
		c.Title = u.Title.Value
	}
	if u.Description.Set {
		c.Description = u.Description.Value
	}
	if u.Type.Set {
		c.Type = u.Type.Value
	}
	if u.Frequency.Set {
		c.Frequency = u.Frequency.Value
	}
	if u.StartDate.Set {
		c.StartDate = u.StartDate.Value
	}
	if u.EndDate.Set {
		c.EndDate = u.EndDate.Value
	}
	if u.TargetValue.Set {
		c.TargetValue = u.TargetValue.Value
	}
	return c
}

// Empty reports whether the update carries no fields.
func (u ChallengeUpdate) Empty() bool {
	return !u.Title.Set && !u.Description.Set && !u.Type.Set && !u.Frequency.Set &&
		!u.StartDate.Set && !u.EndDate.Set && !u.TargetValue.Set
}
