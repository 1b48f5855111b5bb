package challenge

import (
	"time"

	"wellnessAPI/internal/apperrors"
	"wellnessAPI/utils"
)

type CreateChallengeRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	Frequency   Frequency `json:"frequency"`
	StartDate   string    `json:"start_date"`
	EndDate     string    `json:"end_date"`
	TargetValue float64   `json:"target_value"`
}

// UpdateChallengeRequest is a PATCH body. Nil fields are left untouched.
type UpdateChallengeRequest struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Type        *string    `json:"type"`
	Frequency   *Frequency `json:"frequency"`
	StartDate   *string    `json:"start_date"`
	EndDate     *string    `json:"end_date"`
	TargetValue *float64   `json:"target_value"`
}

func (r UpdateChallengeRequest) ToUpdate() (ChallengeUpdate, error) {
	var upd ChallengeUpdate
	if r.Title != nil {
		upd.Title = Some(*r.Title)
	}
	if r.Description != nil {
		upd.Description = Some(*r.Description)
	}
	if r.Type != nil {
		upd.Type = Some(*r.Type)
	}
	if r.Frequency != nil {
		upd.Frequency = Some(*r.Frequency)
	}
	if r.StartDate != nil {
		d, err := utils.ParseDate(*r.StartDate)
		if err != nil {
			return upd, apperrors.Invalid("start_date", err.Error())
		}
		upd.StartDate = Some(d)
	}
	if r.EndDate != nil {
		d, err := utils.ParseDate(*r.EndDate)
		if err != nil {
			return upd, apperrors.Invalid("end_date", err.Error())
		}
		upd.EndDate = Some(d)
	}
	if r.TargetValue != nil {
		upd.TargetValue = Some(*r.TargetValue)
	}
	return upd, nil
}

type UpdateStatusRequest struct {
	Status Status `json:"status"`
}

type UpsertProgressRequest struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
	Note  *string `json:"note"`
}

// ChallengeResponse is the wire form of an EnrichedChallenge. Calendar dates
// are exchanged as YYYY-MM-DD.
type ChallengeResponse struct {
	ID                   string    `json:"id"`
	OwnerID              string    `json:"owner_id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	Type                 string    `json:"type"`
	Frequency            Frequency `json:"frequency"`
	StartDate            string    `json:"start_date"`
	EndDate              string    `json:"end_date"`
	TargetValue          float64   `json:"target_value"`
	Status               Status    `json:"status"`
	CreatedAt            string    `json:"created_at"`
	TotalPeriods         int       `json:"total_periods"`
	CompletedPeriods     int       `json:"completed_periods"`
	CompletionPercentage int       `json:"completion_percentage"`
	DaysRemaining        int       `json:"days_remaining"`
	CurrentStreak        int       `json:"current_streak"`
	LongestStreak        int       `json:"longest_streak"`
	LastCompletedDate    *string   `json:"last_completed_date"`
	StatusChanged        bool      `json:"status_changed"`
	Warnings             []string  `json:"warnings,omitempty"`
}

type MetricsResponse struct {
	ChallengeID          string  `json:"challenge_id"`
	TotalPeriods         int     `json:"total_periods"`
	CompletedPeriods     int     `json:"completed_periods"`
	CompletionPercentage int     `json:"completion_percentage"`
	DaysRemaining        int     `json:"days_remaining"`
	CurrentStreak        int     `json:"current_streak"`
	LongestStreak        int     `json:"longest_streak"`
	LastCompletedDate    *string `json:"last_completed_date"`
}

type ProgressEntryResponse struct {
	ID          string  `json:"id"`
	ChallengeID string  `json:"challenge_id"`
	Date        string  `json:"date"`
	Value       float64 `json:"value"`
	Note        *string `json:"note,omitempty"`
}

type RefreshFailure struct {
	ChallengeID string `json:"challenge_id"`
	Error       string `json:"error"`
}

type BatchResponse struct {
	Challenges []ChallengeResponse `json:"challenges"`
	Failures   []RefreshFailure    `json:"failures"`
}

func NewChallengeResponse(ec *EnrichedChallenge) ChallengeResponse {
	return ChallengeResponse{
		ID:                   ec.ID.String(),
		OwnerID:              ec.OwnerID,
		Title:                ec.Title,
		Description:          ec.Description,
		Type:                 ec.Type,
		Frequency:            ec.Frequency,
		StartDate:            utils.FormatDate(ec.StartDate),
		EndDate:              utils.FormatDate(ec.EndDate),
		TargetValue:          ec.TargetValue,
		Status:               ec.Status,
		CreatedAt:            ec.CreatedAt.UTC().Format(time.RFC3339),
		TotalPeriods:         ec.TotalPeriods,
		CompletedPeriods:     ec.CompletedPeriods,
		CompletionPercentage: ec.CompletionPercentage,
		DaysRemaining:        ec.DaysRemaining,
		CurrentStreak:        ec.CurrentStreak,
		LongestStreak:        ec.LongestStreak,
		LastCompletedDate:    formatOptionalDate(ec.LastCompletedDate),
		StatusChanged:        ec.StatusChanged,
		Warnings:             ec.Warnings,
	}
}

func NewMetricsResponse(id string, m DerivedMetrics) MetricsResponse {
	return MetricsResponse{
		ChallengeID:          id,
		TotalPeriods:         m.TotalPeriods,
		CompletedPeriods:     m.CompletedPeriods,
		CompletionPercentage: m.CompletionPercentage,
		DaysRemaining:        m.DaysRemaining,
		CurrentStreak:        m.CurrentStreak,
		LongestStreak:        m.LongestStreak,
		LastCompletedDate:    formatOptionalDate(m.LastCompletedDate),
	}
}

func NewProgressEntryResponse(e *ProgressEntry) ProgressEntryResponse {
	return ProgressEntryResponse{
		ID:          e.ID.String(),
		ChallengeID: e.ChallengeID.String(),
		Date:        utils.FormatDate(e.Date),
		Value:       e.Value,
		Note:        e.Note,
	}
}

func formatOptionalDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := utils.FormatDate(*t)
	return &s
}
