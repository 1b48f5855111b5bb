package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"wellnessAPI/internal/accounting"
	"wellnessAPI/internal/apperrors"
	"wellnessAPI/internal/lifecycle"
	"wellnessAPI/internal/orchestrator"
	"wellnessAPI/internal/types/challenge"
	"wellnessAPI/utils"
)

// ChallengeStorage is everything the service needs from persistence. Both
// ChallengeStore and memstore.Store satisfy it.
type ChallengeStorage interface {
	orchestrator.ChallengeRepository
	orchestrator.ProgressRepository
	CreateChallenge(ctx context.Context, c challenge.Challenge) (*challenge.Challenge, error)
	UpdateChallenge(ctx context.Context, id uuid.UUID, upd challenge.ChallengeUpdate) (*challenge.Challenge, error)
	DeleteChallenge(ctx context.Context, id uuid.UUID) error
	UpsertProgress(ctx context.Context, e challenge.ProgressEntry) (*challenge.ProgressEntry, error)
	ListOwnersWithActiveChallenges(ctx context.Context) ([]string, error)
}

type ServiceConfig struct {
	Accounting       accounting.Config
	Lifecycle        lifecycle.Config
	BatchConcurrency int
	// OnTransition is forwarded to the orchestrator, e.g. for metrics.
	OnTransition func(orchestrator.TransitionEvent)
}

// ChallengeService is the application entry point for challenges. It scopes
// every call to the owner and serializes status changes per challenge, both
// manual ones and those made by the orchestrator.
type ChallengeService struct {
	store        ChallengeStorage
	orchestrator *orchestrator.Orchestrator
	governor     *lifecycle.Governor
	locks        *ChallengeLocks
	log          logrus.FieldLogger
}

func NewChallengeService(store ChallengeStorage, cfg ServiceConfig, log logrus.FieldLogger) *ChallengeService {
	locks := NewChallengeLocks()
	governor := lifecycle.NewGovernor(cfg.Lifecycle)

	return &ChallengeService{
		store: store,
		orchestrator: orchestrator.New(
			store,
			store,
			accounting.New(cfg.Accounting),
			governor,
			log,
			orchestrator.Options{
				Concurrency:  cfg.BatchConcurrency,
				OnTransition: cfg.OnTransition,
				Lock:         locks.Lock,
			},
		),
		governor: governor,
		locks:    locks,
		log:      log,
	}
}

// owned loads the challenge and hides it from anyone but its owner.
func (s *ChallengeService) owned(ctx context.Context, ownerID string, id uuid.UUID) (*challenge.Challenge, error) {
	c, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.OwnerID != ownerID {
		return nil, apperrors.NotFound("challenge", id.String())
	}
	return c, nil
}

// RefreshChallenge recomputes metrics and applies any auto-transition.
func (s *ChallengeService) RefreshChallenge(ctx context.Context, ownerID string, id uuid.UUID, now time.Time) (*challenge.EnrichedChallenge, error) {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return s.orchestrator.RefreshChallenge(ctx, id, now)
}

// RefreshUserChallenges refreshes every challenge of ownerID independently.
func (s *ChallengeService) RefreshUserChallenges(ctx context.Context, ownerID string, now time.Time) (*orchestrator.BatchResult, error) {
	return s.orchestrator.RefreshChallenges(ctx, ownerID, now)
}

// GetMetrics computes display-only metrics. No transition is applied.
func (s *ChallengeService) GetMetrics(ctx context.Context, ownerID string, id uuid.UUID, now time.Time) (*challenge.EnrichedChallenge, error) {
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return s.orchestrator.Inspect(ctx, id, now)
}

// UpdateStatus performs a manual transition through the governor's table.
func (s *ChallengeService) UpdateStatus(ctx context.Context, ownerID string, id uuid.UUID, to challenge.Status) (*challenge.Challenge, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	next, err := s.governor.Transition(c.Status, to)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateStatus(ctx, id, next)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "update status of challenge", ID: id.String(), Err: err}
	}

	s.log.WithFields(logrus.Fields{
		"challenge_id": id,
		"from":         c.Status,
		"to":           next,
	}).Info("challenge status changed")
	return updated, nil
}

// RecordProgress upserts the entry for req.Date.
func (s *ChallengeService) RecordProgress(ctx context.Context, ownerID string, id uuid.UUID, req challenge.UpsertProgressRequest) (*challenge.ProgressEntry, error) {
	date, err := utils.ParseDate(req.Date)
	if err != nil {
		return nil, apperrors.Invalid("date", err.Error())
	}
	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return nil, err
	}

	entry, err := s.store.UpsertProgress(ctx, challenge.ProgressEntry{
		ChallengeID: id,
		Date:        date,
		Value:       req.Value,
		Note:        req.Note,
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, &apperrors.PersistenceError{Op: "record progress for challenge", ID: id.String(), Err: err}
	}
	return entry, nil
}

type CreateChallengeInput struct {
	Title       string
	Description string
	Type        string
	Frequency   challenge.Frequency
	StartDate   string
	EndDate     string
	TargetValue float64
}

func (s *ChallengeService) CreateChallenge(ctx context.Context, ownerID string, in CreateChallengeInput) (*challenge.Challenge, error) {
	start, err := utils.ParseDate(in.StartDate)
	if err != nil {
		return nil, apperrors.Invalid("start_date", err.Error())
	}
	end, err := utils.ParseDate(in.EndDate)
	if err != nil {
		return nil, apperrors.Invalid("end_date", err.Error())
	}

	c := challenge.Challenge{
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Type:        in.Type,
		Frequency:   in.Frequency,
		StartDate:   start,
		EndDate:     end,
		TargetValue: in.TargetValue,
		Status:      challenge.StatusActive,
	}
	if err := validateChallenge(&c); err != nil {
		return nil, err
	}

	created, err := s.store.CreateChallenge(ctx, c)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "create challenge for owner", ID: ownerID, Err: err}
	}
	return created, nil
}

// UpdateChallenge applies a partial update. Fields absent from upd keep
// their stored values.
func (s *ChallengeService) UpdateChallenge(ctx context.Context, ownerID string, id uuid.UUID, upd challenge.ChallengeUpdate) (*challenge.Challenge, error) {
	unlock := s.locks.Lock(id)
	defer unlock()

	c, err := s.owned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if upd.Title.Set {
		upd.Title.Value = strings.TrimSpace(upd.Title.Value)
	}
	merged := upd.Apply(*c)
	if err := validateChallenge(&merged); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateChallenge(ctx, id, upd)
	if err != nil {
		return nil, &apperrors.PersistenceError{Op: "update challenge", ID: id.String(), Err: err}
	}
	return updated, nil
}

func (s *ChallengeService) DeleteChallenge(ctx context.Context, ownerID string, id uuid.UUID) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if _, err := s.owned(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.store.DeleteChallenge(ctx, id); err != nil {
		if apperrors.IsNotFound(err) {
			return err
		}
		return &apperrors.PersistenceError{Op: "delete challenge", ID: id.String(), Err: err}
	}
	return nil
}

// DeleteOwnerChallenges removes every challenge of ownerID, for example after
// the account was deleted. It returns how many were removed.
func (s *ChallengeService) DeleteOwnerChallenges(ctx context.Context, ownerID string) (int, error) {
	list, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return 0, &apperrors.PersistenceError{Op: "list challenges of owner", ID: ownerID, Err: err}
	}

	deleted := 0
	for _, c := range list {
		if err := s.DeleteChallenge(ctx, ownerID, c.ID); err != nil {
			if apperrors.IsNotFound(err) {
				continue
			}
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func (s *ChallengeService) ListOwnersWithActiveChallenges(ctx context.Context) ([]string, error) {
	return s.store.ListOwnersWithActiveChallenges(ctx)
}

func validateChallenge(c *challenge.Challenge) error {
	if c.Title == "" {
		return apperrors.Invalid("title", "must not be empty")
	}
	if !c.Frequency.Valid() {
		return apperrors.Invalid("frequency", fmt.Sprintf("unknown frequency %q", c.Frequency))
	}
	if utils.IsAfterDay(c.StartDate, c.EndDate) {
		return apperrors.Invalid("date_range", "start date must not be after end date")
	}
	if c.TargetValue < 0 {
		return apperrors.Invalid("target_value", "must not be negative")
	}
	return nil
}
