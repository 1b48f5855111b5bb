// Package orchestrator coordinates one refresh of a challenge: load it with
// its progress, compute metrics, apply any auto-transition and persist it.
//
// Refreshes of different challenges may run concurrently. Refreshes of the
// same challenge must be serialized by the caller, for example with
// Options.Lock.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"wellnessAPI/internal/accounting"
	"wellnessAPI/internal/apperrors"
	"wellnessAPI/internal/lifecycle"
	"wellnessAPI/internal/types/challenge"
	"wellnessAPI/utils"
)

type ChallengeRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status challenge.Status) (*challenge.Challenge, error)
	ListByOwner(ctx context.Context, ownerID string) ([]challenge.Challenge, error)
}

type ProgressRepository interface {
	FindByChallengeID(ctx context.Context, challengeID uuid.UUID) ([]challenge.ProgressEntry, error)
}

// TransitionEvent describes a persisted auto-transition.
type TransitionEvent struct {
	ChallengeID uuid.UUID
	From        challenge.Status
	To          challenge.Status
	Reason      lifecycle.Reason
}

const DefaultConcurrency = 4

type Options struct {
	// Concurrency bounds the number of refreshes a batch runs at once.
	Concurrency int
	// OnTransition, when set, is called after every persisted auto-transition.
	OnTransition func(TransitionEvent)
	// Lock, when set, is held around each refresh of a challenge ID and
	// returns its unlock. Callers use it to serialize refreshes of one ID.
	Lock func(uuid.UUID) func()
}

type Orchestrator struct {
	challenges   ChallengeRepository
	progress     ProgressRepository
	accountant   *accounting.Accountant
	governor     *lifecycle.Governor
	log          logrus.FieldLogger
	concurrency  int
	onTransition func(TransitionEvent)
	lock         func(uuid.UUID) func()
}

func New(
	challenges ChallengeRepository,
	progress ProgressRepository,
	accountant *accounting.Accountant,
	governor *lifecycle.Governor,
	log logrus.FieldLogger,
	opts Options,
) *Orchestrator {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Orchestrator{
		challenges:   challenges,
		progress:     progress,
		accountant:   accountant,
		governor:     governor,
		log:          log,
		concurrency:  opts.Concurrency,
		onTransition: opts.OnTransition,
		lock:         opts.Lock,
	}
}

// Inspect loads a challenge and computes its metrics without evaluating or
// persisting any transition.
func (o *Orchestrator) Inspect(ctx context.Context, id uuid.UUID, now time.Time) (*challenge.EnrichedChallenge, error) {
	c, entries, err := o.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return o.enrich(c, entries, now), nil
}

// RefreshChallenge recomputes a challenge's metrics and applies an
// auto-transition when its status is active.
func (o *Orchestrator) RefreshChallenge(ctx context.Context, id uuid.UUID, now time.Time) (*challenge.EnrichedChallenge, error) {
	if o.lock != nil {
		unlock := o.lock(id)
		defer unlock()
	}

	c, entries, err := o.load(ctx, id)
	if err != nil {
		return nil, err
	}

	enriched := o.enrich(c, entries, now)
	if c.Status != challenge.StatusActive {
		return enriched, nil
	}

	decision := o.governor.Evaluate(lifecycle.Input{
		Status:               c.Status,
		CompletionPercentage: enriched.CompletionPercentage,
		EndDate:              c.EndDate,
		CreatedAt:            c.CreatedAt,
		LastActivity:         latestEntryDate(entries),
	}, now)
	if !decision.Changed {
		return enriched, nil
	}

	next, err := o.governor.Transition(c.Status, decision.Status)
	if err != nil {
		return nil, err
	}

	updated, err := o.challenges.UpdateStatus(ctx, id, next)
	if err != nil {
		o.log.WithFields(logrus.Fields{
			"challenge_id": id,
			"status":       next,
		}).WithError(err).Error("failed to persist auto-transition")
		return nil, &apperrors.PersistenceError{Op: "update status of challenge", ID: id.String(), Err: err}
	}

	o.log.WithFields(logrus.Fields{
		"challenge_id": id,
		"from":         c.Status,
		"to":           next,
		"reason":       decision.Reason,
	}).Info("challenge auto-transitioned")

	if o.onTransition != nil {
		o.onTransition(TransitionEvent{ChallengeID: id, From: c.Status, To: next, Reason: decision.Reason})
	}

	enriched.Challenge = *updated
	enriched.StatusChanged = true
	return enriched, nil
}

type Failure struct {
	ChallengeID uuid.UUID
	Err         error
}

// BatchResult holds the refreshed challenges in listing order plus every
// per-challenge failure.
type BatchResult struct {
	Challenges []challenge.EnrichedChallenge
	Failures   []Failure
}

// RefreshChallenges refreshes every challenge owned by ownerID independently.
// A failing challenge is recorded in Failures and does not stop the rest.
// Once ctx is done no further refreshes are started; the unstarted ones are
// reported as failures carrying ctx.Err().
func (o *Orchestrator) RefreshChallenges(ctx context.Context, ownerID string, now time.Time) (*BatchResult, error) {
	list, err := o.challenges.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges for owner %s: %w", ownerID, err)
	}

	results := make([]*challenge.EnrichedChallenge, len(list))
	errs := make([]error, len(list))

	var g errgroup.Group
	g.SetLimit(o.concurrency)

	for i := range list {
		if err := ctx.Err(); err != nil {
			errs[i] = err
			continue
		}
		i := i
		id := list[i].ID
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return nil
			}
			results[i], errs[i] = o.RefreshChallenge(ctx, id, now)
			return nil
		})
	}
	_ = g.Wait()

	batch := &BatchResult{}
	for i := range list {
		if errs[i] != nil {
			if !apperrors.IsNotFound(errs[i]) {
				o.log.WithField("challenge_id", list[i].ID).WithError(errs[i]).Warn("challenge refresh failed")
			}
			batch.Failures = append(batch.Failures, Failure{ChallengeID: list[i].ID, Err: errs[i]})
			continue
		}
		batch.Challenges = append(batch.Challenges, *results[i])
	}
	return batch, nil
}

func (o *Orchestrator) load(ctx context.Context, id uuid.UUID) (*challenge.Challenge, []challenge.ProgressEntry, error) {
	c, err := o.challenges.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	entries, err := o.progress.FindByChallengeID(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load progress for challenge %s: %w", id, err)
	}
	return c, entries, nil
}

func (o *Orchestrator) enrich(c *challenge.Challenge, entries []challenge.ProgressEntry, now time.Time) *challenge.EnrichedChallenge {
	enriched := &challenge.EnrichedChallenge{Challenge: *c}

	if utils.IsAfterDay(c.StartDate, c.EndDate) {
		verr := apperrors.Invalid("date_range", fmt.Sprintf("start date %s is after end date %s",
			utils.FormatDate(c.StartDate), utils.FormatDate(c.EndDate)))
		o.log.WithField("challenge_id", c.ID).Warn(verr.Error())
		enriched.Warnings = append(enriched.Warnings, verr.Error())
	}

	enriched.DerivedMetrics = o.accountant.Compute(c, entries, now)
	return enriched
}

func latestEntryDate(entries []challenge.ProgressEntry) *time.Time {
	if len(entries) == 0 {
		return nil
	}
	latest := entries[0].Date
	for _, e := range entries[1:] {
		if e.Date.After(latest) {
			latest = e.Date
		}
	}
	return &latest
}
