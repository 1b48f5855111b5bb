// Package workers runs the periodic refresh that lets challenges lapse or
// complete even when nobody opens them.
package workers

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"wellnessAPI/internal/orchestrator"
)

type Refresher interface {
	ListOwnersWithActiveChallenges(ctx context.Context) ([]string, error)
	RefreshUserChallenges(ctx context.Context, ownerID string, now time.Time) (*orchestrator.BatchResult, error)
}

// SweepReport summarizes one pass over every owner.
type SweepReport struct {
	Owners       int
	Refreshed    int
	Transitioned int
	Failed       int
}

const sweepTimeout = 5 * time.Minute

type RefreshWorker struct {
	refresher  Refresher
	schedule   string
	log        logrus.FieldLogger
	cron       *cron.Cron
	now        func() time.Time
	onFailures func(int)
}

// NewRefreshWorker builds a worker that sweeps on schedule, a cron
// expression such as "@every 1h" or "0 3 * * *". onFailures may be nil.
func NewRefreshWorker(refresher Refresher, schedule string, log logrus.FieldLogger, onFailures func(int)) *RefreshWorker {
	return &RefreshWorker{
		refresher: refresher,
		schedule:  schedule,
		log:       log,
		cron: cron.New(cron.WithChain(
			cron.Recover(cron.PrintfLogger(log)),
			cron.SkipIfStillRunning(cron.PrintfLogger(log)),
		)),
		now:        time.Now,
		onFailures: onFailures,
	}
}

func (w *RefreshWorker) Start() error {
	if _, err := w.cron.AddFunc(w.schedule, func() {
		w.Sweep(context.Background())
	}); err != nil {
		return err
	}
	w.cron.Start()
	w.log.WithField("schedule", w.schedule).Info("challenge refresh worker started")
	return nil
}

// Stop waits for a running sweep to finish or for ctx to expire.
func (w *RefreshWorker) Stop(ctx context.Context) {
	done := w.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		w.log.Warn("challenge refresh worker did not stop in time")
	}
}

// Sweep refreshes the challenges of every owner with an active challenge.
// A failing owner does not stop the sweep.
func (w *RefreshWorker) Sweep(ctx context.Context) SweepReport {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	var report SweepReport
	now := w.now().UTC()

	owners, err := w.refresher.ListOwnersWithActiveChallenges(ctx)
	if err != nil {
		w.log.WithError(err).Error("failed to list owners with active challenges")
		return report
	}
	report.Owners = len(owners)

	for _, owner := range owners {
		if ctx.Err() != nil {
			w.log.WithError(ctx.Err()).Warn("challenge sweep cut short")
			break
		}

		result, err := w.refresher.RefreshUserChallenges(ctx, owner, now)
		if err != nil {
			w.log.WithError(err).WithField("owner_id", owner).Error("failed to refresh owner challenges")
			report.Failed++
			continue
		}

		report.Refreshed += len(result.Challenges)
		report.Failed += len(result.Failures)
		for _, c := range result.Challenges {
			if c.StatusChanged {
				report.Transitioned++
			}
		}
	}

	if report.Failed > 0 && w.onFailures != nil {
		w.onFailures(report.Failed)
	}

	w.log.WithFields(logrus.Fields{
		"owners":       report.Owners,
		"refreshed":    report.Refreshed,
		"transitioned": report.Transitioned,
		"failed":       report.Failed,
	}).Info("challenge sweep finished")
	return report
}
