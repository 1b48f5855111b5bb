// Package memstore is a thread-safe in-memory implementation of the challenge
// and progress repositories. It backs tests and the "memory" storage driver.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"wellnessAPI/internal/apperrors"
	"wellnessAPI/internal/types/challenge"
	"wellnessAPI/utils"
)

type Store struct {
	mu         sync.RWMutex
	challenges map[uuid.UUID]challenge.Challenge
	// progress is keyed by challenge ID, then by YYYY-MM-DD.
	progress map[uuid.UUID]map[string]challenge.ProgressEntry
	now      func() time.Time
}

func New() *Store {
	return &Store{
		challenges: make(map[uuid.UUID]challenge.Challenge),
		progress:   make(map[uuid.UUID]map[string]challenge.ProgressEntry),
		now:        time.Now,
	}
}

func (s *Store) CreateChallenge(_ context.Context, c challenge.Challenge) (*challenge.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now().UTC()
	}
	if c.Status == "" {
		c.Status = challenge.StatusActive
	}
	c.StartDate = utils.Midnight(c.StartDate)
	c.EndDate = utils.Midnight(c.EndDate)

	s.challenges[c.ID] = c
	return &c, nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.challenges[id]
	if !ok {
		return nil, apperrors.NotFound("challenge", id.String())
	}
	return &c, nil
}

func (s *Store) UpdateStatus(_ context.Context, id uuid.UUID, status challenge.Status) (*challenge.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[id]
	if !ok {
		return nil, apperrors.NotFound("challenge", id.String())
	}
	c.Status = status
	s.challenges[id] = c
	return &c, nil
}

func (s *Store) UpdateChallenge(_ context.Context, id uuid.UUID, upd challenge.ChallengeUpdate) (*challenge.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.challenges[id]
	if !ok {
		return nil, apperrors.NotFound("challenge", id.String())
	}
	c = upd.Apply(c)
	c.StartDate = utils.Midnight(c.StartDate)
	c.EndDate = utils.Midnight(c.EndDate)
	s.challenges[id] = c
	return &c, nil
}

// DeleteChallenge removes the challenge together with all of its entries.
func (s *Store) DeleteChallenge(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.challenges[id]; !ok {
		return apperrors.NotFound("challenge", id.String())
	}
	delete(s.challenges, id)
	delete(s.progress, id)
	return nil
}

// ListByOwner returns the owner's challenges, oldest first.
func (s *Store) ListByOwner(_ context.Context, ownerID string) ([]challenge.Challenge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []challenge.Challenge
	for _, c := range s.challenges {
		if c.OwnerID == ownerID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) ListOwnersWithActiveChallenges(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	var owners []string
	for _, c := range s.challenges {
		if c.Status != challenge.StatusActive {
			continue
		}
		if _, ok := seen[c.OwnerID]; ok {
			continue
		}
		seen[c.OwnerID] = struct{}{}
		owners = append(owners, c.OwnerID)
	}
	sort.Strings(owners)
	return owners, nil
}

// FindByChallengeID returns the challenge's entries ordered by date.
func (s *Store) FindByChallengeID(_ context.Context, challengeID uuid.UUID) ([]challenge.ProgressEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDate := s.progress[challengeID]
	out := make([]challenge.ProgressEntry, 0, len(byDate))
	for _, e := range byDate {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// UpsertProgress stores the entry for (ChallengeID, Date), replacing the
// value and note of an existing one.
func (s *Store) UpsertProgress(_ context.Context, e challenge.ProgressEntry) (*challenge.ProgressEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.challenges[e.ChallengeID]; !ok {
		return nil, apperrors.NotFound("challenge", e.ChallengeID.String())
	}

	now := s.now().UTC()
	e.Date = utils.Midnight(e.Date)
	key := utils.FormatDate(e.Date)

	byDate, ok := s.progress[e.ChallengeID]
	if !ok {
		byDate = make(map[string]challenge.ProgressEntry)
		s.progress[e.ChallengeID] = byDate
	}

	if existing, ok := byDate[key]; ok {
		existing.Value = e.Value
		existing.Note = e.Note
		existing.UpdatedAt = now
		byDate[key] = existing
		return &existing, nil
	}

	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	e.CreatedAt = now
	e.UpdatedAt = now
	byDate[key] = e
	return &e, nil
}
