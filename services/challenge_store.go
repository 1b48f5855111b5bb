package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"wellnessAPI/internal/apperrors"
	"wellnessAPI/internal/types/challenge"
	"wellnessAPI/utils"
)

const foreignKeyViolation = "23503"

const challengeColumns = `id, owner_id, title, description, type, frequency, start_date, end_date, target_value, status, created_at`

const progressColumns = `id, challenge_id, date, value, note, created_at, updated_at`

// ChallengeStore persists challenges and their progress entries in Postgres.
type ChallengeStore struct {
	db *pgxpool.Pool
}

func NewChallengeStore(db *pgxpool.Pool) *ChallengeStore {
	return &ChallengeStore{db: db}
}

func scanChallenge(row pgx.Row) (*challenge.Challenge, error) {
	c := &challenge.Challenge{}
	err := row.Scan(
		&c.ID,
		&c.OwnerID,
		&c.Title,
		&c.Description,
		&c.Type,
		&c.Frequency,
		&c.StartDate,
		&c.EndDate,
		&c.TargetValue,
		&c.Status,
		&c.CreatedAt,
	)
	return c, err
}

func scanProgress(row pgx.Row) (*challenge.ProgressEntry, error) {
	e := &challenge.ProgressEntry{}
	err := row.Scan(
		&e.ID,
		&e.ChallengeID,
		&e.Date,
		&e.Value,
		&e.Note,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	return e, err
}

func (s *ChallengeStore) CreateChallenge(ctx context.Context, c challenge.Challenge) (*challenge.Challenge, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.Status == "" {
		c.Status = challenge.StatusActive
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	query := `
	INSERT INTO challenges (` + challengeColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING ` + challengeColumns

	created, err := scanChallenge(s.db.QueryRow(
		ctx,
		query,
		c.ID,
		c.OwnerID,
		c.Title,
		c.Description,
		c.Type,
		c.Frequency,
		utils.Midnight(c.StartDate),
		utils.Midnight(c.EndDate),
		c.TargetValue,
		c.Status,
		c.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}
	return created, nil
}

func (s *ChallengeStore) GetByID(ctx context.Context, id uuid.UUID) (*challenge.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = $1`

	c, err := scanChallenge(s.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("challenge", id.String())
		}
		return nil, fmt.Errorf("failed to get challenge: %w", err)
	}
	return c, nil
}

func (s *ChallengeStore) UpdateStatus(ctx context.Context, id uuid.UUID, status challenge.Status) (*challenge.Challenge, error) {
	query := `UPDATE challenges SET status = $2 WHERE id = $1 RETURNING ` + challengeColumns

	c, err := scanChallenge(s.db.QueryRow(ctx, query, id, status))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("challenge", id.String())
		}
		return nil, fmt.Errorf("failed to update challenge status: %w", err)
	}
	return c, nil
}

// UpdateChallenge writes only the fields present in upd.
func (s *ChallengeStore) UpdateChallenge(ctx context.Context, id uuid.UUID, upd challenge.ChallengeUpdate) (*challenge.Challenge, error) {
	if upd.Empty() {
		return s.GetByID(ctx, id)
	}

	var sets []string
	args := []any{id}
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.Title.Set {
		add("title", upd.Title.Value)
	}
	if upd.Description.Set {
		add("description", upd.Description.Value)
	}
	if upd.Type.Set {
		add("type", upd.Type.Value)
	}
	if upd.Frequency.Set {
		add("frequency", upd.Frequency.Value)
	}
	if upd.StartDate.Set {
		add("start_date", utils.Midnight(upd.StartDate.Value))
	}
	if upd.EndDate.Set {
		add("end_date", utils.Midnight(upd.EndDate.Value))
	}
	if upd.TargetValue.Set {
		add("target_value", upd.TargetValue.Value)
	}

	query := `UPDATE challenges SET ` + strings.Join(sets, ", ") + ` WHERE id = $1 RETURNING ` + challengeColumns

	c, err := scanChallenge(s.db.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("challenge", id.String())
		}
		return nil, fmt.Errorf("failed to update challenge: %w", err)
	}
	return c, nil
}

// DeleteChallenge removes the challenge. Its progress rows go with it through
// ON DELETE CASCADE.
func (s *ChallengeStore) DeleteChallenge(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM challenges WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete challenge: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("challenge", id.String())
	}
	return nil
}

func (s *ChallengeStore) ListByOwner(ctx context.Context, ownerID string) ([]challenge.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE owner_id = $1 ORDER BY created_at, id`

	rows, err := s.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges: %w", err)
	}
	defer rows.Close()

	var out []challenge.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan challenge: %w", err)
		}
		out = append(out, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate challenges: %w", err)
	}
	return out, nil
}

func (s *ChallengeStore) ListOwnersWithActiveChallenges(ctx context.Context) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT DISTINCT owner_id FROM challenges WHERE status = 'active' ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list active owners: %w", err)
	}
	defer rows.Close()

	owners, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("failed to scan active owners: %w", err)
	}
	return owners, nil
}

func (s *ChallengeStore) FindByChallengeID(ctx context.Context, challengeID uuid.UUID) ([]challenge.ProgressEntry, error) {
	query := `SELECT ` + progressColumns + ` FROM challenge_progress WHERE challenge_id = $1 ORDER BY date`

	rows, err := s.db.Query(ctx, query, challengeID)
	if err != nil {
		return nil, fmt.Errorf("failed to get progress entries: %w", err)
	}
	defer rows.Close()

	var out []challenge.ProgressEntry
	for rows.Next() {
		e, err := scanProgress(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan progress entry: %w", err)
		}
		out = append(out, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate progress entries: %w", err)
	}
	return out, nil
}

// UpsertProgress keeps one row per (challenge_id, date): a second write for
// the same day replaces value and note.
func (s *ChallengeStore) UpsertProgress(ctx context.Context, e challenge.ProgressEntry) (*challenge.ProgressEntry, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	query := `
	INSERT INTO challenge_progress (id, challenge_id, date, value, note, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	ON CONFLICT (challenge_id, date)
	DO UPDATE SET
		value = EXCLUDED.value,
		note = EXCLUDED.note,
		updated_at = NOW()
	RETURNING ` + progressColumns

	saved, err := scanProgress(s.db.QueryRow(ctx, query, e.ID, e.ChallengeID, utils.Midnight(e.Date), e.Value, e.Note))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
			return nil, apperrors.NotFound("challenge", e.ChallengeID.String())
		}
		return nil, fmt.Errorf("failed to upsert progress entry: %w", err)
	}
	return saved, nil
}
