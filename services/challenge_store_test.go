package services

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wellnessAPI/internal/apperrors"
	"wellnessAPI/internal/db"
	"wellnessAPI/internal/types/challenge"
	"wellnessAPI/utils"
)

// setupTestDB connects to TEST_DATABASE_URL, migrates it and removes the
// rows written by the test afterwards.
func setupTestDB(t *testing.T) (*pgxpool.Pool, string) {
	t.Helper()
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPool(ctx, dbURL)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(ctx, pool))

	owner := "user_test_" + uuid.NewString()
	t.Cleanup(func() {
		if _, err := pool.Exec(context.Background(), "DELETE FROM challenges WHERE owner_id = $1", owner); err != nil {
			t.Logf("Warning: failed to cleanup test data: %v", err)
		}
		pool.Close()
	})
	return pool, owner
}

func TestChallengeStoreRoundTrip(t *testing.T) {
	pool, owner := setupTestDB(t)
	store := NewChallengeStore(pool)
	ctx := context.Background()

	created, err := store.CreateChallenge(ctx, challenge.Challenge{
		OwnerID:     owner,
		Title:       "Drink water",
		Frequency:   challenge.FrequencyDaily,
		StartDate:   utils.MustDate("2024-01-01"),
		EndDate:     utils.MustDate("2024-01-10"),
		TargetValue: 8,
	})
	require.NoError(t, err)
	assert.Equal(t, challenge.StatusActive, created.Status)
	assert.Equal(t, utils.MustDate("2024-01-10"), created.EndDate)

	got, err := store.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)

	updated, err := store.UpdateChallenge(ctx, created.ID, challenge.ChallengeUpdate{TargetValue: challenge.Some(6.0)})
	require.NoError(t, err)
	assert.Equal(t, 6.0, updated.TargetValue)
	assert.Equal(t, "Drink water", updated.Title)

	abandoned, err := store.UpdateStatus(ctx, created.ID, challenge.StatusAbandoned)
	require.NoError(t, err)
	assert.Equal(t, challenge.StatusAbandoned, abandoned.Status)

	owners, err := store.ListOwnersWithActiveChallenges(ctx)
	require.NoError(t, err)
	assert.NotContains(t, owners, owner)

	list, err := store.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestChallengeStoreProgressUpsert(t *testing.T) {
	pool, owner := setupTestDB(t)
	store := NewChallengeStore(pool)
	ctx := context.Background()

	c, err := store.CreateChallenge(ctx, challenge.Challenge{
		OwnerID:   owner,
		Title:     "Stretch",
		Frequency: challenge.FrequencyDaily,
		StartDate: utils.MustDate("2024-01-01"),
		EndDate:   utils.MustDate("2024-01-31"),
	})
	require.NoError(t, err)

	first, err := store.UpsertProgress(ctx, challenge.ProgressEntry{ChallengeID: c.ID, Date: utils.MustDate("2024-01-02"), Value: 1})
	require.NoError(t, err)

	note := "longer session"
	second, err := store.UpsertProgress(ctx, challenge.ProgressEntry{ChallengeID: c.ID, Date: utils.MustDate("2024-01-02"), Value: 3, Note: &note})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 3.0, second.Value)

	_, err = store.UpsertProgress(ctx, challenge.ProgressEntry{ChallengeID: c.ID, Date: utils.MustDate("2024-01-01"), Value: 1})
	require.NoError(t, err)

	entries, err := store.FindByChallengeID(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, utils.MustDate("2024-01-01"), entries[0].Date)

	_, err = store.UpsertProgress(ctx, challenge.ProgressEntry{ChallengeID: uuid.New(), Date: utils.MustDate("2024-01-01"), Value: 1})
	assert.True(t, apperrors.IsNotFound(err))

	require.NoError(t, store.DeleteChallenge(ctx, c.ID))
	entries, err = store.FindByChallengeID(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.True(t, apperrors.IsNotFound(store.DeleteChallenge(ctx, c.ID)))
	_, err = store.GetByID(ctx, c.ID)
	assert.True(t, apperrors.IsNotFound(err))
}
