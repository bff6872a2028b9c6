package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/testutil"
)

func TestSubscriptionRepository_GetCurrentByUserID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	ctx := context.Background()
	user := testutil.TestUser(t, db)

	_, err := repo.GetCurrentByUserID(ctx, user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	old := testutil.TestSubscription(t, db, user.ID)
	require.NoError(t, db.Model(old).Update("created_at", time.Now().Add(-48*time.Hour)).Error)
	latest := testutil.TestSubscription(t, db, user.ID, testutil.WithActiveUntil(time.Now().AddDate(1, 0, 0)))

	current, err := repo.GetCurrentByUserID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, current.ID)
	assert.Equal(t, model.SubscriptionActive, current.Status)
}

func TestSubscriptionRepository_Activate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	ctx := context.Background()

	t.Run("updates latest subscription", func(t *testing.T) {
		user := testutil.TestUser(t, db)
		sub := testutil.TestSubscription(t, db, user.ID)

		now := time.Now()
		updated, err := repo.Activate(ctx, user.ID, ActivateParams{
			PlanName:   "Premium Yearly",
			StartsAt:   now,
			ExpiresAt:  now.AddDate(1, 0, 0),
			AmountPaid: decimal.RequireFromString("1048.95"),
			GSTAmount:  decimal.RequireFromString("49.95"),
		})
		require.NoError(t, err)
		assert.Equal(t, sub.ID, updated.ID)
		assert.Equal(t, model.SubscriptionActive, updated.Status)
		assert.Equal(t, "Premium Yearly", updated.PlanName)
		assert.True(t, decimal.RequireFromString("1048.95").Equal(updated.AmountPaid))
		assert.True(t, decimal.RequireFromString("49.95").Equal(updated.GSTAmount))
		require.NotNil(t, updated.ExpiresAt)
		assert.True(t, updated.IsActiveAt(now.Add(time.Hour)))
	})

	t.Run("no subscription", func(t *testing.T) {
		user := testutil.TestUser(t, db)
		_, err := repo.Activate(ctx, user.ID, ActivateParams{PlanName: "Premium Yearly"})
		assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	})
}

func TestSubscriptionRepository_ExpireDue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewSubscriptionRepository(db)
	ctx := context.Background()
	now := time.Now()

	u1 := testutil.TestUser(t, db)
	u2 := testutil.TestUser(t, db)
	u3 := testutil.TestUser(t, db)
	expired := testutil.TestSubscription(t, db, u1.ID, testutil.WithActiveUntil(now.Add(-time.Hour)))
	active := testutil.TestSubscription(t, db, u2.ID, testutil.WithActiveUntil(now.Add(time.Hour)))
	testutil.TestSubscription(t, db, u3.ID)

	count, err := repo.CountExpireDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	n, err := repo.ExpireDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := repo.GetByID(ctx, expired.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionExpired, got.Status)

	got, err = repo.GetByID(ctx, active.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionActive, got.Status)
}
