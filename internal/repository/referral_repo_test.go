package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/testutil"
)

func TestReferralRepository_CompletePending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewReferralRepository(db)
	ctx := context.Background()

	referrer := testutil.TestUser(t, db)
	referred := testutil.TestUser(t, db)
	testutil.TestReferral(t, db, referrer.ID, referred.ID, model.ReferralPending)

	changed, err := repo.CompletePending(ctx, referred.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, changed)

	// 第二次不再变化
	changed, err = repo.CompletePending(ctx, referred.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	ref, err := repo.GetByReferredUser(ctx, referred.ID, model.ReferralCompleted)
	require.NoError(t, err)
	assert.Equal(t, referrer.ID, ref.ReferrerID)
	assert.NotNil(t, ref.CompletedAt)

	_, err = repo.GetByReferredUser(ctx, referred.ID, model.ReferralPending)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestReferralRepository_UniqueReferredUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewReferralRepository(db)
	ctx := context.Background()

	a := testutil.TestUser(t, db)
	b := testutil.TestUser(t, db)
	referred := testutil.TestUser(t, db)

	require.NoError(t, repo.Create(ctx, &model.Referral{ReferrerID: a.ID, ReferredUserID: referred.ID, Status: model.ReferralPending}))
	err := repo.Create(ctx, &model.Referral{ReferrerID: b.ID, ReferredUserID: referred.ID, Status: model.ReferralPending})
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}

func TestReferralRepository_CountByReferrer(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewReferralRepository(db)
	ctx := context.Background()

	referrer := testutil.TestUser(t, db)
	for i, status := range []string{model.ReferralPending, model.ReferralCompleted, model.ReferralCompleted} {
		u := testutil.TestUser(t, db, testutil.WithFullName("Referred"+string(rune('A'+i))))
		testutil.TestReferral(t, db, referrer.ID, u.ID, status)
	}

	total, err := repo.CountByReferrer(ctx, referrer.ID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	completed, err := repo.CountByReferrer(ctx, referrer.ID, model.ReferralCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(2), completed)
}

func TestCommissionRepository(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewCommissionRepository(db)
	ctx := context.Background()

	referrer := testutil.TestUser(t, db)
	referred := testutil.TestUser(t, db)
	ref := testutil.TestReferral(t, db, referrer.ID, referred.ID, model.ReferralCompleted)

	sum, err := repo.SumByReferrer(ctx, referrer.ID)
	require.NoError(t, err)
	assert.True(t, sum.IsZero())

	commission := &model.Commission{
		ReferralID:     ref.ID,
		ReferrerID:     referrer.ID,
		ReferredUserID: referred.ID,
		SubscriptionID: "sub-1",
		Amount:         decimal.NewFromInt(50),
	}
	require.NoError(t, repo.Create(ctx, commission))

	// 每个订阅最多一笔佣金
	dup := *commission
	dup.ID = ""
	err = repo.Create(ctx, &dup)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))

	exists, err := repo.ExistsBySubscriptionID(ctx, "sub-1")
	require.NoError(t, err)
	assert.True(t, exists)

	sum, err = repo.SumByReferrer(ctx, referrer.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(50).Equal(sum))

	list, err := repo.ListByReferrer(ctx, referrer.ID, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
