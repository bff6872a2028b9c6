package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/repository"
	"github.com/qs3c/playoga_server/internal/testutil"
)

func TestReferralService_EnsureCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	svc := NewReferralService(repository.NewUserRepository(db), repository.NewReferralRepository(db), testConfig(), zap.NewNop())
	ctx := context.Background()
	user := testutil.TestUser(t, db)

	code, err := svc.EnsureCode(ctx, user.ID)
	require.NoError(t, err)
	assert.Regexp(t, `^[A-Z0-9]{8}$`, code)

	again, err := svc.EnsureCode(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, code, again)

	existing := testutil.TestUser(t, db, testutil.WithReferralCode("KEEPME01"))
	code, err = svc.EnsureCode(ctx, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "KEEPME01", code)

	_, err = svc.EnsureCode(ctx, "missing")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestReferralService_ProcessSignupReferral(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	referralRepo := repository.NewReferralRepository(db)
	svc := NewReferralService(repository.NewUserRepository(db), referralRepo, testConfig(), zap.NewNop())
	ctx := context.Background()

	referrer := testutil.TestUser(t, db, testutil.WithReferralCode("ASHA2026"))
	newUser := testutil.TestUser(t, db)

	assert.NoError(t, svc.ProcessSignupReferral(ctx, newUser.ID, ""))
	assert.ErrorIs(t, svc.ProcessSignupReferral(ctx, newUser.ID, "UNKNOWN1"), ErrInvalidReferralCode)
	assert.ErrorIs(t, svc.ProcessSignupReferral(ctx, referrer.ID, "ASHA2026"), ErrSelfReferral)

	require.NoError(t, svc.ProcessSignupReferral(ctx, newUser.ID, "asha2026"))
	// 重复登记被忽略
	require.NoError(t, svc.ProcessSignupReferral(ctx, newUser.ID, "ASHA2026"))

	count, err := referralRepo.CountByReferrer(ctx, referrer.ID, model.ReferralPending)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	changed, err := svc.Complete(ctx, newUser.ID)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = svc.Complete(ctx, newUser.ID)
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestReferralService_Link(t *testing.T) {
	svc := NewReferralService(nil, nil, testConfig(), zap.NewNop())
	assert.Equal(t, "https://playoga.in/auth?ref=ABCD1234", svc.Link("ABCD1234"))
	assert.Empty(t, svc.Link(""))
}
