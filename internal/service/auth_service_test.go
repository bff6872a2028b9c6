package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/model/dto"
	"github.com/qs3c/playoga_server/internal/pkg/jwt"
	"github.com/qs3c/playoga_server/internal/repository"
	"github.com/qs3c/playoga_server/internal/testutil"
)

func setupAuthService(t *testing.T) (*AuthService, *repository.Repositories) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := testConfig()
	repos := repository.NewRepositories(db)
	referrals := NewReferralService(repos.Users, repos.Referrals, cfg, zap.NewNop())
	return NewAuthService(repos, referrals, cfg, zap.NewNop()), repos
}

func TestAuthService_Register(t *testing.T) {
	svc, repos := setupAuthService(t)
	ctx := context.Background()

	resp, err := svc.Register(ctx, &dto.RegisterRequest{
		Email:    "New@Example.com",
		Password: "password123",
		FullName: "New User",
		Phone:    "9876543210",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.UserID)

	claims, err := jwt.ParseToken(resp.Token, "test-secret-key-for-testing")
	require.NoError(t, err)
	assert.Equal(t, resp.UserID, claims.UserID)
	assert.Equal(t, "new@example.com", claims.Email)

	// 注册时创建 free 订阅与推荐码
	sub, err := repos.Subscriptions.GetCurrentByUserID(ctx, resp.UserID)
	require.NoError(t, err)
	assert.Equal(t, model.SubscriptionFree, sub.Status)

	user, err := repos.Users.GetByID(ctx, resp.UserID)
	require.NoError(t, err)
	require.NotNil(t, user.ReferralCode)
	assert.Len(t, *user.ReferralCode, 8)

	_, err = svc.Register(ctx, &dto.RegisterRequest{
		Email:    "new@example.com",
		Password: "password123",
		FullName: "Dup",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestAuthService_Register_WithReferral(t *testing.T) {
	svc, repos := setupAuthService(t)
	ctx := context.Background()

	referrer, err := svc.Register(ctx, &dto.RegisterRequest{Email: "referrer@example.com", Password: "password123", FullName: "Referrer"})
	require.NoError(t, err)
	referrerUser, err := repos.Users.GetByID(ctx, referrer.UserID)
	require.NoError(t, err)

	friend, err := svc.Register(ctx, &dto.RegisterRequest{
		Email:        "friend@example.com",
		Password:     "password123",
		FullName:     "Friend",
		ReferralCode: " " + *referrerUser.ReferralCode + " ",
	})
	require.NoError(t, err)

	ref, err := repos.Referrals.GetByReferredUser(ctx, friend.UserID, model.ReferralPending)
	require.NoError(t, err)
	assert.Equal(t, referrer.UserID, ref.ReferrerID)

	// 无效推荐码不影响注册
	_, err = svc.Register(ctx, &dto.RegisterRequest{
		Email:        "other@example.com",
		Password:     "password123",
		FullName:     "Other",
		ReferralCode: "NOSUCHCD",
	})
	assert.NoError(t, err)
}

func TestAuthService_Login(t *testing.T) {
	svc, _ := setupAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, &dto.RegisterRequest{Email: "login@example.com", Password: "password123", FullName: "Login"})
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &dto.LoginRequest{Email: "login@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "Login", resp.User.FullName)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "login@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "nobody@example.com", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	info, err := svc.Me(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "login@example.com", info.Email)
}
