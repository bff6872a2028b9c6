package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/testutil"
)

func TestUserRepository_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)

	user := &model.User{Email: "asha@example.com", PasswordHash: "hash", FullName: "Asha"}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)

	// 邮箱唯一
	dup := &model.User{Email: "asha@example.com", PasswordHash: "hash", FullName: "Asha 2"}
	err := repo.Create(context.Background(), dup)
	assert.True(t, errors.Is(err, gorm.ErrDuplicatedKey))
}

func TestUserRepository_GetByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	created := testutil.TestUser(t, db)

	found, err := repo.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, found.Email)

	_, err = repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_GetByEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	ctx := context.Background()

	testutil.TestUser(t, db, testutil.WithEmail("unique@example.com"))

	found, err := repo.GetByEmail(ctx, "unique@example.com")
	require.NoError(t, err)
	assert.Equal(t, "unique@example.com", found.Email)

	exists, err := repo.ExistsByEmail(ctx, "unique@example.com")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepository_ReferralCode(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewUserRepository(db)
	ctx := context.Background()
	user := testutil.TestUser(t, db)

	set, err := repo.SetReferralCode(ctx, user.ID, "AB12CD34")
	require.NoError(t, err)
	assert.True(t, set)

	// 已有推荐码时不会覆盖
	set, err = repo.SetReferralCode(ctx, user.ID, "ZZZZZZZZ")
	require.NoError(t, err)
	assert.False(t, set)

	found, err := repo.GetByReferralCode(ctx, "AB12CD34")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.GetByReferralCode(ctx, "ZZZZZZZZ")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
