package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/internal/model"
)

// TestUser 创建测试用户
func TestUser(t *testing.T, db *gorm.DB, opts ...func(*model.User)) *model.User {
	t.Helper()

	user := &model.User{
		Email:        fmt.Sprintf("test_%d@example.com", time.Now().UnixNano()),
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuvwxyz123456", // bcrypt hash placeholder
		FullName:     "Test User",
		Phone:        "9876543210",
	}

	for _, opt := range opts {
		opt(user)
	}

	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}

	return user
}

// WithEmail 设置邮箱
func WithEmail(email string) func(*model.User) {
	return func(u *model.User) {
		u.Email = email
	}
}

// WithFullName 设置姓名
func WithFullName(name string) func(*model.User) {
	return func(u *model.User) {
		u.FullName = name
	}
}

// WithReferralCode 设置推荐码
func WithReferralCode(code string) func(*model.User) {
	return func(u *model.User) {
		u.ReferralCode = &code
	}
}

// TestSubscription 创建测试订阅，默认 free
func TestSubscription(t *testing.T, db *gorm.DB, userID string, opts ...func(*model.Subscription)) *model.Subscription {
	t.Helper()

	sub := &model.Subscription{
		UserID: userID,
		Status: model.SubscriptionFree,
	}

	for _, opt := range opts {
		opt(sub)
	}

	if err := db.Create(sub).Error; err != nil {
		t.Fatalf("Failed to create test subscription: %v", err)
	}

	return sub
}

// WithActiveUntil 设置为有效订阅
func WithActiveUntil(expiresAt time.Time) func(*model.Subscription) {
	return func(s *model.Subscription) {
		startsAt := expiresAt.AddDate(-1, 0, 0)
		s.Status = model.SubscriptionActive
		s.PlanName = "Premium Yearly"
		s.StartsAt = &startsAt
		s.ExpiresAt = &expiresAt
	}
}

// TestCoupon 创建测试优惠券，默认固定减 100、长期有效、不限次数
func TestCoupon(t *testing.T, db *gorm.DB, code string, opts ...func(*model.Coupon)) *model.Coupon {
	t.Helper()

	coupon := &model.Coupon{
		Code:           code,
		DiscountAmount: decimal.NewNullDecimal(decimal.NewFromInt(100)),
		IsActive:       true,
	}

	for _, opt := range opts {
		opt(coupon)
	}

	if err := db.Create(coupon).Error; err != nil {
		t.Fatalf("Failed to create test coupon: %v", err)
	}

	return coupon
}

// WithPercentage 百分比折扣
func WithPercentage(pct int64) func(*model.Coupon) {
	return func(c *model.Coupon) {
		c.DiscountAmount = decimal.NullDecimal{}
		c.DiscountPercentage = decimal.NewNullDecimal(decimal.NewFromInt(pct))
	}
}

// WithWindow 设置有效期
func WithWindow(from, until *time.Time) func(*model.Coupon) {
	return func(c *model.Coupon) {
		c.ValidFrom = from
		c.ValidUntil = until
	}
}

// WithUsage 设置使用上限与已用次数
func WithUsage(maxUses, used int) func(*model.Coupon) {
	return func(c *model.Coupon) {
		c.MaxUses = &maxUses
		c.UsesCount = used
	}
}

// WithInactive 停用优惠券
func WithInactive() func(*model.Coupon) {
	return func(c *model.Coupon) {
		c.IsActive = false
	}
}

// TestReferral 创建推荐关系
func TestReferral(t *testing.T, db *gorm.DB, referrerID, referredUserID, status string) *model.Referral {
	t.Helper()

	referral := &model.Referral{
		ReferrerID:     referrerID,
		ReferredUserID: referredUserID,
		Status:         status,
	}
	if status == model.ReferralCompleted {
		now := time.Now()
		referral.CompletedAt = &now
	}

	if err := db.Create(referral).Error; err != nil {
		t.Fatalf("Failed to create test referral: %v", err)
	}

	return referral
}

// TestWallet 创建钱包
func TestWallet(t *testing.T, db *gorm.DB, userID string, balance decimal.Decimal) *model.Wallet {
	t.Helper()

	wallet := &model.Wallet{UserID: userID, Balance: balance}
	if err := db.Create(wallet).Error; err != nil {
		t.Fatalf("Failed to create test wallet: %v", err)
	}

	return wallet
}

// TestVideo 创建视频
func TestVideo(t *testing.T, db *gorm.DB, durationSeconds, points int) *model.Video {
	t.Helper()

	video := &model.Video{
		Title:           fmt.Sprintf("Surya Namaskar %d", time.Now().UnixNano()%10000),
		DurationSeconds: durationSeconds,
		YogicPoints:     points,
	}
	if err := db.Create(video).Error; err != nil {
		t.Fatalf("Failed to create test video: %v", err)
	}

	return video
}

// TestProgress 创建观看进度
func TestProgress(t *testing.T, db *gorm.DB, userID, videoID string, watchedSeconds int, completed bool) *model.WatchProgress {
	t.Helper()

	progress := &model.WatchProgress{
		UserID:         userID,
		VideoID:        videoID,
		WatchedSeconds: watchedSeconds,
		Completed:      completed,
	}
	if err := db.Create(progress).Error; err != nil {
		t.Fatalf("Failed to create test progress: %v", err)
	}

	return progress
}
