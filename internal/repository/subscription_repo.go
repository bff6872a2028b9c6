package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/internal/model"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

func (r *SubscriptionRepository) WithTx(tx *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: tx}
}

func (r *SubscriptionRepository) Create(ctx context.Context, sub *model.Subscription) error {
	return r.db.WithContext(ctx).Create(sub).Error
}

func (r *SubscriptionRepository) GetByID(ctx context.Context, id string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetCurrentByUserID 最新创建的一条订阅视为当前订阅
func (r *SubscriptionRepository) GetCurrentByUserID(ctx context.Context, userID string) (*model.Subscription, error) {
	var sub model.Subscription
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Order("id DESC").
		First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ActivateParams 激活订阅需要写入的字段
type ActivateParams struct {
	PlanName   string
	StartsAt   time.Time
	ExpiresAt  time.Time
	AmountPaid decimal.Decimal
	GSTAmount  decimal.Decimal
}

// Activate 将用户当前订阅更新为 active，用户没有订阅时返回 gorm.ErrRecordNotFound
func (r *SubscriptionRepository) Activate(ctx context.Context, userID string, p ActivateParams) (*model.Subscription, error) {
	sub, err := r.GetCurrentByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	err = r.db.WithContext(ctx).Model(&model.Subscription{}).Where("id = ?", sub.ID).Updates(map[string]interface{}{
		"status":      model.SubscriptionActive,
		"plan_name":   p.PlanName,
		"starts_at":   p.StartsAt,
		"expires_at":  p.ExpiresAt,
		"amount_paid": p.AmountPaid,
		"gst_amount":  p.GSTAmount,
	}).Error
	if err != nil {
		return nil, err
	}

	return r.GetByID(ctx, sub.ID)
}

// ExpireDue 将已过期的有效订阅标记为 expired
func (r *SubscriptionRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("status = ? AND expires_at < ?", model.SubscriptionActive, now).
		Update("status", model.SubscriptionExpired)
	return result.RowsAffected, result.Error
}

// CountExpireDue 统计待过期订阅数量（dry-run 使用）
func (r *SubscriptionRepository) CountExpireDue(ctx context.Context, now time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Subscription{}).
		Where("status = ? AND expires_at < ?", model.SubscriptionActive, now).
		Count(&count).Error
	return count, err
}
