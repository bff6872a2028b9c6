package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/internal/model"
)

type ReferralRepository struct {
	db *gorm.DB
}

func NewReferralRepository(db *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

func (r *ReferralRepository) WithTx(tx *gorm.DB) *ReferralRepository {
	return &ReferralRepository{db: tx}
}

func (r *ReferralRepository) Create(ctx context.Context, referral *model.Referral) error {
	return r.db.WithContext(ctx).Create(referral).Error
}

// GetByReferredUser 查询被推荐用户的推荐关系，status 为空时不限状态
func (r *ReferralRepository) GetByReferredUser(ctx context.Context, userID, status string) (*model.Referral, error) {
	var referral model.Referral
	q := r.db.WithContext(ctx).Where("referred_user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	if err := q.First(&referral).Error; err != nil {
		return nil, err
	}
	return &referral, nil
}

// CompletePending pending -> completed，返回是否发生状态变化
func (r *ReferralRepository) CompletePending(ctx context.Context, referredUserID string, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Referral{}).
		Where("referred_user_id = ? AND status = ?", referredUserID, model.ReferralPending).
		Updates(map[string]interface{}{
			"status":       model.ReferralCompleted,
			"completed_at": now,
		})
	return result.RowsAffected > 0, result.Error
}

// CountByReferrer status 为空时统计全部
func (r *ReferralRepository) CountByReferrer(ctx context.Context, referrerID, status string) (int64, error) {
	var count int64
	q := r.db.WithContext(ctx).Model(&model.Referral{}).Where("referrer_id = ?", referrerID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	err := q.Count(&count).Error
	return count, err
}

type CommissionRepository struct {
	db *gorm.DB
}

func NewCommissionRepository(db *gorm.DB) *CommissionRepository {
	return &CommissionRepository{db: db}
}

func (r *CommissionRepository) WithTx(tx *gorm.DB) *CommissionRepository {
	return &CommissionRepository{db: tx}
}

func (r *CommissionRepository) Create(ctx context.Context, commission *model.Commission) error {
	return r.db.WithContext(ctx).Create(commission).Error
}

func (r *CommissionRepository) ExistsBySubscriptionID(ctx context.Context, subscriptionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Commission{}).
		Where("subscription_id = ?", subscriptionID).Count(&count).Error
	return count > 0, err
}

// ListByReferrer 按时间倒序
func (r *CommissionRepository) ListByReferrer(ctx context.Context, referrerID string, limit int) ([]model.Commission, error) {
	var commissions []model.Commission
	err := r.db.WithContext(ctx).Where("referrer_id = ?", referrerID).
		Order("created_at DESC").Limit(limit).
		Find(&commissions).Error
	return commissions, err
}

// SumByReferrer 累计佣金
func (r *CommissionRepository) SumByReferrer(ctx context.Context, referrerID string) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).Model(&model.Commission{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("referrer_id = ?", referrerID).
		Row().Scan(&total)
	return total, err
}
