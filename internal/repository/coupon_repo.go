package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/internal/model"
)

type CouponRepository struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) *CouponRepository {
	return &CouponRepository{db: db}
}

func (r *CouponRepository) WithTx(tx *gorm.DB) *CouponRepository {
	return &CouponRepository{db: tx}
}

func (r *CouponRepository) Create(ctx context.Context, coupon *model.Coupon) error {
	return r.db.WithContext(ctx).Create(coupon).Error
}

func (r *CouponRepository) GetByID(ctx context.Context, id string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// GetActiveByCode 按规范化后的券码精确匹配启用中的优惠券
func (r *CouponRepository) GetActiveByCode(ctx context.Context, code string) (*model.Coupon, error) {
	var coupon model.Coupon
	err := r.db.WithContext(ctx).Where("code = ? AND is_active = ?", code, true).First(&coupon).Error
	if err != nil {
		return nil, err
	}
	return &coupon, nil
}

// IncrementUses 原子递增使用次数
func (r *CouponRepository) IncrementUses(ctx context.Context, id string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Coupon{}).Where("id = ?", id).
		Update("uses_count", gorm.Expr("uses_count + 1"))
	return result.RowsAffected > 0, result.Error
}
