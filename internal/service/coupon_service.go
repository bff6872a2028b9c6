package service

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/model/dto"
	"github.com/qs3c/playoga_server/internal/pkg/money"
	"github.com/qs3c/playoga_server/internal/repository"
)

var (
	ErrCouponCodeRequired = errors.New("Invalid coupon code")
	ErrCouponFormat       = errors.New("Invalid coupon format")
	ErrCouponNotFound     = errors.New("Invalid coupon code")
	ErrCouponNotActive    = errors.New("Coupon not yet active")
	ErrCouponExpired      = errors.New("Coupon has expired")
	ErrCouponExhausted    = errors.New("Coupon usage limit reached")
)

var couponCodePattern = regexp.MustCompile(`^[A-Z0-9_-]{1,50}$`)

type CouponService struct {
	couponRepo *repository.CouponRepository
	logger     *zap.Logger
	now        func() time.Time
}

func NewCouponService(couponRepo *repository.CouponRepository, logger *zap.Logger) *CouponService {
	return &CouponService{
		couponRepo: couponRepo,
		logger:     logger.Named("coupon"),
		now:        time.Now,
	}
}

// NormalizeCode 去空白并转大写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Resolve 校验优惠券并计算折扣，下单与校验接口共用同一套规则
func (s *CouponService) Resolve(ctx context.Context, code string, baseAmount decimal.Decimal) (*model.Coupon, decimal.Decimal, error) {
	code = NormalizeCode(code)
	if !couponCodePattern.MatchString(code) {
		return nil, decimal.Zero, ErrCouponFormat
	}

	coupon, err := s.couponRepo.GetActiveByCode(ctx, code)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("coupon lookup failed", zap.String("code", code), zap.Error(err))
		}
		return nil, decimal.Zero, ErrCouponNotFound
	}

	now := s.now()
	if coupon.ValidFrom != nil && now.Before(*coupon.ValidFrom) {
		return nil, decimal.Zero, ErrCouponNotActive
	}
	if coupon.ValidUntil != nil && now.After(*coupon.ValidUntil) {
		return nil, decimal.Zero, ErrCouponExpired
	}
	if coupon.MaxUses != nil && coupon.UsesCount >= *coupon.MaxUses {
		return nil, decimal.Zero, ErrCouponExhausted
	}

	return coupon, Discount(coupon, baseAmount), nil
}

// Discount 固定金额优先，否则按百分比向下取整，值为 0 视同未设置
func Discount(coupon *model.Coupon, baseAmount decimal.Decimal) decimal.Decimal {
	if coupon.DiscountAmount.Valid && coupon.DiscountAmount.Decimal.IsPositive() {
		return coupon.DiscountAmount.Decimal
	}
	if coupon.DiscountPercentage.Valid && coupon.DiscountPercentage.Decimal.IsPositive() {
		return money.PercentOf(baseAmount, coupon.DiscountPercentage.Decimal)
	}
	return decimal.Zero
}

// Validate 校验接口，无效券同样返回结果而非错误
func (s *CouponService) Validate(ctx context.Context, req *dto.ValidateCouponRequest) *dto.ValidateCouponResponse {
	coupon, discount, err := s.Resolve(ctx, req.Code, req.BaseAmount)
	if err != nil {
		return &dto.ValidateCouponResponse{
			Valid:    false,
			Discount: decimal.Zero,
			Message:  err.Error(),
		}
	}

	couponID := coupon.ID
	return &dto.ValidateCouponResponse{
		Valid:    true,
		Discount: discount,
		CouponID: &couponID,
		Message:  "Coupon applied! ₹" + discount.String() + " off",
	}
}
