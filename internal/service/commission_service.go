package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/pkg/metrics"
	"github.com/qs3c/playoga_server/internal/repository"
)

type CommissionService struct {
	tx             *repository.TxManager
	referralRepo   *repository.ReferralRepository
	commissionRepo *repository.CommissionRepository
	walletRepo     *repository.WalletRepository
	amount         decimal.Decimal
	metrics        metrics.PaymentMetrics
	logger         *zap.Logger
}

func NewCommissionService(
	tx *repository.TxManager,
	referralRepo *repository.ReferralRepository,
	commissionRepo *repository.CommissionRepository,
	walletRepo *repository.WalletRepository,
	amount decimal.Decimal,
	m metrics.PaymentMetrics,
	logger *zap.Logger,
) *CommissionService {
	return &CommissionService{
		tx:             tx,
		referralRepo:   referralRepo,
		commissionRepo: commissionRepo,
		walletRepo:     walletRepo,
		amount:         amount,
		metrics:        m,
		logger:         logger.Named("commission"),
	}
}

// Settle 为被推荐用户的订阅发放佣金
// 没有已完成的推荐关系、佣金配置为 0 或该订阅已发放过时返回 nil
func (s *CommissionService) Settle(ctx context.Context, referredUserID, subscriptionID string) (*model.Commission, error) {
	if !s.amount.IsPositive() {
		return nil, nil
	}
	referral, err := s.referralRepo.GetByReferredUser(ctx, referredUserID, model.ReferralCompleted)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get referral: %w", err)
	}

	exists, err := s.commissionRepo.ExistsBySubscriptionID(ctx, subscriptionID)
	if err != nil {
		return nil, fmt.Errorf("check commission: %w", err)
	}
	if exists {
		s.logger.Info("commission already settled", zap.String("subscription_id", subscriptionID))
		return nil, nil
	}

	commission := &model.Commission{
		ReferralID:     referral.ID,
		ReferrerID:     referral.ReferrerID,
		ReferredUserID: referredUserID,
		SubscriptionID: subscriptionID,
		Amount:         s.amount,
	}

	err = s.tx.Do(ctx, func(tx *gorm.DB) error {
		if err := s.commissionRepo.WithTx(tx).Create(ctx, commission); err != nil {
			return err
		}
		return s.walletRepo.WithTx(tx).Credit(ctx, referral.ReferrerID, s.amount)
	})
	if err != nil {
		// 并发结算被唯一索引拦下
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil
		}
		return nil, fmt.Errorf("settle commission: %w", err)
	}

	amount, _ := s.amount.Float64()
	s.metrics.AddCommissionCredited(amount)
	s.logger.Info("commission credited",
		zap.String("referrer_id", referral.ReferrerID),
		zap.String("subscription_id", subscriptionID),
		zap.String("amount", s.amount.String()))

	return commission, nil
}
