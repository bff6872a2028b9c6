package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/model/dto"
	"github.com/qs3c/playoga_server/internal/repository"
)

type SubscriptionService struct {
	subRepo *repository.SubscriptionRepository
	logger  *zap.Logger
	now     func() time.Time
}

func NewSubscriptionService(subRepo *repository.SubscriptionRepository, logger *zap.Logger) *SubscriptionService {
	return &SubscriptionService{
		subRepo: subRepo,
		logger:  logger.Named("subscription"),
		now:     time.Now,
	}
}

// Status 当前订阅，没有订阅记录时视为 free
func (s *SubscriptionService) Status(ctx context.Context, userID string) (*dto.SubscriptionResponse, error) {
	sub, err := s.subRepo.GetCurrentByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.SubscriptionResponse{Status: model.SubscriptionFree}, nil
		}
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	resp := &dto.SubscriptionResponse{
		Status:                sub.Status,
		PlanName:              sub.PlanName,
		AmountPaid:            sub.AmountPaid,
		HasActiveSubscription: sub.IsActiveAt(s.now()),
	}
	if sub.StartsAt != nil {
		resp.StartsAt = sub.StartsAt.UTC().Format(time.RFC3339)
	}
	if sub.ExpiresAt != nil {
		resp.ExpiresAt = sub.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp, nil
}

// ExpireDue 过期订阅置为 expired，dryRun 时只统计
func (s *SubscriptionService) ExpireDue(ctx context.Context, dryRun bool) (int64, error) {
	now := s.now()
	if dryRun {
		return s.subRepo.CountExpireDue(ctx, now)
	}

	n, err := s.subRepo.ExpireDue(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("expire subscriptions: %w", err)
	}
	if n > 0 {
		s.logger.Info("subscriptions expired", zap.Int64("count", n))
	}
	return n, nil
}
