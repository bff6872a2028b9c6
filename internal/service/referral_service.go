package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/config"
	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/repository"
)

var (
	ErrUserNotFound         = errors.New("User not found")
	ErrInvalidReferralCode  = errors.New("Invalid referral code")
	ErrSelfReferral         = errors.New("Cannot use your own referral code")
	ErrReferralCodeConflict = errors.New("Failed to generate referral code")
)

const (
	referralCodeLength   = 8
	referralCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	referralCodeAttempts = 5
)

type ReferralService struct {
	userRepo     *repository.UserRepository
	referralRepo *repository.ReferralRepository
	cfg          *config.Config
	logger       *zap.Logger
	now          func() time.Time
}

func NewReferralService(
	userRepo *repository.UserRepository,
	referralRepo *repository.ReferralRepository,
	cfg *config.Config,
	logger *zap.Logger,
) *ReferralService {
	return &ReferralService{
		userRepo:     userRepo,
		referralRepo: referralRepo,
		cfg:          cfg,
		logger:       logger.Named("referral"),
		now:          time.Now,
	}
}

// Link 推荐注册链接
func (s *ReferralService) Link(code string) string {
	if code == "" {
		return ""
	}
	return strings.TrimRight(s.cfg.Server.PublicURL, "/") + "/auth?ref=" + code
}

// EnsureCode 返回用户的推荐码，没有时生成一个
// 多次调用结果相同
func (s *ReferralService) EnsureCode(ctx context.Context, userID string) (string, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrUserNotFound
		}
		return "", fmt.Errorf("get user: %w", err)
	}
	if user.ReferralCode != nil && *user.ReferralCode != "" {
		return *user.ReferralCode, nil
	}

	for i := 0; i < referralCodeAttempts; i++ {
		code, err := randomReferralCode()
		if err != nil {
			return "", err
		}

		set, err := s.userRepo.SetReferralCode(ctx, userID, code)
		if err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				continue
			}
			return "", fmt.Errorf("set referral code: %w", err)
		}
		if set {
			return code, nil
		}

		// 并发请求已写入，以库中的为准
		user, err = s.userRepo.GetByID(ctx, userID)
		if err != nil {
			return "", fmt.Errorf("get user: %w", err)
		}
		if user.ReferralCode != nil {
			return *user.ReferralCode, nil
		}
	}

	return "", ErrReferralCodeConflict
}

// ProcessSignupReferral 新用户注册时登记推荐关系
func (s *ReferralService) ProcessSignupReferral(ctx context.Context, newUserID, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil
	}

	referrer, err := s.userRepo.GetByReferralCode(ctx, code)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidReferralCode
		}
		return fmt.Errorf("get referrer: %w", err)
	}
	if referrer.ID == newUserID {
		return ErrSelfReferral
	}

	err = s.referralRepo.Create(ctx, &model.Referral{
		ReferrerID:     referrer.ID,
		ReferredUserID: newUserID,
		Status:         model.ReferralPending,
	})
	if err != nil {
		// 已被推荐过
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return fmt.Errorf("create referral: %w", err)
	}

	s.logger.Info("referral registered",
		zap.String("referrer_id", referrer.ID),
		zap.String("referred_user_id", newUserID))
	return nil
}

// Complete 被推荐用户付费后 pending -> completed
func (s *ReferralService) Complete(ctx context.Context, referredUserID string) (bool, error) {
	changed, err := s.referralRepo.CompletePending(ctx, referredUserID, s.now())
	if err != nil {
		return false, fmt.Errorf("complete referral: %w", err)
	}
	return changed, nil
}

func randomReferralCode() (string, error) {
	buf := make([]byte, referralCodeLength)
	limit := big.NewInt(int64(len(referralCodeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		buf[i] = referralCodeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
