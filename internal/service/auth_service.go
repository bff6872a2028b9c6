package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/config"
	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/model/dto"
	"github.com/qs3c/playoga_server/internal/pkg/jwt"
	"github.com/qs3c/playoga_server/internal/repository"
)

var (
	ErrEmailExists        = errors.New("Email already registered")
	ErrInvalidCredentials = errors.New("Invalid email or password")
)

// WelcomeMailer 注册欢迎邮件
type WelcomeMailer interface {
	Enabled() bool
	SendWelcome(to, name, referralLink string) error
}

type AuthService struct {
	repos     *repository.Repositories
	referrals *ReferralService
	cfg       *config.Config
	mailer    WelcomeMailer
	logger    *zap.Logger
}

func NewAuthService(repos *repository.Repositories, referrals *ReferralService, cfg *config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		repos:     repos,
		referrals: referrals,
		cfg:       cfg,
		logger:    logger.Named("auth"),
	}
}

func (s *AuthService) SetMailer(m WelcomeMailer) {
	s.mailer = m
}

// Register 创建用户与 free 订阅，生成推荐码并登记邀请关系
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	exists, err := s.repos.Users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, ErrEmailExists
	}

	// 加密密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        strings.TrimSpace(req.Phone),
	}

	err = s.repos.Tx.Do(ctx, func(tx *gorm.DB) error {
		if err := s.repos.Users.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}
		return s.repos.Subscriptions.WithTx(tx).Create(ctx, &model.Subscription{
			UserID: user.ID,
			Status: model.SubscriptionFree,
		})
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	code, err := s.referrals.EnsureCode(ctx, user.ID)
	if err != nil {
		s.logger.Warn("generate referral code failed", zap.String("user_id", user.ID), zap.Error(err))
	}

	// 邀请码无效不影响注册
	if err := s.referrals.ProcessSignupReferral(ctx, user.ID, req.ReferralCode); err != nil {
		s.logger.Info("signup referral skipped", zap.String("user_id", user.ID), zap.Error(err))
	}

	if s.mailer != nil && s.mailer.Enabled() {
		link := s.referrals.Link(code)
		go func() {
			if err := s.mailer.SendWelcome(user.Email, user.FullName, link); err != nil {
				s.logger.Warn("send welcome email failed", zap.String("user_id", user.ID), zap.Error(err))
			}
		}()
	}

	token, err := jwt.GenerateToken(user.ID, user.Email, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.RegisterResponse{
		UserID: user.ID,
		Token:  token,
	}, nil
}

// Login 用户登录
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	user, err := s.repos.Users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := jwt.GenerateToken(user.ID, user.Email, s.cfg.JWT.Secret, s.cfg.JWT.ExpireHours)
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token: token,
		User:  buildUserInfo(user),
	}, nil
}

// Me 当前用户信息
func (s *AuthService) Me(ctx context.Context, userID string) (*dto.UserInfo, error) {
	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return buildUserInfo(user), nil
}

func buildUserInfo(user *model.User) *dto.UserInfo {
	return &dto.UserInfo{
		ID:           user.ID,
		Email:        user.Email,
		FullName:     user.FullName,
		Phone:        user.Phone,
		ReferralCode: deref(user.ReferralCode),
		CreatedAt:    user.CreatedAt.Format(time.RFC3339),
	}
}
