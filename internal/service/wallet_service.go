package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/config"
	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/model/dto"
	"github.com/qs3c/playoga_server/internal/pkg/metrics"
	"github.com/qs3c/playoga_server/internal/pkg/pubsub"
	"github.com/qs3c/playoga_server/internal/repository"
)

var (
	ErrInvalidWithdrawalAmount = errors.New("Invalid withdrawal amount")
	ErrWithdrawalBelowMinimum  = errors.New("Withdrawal amount is below the minimum")
	ErrPayoutDetailsRequired   = errors.New("Please provide UPI ID or bank account details")
	ErrInvalidIFSC             = errors.New("Invalid IFSC code")
	ErrInsufficientBalance     = errors.New("Insufficient wallet balance")
	ErrPendingWithdrawal       = errors.New("You already have a pending withdrawal request")
	ErrWithdrawalCreate        = errors.New("Failed to create withdrawal request")
	ErrWithdrawalNotFound      = errors.New("Withdrawal request not found")
	ErrWithdrawalTransition    = errors.New("Withdrawal request cannot move to that status")
)

// withdrawalTransitions 允许的状态流转，completed 与 rejected 为终态
var withdrawalTransitions = map[string][]string{
	model.WithdrawalPending:  {model.WithdrawalApproved, model.WithdrawalCompleted, model.WithdrawalRejected},
	model.WithdrawalApproved: {model.WithdrawalCompleted, model.WithdrawalRejected},
}

const withdrawalSubmittedMessage = "Withdrawal request submitted. Admin will review and process it."

var ifscPattern = regexp.MustCompile(`^[A-Z]{4}0[A-Z0-9]{6}$`)

type WalletService struct {
	repos     *repository.Repositories
	referrals *ReferralService
	cfg       config.WalletConfig
	publisher EventPublisher
	metrics   metrics.PaymentMetrics
	logger    *zap.Logger
}

func NewWalletService(
	repos *repository.Repositories,
	referrals *ReferralService,
	cfg *config.Config,
	m metrics.PaymentMetrics,
	logger *zap.Logger,
) *WalletService {
	return &WalletService{
		repos:     repos,
		referrals: referrals,
		cfg:       cfg.Wallet,
		metrics:   m,
		logger:    logger.Named("wallet"),
	}
}

func (s *WalletService) SetPublisher(p EventPublisher) {
	s.publisher = p
}

// RequestWithdrawal 提交提现申请，余额在管理员处理时扣减
func (s *WalletService) RequestWithdrawal(ctx context.Context, userID string, req *dto.WithdrawalRequest) (*dto.WithdrawalResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, ErrInvalidWithdrawalAmount
	}
	if minimum := decimal.NewFromFloat(s.cfg.MinWithdrawal); minimum.IsPositive() && req.Amount.LessThan(minimum) {
		return nil, ErrWithdrawalBelowMinimum
	}

	upi := strings.TrimSpace(req.UPIID)
	account := strings.TrimSpace(req.BankAccountNumber)
	ifsc := strings.ToUpper(strings.TrimSpace(req.BankIFSC))
	bankName := strings.TrimSpace(req.BankName)
	if upi == "" && account == "" {
		return nil, ErrPayoutDetailsRequired
	}
	if upi == "" && !ifscPattern.MatchString(ifsc) {
		return nil, ErrInvalidIFSC
	}

	balance := decimal.Zero
	wallet, err := s.repos.Wallets.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	if wallet != nil {
		balance = wallet.Balance
	}
	if balance.LessThan(req.Amount) {
		return nil, ErrInsufficientBalance
	}

	pending, err := s.repos.Withdrawals.HasPending(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check pending withdrawal: %w", err)
	}
	if pending {
		return nil, ErrPendingWithdrawal
	}

	withdrawal := &model.WithdrawalRequest{
		UserID:            userID,
		Amount:            req.Amount,
		UPIID:             optional(upi),
		BankAccountNumber: optional(account),
		BankIFSC:          optional(ifsc),
		BankName:          optional(bankName),
		Status:            model.WithdrawalPending,
	}
	if err := s.repos.Withdrawals.Create(ctx, withdrawal); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPendingWithdrawal
		}
		s.logger.Error("create withdrawal failed", zap.String("user_id", userID), zap.Error(err))
		return nil, ErrWithdrawalCreate
	}

	s.metrics.IncWithdrawalRequested()
	s.logger.Info("withdrawal requested",
		zap.String("user_id", userID),
		zap.String("withdrawal_id", withdrawal.ID),
		zap.String("amount", withdrawal.Amount.String()))
	s.notify(ctx, withdrawal)

	item := toWithdrawalItem(withdrawal)
	return &dto.WithdrawalResponse{
		Success:    true,
		Message:    withdrawalSubmittedMessage,
		Withdrawal: &item,
	}, nil
}

// ResolveWithdrawal 管理员处理提现申请，completed 时在同一事务中扣减余额
func (s *WalletService) ResolveWithdrawal(ctx context.Context, id, status string) (*model.WithdrawalRequest, error) {
	var resolved *model.WithdrawalRequest
	err := s.repos.Tx.Do(ctx, func(tx *gorm.DB) error {
		withdrawals := s.repos.Withdrawals.WithTx(tx)

		req, err := withdrawals.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrWithdrawalNotFound
			}
			return fmt.Errorf("get withdrawal: %w", err)
		}
		if !canTransition(req.Status, status) {
			return ErrWithdrawalTransition
		}

		if status == model.WithdrawalCompleted {
			ok, err := s.repos.Wallets.WithTx(tx).Debit(ctx, req.UserID, req.Amount)
			if err != nil {
				return fmt.Errorf("debit wallet: %w", err)
			}
			if !ok {
				return ErrInsufficientBalance
			}
		}

		if _, err := withdrawals.UpdateStatus(ctx, req.ID, status); err != nil {
			return fmt.Errorf("update withdrawal: %w", err)
		}
		resolved, err = withdrawals.GetByID(ctx, req.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("withdrawal resolved",
		zap.String("withdrawal_id", resolved.ID),
		zap.String("user_id", resolved.UserID),
		zap.String("status", resolved.Status),
		zap.String("amount", resolved.Amount.String()))
	return resolved, nil
}

func canTransition(from, to string) bool {
	for _, next := range withdrawalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s *WalletService) notify(ctx context.Context, w *model.WithdrawalRequest) {
	if s.publisher == nil {
		return
	}
	evt, err := pubsub.NewEvent(pubsub.EventWithdrawalRequested, w.UserID,
		"Withdrawal request of ₹"+w.Amount.String()+" submitted", map[string]string{"id": w.ID})
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("publish withdrawal event failed", zap.Error(err))
	}
}

// Overview 钱包余额、推荐统计、佣金与提现记录
func (s *WalletService) Overview(ctx context.Context, userID string) (*dto.WalletOverview, error) {
	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	overview := &dto.WalletOverview{
		Balance:     decimal.Zero,
		Commissions: []dto.CommissionItem{},
		Withdrawals: []dto.WithdrawalItem{},
	}

	wallet, err := s.repos.Wallets.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get wallet: %w", err)
	}
	if wallet != nil {
		overview.Balance = wallet.Balance
	}

	if user.ReferralCode != nil {
		overview.ReferralCode = *user.ReferralCode
		overview.ReferralLink = s.referrals.Link(*user.ReferralCode)
	}

	if overview.Stats.Total, err = s.repos.Referrals.CountByReferrer(ctx, userID, ""); err != nil {
		return nil, fmt.Errorf("count referrals: %w", err)
	}
	if overview.Stats.Completed, err = s.repos.Referrals.CountByReferrer(ctx, userID, model.ReferralCompleted); err != nil {
		return nil, fmt.Errorf("count referrals: %w", err)
	}
	overview.Stats.Pending = overview.Stats.Total - overview.Stats.Completed
	if overview.Stats.Earnings, err = s.repos.Commissions.SumByReferrer(ctx, userID); err != nil {
		return nil, fmt.Errorf("sum commissions: %w", err)
	}

	commissions, err := s.repos.Commissions.ListByReferrer(ctx, userID, 50)
	if err != nil {
		return nil, fmt.Errorf("list commissions: %w", err)
	}
	for _, c := range commissions {
		overview.Commissions = append(overview.Commissions, dto.CommissionItem{
			ID:             c.ID,
			ReferredUserID: c.ReferredUserID,
			SubscriptionID: c.SubscriptionID,
			Amount:         c.Amount,
			CreatedAt:      c.CreatedAt.Format(time.RFC3339),
		})
	}

	withdrawals, err := s.repos.Withdrawals.ListByUser(ctx, userID, 50)
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	for i := range withdrawals {
		overview.Withdrawals = append(overview.Withdrawals, toWithdrawalItem(&withdrawals[i]))
	}

	return overview, nil
}

func toWithdrawalItem(w *model.WithdrawalRequest) dto.WithdrawalItem {
	return dto.WithdrawalItem{
		ID:                w.ID,
		Amount:            w.Amount,
		UPIID:             deref(w.UPIID),
		BankAccountNumber: deref(w.BankAccountNumber),
		BankIFSC:          deref(w.BankIFSC),
		BankName:          deref(w.BankName),
		Status:            w.Status,
		CreatedAt:         w.CreatedAt.Format(time.RFC3339),
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
