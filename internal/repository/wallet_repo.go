package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/qs3c/playoga_server/internal/model"
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) WithTx(tx *gorm.DB) *WalletRepository {
	return &WalletRepository{db: tx}
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID string) (*model.Wallet, error) {
	var wallet model.Wallet
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		return nil, err
	}
	return &wallet, nil
}

// Credit 给钱包加款，钱包不存在时以 amount 为初始余额创建
// 单条 upsert 语句完成，并发入账不会丢失更新
func (r *WalletRepository) Credit(ctx context.Context, userID string, amount decimal.Decimal) error {
	wallet := &model.Wallet{UserID: userID, Balance: amount}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"balance":    gorm.Expr("wallets.balance + ?", amount),
			"updated_at": time.Now(),
		}),
	}).Create(wallet).Error
}

// Debit 扣减余额，余额不足时不修改并返回 false
func (r *WalletRepository) Debit(ctx context.Context, userID string, amount decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Wallet{}).
		Where("user_id = ? AND balance >= ?", userID, amount).
		Updates(map[string]interface{}{
			"balance":    gorm.Expr("balance - ?", amount),
			"updated_at": time.Now(),
		})
	return result.RowsAffected > 0, result.Error
}

type WithdrawalRepository struct {
	db *gorm.DB
}

func NewWithdrawalRepository(db *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: db}
}

func (r *WithdrawalRepository) WithTx(tx *gorm.DB) *WithdrawalRepository {
	return &WithdrawalRepository{db: tx}
}

// Create pending 状态的申请会写入 pending_user_id，唯一索引冲突时返回 gorm.ErrDuplicatedKey
func (r *WithdrawalRepository) Create(ctx context.Context, req *model.WithdrawalRequest) error {
	if req.Status == model.WithdrawalPending {
		userID := req.UserID
		req.PendingUserID = &userID
	}
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *WithdrawalRepository) GetByID(ctx context.Context, id string) (*model.WithdrawalRequest, error) {
	var req model.WithdrawalRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateStatus 是修改申请状态的唯一入口
// 离开 pending 时同一条 UPDATE 清空 pending_user_id，释放唯一索引
func (r *WithdrawalRepository) UpdateStatus(ctx context.Context, id, status string) (bool, error) {
	updates := map[string]interface{}{
		"status":     status,
		"updated_at": time.Now(),
	}
	if status == model.WithdrawalPending {
		updates["pending_user_id"] = gorm.Expr("user_id")
		updates["processed_at"] = nil
	} else {
		updates["pending_user_id"] = nil
		updates["processed_at"] = time.Now()
	}
	result := r.db.WithContext(ctx).Model(&model.WithdrawalRequest{}).
		Where("id = ?", id).
		Updates(updates)
	return result.RowsAffected > 0, result.Error
}

func (r *WithdrawalRepository) HasPending(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.WithdrawalRequest{}).
		Where("user_id = ? AND status = ?", userID, model.WithdrawalPending).
		Count(&count).Error
	return count > 0, err
}

// ListByUser 按时间倒序
func (r *WithdrawalRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.WithdrawalRequest, error) {
	var list []model.WithdrawalRequest
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).
		Find(&list).Error
	return list, err
}
