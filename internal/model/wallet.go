package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	WithdrawalPending   = "pending"
	WithdrawalApproved  = "approved"
	WithdrawalCompleted = "completed"
	WithdrawalRejected  = "rejected"
)

type Wallet struct {
	ID        string          `gorm:"primaryKey;size:36" json:"id"`
	UserID    string          `gorm:"size:36;not null;uniqueIndex" json:"user_id"`
	Balance   decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

func (w *Wallet) BeforeCreate(tx *gorm.DB) error {
	newID(&w.ID)
	return nil
}

// WithdrawalRequest 提现申请
// PendingUserID 仅在 pending 状态下等于 UserID，唯一索引保证每个用户最多一条待处理申请
type WithdrawalRequest struct {
	ID                string          `gorm:"primaryKey;size:36" json:"id"`
	UserID            string          `gorm:"size:36;not null;index" json:"user_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	UPIID             *string         `gorm:"column:upi_id;size:100" json:"upi_id,omitempty"`
	BankAccountNumber *string         `gorm:"size:34" json:"bank_account_number,omitempty"`
	BankIFSC          *string         `gorm:"column:bank_ifsc;size:11" json:"bank_ifsc,omitempty"`
	BankName          *string         `gorm:"size:100" json:"bank_name,omitempty"`
	Status            string          `gorm:"size:20;not null;index" json:"status"` // pending, approved, completed, rejected
	PendingUserID     *string         `gorm:"size:36;uniqueIndex" json:"-"`
	ProcessedAt       *time.Time      `json:"processed_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (WithdrawalRequest) TableName() string {
	return "withdrawal_requests"
}

func (w *WithdrawalRequest) BeforeCreate(tx *gorm.DB) error {
	newID(&w.ID)
	return nil
}
