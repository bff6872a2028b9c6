package dto

import (
	"github.com/shopspring/decimal"
)

// WithdrawalRequest 提现申请，UPI 与银行账户二选一
type WithdrawalRequest struct {
	Amount            decimal.Decimal `json:"amount"`
	UPIID             string          `json:"upi_id,omitempty"`
	BankAccountNumber string          `json:"bank_account_number,omitempty"`
	BankIFSC          string          `json:"bank_ifsc,omitempty"`
	BankName          string          `json:"bank_name,omitempty"`
}

// WithdrawalItem 提现记录
type WithdrawalItem struct {
	ID                string          `json:"id"`
	Amount            decimal.Decimal `json:"amount"`
	UPIID             string          `json:"upi_id,omitempty"`
	BankAccountNumber string          `json:"bank_account_number,omitempty"`
	BankIFSC          string          `json:"bank_ifsc,omitempty"`
	BankName          string          `json:"bank_name,omitempty"`
	Status            string          `json:"status"`
	CreatedAt         string          `json:"created_at"`
}

// WithdrawalResponse 提现申请响应
type WithdrawalResponse struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	Withdrawal *WithdrawalItem `json:"withdrawal"`
}

// CommissionItem 佣金记录
type CommissionItem struct {
	ID             string          `json:"id"`
	ReferredUserID string          `json:"referred_user_id"`
	SubscriptionID string          `json:"subscription_id"`
	Amount         decimal.Decimal `json:"amount"`
	CreatedAt      string          `json:"created_at"`
}

// ReferralStats 推荐统计
type ReferralStats struct {
	Total     int64           `json:"total"`
	Completed int64           `json:"completed"`
	Pending   int64           `json:"pending"`
	Earnings  decimal.Decimal `json:"earnings"`
}

// WalletOverview 钱包概览
type WalletOverview struct {
	Balance      decimal.Decimal  `json:"balance"`
	ReferralCode string           `json:"referral_code,omitempty"`
	ReferralLink string           `json:"referral_link,omitempty"`
	Stats        ReferralStats    `json:"stats"`
	Commissions  []CommissionItem `json:"commissions"`
	Withdrawals  []WithdrawalItem `json:"withdrawals"`
}

// ReferralCodeResponse 推荐码
type ReferralCodeResponse struct {
	ReferralCode string `json:"referral_code"`
	ReferralLink string `json:"referral_link"`
}
