package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	SettlementPending    = "pending"
	SettlementProcessing = "processing"
	SettlementDone       = "done"
	SettlementFailed     = "failed"
)

// SettlementTask 支付成功后的结算任务，与订阅激活在同一事务写入
// 每个步骤完成后置位对应标记，重试时跳过已完成步骤
type SettlementTask struct {
	ID                 string     `gorm:"primaryKey;size:36" json:"id"`
	OrderID            string     `gorm:"size:64;not null;uniqueIndex" json:"order_id"`
	UserID             string     `gorm:"size:36;not null;index" json:"user_id"`
	SubscriptionID     string     `gorm:"size:36;not null" json:"subscription_id"`
	RazorpayPaymentID  string     `gorm:"size:64;not null" json:"razorpay_payment_id"`
	InvoiceNumber      string     `gorm:"size:32;not null" json:"invoice_number"`
	Status             string     `gorm:"size:20;not null;index" json:"status"` // pending, processing, done, failed
	Attempts           int        `gorm:"not null" json:"attempts"`
	LastError          string     `gorm:"type:text" json:"last_error,omitempty"`
	NextAttemptAt      time.Time  `gorm:"index" json:"next_attempt_at"`
	PaymentRecorded    bool       `json:"payment_recorded"`
	ReferralCompleted  bool       `json:"referral_completed"`
	ReferralCodeIssued bool       `json:"referral_code_issued"`
	CommissionSettled  bool       `json:"commission_settled"`
	CouponConsumed     bool       `json:"coupon_consumed"`
	ReceiptSent        bool       `json:"receipt_sent"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

func (SettlementTask) TableName() string {
	return "settlement_tasks"
}

func (s *SettlementTask) BeforeCreate(tx *gorm.DB) error {
	newID(&s.ID)
	return nil
}

// AllStepsDone 所有步骤是否完成
func (s *SettlementTask) AllStepsDone() bool {
	return s.PaymentRecorded && s.ReferralCompleted && s.ReferralCodeIssued &&
		s.CommissionSettled && s.CouponConsumed && s.ReceiptSent
}
