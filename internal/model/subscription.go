package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	SubscriptionFree      = "free"
	SubscriptionActive    = "active"
	SubscriptionExpired   = "expired"
	SubscriptionCancelled = "cancelled"
)

type Subscription struct {
	ID         string          `gorm:"primaryKey;size:36" json:"id"`
	UserID     string          `gorm:"size:36;not null;index" json:"user_id"`
	Status     string          `gorm:"size:20;not null;index" json:"status"` // free, active, expired, cancelled
	PlanName   string          `gorm:"size:50" json:"plan_name,omitempty"`
	StartsAt   *time.Time      `json:"starts_at,omitempty"`
	ExpiresAt  *time.Time      `gorm:"index" json:"expires_at,omitempty"`
	AmountPaid decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount_paid"`
	GSTAmount  decimal.Decimal `gorm:"column:gst_amount;type:decimal(10,2);not null" json:"gst_amount"`
	CreatedAt  time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (Subscription) TableName() string {
	return "subscriptions"
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	newID(&s.ID)
	return nil
}

// IsActiveAt 订阅在给定时间是否有效
func (s *Subscription) IsActiveAt(t time.Time) bool {
	return s.Status == SubscriptionActive && s.ExpiresAt != nil && s.ExpiresAt.After(t)
}
