package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ReferralPending   = "pending"
	ReferralCompleted = "completed"
)

type Referral struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	ReferrerID     string     `gorm:"size:36;not null;index" json:"referrer_id"`
	ReferredUserID string     `gorm:"size:36;not null;uniqueIndex" json:"referred_user_id"`
	Status         string     `gorm:"size:20;not null;index" json:"status"` // pending, completed
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (Referral) TableName() string {
	return "referrals"
}

func (r *Referral) BeforeCreate(tx *gorm.DB) error {
	newID(&r.ID)
	return nil
}

// Commission 每个订阅至多一条
type Commission struct {
	ID             string          `gorm:"primaryKey;size:36" json:"id"`
	ReferralID     string          `gorm:"size:36;not null;index" json:"referral_id"`
	ReferrerID     string          `gorm:"size:36;not null;index" json:"referrer_id"`
	ReferredUserID string          `gorm:"size:36;not null" json:"referred_user_id"`
	SubscriptionID string          `gorm:"size:36;not null;uniqueIndex" json:"subscription_id"`
	Amount         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (Commission) TableName() string {
	return "commissions"
}

func (c *Commission) BeforeCreate(tx *gorm.DB) error {
	newID(&c.ID)
	return nil
}
