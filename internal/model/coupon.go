package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Coupon 固定金额与百分比折扣二选一
type Coupon struct {
	ID                 string              `gorm:"primaryKey;size:36" json:"id"`
	Code               string              `gorm:"size:50;uniqueIndex;not null" json:"code"`
	DiscountAmount     decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"discount_amount"`
	DiscountPercentage decimal.NullDecimal `gorm:"type:decimal(5,2)" json:"discount_percentage"`
	IsActive           bool                `gorm:"not null;index" json:"is_active"`
	ValidFrom          *time.Time          `json:"valid_from,omitempty"`
	ValidUntil         *time.Time          `json:"valid_until,omitempty"`
	MaxUses            *int                `json:"max_uses,omitempty"` // nil 表示不限次数
	UsesCount          int                 `gorm:"not null" json:"uses_count"`
	CreatedAt          time.Time           `json:"created_at"`
	UpdatedAt          time.Time           `json:"updated_at"`
}

func (Coupon) TableName() string {
	return "coupons"
}

func (c *Coupon) BeforeCreate(tx *gorm.DB) error {
	newID(&c.ID)
	return nil
}
