package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	OrderCreated = "created"
	OrderPaid    = "paid"

	PaymentCompleted = "completed"
)

// PaymentOrder 下单时由服务端计算并保存的金额，验签时以此为准
type PaymentOrder struct {
	ID                string          `gorm:"primaryKey;size:64" json:"id"` // razorpay order id
	UserID            string          `gorm:"size:36;not null;index" json:"user_id"`
	CouponID          *string         `gorm:"size:36" json:"coupon_id,omitempty"`
	Price             decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	DiscountAmount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount_amount"`
	BaseAmount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"base_amount"`
	GSTAmount         decimal.Decimal `gorm:"column:gst_amount;type:decimal(10,2);not null" json:"gst_amount"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	AmountMinor       int64           `gorm:"not null" json:"amount_minor"`
	Currency          string          `gorm:"size:3;not null" json:"currency"`
	Receipt           string          `gorm:"size:64" json:"receipt"`
	Status            string          `gorm:"size:20;not null;index" json:"status"` // created, paid
	RazorpayPaymentID *string         `gorm:"size:64" json:"razorpay_payment_id,omitempty"`
	SubscriptionID    *string         `gorm:"size:36" json:"subscription_id,omitempty"`
	InvoiceNumber     *string         `gorm:"size:32" json:"invoice_number,omitempty"`
	ExpiresAt         *time.Time      `json:"expires_at,omitempty"` // 激活后的订阅到期时间
	PaidAt            *time.Time      `json:"paid_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

func (PaymentOrder) TableName() string {
	return "payment_orders"
}

// Payment 支付审计记录，写入后不再修改（invoice_key 除外）
type Payment struct {
	ID                string          `gorm:"primaryKey;size:36" json:"id"`
	UserID            string          `gorm:"size:36;not null;index" json:"user_id"`
	SubscriptionID    string          `gorm:"size:36;index" json:"subscription_id"`
	Amount            decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	DiscountAmount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount_amount"`
	GSTAmount         decimal.Decimal `gorm:"column:gst_amount;type:decimal(10,2);not null" json:"gst_amount"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_amount"`
	Currency          string          `gorm:"size:3;not null" json:"currency"`
	Status            string          `gorm:"size:20;not null" json:"status"`
	RazorpayOrderID   string          `gorm:"size:64;not null;index" json:"razorpay_order_id"`
	RazorpayPaymentID string          `gorm:"size:64;not null;uniqueIndex" json:"razorpay_payment_id"`
	CouponID          *string         `gorm:"size:36" json:"coupon_id,omitempty"`
	InvoiceNumber     string          `gorm:"size:32;not null;uniqueIndex" json:"invoice_number"`
	InvoiceKey        string          `gorm:"size:255" json:"-"` // OSS 私有对象，读取时签名
	CreatedAt         time.Time       `json:"created_at"`
}

func (Payment) TableName() string {
	return "payments"
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	newID(&p.ID)
	return nil
}
