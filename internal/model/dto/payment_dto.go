package dto

import (
	"github.com/shopspring/decimal"
)

func init() {
	// 金额以 JSON 数字输出，与前端约定一致
	decimal.MarshalJSONWithoutQuotes = true
}

// ValidateCouponRequest 校验优惠券请求
type ValidateCouponRequest struct {
	Code       string          `json:"code"`
	BaseAmount decimal.Decimal `json:"baseAmount"`
}

// ValidateCouponResponse 校验结果，无效时同样返回 200
type ValidateCouponResponse struct {
	Valid    bool            `json:"valid"`
	Discount decimal.Decimal `json:"discount"`
	CouponID *string         `json:"couponId"`
	Message  string          `json:"message"`
}

// CreateOrderRequest 创建支付订单请求
type CreateOrderRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	CouponCode string          `json:"couponCode,omitempty"`
}

// Prefill 收银台预填信息
type Prefill struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Contact string `json:"contact"`
}

// OrderNotes 订单金额明细
type OrderNotes struct {
	CouponID   *string         `json:"couponId"`
	Discount   decimal.Decimal `json:"discount"`
	GSTAmount  decimal.Decimal `json:"gstAmount"`
	BaseAmount decimal.Decimal `json:"baseAmount"`
}

// CreateOrderResponse 创建订单响应，amount 单位为 paise
type CreateOrderResponse struct {
	OrderID  string     `json:"orderId"`
	Amount   int64      `json:"amount"`
	Currency string     `json:"currency"`
	KeyID    string     `json:"keyId"`
	Prefill  Prefill    `json:"prefill"`
	Notes    OrderNotes `json:"notes"`
}

// VerifyPaymentRequest 支付验签请求
// 客户端回传的金额字段仅用于比对，服务端以下单时保存的金额为准
type VerifyPaymentRequest struct {
	RazorpayOrderID   string              `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string              `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string              `json:"razorpay_signature" binding:"required"`
	CouponID          *string             `json:"couponId,omitempty"`
	BaseAmount        decimal.NullDecimal `json:"baseAmount"`
	GSTAmount         decimal.NullDecimal `json:"gstAmount"`
	DiscountAmount    decimal.NullDecimal `json:"discountAmount"`
	TotalAmount       decimal.NullDecimal `json:"totalAmount"`
}

// SubscriptionState 激活后的订阅状态
type SubscriptionState struct {
	Status    string `json:"status"`
	ExpiresAt string `json:"expiresAt"`
}

// VerifyPaymentResponse 验签响应
type VerifyPaymentResponse struct {
	Success       bool              `json:"success"`
	Message       string            `json:"message"`
	Subscription  SubscriptionState `json:"subscription"`
	InvoiceNumber string            `json:"invoiceNumber"`
}

// PaymentItem 支付记录
type PaymentItem struct {
	ID            string          `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	InvoiceURL    string          `json:"invoice_url,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	Discount      decimal.Decimal `json:"discount_amount"`
	GSTAmount     decimal.Decimal `json:"gst_amount"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	CreatedAt     string          `json:"created_at"`
}

// PaymentListResponse 支付记录列表
type PaymentListResponse struct {
	Payments []PaymentItem `json:"payments"`
}

// SubscriptionResponse 当前订阅
type SubscriptionResponse struct {
	Status                string          `json:"status"`
	PlanName              string          `json:"plan_name,omitempty"`
	StartsAt              string          `json:"starts_at,omitempty"`
	ExpiresAt             string          `json:"expires_at,omitempty"`
	AmountPaid            decimal.Decimal `json:"amount_paid"`
	HasActiveSubscription bool            `json:"has_active_subscription"`
}
