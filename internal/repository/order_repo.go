package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/internal/model"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) WithTx(tx *gorm.DB) *OrderRepository {
	return &OrderRepository{db: tx}
}

func (r *OrderRepository) Create(ctx context.Context, order *model.PaymentOrder) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*model.PaymentOrder, error) {
	var order model.PaymentOrder
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// MarkPaidParams 支付成功后回写订单的字段
type MarkPaidParams struct {
	RazorpayPaymentID string
	SubscriptionID    string
	InvoiceNumber     string
	ExpiresAt         time.Time
	PaidAt            time.Time
}

// MarkPaid 仅在订单仍为 created 时更新为 paid，返回是否更新成功
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, p MarkPaidParams) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.PaymentOrder{}).
		Where("id = ? AND status = ?", id, model.OrderCreated).
		Updates(map[string]interface{}{
			"status":              model.OrderPaid,
			"razorpay_payment_id": p.RazorpayPaymentID,
			"subscription_id":     p.SubscriptionID,
			"invoice_number":      p.InvoiceNumber,
			"expires_at":          p.ExpiresAt,
			"paid_at":             p.PaidAt,
		})
	return result.RowsAffected > 0, result.Error
}
