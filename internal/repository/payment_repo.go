package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/internal/model"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func (r *PaymentRepository) WithTx(tx *gorm.DB) *PaymentRepository {
	return &PaymentRepository{db: tx}
}

func (r *PaymentRepository) Create(ctx context.Context, payment *model.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *PaymentRepository) GetByRazorpayPaymentID(ctx context.Context, paymentID string) (*model.Payment, error) {
	var payment model.Payment
	err := r.db.WithContext(ctx).Where("razorpay_payment_id = ?", paymentID).First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) ExistsByRazorpayPaymentID(ctx context.Context, paymentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("razorpay_payment_id = ?", paymentID).Count(&count).Error
	return count > 0, err
}

// ListByUser 按时间倒序
func (r *PaymentRepository) ListByUser(ctx context.Context, userID string, limit int) ([]model.Payment, error) {
	var payments []model.Payment
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).
		Find(&payments).Error
	return payments, err
}

func (r *PaymentRepository) SetInvoiceKey(ctx context.Context, invoiceNumber, objectKey string) error {
	return r.db.WithContext(ctx).Model(&model.Payment{}).
		Where("invoice_number = ?", invoiceNumber).
		Update("invoice_key", objectKey).Error
}
