package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/config"
	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/model/dto"
	"github.com/qs3c/playoga_server/internal/pkg/invoice"
	"github.com/qs3c/playoga_server/internal/pkg/metrics"
	"github.com/qs3c/playoga_server/internal/pkg/money"
	"github.com/qs3c/playoga_server/internal/pkg/razorpay"
	"github.com/qs3c/playoga_server/internal/repository"
)

var (
	ErrPaymentNotConfigured = errors.New("Payment gateway not configured")
	ErrInvalidAmount        = errors.New("Invalid amount")
	ErrOrderCreateFailed    = errors.New("Failed to create payment order")
	ErrInvalidSignature     = errors.New("Invalid payment signature")
	ErrOrderNotFound        = errors.New("Payment order not found")
	ErrSubscriptionUpdate   = errors.New("Failed to update subscription")
)

const (
	paymentSuccessMessage = "Payment verified and subscription activated"
	invoiceURLTTLSeconds  = 3600
)

var errOrderAlreadyPaid = errors.New("order already paid")

type PaymentService struct {
	repos      *repository.Repositories
	coupons    *CouponService
	settlement *SettlementService
	gateway    OrderGateway
	invoices   *invoice.Generator
	store      InvoiceStore
	cfg        *config.Config
	metrics    metrics.PaymentMetrics
	logger     *zap.Logger
	now        func() time.Time
}

func NewPaymentService(
	repos *repository.Repositories,
	coupons *CouponService,
	settlement *SettlementService,
	gateway OrderGateway,
	invoices *invoice.Generator,
	cfg *config.Config,
	m metrics.PaymentMetrics,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		repos:      repos,
		coupons:    coupons,
		settlement: settlement,
		gateway:    gateway,
		invoices:   invoices,
		cfg:        cfg,
		metrics:    m,
		logger:     logger.Named("payment"),
		now:        time.Now,
	}
}

// CreateOrder 服务端重新计算折扣与税费，在 Razorpay 下单并保存订单金额
func (s *PaymentService) CreateOrder(ctx context.Context, userID string, req *dto.CreateOrderRequest) (*dto.CreateOrderResponse, error) {
	if !s.gateway.Configured() {
		s.logger.Error("razorpay credentials missing")
		return nil, ErrPaymentNotConfigured
	}

	price := req.Amount
	if !price.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if planPrice := s.cfg.Billing.PlanPriceDecimal(); planPrice.IsPositive() && !price.Equal(planPrice) {
		s.logger.Warn("client price differs from plan price",
			zap.String("user_id", userID),
			zap.String("price", price.String()),
			zap.String("plan_price", planPrice.String()))
		return nil, ErrInvalidAmount
	}

	user, err := s.repos.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	// 无效优惠券按无折扣处理
	discount := decimal.Zero
	var couponID *string
	if strings.TrimSpace(req.CouponCode) != "" {
		coupon, d, err := s.coupons.Resolve(ctx, req.CouponCode, price)
		if err != nil {
			s.logger.Info("coupon ignored at checkout", zap.String("user_id", userID), zap.Error(err))
		} else {
			discount = decimal.Min(d, price)
			couponID = &coupon.ID
		}
	}

	baseAmount := price.Sub(discount)
	if !baseAmount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	gstAmount := money.TaxOn(baseAmount, s.cfg.Billing.TaxRateDecimal())
	total := baseAmount.Add(gstAmount)
	amountMinor := money.ToMinor(total)
	currency := s.cfg.Razorpay.Currency

	notes := map[string]string{
		"user_id":         userID,
		"coupon_id":       "",
		"base_amount":     money.Format(baseAmount),
		"gst_amount":      money.Format(gstAmount),
		"discount_amount": money.Format(discount),
	}
	if couponID != nil {
		notes["coupon_id"] = *couponID
	}

	receipt := "rcpt_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	order, err := s.gateway.CreateOrder(ctx, &razorpay.OrderRequest{
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
		Notes:    notes,
	})
	if err != nil {
		s.metrics.IncOrderFailed("gateway")
		s.logger.Error("razorpay order failed", zap.String("user_id", userID), zap.Error(err))
		return nil, ErrOrderCreateFailed
	}

	err = s.repos.Orders.Create(ctx, &model.PaymentOrder{
		ID:             order.ID,
		UserID:         userID,
		CouponID:       couponID,
		Price:          price,
		DiscountAmount: discount,
		BaseAmount:     baseAmount,
		GSTAmount:      gstAmount,
		TotalAmount:    total,
		AmountMinor:    amountMinor,
		Currency:       currency,
		Receipt:        receipt,
		Status:         model.OrderCreated,
	})
	if err != nil {
		s.metrics.IncOrderFailed("storage")
		s.logger.Error("save payment order failed", zap.String("order_id", order.ID), zap.Error(err))
		return nil, ErrOrderCreateFailed
	}

	s.metrics.IncOrderCreated(currency)
	s.logger.Info("payment order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.Int64("amount_minor", amountMinor))

	return &dto.CreateOrderResponse{
		OrderID:  order.ID,
		Amount:   amountMinor,
		Currency: currency,
		KeyID:    s.gateway.KeyID(),
		Prefill: dto.Prefill{
			Name:    user.FullName,
			Email:   user.Email,
			Contact: user.Phone,
		},
		Notes: dto.OrderNotes{
			CouponID:   couponID,
			Discount:   discount,
			GSTAmount:  gstAmount,
			BaseAmount: baseAmount,
		},
	}, nil
}

// VerifyPayment 验签后在同一事务中激活订阅、标记订单已支付并写入结算任务
// 结算任务提交后立即执行一次，失败的步骤由 worker 重试
func (s *PaymentService) VerifyPayment(ctx context.Context, userID string, req *dto.VerifyPaymentRequest) (*dto.VerifyPaymentResponse, error) {
	secret := s.cfg.Razorpay.KeySecret
	if secret == "" {
		s.logger.Error("razorpay secret missing")
		return nil, ErrPaymentNotConfigured
	}

	if !razorpay.VerifySignature(secret, req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature) {
		s.metrics.IncPaymentRejected("signature")
		s.logger.Warn("invalid payment signature",
			zap.String("user_id", userID),
			zap.String("order_id", req.RazorpayOrderID))
		return nil, ErrInvalidSignature
	}

	order, err := s.repos.Orders.GetByID(ctx, req.RazorpayOrderID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil || order.UserID != userID {
		s.metrics.IncPaymentRejected("order")
		s.logger.Warn("payment order not found",
			zap.String("user_id", userID),
			zap.String("order_id", req.RazorpayOrderID))
		return nil, ErrOrderNotFound
	}

	if order.Status == model.OrderPaid {
		return s.paidResponse(order), nil
	}

	s.checkClientAmounts(order, req)

	now := s.now()
	expiresAt := now.AddDate(0, s.cfg.Billing.PlanDurationMonths, 0)
	invoiceNumber := s.invoices.Next()

	var task *model.SettlementTask
	err = s.repos.Tx.Do(ctx, func(tx *gorm.DB) error {
		sub, err := s.repos.Subscriptions.WithTx(tx).Activate(ctx, userID, repository.ActivateParams{
			PlanName:   s.cfg.Billing.PlanName,
			StartsAt:   now,
			ExpiresAt:  expiresAt,
			AmountPaid: order.TotalAmount,
			GSTAmount:  order.GSTAmount,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSubscriptionUpdate, err)
		}

		updated, err := s.repos.Orders.WithTx(tx).MarkPaid(ctx, order.ID, repository.MarkPaidParams{
			RazorpayPaymentID: req.RazorpayPaymentID,
			SubscriptionID:    sub.ID,
			InvoiceNumber:     invoiceNumber,
			ExpiresAt:         expiresAt,
			PaidAt:            now,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSubscriptionUpdate, err)
		}
		if !updated {
			return errOrderAlreadyPaid
		}

		task = s.settlement.NewTask(order, sub.ID, req.RazorpayPaymentID, invoiceNumber)
		if err := s.repos.Settlements.WithTx(tx).Create(ctx, task); err != nil {
			return fmt.Errorf("%w: %v", ErrSubscriptionUpdate, err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errOrderAlreadyPaid) {
			// 并发验签，返回先完成的那次结果
			paid, getErr := s.repos.Orders.GetByID(ctx, order.ID)
			if getErr != nil {
				return nil, fmt.Errorf("get order: %w", getErr)
			}
			return s.paidResponse(paid), nil
		}
		s.metrics.IncPaymentRejected("activation")
		s.logger.Error("subscription activation failed",
			zap.String("user_id", userID),
			zap.String("order_id", order.ID),
			zap.Error(err))
		return nil, ErrSubscriptionUpdate
	}

	total, _ := order.TotalAmount.Float64()
	s.metrics.IncPaymentVerified(order.Currency)
	s.metrics.ObservePaymentAmount(total, order.Currency)
	s.logger.Info("payment verified",
		zap.String("user_id", userID),
		zap.String("order_id", order.ID),
		zap.String("invoice_number", invoiceNumber))

	// 结算失败不影响响应，客户端断开也要继续执行
	if err := s.settlement.ProcessInline(context.WithoutCancel(ctx), task.ID); err != nil {
		s.logger.Error("inline settlement failed", zap.String("task_id", task.ID), zap.Error(err))
	}

	return &dto.VerifyPaymentResponse{
		Success: true,
		Message: paymentSuccessMessage,
		Subscription: dto.SubscriptionState{
			Status:    model.SubscriptionActive,
			ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		},
		InvoiceNumber: invoiceNumber,
	}, nil
}

func (s *PaymentService) paidResponse(order *model.PaymentOrder) *dto.VerifyPaymentResponse {
	resp := &dto.VerifyPaymentResponse{
		Success:      true,
		Message:      paymentSuccessMessage,
		Subscription: dto.SubscriptionState{Status: model.SubscriptionActive},
	}
	if order.InvoiceNumber != nil {
		resp.InvoiceNumber = *order.InvoiceNumber
	}
	if order.ExpiresAt != nil {
		resp.Subscription.ExpiresAt = order.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return resp
}

// checkClientAmounts 客户端金额只做比对
func (s *PaymentService) checkClientAmounts(order *model.PaymentOrder, req *dto.VerifyPaymentRequest) {
	mismatch := func(field string, client decimal.NullDecimal, server decimal.Decimal) {
		if client.Valid && !client.Decimal.Equal(server) {
			s.logger.Warn("client amount mismatch",
				zap.String("order_id", order.ID),
				zap.String("field", field),
				zap.String("client", client.Decimal.String()),
				zap.String("server", server.String()))
		}
	}
	mismatch("base_amount", req.BaseAmount, order.BaseAmount)
	mismatch("gst_amount", req.GSTAmount, order.GSTAmount)
	mismatch("discount_amount", req.DiscountAmount, order.DiscountAmount)
	mismatch("total_amount", req.TotalAmount, order.TotalAmount)

	clientCoupon, serverCoupon := "", ""
	if req.CouponID != nil {
		clientCoupon = *req.CouponID
	}
	if order.CouponID != nil {
		serverCoupon = *order.CouponID
	}
	if clientCoupon != "" && clientCoupon != serverCoupon {
		s.logger.Warn("client coupon mismatch", zap.String("order_id", order.ID))
	}
}

// ListPayments 用户支付记录
// SetInvoiceStore 未设置时列表不返回收据链接
func (s *PaymentService) SetInvoiceStore(store InvoiceStore) {
	s.store = store
}

// invoiceURL 收据含用户信息，只返回一小时有效的签名地址
func (s *PaymentService) invoiceURL(p *model.Payment) string {
	if s.store == nil || p.InvoiceKey == "" {
		return ""
	}
	url, err := s.store.GetSignedURL(p.InvoiceKey, invoiceURLTTLSeconds)
	if err != nil {
		s.logger.Warn("sign invoice url failed", zap.String("invoice_number", p.InvoiceNumber), zap.Error(err))
		return ""
	}
	return url
}

func (s *PaymentService) ListPayments(ctx context.Context, userID string) (*dto.PaymentListResponse, error) {
	payments, err := s.repos.Payments.ListByUser(ctx, userID, 50)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	items := make([]dto.PaymentItem, 0, len(payments))
	for _, p := range payments {
		items = append(items, dto.PaymentItem{
			ID:            p.ID,
			InvoiceNumber: p.InvoiceNumber,
			InvoiceURL:    s.invoiceURL(&p),
			Amount:        p.Amount,
			Discount:      p.DiscountAmount,
			GSTAmount:     p.GSTAmount,
			TotalAmount:   p.TotalAmount,
			Currency:      p.Currency,
			Status:        p.Status,
			CreatedAt:     p.CreatedAt.Format(time.RFC3339),
		})
	}
	return &dto.PaymentListResponse{Payments: items}, nil
}
