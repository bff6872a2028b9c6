package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/config"
	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/pkg/invoice"
	"github.com/qs3c/playoga_server/internal/pkg/metrics"
	"github.com/qs3c/playoga_server/internal/pkg/money"
	"github.com/qs3c/playoga_server/internal/pkg/pubsub"
	"github.com/qs3c/playoga_server/internal/pkg/queue"
	"github.com/qs3c/playoga_server/internal/repository"
)

const (
	StepPaymentRecorded    = "payment_recorded"
	StepReferralCompleted  = "referral_completed"
	StepReferralCodeIssued = "referral_code_issued"
	StepCommissionSettled  = "commission_settled"
	StepCouponConsumed     = "coupon_consumed"
	StepReceiptSent        = "receipt_sent"
)

const (
	sweepBatchSize = 100
	maxRetryDelay  = 6 * time.Hour
)

var errStepBlocked = errors.New("waiting for a previous step")

type SettlementService struct {
	repos       *repository.Repositories
	referrals   *ReferralService
	commissions *CommissionService
	cfg         config.SettlementConfig
	planName    string
	queue       TaskQueue
	publisher   EventPublisher
	store       InvoiceStore
	mailer      ReceiptMailer
	metrics     metrics.PaymentMetrics
	logger      *zap.Logger
	now         func() time.Time
}

func NewSettlementService(
	repos *repository.Repositories,
	referrals *ReferralService,
	commissions *CommissionService,
	cfg *config.Config,
	m metrics.PaymentMetrics,
	logger *zap.Logger,
) *SettlementService {
	return &SettlementService{
		repos:       repos,
		referrals:   referrals,
		commissions: commissions,
		cfg:         cfg.Settlement,
		planName:    cfg.Billing.PlanName,
		metrics:     m,
		logger:      logger.Named("settlement"),
		now:         time.Now,
	}
}

// SetQueue 未设置时失败任务只能由 Sweep 重新执行
func (s *SettlementService) SetQueue(q TaskQueue) {
	s.queue = q
}

func (s *SettlementService) SetPublisher(p EventPublisher) {
	s.publisher = p
}

// SetReceiptChannels store 与 mailer 均可为 nil
func (s *SettlementService) SetReceiptChannels(store InvoiceStore, mailer ReceiptMailer) {
	s.store = store
	s.mailer = mailer
}

// NewTask 构建与订阅激活同事务写入的结算任务
func (s *SettlementService) NewTask(order *model.PaymentOrder, subscriptionID, paymentID, invoiceNumber string) *model.SettlementTask {
	return &model.SettlementTask{
		OrderID:           order.ID,
		UserID:            order.UserID,
		SubscriptionID:    subscriptionID,
		RazorpayPaymentID: paymentID,
		InvoiceNumber:     invoiceNumber,
		Status:            model.SettlementPending,
		NextAttemptAt:     s.now(),
	}
}

// Process 执行一次结算任务，已完成的步骤会被跳过
// 只有抢占或保存任务失败时返回错误，步骤失败记录在任务上并安排重试
func (s *SettlementService) Process(ctx context.Context, taskID string) error {
	return s.process(ctx, taskID, false)
}

// ProcessInline 在验签请求内执行，只跑数据库步骤
// 收据涉及外部网络，留给 worker 执行，本次执行不计入重试次数
func (s *SettlementService) ProcessInline(ctx context.Context, taskID string) error {
	return s.process(ctx, taskID, true)
}

func (s *SettlementService) process(ctx context.Context, taskID string, inline bool) error {
	now := s.now()
	lease := time.Duration(s.cfg.LeaseSeconds) * time.Second

	claimed, err := s.repos.Settlements.Claim(ctx, taskID, now, now.Add(lease))
	if err != nil {
		return fmt.Errorf("claim settlement task: %w", err)
	}
	if !claimed {
		return nil
	}

	task, err := s.repos.Settlements.GetByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("get settlement task: %w", err)
	}

	stepErr := s.runSteps(ctx, task, inline)
	return s.finish(ctx, task, stepErr, inline)
}

func (s *SettlementService) receiptEnabled() bool {
	return s.store != nil || (s.mailer != nil && s.mailer.Enabled())
}

func (s *SettlementService) runSteps(ctx context.Context, task *model.SettlementTask, inline bool) error {
	order, err := s.repos.Orders.GetByID(ctx, task.OrderID)
	if err != nil {
		return fmt.Errorf("get order: %w", err)
	}

	var errs []error
	errs = append(errs, s.runStep(task, StepPaymentRecorded, &task.PaymentRecorded, func() error {
		return s.recordPayment(ctx, task, order)
	}))
	errs = append(errs, s.runStep(task, StepReferralCompleted, &task.ReferralCompleted, func() error {
		_, err := s.referrals.Complete(ctx, task.UserID)
		return err
	}))
	errs = append(errs, s.runStep(task, StepReferralCodeIssued, &task.ReferralCodeIssued, func() error {
		_, err := s.referrals.EnsureCode(ctx, task.UserID)
		return err
	}))
	errs = append(errs, s.runStep(task, StepCommissionSettled, &task.CommissionSettled, func() error {
		// 佣金依赖推荐关系已完成
		if !task.ReferralCompleted {
			return errStepBlocked
		}
		return s.settleCommission(ctx, task)
	}))
	errs = append(errs, s.runStep(task, StepCouponConsumed, &task.CouponConsumed, func() error {
		return s.consumeCoupon(ctx, order)
	}))
	if inline && s.receiptEnabled() {
		return errors.Join(errs...)
	}
	errs = append(errs, s.runStep(task, StepReceiptSent, &task.ReceiptSent, func() error {
		if !task.PaymentRecorded {
			return errStepBlocked
		}
		return s.sendReceipt(ctx, task, order)
	}))

	return errors.Join(errs...)
}

func (s *SettlementService) runStep(task *model.SettlementTask, name string, done *bool, fn func() error) error {
	if *done {
		return nil
	}
	if err := fn(); err != nil {
		if errors.Is(err, errStepBlocked) {
			return fmt.Errorf("%s: %w", name, err)
		}
		s.metrics.IncSettlementStep(name, "error")
		s.logger.Warn("settlement step failed",
			zap.String("task_id", task.ID),
			zap.String("order_id", task.OrderID),
			zap.String("step", name),
			zap.Error(err))
		return fmt.Errorf("%s: %w", name, err)
	}
	*done = true
	s.metrics.IncSettlementStep(name, "ok")
	return nil
}

func (s *SettlementService) finish(ctx context.Context, task *model.SettlementTask, stepErr error, inline bool) error {
	now := s.now()
	handoff := false

	switch {
	case stepErr == nil && task.AllStepsDone():
		task.Status = model.SettlementDone
		task.LastError = ""
		task.CompletedAt = &now
	case stepErr == nil && inline:
		// 只剩收据，立即交给 worker
		handoff = true
		task.Status = model.SettlementPending
		task.LastError = ""
		task.Attempts--
		task.NextAttemptAt = now
	case task.Attempts >= s.cfg.MaxAttempts:
		task.Status = model.SettlementFailed
		task.LastError = errorText(stepErr)
		s.logger.Error("settlement task exhausted retries",
			zap.String("task_id", task.ID),
			zap.String("order_id", task.OrderID),
			zap.Int("attempts", task.Attempts),
			zap.Error(stepErr))
	default:
		task.Status = model.SettlementPending
		task.LastError = errorText(stepErr)
		task.NextAttemptAt = now.Add(s.retryDelay(task.Attempts))
	}

	if err := s.repos.Settlements.Save(ctx, task); err != nil {
		return fmt.Errorf("save settlement task: %w", err)
	}

	if handoff {
		// 没有队列时由 Sweep 投递，不能回退到同步执行
		if s.queue != nil {
			msg := &queue.SettlementMessage{TaskID: task.ID, OrderID: task.OrderID, Attempt: task.Attempts}
			if err := s.queue.Push(ctx, msg); err != nil {
				s.logger.Warn("hand off receipt failed", zap.String("task_id", task.ID), zap.Error(err))
			}
		}
		return nil
	}

	if task.Status == model.SettlementPending && s.queue != nil {
		msg := &queue.SettlementMessage{TaskID: task.ID, OrderID: task.OrderID, Attempt: task.Attempts}
		if err := s.queue.Schedule(ctx, msg, task.NextAttemptAt); err != nil {
			// 队列不可用时由 Sweep 兜底
			s.logger.Warn("schedule settlement retry failed", zap.String("task_id", task.ID), zap.Error(err))
		}
	}
	return nil
}

// retryDelay 指数退避：base * 2^(attempt-1)，上限 6 小时
func (s *SettlementService) retryDelay(attempt int) time.Duration {
	base := time.Duration(s.cfg.RetryBaseSeconds) * time.Second
	if base <= 0 {
		base = 30 * time.Second
	}
	delay := base
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			return maxRetryDelay
		}
	}
	return delay
}

func errorText(err error) string {
	if err == nil {
		return errStepBlocked.Error()
	}
	return err.Error()
}

func (s *SettlementService) recordPayment(ctx context.Context, task *model.SettlementTask, order *model.PaymentOrder) error {
	exists, err := s.repos.Payments.ExistsByRazorpayPaymentID(ctx, task.RazorpayPaymentID)
	if err != nil {
		return err
	}
	if !exists {
		payment := &model.Payment{
			UserID:            task.UserID,
			SubscriptionID:    task.SubscriptionID,
			Amount:            order.BaseAmount,
			DiscountAmount:    order.DiscountAmount,
			GSTAmount:         order.GSTAmount,
			TotalAmount:       order.TotalAmount,
			Currency:          order.Currency,
			Status:            model.PaymentCompleted,
			RazorpayOrderID:   order.ID,
			RazorpayPaymentID: task.RazorpayPaymentID,
			CouponID:          order.CouponID,
			InvoiceNumber:     task.InvoiceNumber,
		}
		if err := s.repos.Payments.Create(ctx, payment); err != nil && !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
	}

	s.publish(ctx, pubsub.EventSubscriptionActivated, task.UserID,
		s.planName+" is now active", map[string]string{"invoice_number": task.InvoiceNumber})
	return nil
}

func (s *SettlementService) settleCommission(ctx context.Context, task *model.SettlementTask) error {
	commission, err := s.commissions.Settle(ctx, task.UserID, task.SubscriptionID)
	if err != nil {
		return err
	}
	if commission != nil {
		s.publish(ctx, pubsub.EventWalletCredited, commission.ReferrerID,
			"₹"+commission.Amount.String()+" referral commission credited",
			map[string]string{"amount": money.Format(commission.Amount)})
	}
	return nil
}

func (s *SettlementService) consumeCoupon(ctx context.Context, order *model.PaymentOrder) error {
	if order.CouponID == nil {
		return nil
	}
	ok, err := s.repos.Coupons.IncrementUses(ctx, *order.CouponID)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("coupon missing when consuming", zap.String("coupon_id", *order.CouponID))
	}
	return nil
}

func (s *SettlementService) sendReceipt(ctx context.Context, task *model.SettlementTask, order *model.PaymentOrder) error {
	mailEnabled := s.mailer != nil && s.mailer.Enabled()
	if s.store == nil && !mailEnabled {
		return nil
	}

	user, err := s.repos.Users.GetByID(ctx, task.UserID)
	if err != nil {
		return err
	}

	receipt := &invoice.Receipt{
		InvoiceNumber:     task.InvoiceNumber,
		CustomerName:      user.FullName,
		CustomerEmail:     user.Email,
		PlanName:          s.planName,
		Currency:          order.Currency,
		Price:             order.Price,
		Discount:          order.DiscountAmount,
		BaseAmount:        order.BaseAmount,
		GSTAmount:         order.GSTAmount,
		TotalAmount:       order.TotalAmount,
		RazorpayPaymentID: task.RazorpayPaymentID,
	}
	if order.PaidAt != nil {
		receipt.PaidAt = *order.PaidAt
	}
	if order.ExpiresAt != nil {
		receipt.ExpiresAt = *order.ExpiresAt
	}

	html, err := invoice.Render(receipt)
	if err != nil {
		return err
	}

	if s.store != nil {
		key, err := s.store.UploadInvoice(task.InvoiceNumber, html)
		if err != nil {
			return fmt.Errorf("upload invoice: %w", err)
		}
		if err := s.repos.Payments.SetInvoiceKey(ctx, task.InvoiceNumber, key); err != nil {
			return err
		}
	}

	if mailEnabled {
		if err := s.mailer.SendReceipt(user.Email, task.InvoiceNumber, html); err != nil {
			return fmt.Errorf("send receipt: %w", err)
		}
	}
	return nil
}

func (s *SettlementService) publish(ctx context.Context, eventType, userID, message string, data interface{}) {
	if s.publisher == nil {
		return
	}
	evt, err := pubsub.NewEvent(eventType, userID, message, data)
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("publish event failed", zap.String("type", eventType), zap.Error(err))
	}
}

// Enqueue 将任务推入队列，没有队列时直接执行
func (s *SettlementService) Enqueue(ctx context.Context, task *model.SettlementTask) error {
	if s.queue == nil {
		return s.Process(ctx, task.ID)
	}
	return s.queue.Push(ctx, &queue.SettlementMessage{
		TaskID:  task.ID,
		OrderID: task.OrderID,
		Attempt: task.Attempts,
	})
}

// Sweep 回收租约过期的任务，并重新投递所有到期任务
func (s *SettlementService) Sweep(ctx context.Context) (int, error) {
	now := s.now()

	if s.queue != nil {
		if _, err := s.queue.PromoteDue(ctx, now); err != nil {
			s.logger.Warn("promote delayed settlements failed", zap.Error(err))
		}
	}

	released, err := s.repos.Settlements.ReleaseStale(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("release stale tasks: %w", err)
	}
	if released > 0 {
		s.logger.Warn("released stale settlement tasks", zap.Int64("count", released))
	}

	tasks, err := s.repos.Settlements.ListDue(ctx, now, sweepBatchSize)
	if err != nil {
		return 0, fmt.Errorf("list due tasks: %w", err)
	}

	for i := range tasks {
		if err := s.Enqueue(ctx, &tasks[i]); err != nil {
			s.logger.Warn("enqueue settlement task failed", zap.String("task_id", tasks[i].ID), zap.Error(err))
		}
	}
	return len(tasks), nil
}
