package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/model/dto"
	"github.com/qs3c/playoga_server/internal/testutil"
)

// paidOrder 创建订单并完成验签，返回结算任务
func paidOrder(t *testing.T, env *paymentEnv, userID, paymentID string) *model.SettlementTask {
	t.Helper()
	ctx := context.Background()

	order, err := env.payments.CreateOrder(ctx, userID, &dto.CreateOrderRequest{Amount: decimal.NewFromInt(999)})
	require.NoError(t, err)
	_, err = env.payments.VerifyPayment(ctx, userID, verifyRequest(order.OrderID, paymentID))
	require.NoError(t, err)

	task, err := env.repos.Settlements.GetByOrderID(ctx, order.OrderID)
	require.NoError(t, err)
	return task
}

func TestSettlementService_RetriesFailedStep(t *testing.T) {
	env := setupPaymentEnv(t)
	ctx := context.Background()

	mailer := &flakyMailer{failures: 1}
	store := &memoryStore{}
	env.settlement.SetReceiptChannels(store, mailer)

	user := testutil.TestUser(t, env.db)
	testutil.TestSubscription(t, env.db, user.ID)

	task := paidOrder(t, env, user.ID, "pay_retry")
	assert.Equal(t, model.SettlementPending, task.Status)
	assert.Equal(t, 0, task.Attempts)
	assert.True(t, task.PaymentRecorded)
	assert.True(t, task.CouponConsumed)
	assert.False(t, task.ReceiptSent)
	assert.Empty(t, task.LastError)
	assert.Empty(t, mailer.sent)

	// 收据立即交给 worker，不走退避
	require.Len(t, env.queue.pushed, 1)
	assert.Equal(t, task.ID, env.queue.pushed[0].TaskID)
	assert.Empty(t, env.queue.scheduled)

	// worker 第一次发送失败，按退避时间进入延迟队列
	require.NoError(t, env.settlement.Process(ctx, task.ID))
	failed, err := env.repos.Settlements.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SettlementPending, failed.Status)
	assert.Equal(t, 1, failed.Attempts)
	assert.Contains(t, failed.LastError, "receipt_sent")
	require.Len(t, env.queue.scheduled, 1)
	assert.Equal(t, task.ID, env.queue.scheduled[0].TaskID)
	assert.WithinDuration(t, failed.NextAttemptAt, env.queue.at[0], time.Second)

	// 未到重试时间不会执行
	require.NoError(t, env.settlement.Process(ctx, task.ID))
	assert.Empty(t, mailer.sent)

	env.settlement.now = func() time.Time { return time.Now().Add(time.Hour) }
	require.NoError(t, env.settlement.Process(ctx, task.ID))

	done, err := env.repos.Settlements.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SettlementDone, done.Status)
	assert.Equal(t, 2, done.Attempts)
	assert.Empty(t, done.LastError)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, []string{done.InvoiceNumber}, mailer.sent)

	payment, err := env.repos.Payments.GetByRazorpayPaymentID(ctx, "pay_retry")
	require.NoError(t, err)
	assert.Equal(t, "invoices/"+done.InvoiceNumber+".html", payment.InvoiceKey)
	assert.Contains(t, string(store.files[done.InvoiceNumber]), done.InvoiceNumber)

	// 已完成的任务不会再次执行
	env.settlement.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	require.NoError(t, env.settlement.Process(ctx, task.ID))
	assert.Len(t, mailer.sent, 1)
}

func TestSettlementService_DeadLetter(t *testing.T) {
	env := setupPaymentEnv(t)
	env.settlement.cfg.MaxAttempts = 1
	env.settlement.SetReceiptChannels(nil, &flakyMailer{failures: 100})

	user := testutil.TestUser(t, env.db)
	testutil.TestSubscription(t, env.db, user.ID)

	task := paidOrder(t, env, user.ID, "pay_dead")
	assert.Equal(t, model.SettlementPending, task.Status)

	require.NoError(t, env.settlement.Process(context.Background(), task.ID))
	dead, err := env.repos.Settlements.GetByID(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SettlementFailed, dead.Status)
	assert.Contains(t, dead.LastError, "smtp unavailable")
	assert.Empty(t, env.queue.scheduled)

	// 失败任务不会被 Sweep 重新投递
	n, err := env.settlement.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSettlementService_Sweep(t *testing.T) {
	env := setupPaymentEnv(t)
	ctx := context.Background()
	now := time.Now()

	due := &model.SettlementTask{
		OrderID: "order_due", UserID: "u1", SubscriptionID: "s1",
		RazorpayPaymentID: "pay_due", InvoiceNumber: "INV1",
		Status: model.SettlementPending, NextAttemptAt: now.Add(-time.Minute),
	}
	stale := &model.SettlementTask{
		OrderID: "order_stale", UserID: "u2", SubscriptionID: "s2",
		RazorpayPaymentID: "pay_stale", InvoiceNumber: "INV2",
		Status: model.SettlementProcessing, NextAttemptAt: now.Add(-time.Minute),
	}
	later := &model.SettlementTask{
		OrderID: "order_later", UserID: "u3", SubscriptionID: "s3",
		RazorpayPaymentID: "pay_later", InvoiceNumber: "INV3",
		Status: model.SettlementPending, NextAttemptAt: now.Add(time.Hour),
	}
	for _, task := range []*model.SettlementTask{due, stale, later} {
		require.NoError(t, env.repos.Settlements.Create(ctx, task))
	}

	n, err := env.settlement.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var pushed []string
	for _, msg := range env.queue.pushed {
		pushed = append(pushed, msg.TaskID)
	}
	assert.ElementsMatch(t, []string{due.ID, stale.ID}, pushed)
}

func TestSettlementService_RetryDelay(t *testing.T) {
	env := setupPaymentEnv(t)

	assert.Equal(t, 30*time.Second, env.settlement.retryDelay(1))
	assert.Equal(t, 60*time.Second, env.settlement.retryDelay(2))
	assert.Equal(t, 4*time.Minute, env.settlement.retryDelay(4))
	assert.Equal(t, 6*time.Hour, env.settlement.retryDelay(20))
}

// blockingMailer 模拟不响应的 SMTP 服务
type blockingMailer struct {
	release chan struct{}
	calls   chan string
}

func (m *blockingMailer) Enabled() bool { return true }

func (m *blockingMailer) SendReceipt(to, invoiceNumber string, html []byte) error {
	m.calls <- invoiceNumber
	<-m.release
	return nil
}

func TestSettlementService_VerifyDoesNotWaitForReceipt(t *testing.T) {
	env := setupPaymentEnv(t)
	mailer := &blockingMailer{release: make(chan struct{}), calls: make(chan string, 1)}
	defer close(mailer.release)
	env.settlement.SetReceiptChannels(nil, mailer)

	user := testutil.TestUser(t, env.db)
	testutil.TestSubscription(t, env.db, user.ID)

	ctx := context.Background()
	order, err := env.payments.CreateOrder(ctx, user.ID, &dto.CreateOrderRequest{Amount: decimal.NewFromInt(999)})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := env.payments.VerifyPayment(ctx, user.ID, verifyRequest(order.OrderID, "pay_slow_mail"))
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("payment verification waited for the mail server")
	}

	task, err := env.repos.Settlements.GetByOrderID(ctx, order.OrderID)
	require.NoError(t, err)
	assert.True(t, task.PaymentRecorded)
	assert.False(t, task.ReceiptSent)
	require.Len(t, env.queue.pushed, 1)
	assert.Empty(t, mailer.calls)
}
