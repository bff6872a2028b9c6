// Package metrics 支付与结算相关的 prometheus 指标
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PaymentMetrics 业务层只依赖该接口，测试中使用 Nop
type PaymentMetrics interface {
	IncOrderCreated(currency string)
	IncOrderFailed(reason string)
	IncPaymentVerified(currency string)
	IncPaymentRejected(reason string)
	IncSettlementStep(step, outcome string)
	AddCommissionCredited(amount float64)
	IncWithdrawalRequested()
	ObservePaymentAmount(amount float64, currency string)
}

type paymentMetrics struct {
	ordersCreated       *prometheus.CounterVec
	ordersFailed        *prometheus.CounterVec
	paymentsVerified    *prometheus.CounterVec
	paymentsRejected    *prometheus.CounterVec
	settlementSteps     *prometheus.CounterVec
	commissionsCredited prometheus.Counter
	withdrawals         prometheus.Counter
	paymentsAmount      *prometheus.HistogramVec
}

// NewPaymentMetrics 在 registry 上注册全部指标
func NewPaymentMetrics(registry prometheus.Registerer) PaymentMetrics {
	factory := promauto.With(registry)

	return &paymentMetrics{
		ordersCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "playoga_orders_created_total",
			Help: "Payment orders opened with the gateway",
		}, []string{"currency"}),
		ordersFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "playoga_orders_failed_total",
			Help: "Payment orders that could not be opened",
		}, []string{"reason"}),
		paymentsVerified: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "playoga_payments_verified_total",
			Help: "Payments whose signature was verified and subscription activated",
		}, []string{"currency"}),
		paymentsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "playoga_payments_rejected_total",
			Help: "Payment verifications rejected",
		}, []string{"reason"}),
		settlementSteps: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "playoga_settlement_steps_total",
			Help: "Settlement step executions by outcome",
		}, []string{"step", "outcome"}),
		commissionsCredited: factory.NewCounter(prometheus.CounterOpts{
			Name: "playoga_commissions_credited_amount_total",
			Help: "Sum of referral commissions credited to wallets",
		}),
		withdrawals: factory.NewCounter(prometheus.CounterOpts{
			Name: "playoga_withdrawals_requested_total",
			Help: "Withdrawal requests submitted",
		}),
		paymentsAmount: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "playoga_payment_amount",
			Help:    "Verified payment totals",
			Buckets: prometheus.ExponentialBuckets(10, 10, 5), // 10, 100, 1000, 10000, 100000
		}, []string{"currency"}),
	}
}

func (m *paymentMetrics) IncOrderCreated(currency string) {
	m.ordersCreated.WithLabelValues(currency).Inc()
}

func (m *paymentMetrics) IncOrderFailed(reason string) {
	m.ordersFailed.WithLabelValues(reason).Inc()
}

func (m *paymentMetrics) IncPaymentVerified(currency string) {
	m.paymentsVerified.WithLabelValues(currency).Inc()
}

func (m *paymentMetrics) IncPaymentRejected(reason string) {
	m.paymentsRejected.WithLabelValues(reason).Inc()
}

func (m *paymentMetrics) IncSettlementStep(step, outcome string) {
	m.settlementSteps.WithLabelValues(step, outcome).Inc()
}

func (m *paymentMetrics) AddCommissionCredited(amount float64) {
	m.commissionsCredited.Add(amount)
}

func (m *paymentMetrics) IncWithdrawalRequested() {
	m.withdrawals.Inc()
}

func (m *paymentMetrics) ObservePaymentAmount(amount float64, currency string) {
	m.paymentsAmount.WithLabelValues(currency).Observe(amount)
}

type nop struct{}

// Nop 不记录任何指标
func Nop() PaymentMetrics { return nop{} }

func (nop) IncOrderCreated(string) {}
func (nop) IncOrderFailed(string) {}
func (nop) IncPaymentVerified(string) {}
func (nop) IncPaymentRejected(string) {}
func (nop) IncSettlementStep(string, string) {}
func (nop) AddCommissionCredited(float64) {}
func (nop) IncWithdrawalRequested() {}
func (nop) ObservePaymentAmount(float64, string) {}

// QueueDepth 结算队列长度
type QueueDepth interface {
	Length(ctx context.Context) (int64, error)
	DelayedLength(ctx context.Context) (int64, error)
}

// RegisterQueueDepth 抓取时读取就绪与延迟队列长度，读取失败记为 -1
func RegisterQueueDepth(registry prometheus.Registerer, q QueueDepth) {
	factory := promauto.With(registry)
	gauge := func(name, help string, read func(context.Context) (int64, error)) {
		factory.NewGaugeFunc(prometheus.GaugeOpts{Name: name, Help: help}, func() float64 {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			n, err := read(ctx)
			if err != nil {
				return -1
			}
			return float64(n)
		})
	}
	gauge("playoga_settlement_queue_ready", "Settlement tasks waiting in the ready list", q.Length)
	gauge("playoga_settlement_queue_delayed", "Settlement retries waiting for their backoff", q.DelayedLength)
}
