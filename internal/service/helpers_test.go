package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/config"
	"github.com/qs3c/playoga_server/internal/pkg/invoice"
	"github.com/qs3c/playoga_server/internal/pkg/metrics"
	"github.com/qs3c/playoga_server/internal/pkg/pubsub"
	"github.com/qs3c/playoga_server/internal/pkg/queue"
	"github.com/qs3c/playoga_server/internal/pkg/razorpay"
	"github.com/qs3c/playoga_server/internal/repository"
	"github.com/qs3c/playoga_server/internal/testutil"
)

const testKeySecret = "rzp_test_secret"

func testConfig() *config.Config {
	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:      "test-secret-key-for-testing",
			ExpireHours: 24,
		},
		Razorpay: config.RazorpayConfig{
			KeyID:     "rzp_test_key",
			KeySecret: testKeySecret,
		},
	}
	cfg.Defaults()
	return cfg
}

type fakeGateway struct {
	mu         sync.Mutex
	configured bool
	err        error
	requests   []*razorpay.OrderRequest
}

func (g *fakeGateway) Configured() bool { return g.configured }
func (g *fakeGateway) KeyID() string    { return "rzp_test_key" }

func (g *fakeGateway) CreateOrder(ctx context.Context, req *razorpay.OrderRequest) (*razorpay.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	g.requests = append(g.requests, req)
	return &razorpay.Order{
		ID:       fmt.Sprintf("order_test%d", len(g.requests)),
		Entity:   "order",
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
		Notes:    req.Notes,
	}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []*pubsub.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, evt *pubsub.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return nil
}

func (p *recordingPublisher) typesFor(userID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var types []string
	for _, e := range p.events {
		if e.UserID == userID {
			types = append(types, e.Type)
		}
	}
	return types
}

type fakeQueue struct {
	mu        sync.Mutex
	pushed    []*queue.SettlementMessage
	scheduled []*queue.SettlementMessage
	at        []time.Time
}

func (q *fakeQueue) Push(ctx context.Context, msg *queue.SettlementMessage) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pushed = append(q.pushed, msg)
	return nil
}

func (q *fakeQueue) Schedule(ctx context.Context, msg *queue.SettlementMessage, at time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.scheduled = append(q.scheduled, msg)
	q.at = append(q.at, at)
	return nil
}

func (q *fakeQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	return 0, nil
}

type flakyMailer struct {
	mu       sync.Mutex
	failures int
	sent     []string
}

func (m *flakyMailer) Enabled() bool { return true }

func (m *flakyMailer) SendReceipt(to, invoiceNumber string, html []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, invoiceNumber)
	return nil
}

type memoryStore struct {
	files map[string][]byte
}

func (s *memoryStore) UploadInvoice(invoiceNumber string, data []byte) (string, error) {
	if s.files == nil {
		s.files = map[string][]byte{}
	}
	s.files[invoiceNumber] = data
	return "invoices/" + invoiceNumber + ".html", nil
}

func (s *memoryStore) GetSignedURL(objectKey string, expireSeconds ...int64) (string, error) {
	return fmt.Sprintf("https://signed.example.com/%s?Expires=%d", objectKey, expireSeconds[0]), nil
}

type paymentEnv struct {
	db         *gorm.DB
	cfg        *config.Config
	repos      *repository.Repositories
	coupons    *CouponService
	referrals  *ReferralService
	settlement *SettlementService
	payments   *PaymentService
	gateway    *fakeGateway
	queue      *fakeQueue
	publisher  *recordingPublisher
}

func setupPaymentEnv(t *testing.T) *paymentEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := testConfig()
	logger := zap.NewNop()
	m := metrics.Nop()
	repos := repository.NewRepositories(db)

	gen, err := invoice.NewGenerator(cfg.Snowflake.Node)
	if err != nil {
		t.Fatalf("Failed to create invoice generator: %v", err)
	}

	env := &paymentEnv{
		db:        db,
		cfg:       cfg,
		repos:     repos,
		gateway:   &fakeGateway{configured: true},
		queue:     &fakeQueue{},
		publisher: &recordingPublisher{},
	}
	env.coupons = NewCouponService(repos.Coupons, logger)
	env.referrals = NewReferralService(repos.Users, repos.Referrals, cfg, logger)
	commissions := NewCommissionService(repos.Tx, repos.Referrals, repos.Commissions, repos.Wallets,
		cfg.Billing.CommissionDecimal(), m, logger)
	env.settlement = NewSettlementService(repos, env.referrals, commissions, cfg, m, logger)
	env.settlement.SetQueue(env.queue)
	env.settlement.SetPublisher(env.publisher)
	env.payments = NewPaymentService(repos, env.coupons, env.settlement, env.gateway, gen, cfg, m, logger)

	return env
}
