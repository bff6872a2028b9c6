package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/config"
	"github.com/qs3c/playoga_server/internal/api/middleware"
	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/pkg/invoice"
	"github.com/qs3c/playoga_server/internal/pkg/jwt"
	"github.com/qs3c/playoga_server/internal/pkg/metrics"
	"github.com/qs3c/playoga_server/internal/pkg/razorpay"
	"github.com/qs3c/playoga_server/internal/pkg/ws"
	"github.com/qs3c/playoga_server/internal/repository"
	"github.com/qs3c/playoga_server/internal/service"
	"github.com/qs3c/playoga_server/internal/testutil"
)

const testKeySecret = "rzp_test_secret"

type handlerEnv struct {
	db     *gorm.DB
	cfg    *config.Config
	repos  *repository.Repositories
	router *gin.Engine

	mu     sync.Mutex
	orders []razorpay.OrderRequest
}

// fakeRazorpay 模拟 POST /v1/orders
func (e *handlerEnv) fakeRazorpay(w http.ResponseWriter, r *http.Request) {
	var req razorpay.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	e.mu.Lock()
	e.orders = append(e.orders, req)
	id := fmt.Sprintf("order_h%d", len(e.orders))
	e.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(razorpay.Order{
		ID:       id,
		Entity:   "order",
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
		Notes:    req.Notes,
	})
}

func setupHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	env := &handlerEnv{db: db}

	srv := httptest.NewServer(http.HandlerFunc(env.fakeRazorpay))
	t.Cleanup(srv.Close)

	cfg := &config.Config{
		JWT: config.JWTConfig{
			Secret:      "test-secret-key",
			ExpireHours: 24,
		},
		Razorpay: config.RazorpayConfig{
			KeyID:     "rzp_test_key",
			KeySecret: testKeySecret,
			BaseURL:   srv.URL,
		},
		CORS: config.CORSConfig{AllowLocalhost: true},
	}
	cfg.Defaults()
	env.cfg = cfg

	logger := zap.NewNop()
	m := metrics.Nop()
	repos := repository.NewRepositories(db)
	env.repos = repos

	gen, err := invoice.NewGenerator(cfg.Snowflake.Node)
	if err != nil {
		t.Fatalf("Failed to create invoice generator: %v", err)
	}

	coupons := service.NewCouponService(repos.Coupons, logger)
	referrals := service.NewReferralService(repos.Users, repos.Referrals, cfg, logger)
	commissions := service.NewCommissionService(repos.Tx, repos.Referrals, repos.Commissions, repos.Wallets,
		cfg.Billing.CommissionDecimal(), m, logger)
	settlement := service.NewSettlementService(repos, referrals, commissions, cfg, m, logger)
	payments := service.NewPaymentService(repos, coupons, settlement, razorpay.NewClient(&cfg.Razorpay), gen, cfg, m, logger)

	authHandler := NewAuthHandler(service.NewAuthService(repos, referrals, cfg, logger))
	couponHandler := NewCouponHandler(coupons)
	paymentHandler := NewPaymentHandler(payments)
	walletHandler := NewWalletHandler(service.NewWalletService(repos, referrals, cfg, m, logger))
	referralHandler := NewReferralHandler(referrals)
	pointsHandler := NewPointsHandler(service.NewPointsService(repos, logger))
	subscriptionHandler := NewSubscriptionHandler(service.NewSubscriptionService(repos.Subscriptions, logger))
	wsHandler := NewWebSocketHandler(ws.NewHub(logger), cfg, logger)

	r := gin.New()
	api := r.Group("/api/v1")
	api.GET("/ws", wsHandler.Handle)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	authed := api.Group("")
	authed.Use(middleware.Auth(cfg.JWT.Secret))
	authed.GET("/auth/me", authHandler.Me)
	authed.POST("/coupons/validate", couponHandler.Validate)
	authed.POST("/payments/orders", paymentHandler.CreateOrder)
	authed.POST("/payments/verify", paymentHandler.Verify)
	authed.GET("/payments", paymentHandler.List)
	authed.GET("/wallet", walletHandler.Overview)
	authed.POST("/wallet/withdrawals", walletHandler.RequestWithdrawal)
	authed.POST("/referrals/code", referralHandler.GenerateCode)
	authed.POST("/points/award", pointsHandler.Award)
	authed.GET("/points", pointsHandler.Total)
	authed.GET("/subscription", subscriptionHandler.Status)
	env.router = r

	return env
}

// userWithToken 创建带 free 订阅的用户并签发 token
func (e *handlerEnv) userWithToken(t *testing.T, opts ...func(*model.User)) (*model.User, string) {
	t.Helper()

	user := testutil.TestUser(t, e.db, opts...)
	testutil.TestSubscription(t, e.db, user.ID)

	token, err := jwt.GenerateToken(user.ID, user.Email, e.cfg.JWT.Secret, e.cfg.JWT.ExpireHours)
	if err != nil {
		t.Fatalf("Failed to generate token: %v", err)
	}
	return user, token
}
