package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/qs3c/playoga_server/config"
	"github.com/qs3c/playoga_server/internal/api"
	"github.com/qs3c/playoga_server/internal/api/handler"
	"github.com/qs3c/playoga_server/internal/database"
	"github.com/qs3c/playoga_server/internal/pkg/email"
	"github.com/qs3c/playoga_server/internal/pkg/invoice"
	"github.com/qs3c/playoga_server/internal/pkg/logger"
	"github.com/qs3c/playoga_server/internal/pkg/metrics"
	"github.com/qs3c/playoga_server/internal/pkg/oss"
	"github.com/qs3c/playoga_server/internal/pkg/pubsub"
	"github.com/qs3c/playoga_server/internal/pkg/queue"
	"github.com/qs3c/playoga_server/internal/pkg/razorpay"
	"github.com/qs3c/playoga_server/internal/pkg/ws"
	"github.com/qs3c/playoga_server/internal/repository"
	"github.com/qs3c/playoga_server/internal/service"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync()

	// 初始化数据库
	db, err := database.New(&cfg.Database)
	if err != nil {
		zl.Fatal("failed to connect database", zap.Error(err))
	}
	if err := database.AutoMigrate(db); err != nil {
		zl.Fatal("failed to migrate database", zap.Error(err))
	}
	zl.Info("database connected", zap.String("driver", cfg.Database.Driver))

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		zl.Fatal("failed to connect redis", zap.Error(err))
	}
	zl.Info("redis connected")

	// 指标
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewPaymentMetrics(registry)

	invoices, err := invoice.NewGenerator(cfg.Snowflake.Node)
	if err != nil {
		zl.Fatal("failed to init invoice generator", zap.Error(err))
	}

	settlementQueue := queue.NewQueue(rdb, cfg.Settlement.Queue)
	metrics.RegisterQueueDepth(registry, settlementQueue)
	publisher := pubsub.NewPublisher(rdb)
	mailer := email.NewService(&cfg.Email)

	// 初始化 Service
	repos := repository.NewRepositories(db)
	coupons := service.NewCouponService(repos.Coupons, zl)
	referrals := service.NewReferralService(repos.Users, repos.Referrals, cfg, zl)
	commissions := service.NewCommissionService(repos.Tx, repos.Referrals, repos.Commissions, repos.Wallets,
		cfg.Billing.CommissionDecimal(), m, zl)

	settlement := service.NewSettlementService(repos, referrals, commissions, cfg, m, zl)
	settlement.SetQueue(settlementQueue)
	settlement.SetPublisher(publisher)
	invoiceStore := newInvoiceStore(cfg, zl)
	settlement.SetReceiptChannels(invoiceStore, mailer)

	gateway := razorpay.NewClient(&cfg.Razorpay)
	if !gateway.Configured() {
		zl.Warn("razorpay credentials missing, payment endpoints will reject requests")
	}
	payments := service.NewPaymentService(repos, coupons, settlement, gateway, invoices, cfg, m, zl)
	payments.SetInvoiceStore(invoiceStore)

	authService := service.NewAuthService(repos, referrals, cfg, zl)
	authService.SetMailer(mailer)

	walletService := service.NewWalletService(repos, referrals, cfg, m, zl)
	walletService.SetPublisher(publisher)

	pointsService := service.NewPointsService(repos, zl)
	pointsService.SetPublisher(publisher)

	subscriptionService := service.NewSubscriptionService(repos.Subscriptions, zl)

	// WebSocket Hub，订阅 Redis 用户事件并转发
	hub := ws.NewHub(zl)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		subscriber := pubsub.NewSubscriber(rdb)
		for ctx.Err() == nil {
			if err := subscriber.Subscribe(ctx, hub.Deliver); err != nil && ctx.Err() == nil {
				zl.Warn("event subscription dropped, retrying", zap.Error(err))
				time.Sleep(time.Second)
			}
		}
	}()

	router := api.NewRouter(api.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		Coupon:       handler.NewCouponHandler(coupons),
		Payment:      handler.NewPaymentHandler(payments),
		Wallet:       handler.NewWalletHandler(walletService),
		Referral:     handler.NewReferralHandler(referrals),
		Points:       handler.NewPointsHandler(pointsService),
		Subscription: handler.NewSubscriptionHandler(subscriptionService),
		WebSocket:    handler.NewWebSocketHandler(hub, cfg, zl),
	}, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), cfg, zl)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router.Setup(),
	}

	go func() {
		zl.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	zl.Info("received shutdown signal")

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown failed", zap.Error(err))
	}
	zl.Info("server stopped")
}

// newInvoiceStore 配置了 OSS 时返回收据归档，否则返回 nil
func newInvoiceStore(cfg *config.Config, zl *zap.Logger) service.InvoiceStore {
	if cfg.OSS.Endpoint == "" || cfg.OSS.AccessKeyID == "" {
		return nil
	}
	client, err := oss.NewClient(&cfg.OSS)
	if err != nil {
		zl.Warn("failed to init OSS client, receipts will not be archived", zap.Error(err))
		return nil
	}
	zl.Info("OSS client initialized", zap.String("bucket", cfg.OSS.BucketName))
	return client
}
