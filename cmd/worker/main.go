package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/qs3c/playoga_server/config"
	"github.com/qs3c/playoga_server/internal/database"
	"github.com/qs3c/playoga_server/internal/pkg/cron"
	"github.com/qs3c/playoga_server/internal/pkg/email"
	"github.com/qs3c/playoga_server/internal/pkg/logger"
	"github.com/qs3c/playoga_server/internal/pkg/metrics"
	"github.com/qs3c/playoga_server/internal/pkg/oss"
	"github.com/qs3c/playoga_server/internal/pkg/pubsub"
	"github.com/qs3c/playoga_server/internal/pkg/queue"
	"github.com/qs3c/playoga_server/internal/repository"
	"github.com/qs3c/playoga_server/internal/service"
	"github.com/qs3c/playoga_server/internal/worker"
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
	zl.Info("database connected", zap.String("driver", cfg.Database.Driver))

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		zl.Fatal("failed to connect redis", zap.Error(err))
	}
	zl.Info("redis connected")

	// 初始化 OSS（可选）
	var store service.InvoiceStore
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			zl.Warn("failed to init OSS client", zap.Error(err))
		} else {
			store = ossClient
			zl.Info("OSS client initialized")
		}
	}

	// 指标，重试产生的结算与佣金计数由 worker 自己暴露
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewPaymentMetrics(registry)

	settlementQueue := queue.NewQueue(rdb, cfg.Settlement.Queue)
	metrics.RegisterQueueDepth(registry, settlementQueue)

	repos := repository.NewRepositories(db)
	referrals := service.NewReferralService(repos.Users, repos.Referrals, cfg, zl)
	commissions := service.NewCommissionService(repos.Tx, repos.Referrals, repos.Commissions, repos.Wallets,
		cfg.Billing.CommissionDecimal(), m, zl)

	settlement := service.NewSettlementService(repos, referrals, commissions, cfg, m, zl)
	settlement.SetQueue(settlementQueue)
	settlement.SetPublisher(pubsub.NewPublisher(rdb))
	settlement.SetReceiptChannels(store, email.NewService(&cfg.Email))

	subscriptions := service.NewSubscriptionService(repos.Subscriptions, zl)

	// 定时补投结算任务，每日过期订阅
	cronService := cron.NewService(settlement, subscriptions,
		time.Duration(cfg.Settlement.SweepIntervalSeconds)*time.Second, zl)
	cronService.Start()
	defer cronService.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		zl.Info("received shutdown signal")
		cancel()
	}()

	gin.SetMode(gin.ReleaseMode)
	metricsRouter := gin.New()
	metricsRouter.Use(gin.Recovery())
	metricsRouter.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	metricsServer := &http.Server{Addr: cfg.Settlement.MetricsAddr, Handler: metricsRouter}
	go func() {
		zl.Info("worker metrics listening", zap.String("addr", metricsServer.Addr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("worker metrics server failed", zap.Error(err))
		}
	}()

	processor := worker.NewProcessor(settlementQueue, settlement, cfg.Settlement.MaxWorkers, zl)
	processor.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		zl.Error("worker metrics shutdown failed", zap.Error(err))
	}
}
