package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/qs3c/playoga_server/config"
	"github.com/qs3c/playoga_server/internal/database"
	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/pkg/logger"
	"github.com/qs3c/playoga_server/internal/pkg/metrics"
	"github.com/qs3c/playoga_server/internal/pkg/queue"
	"github.com/qs3c/playoga_server/internal/repository"
	"github.com/qs3c/playoga_server/internal/service"
)

var (
	dryRun          = flag.Bool("dry-run", true, "Dry run mode, only report what would change")
	expireSubs      = flag.Bool("expire-subscriptions", true, "Mark active subscriptions past expires_at as expired")
	sweepSettlement = flag.Bool("sweep-settlements", true, "Re-enqueue due settlement tasks")
	withdrawalID    = flag.String("resolve-withdrawal", "", "Withdrawal request ID to resolve")
	withdrawalTo    = flag.String("withdrawal-status", "completed", "Target status for -resolve-withdrawal: approved, completed or rejected")
)

func main() {
	flag.Parse()

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
	zl = zl.Named("maintenance").With(zap.Bool("dry_run", *dryRun))

	db, err := database.New(&cfg.Database)
	if err != nil {
		zl.Fatal("failed to connect database", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	repos := repository.NewRepositories(db)

	// 1. 过期订阅
	if *expireSubs {
		subscriptions := service.NewSubscriptionService(repos.Subscriptions, zl)
		n, err := subscriptions.ExpireDue(ctx, *dryRun)
		if err != nil {
			zl.Fatal("expire subscriptions failed", zap.Error(err))
		}
		zl.Info("subscriptions past expiry", zap.Int64("count", n))
	}

	// 2. 处理提现申请
	if *withdrawalID != "" {
		resolveWithdrawal(ctx, cfg, repos, zl)
	}

	// 3. 结算任务补投
	if *sweepSettlement {
		if *dryRun {
			reportSettlements(ctx, cfg, repos, zl)
		} else {
			sweep(ctx, cfg, repos, zl)
		}
	}

	if *dryRun {
		zl.Info("dry run finished, run with -dry-run=false to apply changes")
	} else {
		zl.Info("maintenance completed")
	}
}

// reportSettlements 统计各状态的结算任务数量
func reportSettlements(ctx context.Context, cfg *config.Config, repos *repository.Repositories, zl *zap.Logger) {
	for _, status := range []string{
		model.SettlementPending,
		model.SettlementProcessing,
		model.SettlementFailed,
	} {
		n, err := repos.Settlements.CountByStatus(ctx, status)
		if err != nil {
			zl.Error("count settlement tasks failed", zap.String("status", status), zap.Error(err))
			continue
		}
		zl.Info("settlement tasks", zap.String("status", status), zap.Int64("count", n))
	}

	due, err := repos.Settlements.ListDue(ctx, time.Now(), 100)
	if err != nil {
		zl.Error("list due settlement tasks failed", zap.Error(err))
		return
	}
	zl.Info("settlement tasks due now", zap.Int("count", len(due)))

	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		zl.Warn("redis unavailable, skipping queue depth", zap.Error(err))
		return
	}
	defer rdb.Close()
	reportQueue(ctx, queue.NewQueue(rdb, cfg.Settlement.Queue), zl)
}

// reportQueue 输出就绪与延迟队列长度
func reportQueue(ctx context.Context, q *queue.Queue, zl *zap.Logger) {
	ready, err := q.Length(ctx)
	if err != nil {
		zl.Error("read queue length failed", zap.Error(err))
		return
	}
	delayed, err := q.DelayedLength(ctx)
	if err != nil {
		zl.Error("read delayed queue length failed", zap.Error(err))
		return
	}
	zl.Info("settlement queue depth", zap.Int64("ready", ready), zap.Int64("delayed", delayed))
}

func resolveWithdrawal(ctx context.Context, cfg *config.Config, repos *repository.Repositories, zl *zap.Logger) {
	wl := zl.With(zap.String("withdrawal_id", *withdrawalID), zap.String("status", *withdrawalTo))
	if *dryRun {
		req, err := repos.Withdrawals.GetByID(ctx, *withdrawalID)
		if err != nil {
			wl.Error("withdrawal request not found", zap.Error(err))
			return
		}
		wl.Info("withdrawal would be resolved",
			zap.String("user_id", req.UserID),
			zap.String("current_status", req.Status),
			zap.String("amount", req.Amount.String()))
		return
	}

	m := metrics.NewPaymentMetrics(prometheus.NewRegistry())
	referrals := service.NewReferralService(repos.Users, repos.Referrals, cfg, zl)
	wallets := service.NewWalletService(repos, referrals, cfg, m, zl)
	if _, err := wallets.ResolveWithdrawal(ctx, *withdrawalID, *withdrawalTo); err != nil {
		wl.Error("resolve withdrawal failed", zap.Error(err))
	}
}

func sweep(ctx context.Context, cfg *config.Config, repos *repository.Repositories, zl *zap.Logger) {
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		zl.Fatal("failed to connect redis", zap.Error(err))
	}
	defer rdb.Close()

	m := metrics.NewPaymentMetrics(prometheus.NewRegistry())
	referrals := service.NewReferralService(repos.Users, repos.Referrals, cfg, zl)
	commissions := service.NewCommissionService(repos.Tx, repos.Referrals, repos.Commissions, repos.Wallets,
		cfg.Billing.CommissionDecimal(), m, zl)

	// 只负责投递，由 worker 执行
	settlement := service.NewSettlementService(repos, referrals, commissions, cfg, m, zl)
	settlementQueue := queue.NewQueue(rdb, cfg.Settlement.Queue)
	settlement.SetQueue(settlementQueue)

	n, err := settlement.Sweep(ctx)
	if err != nil {
		zl.Fatal("settlement sweep failed", zap.Error(err))
	}
	zl.Info("settlement tasks re-enqueued", zap.Int("count", n))
	reportQueue(ctx, settlementQueue, zl)
}
