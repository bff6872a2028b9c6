package cron

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Sweeper 重新投递到期的结算任务
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// Expirer 将过期的订阅标记为 expired
type Expirer interface {
	ExpireDue(ctx context.Context, dryRun bool) (int64, error)
}

type Service struct {
	sweeper       Sweeper
	expirer       Expirer
	sweepInterval time.Duration
	logger        *zap.Logger
	stopChan      chan struct{}
	stopOnce      sync.Once
}

func NewService(sweeper Sweeper, expirer Expirer, sweepInterval time.Duration, logger *zap.Logger) *Service {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	return &Service{
		sweeper:       sweeper,
		expirer:       expirer,
		sweepInterval: sweepInterval,
		logger:        logger.Named("cron"),
		stopChan:      make(chan struct{}),
	}
}

// Start 启动定时任务
func (s *Service) Start() {
	if s.sweeper != nil {
		go s.runSweep()
	}
	if s.expirer != nil {
		go s.runDailyExpiry()
	}
	s.logger.Info("cron service started", zap.Duration("sweep_interval", s.sweepInterval))
}

// Stop 停止定时任务，可重复调用
func (s *Service) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
		s.logger.Info("cron service stopped")
	})
}

// runSweep 周期性补投结算任务
func (s *Service) runSweep() {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Service) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.sweepInterval)
	defer cancel()

	n, err := s.sweeper.Sweep(ctx)
	if err != nil {
		s.logger.Error("settlement sweep failed", zap.Error(err))
		return
	}
	if n > 0 {
		s.logger.Info("settlement tasks re-enqueued", zap.Int("count", n))
	}
}

// runDailyExpiry 每天 UTC 零点过期订阅
func (s *Service) runDailyExpiry() {
	now := time.Now().UTC()
	nextMidnight := time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, time.UTC)
	timer := time.NewTimer(nextMidnight.Sub(now))

	for {
		select {
		case <-s.stopChan:
			timer.Stop()
			return
		case <-timer.C:
			s.expire()
			timer.Reset(24 * time.Hour)
		}
	}
}

func (s *Service) expire() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	n, err := s.expirer.ExpireDue(ctx, false)
	if err != nil {
		s.logger.Error("subscription expiry failed", zap.Error(err))
		return
	}
	s.logger.Info("subscriptions expired", zap.Int64("count", n))
}

// RunNow 立即执行一轮补投与过期（用于测试或手动触发）
func (s *Service) RunNow(ctx context.Context) error {
	if s.sweeper != nil {
		if _, err := s.sweeper.Sweep(ctx); err != nil {
			return err
		}
	}
	if s.expirer != nil {
		if _, err := s.expirer.ExpireDue(ctx, false); err != nil {
			return err
		}
	}
	return nil
}
