package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/qs3c/playoga_server/internal/pkg/queue"
)

const defaultPopTimeout = 5 * time.Second

// TaskSource 结算任务来源
type TaskSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*queue.SettlementMessage, error)
}

// TaskProcessor 执行单个结算任务
type TaskProcessor interface {
	Process(ctx context.Context, taskID string) error
}

// Processor 从队列消费结算任务的 worker 池
type Processor struct {
	source     TaskSource
	processor  TaskProcessor
	workers    int
	popTimeout time.Duration
	logger     *zap.Logger
}

// NewProcessor 创建 worker 池
func NewProcessor(source TaskSource, processor TaskProcessor, workers int, logger *zap.Logger) *Processor {
	if workers <= 0 {
		workers = 1
	}
	return &Processor{
		source:     source,
		processor:  processor,
		workers:    workers,
		popTimeout: defaultPopTimeout,
		logger:     logger.Named("worker"),
	}
}

// Run 启动全部 worker，ctx 取消后等待正在处理的任务结束再返回
func (p *Processor) Run(ctx context.Context) {
	p.logger.Info("worker started", zap.Int("max_workers", p.workers))

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			p.loop(ctx, workerID)
		}(i)
	}
	wg.Wait()

	p.logger.Info("worker shutdown complete")
}

func (p *Processor) loop(ctx context.Context, workerID int) {
	log := p.logger.With(zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			log.Debug("worker shutting down")
			return
		default:
		}

		msg, err := p.source.Pop(ctx, p.popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn("failed to pop task", zap.Error(err))
			// 避免 Redis 不可用时空转
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		if msg == nil {
			continue // 超时，继续等待
		}

		p.handle(ctx, log, msg)
	}
}

func (p *Processor) handle(ctx context.Context, log *zap.Logger, msg *queue.SettlementMessage) {
	log.Debug("processing settlement task",
		zap.String("task_id", msg.TaskID),
		zap.Int("attempt", msg.Attempt))

	// 已取出的任务不受关闭信号影响，处理完再退出
	if err := p.processor.Process(context.WithoutCancel(ctx), msg.TaskID); err != nil {
		log.Warn("settlement task failed",
			zap.String("task_id", msg.TaskID),
			zap.String("order_id", msg.OrderID),
			zap.Error(err))
	}
}
