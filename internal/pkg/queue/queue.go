package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Queue 结算任务队列：就绪任务在 list 中，延迟重试的任务在 zset 中按执行时间排序
type Queue struct {
	client    *redis.Client
	queueName string
}

type SettlementMessage struct {
	TaskID  string `json:"task_id"`
	OrderID string `json:"order_id"`
	Attempt int    `json:"attempt"`
}

func NewQueue(client *redis.Client, queueName string) *Queue {
	return &Queue{
		client:    client,
		queueName: queueName,
	}
}

func (q *Queue) delayedKey() string {
	return q.queueName + ":delayed"
}

// Push 将任务加入就绪队列
func (q *Queue) Push(ctx context.Context, msg *SettlementMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return q.client.LPush(ctx, q.queueName, data).Err()
}

// Pop 从队列获取任务（阻塞）
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (*SettlementMessage, error) {
	result, err := q.client.BRPop(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // 超时，无任务
		}
		return nil, fmt.Errorf("failed to pop from queue: %w", err)
	}

	if len(result) < 2 {
		return nil, nil
	}

	var msg SettlementMessage
	if err := json.Unmarshal([]byte(result[1]), &msg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}

	return &msg, nil
}

// Schedule 延迟到 at 之后再执行
func (q *Queue) Schedule(ctx context.Context, msg *SettlementMessage, at time.Time) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return q.client.ZAdd(ctx, q.delayedKey(), &redis.Z{
		Score:  float64(at.Unix()),
		Member: data,
	}).Err()
}

// PromoteDue 把到期的延迟任务移入就绪队列，返回移动数量
// ZRem 成功者才入队，多个实例并发调用时同一任务只会被移动一次
func (q *Queue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	members, err := q.client.ZRangeByScore(ctx, q.delayedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read delayed tasks: %w", err)
	}

	moved := 0
	for _, member := range members {
		removed, err := q.client.ZRem(ctx, q.delayedKey(), member).Result()
		if err != nil {
			return moved, fmt.Errorf("failed to remove delayed task: %w", err)
		}
		if removed == 0 {
			continue
		}
		if err := q.client.LPush(ctx, q.queueName, member).Err(); err != nil {
			return moved, fmt.Errorf("failed to promote delayed task: %w", err)
		}
		moved++
	}

	return moved, nil
}

// Length 获取就绪队列长度
func (q *Queue) Length(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, q.queueName).Result()
}

// DelayedLength 获取延迟任务数量
func (q *Queue) DelayedLength(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.delayedKey()).Result()
}
