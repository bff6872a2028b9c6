package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/internal/model"
)

type SettlementRepository struct {
	db *gorm.DB
}

func NewSettlementRepository(db *gorm.DB) *SettlementRepository {
	return &SettlementRepository{db: db}
}

func (r *SettlementRepository) WithTx(tx *gorm.DB) *SettlementRepository {
	return &SettlementRepository{db: tx}
}

func (r *SettlementRepository) Create(ctx context.Context, task *model.SettlementTask) error {
	return r.db.WithContext(ctx).Create(task).Error
}

func (r *SettlementRepository) GetByID(ctx context.Context, id string) (*model.SettlementTask, error) {
	var task model.SettlementTask
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *SettlementRepository) GetByOrderID(ctx context.Context, orderID string) (*model.SettlementTask, error) {
	var task model.SettlementTask
	err := r.db.WithContext(ctx).Where("order_id = ?", orderID).First(&task).Error
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Claim 抢占任务：已到期的 pending 或租约已过期的 processing 任务才能被抢占
// 成功时 attempts 加一，租约持续到 leaseUntil
func (r *SettlementRepository) Claim(ctx context.Context, id string, now, leaseUntil time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.SettlementTask{}).
		Where("id = ?", id).
		Where("(status = ? AND next_attempt_at <= ?) OR (status = ? AND next_attempt_at < ?)",
			model.SettlementPending, now, model.SettlementProcessing, now).
		Updates(map[string]interface{}{
			"status":          model.SettlementProcessing,
			"attempts":        gorm.Expr("attempts + 1"),
			"next_attempt_at": leaseUntil,
		})
	return result.RowsAffected > 0, result.Error
}

// Save 持久化任务状态与步骤标记
func (r *SettlementRepository) Save(ctx context.Context, task *model.SettlementTask) error {
	return r.db.WithContext(ctx).Save(task).Error
}

// ListDue 到期待执行的 pending 任务
func (r *SettlementRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]model.SettlementTask, error) {
	var tasks []model.SettlementTask
	err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", model.SettlementPending, now).
		Order("next_attempt_at ASC").Limit(limit).
		Find(&tasks).Error
	return tasks, err
}

// ReleaseStale 租约过期的 processing 任务回到 pending（worker 崩溃后恢复）
func (r *SettlementRepository) ReleaseStale(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&model.SettlementTask{}).
		Where("status = ? AND next_attempt_at < ?", model.SettlementProcessing, now).
		Update("status", model.SettlementPending)
	return result.RowsAffected, result.Error
}

func (r *SettlementRepository) CountByStatus(ctx context.Context, status string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.SettlementTask{}).
		Where("status = ?", status).Count(&count).Error
	return count, err
}
