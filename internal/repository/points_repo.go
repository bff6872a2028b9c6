package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/internal/model"
)

type PointsRepository struct {
	db *gorm.DB
}

func NewPointsRepository(db *gorm.DB) *PointsRepository {
	return &PointsRepository{db: db}
}

func (r *PointsRepository) WithTx(tx *gorm.DB) *PointsRepository {
	return &PointsRepository{db: tx}
}

func (r *PointsRepository) GetVideo(ctx context.Context, id string) (*model.Video, error) {
	var video model.Video
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&video).Error
	if err != nil {
		return nil, err
	}
	return &video, nil
}

func (r *PointsRepository) GetProgress(ctx context.Context, userID, videoID string) (*model.WatchProgress, error) {
	var progress model.WatchProgress
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND video_id = ?", userID, videoID).
		First(&progress).Error
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

// MarkAwarded 仅在尚未发放时置位，返回是否置位成功
func (r *PointsRepository) MarkAwarded(ctx context.Context, progressID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.WatchProgress{}).
		Where("id = ? AND points_awarded = ?", progressID, false).
		Update("points_awarded", true)
	return result.RowsAffected > 0, result.Error
}

func (r *PointsRepository) CreateTransaction(ctx context.Context, txn *model.PointsTransaction) error {
	return r.db.WithContext(ctx).Create(txn).Error
}

// SumByUser 用户累计积分
func (r *PointsRepository) SumByUser(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&model.PointsTransaction{}).
		Select("COALESCE(SUM(points), 0)").
		Where("user_id = ?", userID).
		Row().Scan(&total)
	return total, err
}
