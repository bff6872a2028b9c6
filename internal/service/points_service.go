package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/qs3c/playoga_server/internal/model"
	"github.com/qs3c/playoga_server/internal/model/dto"
	"github.com/qs3c/playoga_server/internal/pkg/pubsub"
	"github.com/qs3c/playoga_server/internal/repository"
)

var (
	ErrInvalidVideoID    = errors.New("Invalid video ID format")
	ErrVideoNotFound     = errors.New("Video not found")
	ErrNoWatchProgress   = errors.New("No watch progress found - video must be watched first")
	ErrVideoNotCompleted = errors.New("Video must be completed to earn points")
	ErrPointsAwardFailed = errors.New("Failed to award points")
)

const pointsReasonVideo = "video_completed"

type PointsService struct {
	repos     *repository.Repositories
	publisher EventPublisher
	logger    *zap.Logger
}

func NewPointsService(repos *repository.Repositories, logger *zap.Logger) *PointsService {
	return &PointsService{
		repos:  repos,
		logger: logger.Named("points"),
	}
}

func (s *PointsService) SetPublisher(p EventPublisher) {
	s.publisher = p
}

// Award 看完视频后发放积分，每个视频每个用户只发一次
func (s *PointsService) Award(ctx context.Context, userID, videoID string) (*dto.AwardPointsResponse, error) {
	if _, err := uuid.Parse(videoID); err != nil {
		return nil, ErrInvalidVideoID
	}

	video, err := s.repos.Points.GetVideo(ctx, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrVideoNotFound
		}
		return nil, fmt.Errorf("get video: %w", err)
	}
	if video.YogicPoints <= 0 {
		return &dto.AwardPointsResponse{Success: true, Points: 0, Message: "No points for this video"}, nil
	}

	progress, err := s.repos.Points.GetProgress(ctx, userID, videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoWatchProgress
		}
		return nil, fmt.Errorf("get progress: %w", err)
	}
	if progress.PointsAwarded {
		return alreadyAwarded(), nil
	}

	// 标记完成或观看时长达到 95%
	minWatch := video.DurationSeconds * 95 / 100
	if !progress.Completed && progress.WatchedSeconds < minWatch {
		return nil, ErrVideoNotCompleted
	}

	awarded := false
	err = s.repos.Tx.Do(ctx, func(tx *gorm.DB) error {
		points := s.repos.Points.WithTx(tx)
		ok, err := points.MarkAwarded(ctx, progress.ID)
		if err != nil || !ok {
			return err
		}
		awarded = true
		return points.CreateTransaction(ctx, &model.PointsTransaction{
			UserID:  userID,
			VideoID: &video.ID,
			Points:  video.YogicPoints,
			Reason:  pointsReasonVideo,
		})
	})
	if err != nil {
		s.logger.Error("award points failed", zap.String("user_id", userID), zap.String("video_id", videoID), zap.Error(err))
		return nil, ErrPointsAwardFailed
	}
	if !awarded {
		return alreadyAwarded(), nil
	}

	message := "Earned " + strconv.Itoa(video.YogicPoints) + " Yogic Points!"
	s.notify(ctx, userID, message, video.YogicPoints)

	return &dto.AwardPointsResponse{
		Success: true,
		Points:  video.YogicPoints,
		Message: message,
	}, nil
}

// Total 累计积分
func (s *PointsService) Total(ctx context.Context, userID string) (*dto.PointsTotalResponse, error) {
	total, err := s.repos.Points.SumByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("sum points: %w", err)
	}
	return &dto.PointsTotalResponse{Total: total}, nil
}

func (s *PointsService) notify(ctx context.Context, userID, message string, points int) {
	if s.publisher == nil {
		return
	}
	evt, err := pubsub.NewEvent(pubsub.EventPointsAwarded, userID, message, map[string]int{"points": points})
	if err != nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("publish points event failed", zap.Error(err))
	}
}

func alreadyAwarded() *dto.AwardPointsResponse {
	return &dto.AwardPointsResponse{Success: true, Points: 0, Message: "Points already awarded"}
}
