package model

import (
	"time"

	"gorm.io/gorm"
)

type Video struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	Title           string    `gorm:"size:200;not null" json:"title"`
	DurationSeconds int       `gorm:"not null" json:"duration_seconds"`
	YogicPoints     int       `gorm:"not null" json:"yogic_points"`
	CreatedAt       time.Time `json:"created_at"`
}

func (Video) TableName() string {
	return "videos"
}

func (v *Video) BeforeCreate(tx *gorm.DB) error {
	newID(&v.ID)
	return nil
}

type WatchProgress struct {
	ID             string    `gorm:"primaryKey;size:36" json:"id"`
	UserID         string    `gorm:"size:36;not null;uniqueIndex:idx_progress_user_video" json:"user_id"`
	VideoID        string    `gorm:"size:36;not null;uniqueIndex:idx_progress_user_video" json:"video_id"`
	WatchedSeconds int       `gorm:"not null" json:"watched_seconds"`
	Completed      bool      `json:"completed"`
	PointsAwarded  bool      `json:"points_awarded"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (WatchProgress) TableName() string {
	return "watch_progress"
}

func (w *WatchProgress) BeforeCreate(tx *gorm.DB) error {
	newID(&w.ID)
	return nil
}

type PointsTransaction struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"size:36;not null;index" json:"user_id"`
	VideoID   *string   `gorm:"size:36" json:"video_id,omitempty"`
	Points    int       `gorm:"not null" json:"points"`
	Reason    string    `gorm:"size:100" json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

func (PointsTransaction) TableName() string {
	return "points_transactions"
}

func (p *PointsTransaction) BeforeCreate(tx *gorm.DB) error {
	newID(&p.ID)
	return nil
}
