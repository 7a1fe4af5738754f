package model

import (
	"time"
)

type CreatorMetricsDaily struct {
	ID           uint64    `gorm:"primaryKey"`
	CreatorID    uint64    `gorm:"not null;index:idx_creator_snapshot,unique" json:"creatorId"`
	SnapshotDate string    `gorm:"type:varchar(10);not null;index:idx_creator_snapshot,unique;column:snapshot_date" json:"snapshotDate"`
	FollowersEst *int      `json:"followersEst"`
	PostsCount   *int      `json:"postsCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

func (CreatorMetricsDaily) TableName() string {
	return "creator_metrics_daily"
}
