package model

import (
	"time"
)

type EngagementAction struct {
	ID            uint64  `gorm:"primaryKey"`
	Platform      string  `gorm:"type:varchar(20);not null;default:instagram;index:idx_engagement_target,unique"`
	ActionType    string  `gorm:"type:varchar(20);not null;index:idx_engagement_target,unique"`
	TargetURL     string  `gorm:"type:varchar(512);not null;index:idx_engagement_target,unique"`
	TargetHandle  *string `gorm:"type:varchar(64)"`
	TargetCaption *string `gorm:"type:text"`
	ProposedText  *string `gorm:"type:text"`
	ScheduledFor  *time.Time
	Status        string `gorm:"type:varchar(20);not null;default:pending"`
	ExecutedAt    *time.Time
	Notes         *string `gorm:"type:text"`
	CreatedAt     time.Time
}

func (EngagementAction) TableName() string {
	return "engagement_actions"
}
