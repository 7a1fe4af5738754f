package model

import (
	"time"
)

type PostDraft struct {
	ID          uint64  `gorm:"primaryKey"`
	ContentType string  `gorm:"type:varchar(20);not null;default:reel"`
	Hook        *string `gorm:"type:varchar(280)"`
	Caption     *string `gorm:"type:text"`
	Hashtags    *string `gorm:"type:text"`
	MediaNotes  *string `gorm:"type:text"`
	ShootPack   *string `gorm:"type:text"`

	ScheduledFor *time.Time
	Status       string `gorm:"type:varchar(20);not null;default:pending"`
	PostedAt     *time.Time
	IgURL        *string `gorm:"type:varchar(512)"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PostDraft) TableName() string {
	return "post_drafts"
}
