package model

import (
	"time"
)

type OutreachDraft struct {
	ID           uint64  `gorm:"primaryKey"`
	CreatorID    uint64  `gorm:"not null;index:idx_outreach_creator"`
	Message      string  `gorm:"type:text;not null"`
	OfferType    *string `gorm:"type:varchar(50)"`
	CampaignName *string `gorm:"type:varchar(100)"`

	// Status 审批状态，OutreachStatus 私信线程状态
	Status         string `gorm:"type:varchar(20);not null;default:pending"`
	OutreachStatus string `gorm:"type:varchar(20);not null;default:pending"`
	SendChannel    string `gorm:"type:varchar(30);not null;default:instagram_dm"`

	SentAt         *time.Time
	ThreadURL      *string `gorm:"type:varchar(512)"`
	LastResponseAt *time.Time
	FollowupsSent  int `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (OutreachDraft) TableName() string {
	return "outreach_drafts"
}
