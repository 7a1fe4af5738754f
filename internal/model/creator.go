package model

import (
	"time"
)

type Creator struct {
	ID       uint64  `gorm:"primaryKey"`
	Handle   string  `gorm:"type:varchar(64);not null;uniqueIndex:idx_creator_handle"`
	Platform string  `gorm:"type:varchar(20);not null;default:instagram"`

	FollowersEst      *int
	PostsCount        *int
	AvgEngagementRate *float64
	AvgLikeCount      *float64
	AvgCommentCount   *float64

	IsBrand    bool    `gorm:"type:tinyint(1);default:0"`
	IsSpam     bool    `gorm:"type:tinyint(1);default:0"`
	FraudScore int     `gorm:"not null;default:0"`
	FraudFlags *string `gorm:"type:text"`

	NicheTags *string `gorm:"type:varchar(1500)"`
	Notes     *string `gorm:"type:text"`
	Score     int     `gorm:"not null;default:0"`

	OutreachStatus        string  `gorm:"type:varchar(30);not null;default:eligible"`
	OutreachExcludeReason *string `gorm:"type:varchar(64)"`

	NicheScore *float64
	Growth7d   *float64
	Growth30d  *float64

	LastScrapedAt  *time.Time
	LastIntelRunAt *time.Time
	IsPartner      bool `gorm:"type:tinyint(1);default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Creator) TableName() string {
	return "creators"
}
