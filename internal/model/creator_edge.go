package model

import (
	"time"
)

type CreatorEdge struct {
	ID              uint64  `gorm:"primaryKey"`
	SourceCreatorID uint64  `gorm:"not null;index:idx_edge_src_dst_type,unique"`
	TargetCreatorID uint64  `gorm:"not null;index:idx_edge_src_dst_type,unique"`
	EdgeType        string  `gorm:"type:varchar(30);not null;index:idx_edge_src_dst_type,unique"`
	Weight          float64 `gorm:"not null;default:0"`
	Metadata        *string `gorm:"type:text"`
	LastSeenAt      time.Time
	CreatedAt       time.Time
}

func (CreatorEdge) TableName() string {
	return "creator_edges"
}
