package model

import (
	"time"
)

type CreatorSignal struct {
	ID         uint64  `gorm:"primaryKey"`
	CreatorID  uint64  `gorm:"not null;index:idx_signal_creator"`
	SignalType string  `gorm:"type:varchar(20);not null"`
	SignalText string  `gorm:"type:text"`
	Weight     float64 `gorm:"not null;default:0"`
	SourceURL  *string `gorm:"type:varchar(512)"`
	CreatedAt  time.Time
}

func (CreatorSignal) TableName() string {
	return "creator_signals"
}
