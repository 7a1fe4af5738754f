package model

import (
	"time"
)

type CreatorRelationship struct {
	ID              uint64     `gorm:"primaryKey"`
	CreatorID       uint64     `gorm:"not null;uniqueIndex:idx_relationship_creator"`
	Status          string     `gorm:"type:varchar(20);not null;default:new"`
	LastContactedAt *time.Time
	Notes           *string `gorm:"type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (CreatorRelationship) TableName() string {
	return "creator_relationships"
}
