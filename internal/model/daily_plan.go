package model

import (
	"time"
)

type DailyPlan struct {
	ID        uint64 `gorm:"primaryKey"`
	PlanDate  string `gorm:"type:varchar(10);not null;uniqueIndex:idx_plan_date"`
	Summary   string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (DailyPlan) TableName() string {
	return "daily_plans"
}
