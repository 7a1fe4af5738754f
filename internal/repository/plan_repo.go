package repository

import (
	"Trellis/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type PlanRepo interface {
	GetByDate(ctx context.Context, planDate string) (*model.DailyPlan, error)
	UpsertPlan(ctx context.Context, planDate string, summary string) (*model.DailyPlan, error)
	CreateDrafts(ctx context.Context, drafts []*model.PostDraft) error
}

type PlanRepoImpl struct {
	db *gorm.DB
}

func NewPlanRepo(db *gorm.DB) PlanRepo {
	return &PlanRepoImpl{db: db}
}

func (s *PlanRepoImpl) GetByDate(ctx context.Context, planDate string) (*model.DailyPlan, error) {
	plan := &model.DailyPlan{}
	result := s.db.WithContext(ctx).
		Where("plan_date = ?", planDate).
		First(plan)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return plan, nil
}

// UpsertPlan 同一天重跑只更新摘要，不产生第二行
func (s *PlanRepoImpl) UpsertPlan(ctx context.Context, planDate string, summary string) (*model.DailyPlan, error) {
	plan := &model.DailyPlan{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("plan_date = ?", planDate).First(plan)
		if result.Error != nil {
			if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
				return result.Error
			}
			plan = &model.DailyPlan{PlanDate: planDate, Summary: summary}
			return tx.Create(plan).Error
		}
		plan.Summary = summary
		return tx.Model(&model.DailyPlan{}).Where("id = ?", plan.ID).Update("summary", summary).Error
	})
	if err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *PlanRepoImpl) CreateDrafts(ctx context.Context, drafts []*model.PostDraft) error {
	if len(drafts) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(drafts).Error
}
