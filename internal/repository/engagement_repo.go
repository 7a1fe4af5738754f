package repository

import (
	"Trellis/internal/model"
	"Trellis/internal/pkg/consts"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type EngagementRepo interface {
	GetByTarget(ctx context.Context, platform, actionType, targetURL string) (*model.EngagementAction, error)
	Create(ctx context.Context, action *model.EngagementAction) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]*model.EngagementAction, error)
	ListRecentComments(ctx context.Context, limit int) ([]string, error)
}

type EngagementRepoImpl struct {
	db *gorm.DB
}

func NewEngagementRepo(db *gorm.DB) EngagementRepo {
	return &EngagementRepoImpl{db: db}
}

func (s *EngagementRepoImpl) GetByTarget(ctx context.Context, platform, actionType, targetURL string) (*model.EngagementAction, error) {
	action := &model.EngagementAction{}
	result := s.db.WithContext(ctx).
		Where("platform = ? AND action_type = ? AND target_url = ?", platform, actionType, targetURL).
		First(action)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return action, nil
}

func (s *EngagementRepoImpl) Create(ctx context.Context, action *model.EngagementAction) error {
	return s.db.WithContext(ctx).Create(action).Error
}

func (s *EngagementRepoImpl) ListDue(ctx context.Context, now time.Time, limit int) ([]*model.EngagementAction, error) {
	actions := make([]*model.EngagementAction, 0)
	result := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_for IS NOT NULL AND scheduled_for <= ?", consts.EngagementApproved, now).
		Order("scheduled_for ASC").
		Limit(limit).
		Find(&actions)
	if result.Error != nil {
		return nil, result.Error
	}
	return actions, nil
}

// ListRecentComments 最近的评论文案，供生成器做去重参考
func (s *EngagementRepoImpl) ListRecentComments(ctx context.Context, limit int) ([]string, error) {
	comments := make([]string, 0)
	result := s.db.WithContext(ctx).
		Model(&model.EngagementAction{}).
		Where("action_type = ? AND proposed_text IS NOT NULL", consts.ActionComment).
		Order("created_at DESC").
		Limit(limit).
		Pluck("proposed_text", &comments)
	if result.Error != nil {
		return nil, result.Error
	}
	return comments, nil
}
