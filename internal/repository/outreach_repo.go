package repository

import (
	"Trellis/internal/model"
	"Trellis/internal/pkg/consts"
	"context"
	"errors"

	"gorm.io/gorm"
)

type OutreachRepo interface {
	GetByID(ctx context.Context, id uint64) (*model.OutreachDraft, error)
	HasOpenDraft(ctx context.Context, creatorID uint64) (bool, error)
	Create(ctx context.Context, draft *model.OutreachDraft) error
	Update(ctx context.Context, draft *model.OutreachDraft) error
	ListByApproval(ctx context.Context, status string, limit int) ([]*model.OutreachDraft, error)
}

type OutreachRepoImpl struct {
	db *gorm.DB
}

func NewOutreachRepo(db *gorm.DB) OutreachRepo {
	return &OutreachRepoImpl{db: db}
}

func (s *OutreachRepoImpl) GetByID(ctx context.Context, id uint64) (*model.OutreachDraft, error) {
	draft := &model.OutreachDraft{}
	result := s.db.WithContext(ctx).First(draft, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return draft, nil
}

// HasOpenDraft 创作者是否已有待审批的私信草稿，避免重复起草
func (s *OutreachRepoImpl) HasOpenDraft(ctx context.Context, creatorID uint64) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).
		Model(&model.OutreachDraft{}).
		Where("creator_id = ? AND status = ?", creatorID, consts.ApprovalPending).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

func (s *OutreachRepoImpl) Create(ctx context.Context, draft *model.OutreachDraft) error {
	return s.db.WithContext(ctx).Create(draft).Error
}

func (s *OutreachRepoImpl) Update(ctx context.Context, draft *model.OutreachDraft) error {
	result := s.db.WithContext(ctx).
		Model(&model.OutreachDraft{}).
		Where("id = ?", draft.ID).
		Updates(draft)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (s *OutreachRepoImpl) ListByApproval(ctx context.Context, status string, limit int) ([]*model.OutreachDraft, error) {
	drafts := make([]*model.OutreachDraft, 0)
	result := s.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at DESC").
		Limit(limit).
		Find(&drafts)
	if result.Error != nil {
		return nil, result.Error
	}
	return drafts, nil
}
