package repository

import (
	"Trellis/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type RelationshipRepo interface {
	GetByCreatorID(ctx context.Context, creatorID uint64) (*model.CreatorRelationship, error)
	GetStatuses(ctx context.Context, creatorIDs []uint64) (map[uint64]string, error)
	Create(ctx context.Context, relationship *model.CreatorRelationship) error
	Update(ctx context.Context, relationship *model.CreatorRelationship) error
}

type RelationshipRepoImpl struct {
	db *gorm.DB
}

func NewRelationshipRepo(db *gorm.DB) RelationshipRepo {
	return &RelationshipRepoImpl{db: db}
}

func (s *RelationshipRepoImpl) GetByCreatorID(ctx context.Context, creatorID uint64) (*model.CreatorRelationship, error) {
	relationship := &model.CreatorRelationship{}
	result := s.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		First(relationship)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return relationship, nil
}

func (s *RelationshipRepoImpl) GetStatuses(ctx context.Context, creatorIDs []uint64) (map[uint64]string, error) {
	if len(creatorIDs) == 0 {
		return map[uint64]string{}, nil
	}

	relationships := make([]*model.CreatorRelationship, 0)
	result := s.db.WithContext(ctx).
		Where("creator_id IN ?", creatorIDs).
		Find(&relationships)
	if result.Error != nil {
		return nil, result.Error
	}

	statuses := make(map[uint64]string, len(relationships))
	for _, r := range relationships {
		statuses[r.CreatorID] = r.Status
	}
	return statuses, nil
}

func (s *RelationshipRepoImpl) Create(ctx context.Context, relationship *model.CreatorRelationship) error {
	return s.db.WithContext(ctx).Create(relationship).Error
}

func (s *RelationshipRepoImpl) Update(ctx context.Context, relationship *model.CreatorRelationship) error {
	result := s.db.WithContext(ctx).
		Model(&model.CreatorRelationship{}).
		Where("id = ?", relationship.ID).
		Updates(relationship)
	if result.Error != nil {
		return result.Error
	}
	return nil
}
