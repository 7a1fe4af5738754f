package repository

import (
	"Trellis/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type EdgeRepo interface {
	FindEdge(ctx context.Context, sourceID, targetID uint64, edgeType string) (*model.CreatorEdge, error)
	Create(ctx context.Context, edge *model.CreatorEdge) error
	Update(ctx context.Context, edge *model.CreatorEdge) error
	ListNeighborIDs(ctx context.Context, sourceID uint64, edgeTypes []string, limit int) ([]uint64, error)
}

type EdgeRepoImpl struct {
	db *gorm.DB
}

func NewEdgeRepo(db *gorm.DB) EdgeRepo {
	return &EdgeRepoImpl{db: db}
}

func (s *EdgeRepoImpl) FindEdge(ctx context.Context, sourceID, targetID uint64, edgeType string) (*model.CreatorEdge, error) {
	edge := &model.CreatorEdge{}
	result := s.db.WithContext(ctx).
		Where("source_creator_id = ? AND target_creator_id = ? AND edge_type = ?", sourceID, targetID, edgeType).
		First(edge)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return edge, nil
}

func (s *EdgeRepoImpl) Create(ctx context.Context, edge *model.CreatorEdge) error {
	return s.db.WithContext(ctx).Create(edge).Error
}

func (s *EdgeRepoImpl) Update(ctx context.Context, edge *model.CreatorEdge) error {
	result := s.db.WithContext(ctx).
		Model(&model.CreatorEdge{}).
		Where("id = ?", edge.ID).
		Updates(map[string]interface{}{
			"weight":       edge.Weight,
			"metadata":     edge.Metadata,
			"last_seen_at": edge.LastSeenAt,
		})
	if result.Error != nil {
		return result.Error
	}
	return nil
}

func (s *EdgeRepoImpl) ListNeighborIDs(ctx context.Context, sourceID uint64, edgeTypes []string, limit int) ([]uint64, error) {
	ids := make([]uint64, 0)
	result := s.db.WithContext(ctx).
		Model(&model.CreatorEdge{}).
		Where("source_creator_id = ? AND edge_type IN ?", sourceID, edgeTypes).
		Limit(limit).
		Pluck("target_creator_id", &ids)
	if result.Error != nil {
		return nil, result.Error
	}
	return ids, nil
}
