package repository

import (
	"Trellis/internal/model"
	"context"

	"gorm.io/gorm"
)

type SignalRepo interface {
	ReplaceForCreator(ctx context.Context, creatorID uint64, signals []*model.CreatorSignal) error
	ListByCreator(ctx context.Context, creatorID uint64, limit int) ([]*model.CreatorSignal, error)
}

type SignalRepoImpl struct {
	db *gorm.DB
}

func NewSignalRepo(db *gorm.DB) SignalRepo {
	return &SignalRepoImpl{db: db}
}

// ReplaceForCreator 整体重建一个创作者的信号证据：先删旧再插新，同一事务
func (s *SignalRepoImpl) ReplaceForCreator(ctx context.Context, creatorID uint64, signals []*model.CreatorSignal) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if result := tx.Where("creator_id = ?", creatorID).Delete(&model.CreatorSignal{}); result.Error != nil {
			return result.Error
		}
		if len(signals) == 0 {
			return nil
		}
		for _, signal := range signals {
			signal.CreatorID = creatorID
		}
		return tx.Create(signals).Error
	})
}

func (s *SignalRepoImpl) ListByCreator(ctx context.Context, creatorID uint64, limit int) ([]*model.CreatorSignal, error) {
	signals := make([]*model.CreatorSignal, 0)
	result := s.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("weight DESC").
		Limit(limit).
		Find(&signals)
	if result.Error != nil {
		return nil, result.Error
	}
	return signals, nil
}
