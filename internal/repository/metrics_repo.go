package repository

import (
	"Trellis/internal/model"
	"context"
	"errors"

	"gorm.io/gorm"
)

type MetricsRepo interface {
	GetByCreatorAndDate(ctx context.Context, creatorID uint64, snapshotDate string) (*model.CreatorMetricsDaily, error)
	Latest(ctx context.Context, creatorID uint64) (*model.CreatorMetricsDaily, error)
	LatestOnOrBefore(ctx context.Context, creatorID uint64, snapshotDate string) (*model.CreatorMetricsDaily, error)
	Create(ctx context.Context, metric *model.CreatorMetricsDaily) error
	Update(ctx context.Context, metric *model.CreatorMetricsDaily) error
}

type MetricsRepoImpl struct {
	db *gorm.DB
}

func NewMetricsRepo(db *gorm.DB) MetricsRepo {
	return &MetricsRepoImpl{db: db}
}

func (s *MetricsRepoImpl) GetByCreatorAndDate(ctx context.Context, creatorID uint64, snapshotDate string) (*model.CreatorMetricsDaily, error) {
	metric := &model.CreatorMetricsDaily{}
	result := s.db.WithContext(ctx).
		Where("creator_id = ? AND snapshot_date = ?", creatorID, snapshotDate).
		First(metric)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return metric, nil
}

func (s *MetricsRepoImpl) Latest(ctx context.Context, creatorID uint64) (*model.CreatorMetricsDaily, error) {
	metric := &model.CreatorMetricsDaily{}
	result := s.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("snapshot_date DESC").
		First(metric)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return metric, nil
}

// LatestOnOrBefore 快照日期为 YYYY-MM-DD 字符串，字典序即时间序
func (s *MetricsRepoImpl) LatestOnOrBefore(ctx context.Context, creatorID uint64, snapshotDate string) (*model.CreatorMetricsDaily, error) {
	metric := &model.CreatorMetricsDaily{}
	result := s.db.WithContext(ctx).
		Where("creator_id = ? AND snapshot_date <= ?", creatorID, snapshotDate).
		Order("snapshot_date DESC").
		First(metric)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return metric, nil
}

func (s *MetricsRepoImpl) Create(ctx context.Context, metric *model.CreatorMetricsDaily) error {
	return s.db.WithContext(ctx).Create(metric).Error
}

func (s *MetricsRepoImpl) Update(ctx context.Context, metric *model.CreatorMetricsDaily) error {
	result := s.db.WithContext(ctx).
		Model(&model.CreatorMetricsDaily{}).
		Where("id = ?", metric.ID).
		Updates(map[string]interface{}{
			"followers_est": metric.FollowersEst,
			"posts_count":   metric.PostsCount,
		})
	if result.Error != nil {
		return result.Error
	}
	return nil
}
