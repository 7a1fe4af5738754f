package repository

import (
	"Trellis/internal/model"
	"Trellis/internal/pkg/consts"
	"context"
	"errors"

	"github.com/goccy/go-json"
	"gorm.io/gorm"
)

type CreatorRepo interface {
	GetByID(ctx context.Context, id uint64) (*model.Creator, error)
	GetByHandle(ctx context.Context, handle string) (*model.Creator, error)
	GetOrCreate(ctx context.Context, handle string, platform string) (*model.Creator, error)
	ListSeedCandidates(ctx context.Context, limit int) ([]*model.Creator, error)
	ListForIntel(ctx context.Context, limit int) ([]*model.Creator, error)
	ListPartners(ctx context.Context, limit int) ([]*model.Creator, error)
	ListOutreachCandidates(ctx context.Context, fraudScoreMax int, limit int) ([]*model.Creator, error)
	Create(ctx context.Context, creator *model.Creator) error
	Update(ctx context.Context, creator *model.Creator) error
	ReconcileDiscovered(ctx context.Context, items []*model.Creator, limit int) (created int64, updated int64, err error)
}

type CreatorRepoImpl struct {
	db *gorm.DB
}

func NewCreatorRepo(db *gorm.DB) CreatorRepo {
	return &CreatorRepoImpl{db: db}
}

func (s *CreatorRepoImpl) GetByID(ctx context.Context, id uint64) (*model.Creator, error) {
	creator := &model.Creator{}
	result := s.db.WithContext(ctx).First(creator, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return creator, nil
}

func (s *CreatorRepoImpl) GetByHandle(ctx context.Context, handle string) (*model.Creator, error) {
	creator := &model.Creator{}
	result := s.db.WithContext(ctx).
		Where("handle = ?", handle).
		First(creator)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return creator, nil
}

func (s *CreatorRepoImpl) GetOrCreate(ctx context.Context, handle string, platform string) (*model.Creator, error) {
	creator := &model.Creator{}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("handle = ?", handle).First(creator)
		if result.Error == nil {
			return nil
		}
		if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return result.Error
		}
		creator = &model.Creator{Handle: handle, Platform: platform}
		return tx.Create(creator).Error
	})
	if err != nil {
		return nil, err
	}
	return creator, nil
}

func (s *CreatorRepoImpl) ListSeedCandidates(ctx context.Context, limit int) ([]*model.Creator, error) {
	creators := make([]*model.Creator, 0)
	result := s.db.WithContext(ctx).
		Where("is_brand = ? AND is_spam = ? AND outreach_status = ?", false, false, consts.OutreachEligible).
		Order("score DESC").
		Order("followers_est DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&creators)
	if result.Error != nil {
		return nil, result.Error
	}
	return creators, nil
}

func (s *CreatorRepoImpl) ListForIntel(ctx context.Context, limit int) ([]*model.Creator, error) {
	creators := make([]*model.Creator, 0)
	result := s.db.WithContext(ctx).
		Order("score DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&creators)
	if result.Error != nil {
		return nil, result.Error
	}
	return creators, nil
}

func (s *CreatorRepoImpl) ListPartners(ctx context.Context, limit int) ([]*model.Creator, error) {
	creators := make([]*model.Creator, 0)
	result := s.db.WithContext(ctx).
		Where("is_partner = ?", true).
		Limit(limit).
		Find(&creators)
	if result.Error != nil {
		return nil, result.Error
	}
	return creators, nil
}

func (s *CreatorRepoImpl) ListOutreachCandidates(ctx context.Context, fraudScoreMax int, limit int) ([]*model.Creator, error) {
	creators := make([]*model.Creator, 0)
	result := s.db.WithContext(ctx).
		Where("outreach_status = ? AND is_brand = ? AND is_spam = ?", consts.OutreachEligible, false, false).
		Where("fraud_score < ?", fraudScoreMax).
		Order("score DESC").
		Order("followers_est DESC").
		Limit(limit).
		Find(&creators)
	if result.Error != nil {
		return nil, result.Error
	}
	return creators, nil
}

func (s *CreatorRepoImpl) Create(ctx context.Context, creator *model.Creator) error {
	return s.db.WithContext(ctx).Create(creator).Error
}

func (s *CreatorRepoImpl) Update(ctx context.Context, creator *model.Creator) error {
	result := s.db.WithContext(ctx).Model(&model.Creator{}).Where("id = ?", creator.ID).Updates(creator)
	if result.Error != nil {
		return result.Error
	}
	return nil
}

// ReconcileDiscovered 在一个事务里落库一批发现结果：新 handle 插入，已有行
// 只合并新获知的估计值，handle 永不改写。created 达到 limit 后停止处理。
func (s *CreatorRepoImpl) ReconcileDiscovered(ctx context.Context, items []*model.Creator, limit int) (int64, int64, error) {
	var created, updated int64

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if limit > 0 && created >= int64(limit) {
				break
			}

			existing := &model.Creator{}
			result := tx.Where("handle = ?", item.Handle).First(existing)
			if result.Error != nil {
				if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
					return result.Error
				}
				if err := tx.Create(item).Error; err != nil {
					return err
				}
				created++
				continue
			}

			changes := mergeDiscovered(existing, item)
			if len(changes) == 0 {
				continue
			}
			if err := tx.Model(&model.Creator{}).Where("id = ?", existing.ID).Updates(changes).Error; err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return created, updated, nil
}

// mergeDiscovered 产出已有行的增量更新：估计值只在新获知时覆盖，
// 画像标记取并集，欺诈分取较大值
func mergeDiscovered(existing, item *model.Creator) map[string]interface{} {
	changes := map[string]interface{}{}

	if item.FollowersEst != nil {
		changes["followers_est"] = *item.FollowersEst
	}
	if item.PostsCount != nil {
		changes["posts_count"] = *item.PostsCount
	}
	if item.IsBrand && !existing.IsBrand {
		changes["is_brand"] = true
	}
	if item.IsSpam && !existing.IsSpam {
		changes["is_spam"] = true
	}
	if item.FraudScore > existing.FraudScore {
		changes["fraud_score"] = item.FraudScore
	}
	if merged := mergeFraudFlags(existing.FraudFlags, item.FraudFlags); merged != nil {
		changes["fraud_flags"] = *merged
	}
	if item.LastScrapedAt != nil {
		changes["last_scraped_at"] = *item.LastScrapedAt
	}

	return changes
}

// mergeFraudFlags 合并两份 JSON 标记，新证据覆盖同名旧证据；无新增返回 nil
func mergeFraudFlags(oldFlags, newFlags *string) *string {
	if newFlags == nil || *newFlags == "" {
		return nil
	}
	if oldFlags == nil || *oldFlags == "" {
		return newFlags
	}

	merged := map[string]interface{}{}
	if err := json.Unmarshal([]byte(*oldFlags), &merged); err != nil {
		return newFlags
	}
	incoming := map[string]interface{}{}
	if err := json.Unmarshal([]byte(*newFlags), &incoming); err != nil {
		return nil
	}
	for k, v := range incoming {
		merged[k] = v
	}

	buf, err := json.Marshal(merged)
	if err != nil {
		return nil
	}
	out := string(buf)
	return &out
}
