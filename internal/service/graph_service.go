package service

import (
	"Trellis/internal/model"
	"Trellis/internal/pkg/consts"
	"Trellis/internal/pkg/scrape"
	"Trellis/internal/repository"
	"context"
	"errors"
	log "log/slog"
	"sort"
	"time"

	"github.com/goccy/go-json"
)

// DefaultSimilarityTopK 每个基准创作者保留的相似边数量上限
const DefaultSimilarityTopK = 25

type GraphService interface {
	EnsureCreator(ctx context.Context, handle, platform string) (*model.Creator, error)
	UpsertEdge(ctx context.Context, sourceID, targetID uint64, edgeType string, weight float64, metadata map[string]interface{}) error
	BuildSimilarityEdges(ctx context.Context, base *model.Creator, candidates []*model.Creator, topK int) (int, error)
	OverlapScore(ctx context.Context, a, b *model.Creator) float64
}

type graphServiceImpl struct {
	creatorRepo repository.CreatorRepo
	edgeRepo    repository.EdgeRepo
}

func NewGraphService(creatorRepo repository.CreatorRepo, edgeRepo repository.EdgeRepo) GraphService {
	return &graphServiceImpl{
		creatorRepo: creatorRepo,
		edgeRepo:    edgeRepo,
	}
}

// EnsureCreator 按规范化用户名取或建创作者记录
func (s *graphServiceImpl) EnsureCreator(ctx context.Context, handle, platform string) (*model.Creator, error) {
	h := scrape.NormalizeHandle(handle)
	if h == "" {
		return nil, errors.New("empty creator handle")
	}
	if platform == "" {
		platform = consts.PlatformInstagram
	}
	return s.creatorRepo.GetOrCreate(ctx, h, platform)
}

// UpsertEdge 写入或温和累积一条有向边。同 (source, target, type) 唯一；
// 权重取新旧最大值，metadata 仅在原值缺失时补写，自环直接忽略。
func (s *graphServiceImpl) UpsertEdge(ctx context.Context, sourceID, targetID uint64, edgeType string, weight float64, metadata map[string]interface{}) error {
	if sourceID == targetID {
		return nil
	}

	existing, err := s.edgeRepo.FindEdge(ctx, sourceID, targetID, edgeType)
	if err != nil {
		return err
	}

	var encoded *string
	if len(metadata) > 0 {
		raw, mErr := json.Marshal(metadata)
		if mErr != nil {
			return mErr
		}
		v := string(raw)
		encoded = &v
	}

	now := time.Now()
	if existing == nil {
		return s.edgeRepo.Create(ctx, &model.CreatorEdge{
			SourceCreatorID: sourceID,
			TargetCreatorID: targetID,
			EdgeType:        edgeType,
			Weight:          weight,
			Metadata:        encoded,
			LastSeenAt:      now,
		})
	}

	if weight > existing.Weight {
		existing.Weight = weight
	}
	if existing.Metadata == nil {
		existing.Metadata = encoded
	}
	existing.LastSeenAt = now
	return s.edgeRepo.Update(ctx, existing)
}

// BuildSimilarityEdges 给 base 与候选逐一打分，丢弃非正分，
// 按分数降序保留 topK 条并落相似边。返回写入的边数。
func (s *graphServiceImpl) BuildSimilarityEdges(ctx context.Context, base *model.Creator, candidates []*model.Creator, topK int) (int, error) {
	if topK <= 0 {
		topK = DefaultSimilarityTopK
	}

	type scoredCreator struct {
		score   float64
		creator *model.Creator
	}
	var ranked []scoredCreator
	for _, c := range candidates {
		if c.ID == base.ID {
			continue
		}
		sc := SimilarityScore(base, c)
		if sc <= 0 {
			continue
		}
		ranked = append(ranked, scoredCreator{score: sc, creator: c})
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	written := 0
	for _, r := range ranked {
		err := s.UpsertEdge(ctx, base.ID, r.creator.ID, consts.EdgeSimilarity, r.score, map[string]interface{}{
			"method": "jaccard+bucket",
		})
		if err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// OverlapScore 用标签 Jaccard 与图邻居重合度近似受众重合，0..1。
// 真实受众数据拿不到，这里只做可比较的近似分；邻居查询失败按无重合处理。
func (s *graphServiceImpl) OverlapScore(ctx context.Context, a, b *model.Creator) float64 {
	tagSim := JaccardTags(strVal(a.NicheTags), strVal(b.NicheTags))

	graphSim := 0.0
	na := s.neighborSet(ctx, a.ID)
	nb := s.neighborSet(ctx, b.ID)
	if len(na) > 0 && len(nb) > 0 {
		inter := 0
		union := len(nb)
		for id := range na {
			if _, ok := nb[id]; ok {
				inter++
			} else {
				union++
			}
		}
		graphSim = float64(inter) / float64(union)
	}

	score := 0.7*tagSim + 0.3*graphSim
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func (s *graphServiceImpl) neighborSet(ctx context.Context, creatorID uint64) map[uint64]struct{} {
	ids, err := s.edgeRepo.ListNeighborIDs(ctx, creatorID, []string{consts.EdgeMention, consts.EdgeCoMentioned}, 500)
	if err != nil {
		log.WarnContext(ctx, "list graph neighbors failed", "creator_id", creatorID, "err", err)
		return nil
	}
	set := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		set[id] = struct{}{}
	}
	return set
}
