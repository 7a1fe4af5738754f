package service

import (
	"Trellis/internal/config"
	"Trellis/internal/model"
	"Trellis/internal/pkg/consts"
	"Trellis/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"strings"
	"time"
)

const (
	DefaultOutreachBatch = 10
	DefaultFraudScoreMax = 40

	// 关系状态与在途草稿会淘汰候选，按批次上限超采
	outreachOversample = 3

	defaultBrandName  = "Hello To Natural"
	defaultSignerName = "Mary & Darrell"
)

// recentTopics 从人工备注里识别的内容主题，顺序即优先级
var recentTopics = []string{
	"skincare", "body care", "wellness", "herbal",
	"self-care", "faith", "natural hair",
}

// 私信正文模板。正文是品牌方审定的文案，个性化只替换占位段。
const dmTemplate = `Hey @%s!

%s

I’m with %s%s — we do small-batch body care + wellness rituals (think shea + oils + self-care vibes). Would you be open to a gifted collab + optional affiliate code if it feels aligned?

If yes, I can send quick details and let you choose what you’d love to try.

— %s`

const defaultOpener = "I love your content and the way you show up for your community."

// PersonalizationContext 单个创作者的私信个性化要素
type PersonalizationContext struct {
	TopNiche    string
	RecentTopic string
	Compliment  string
}

// OutreachSummary 一次起草批次的结构化结果
type OutreachSummary struct {
	Ok         bool `json:"ok"`
	Candidates int  `json:"candidates"`
	Drafted    int  `json:"drafted"`
	Skipped    int  `json:"skipped"`
}

type OutreachService interface {
	BuildOutreachBatch(ctx context.Context, batchSize int) (*OutreachSummary, error)
	BuildPersonalizationContext(creator *model.Creator) PersonalizationContext
	BuildPersonalizedDM(creator *model.Creator, campaignName string) string
	MarkContacted(ctx context.Context, draftID uint64) error
	RecordReply(ctx context.Context, draftID uint64) error
}

type outreachServiceImpl struct {
	creatorRepo      repository.CreatorRepo
	relationshipRepo repository.RelationshipRepo
	outreachRepo     repository.OutreachRepo
}

func NewOutreachService(
	creatorRepo repository.CreatorRepo,
	relationshipRepo repository.RelationshipRepo,
	outreachRepo repository.OutreachRepo,
) OutreachService {
	return &outreachServiceImpl{
		creatorRepo:      creatorRepo,
		relationshipRepo: relationshipRepo,
		outreachRepo:     outreachRepo,
	}
}

// BuildOutreachBatch 为评分最高的可触达创作者起草待审批私信。
// 已合作、已婉拒、已拉黑的关系直接跳过，已有待审批草稿的不重复起草；
// 首次进入批次的创作者会先建立 new 状态的关系档案。
func (s *outreachServiceImpl) BuildOutreachBatch(ctx context.Context, batchSize int) (*OutreachSummary, error) {
	cfg := config.Cfg.Outreach
	if batchSize <= 0 {
		batchSize = cfg.BatchSize
	}
	if batchSize <= 0 {
		batchSize = DefaultOutreachBatch
	}
	fraudMax := cfg.FraudScoreMax
	if fraudMax <= 0 {
		fraudMax = DefaultFraudScoreMax
	}

	candidates, err := s.creatorRepo.ListOutreachCandidates(ctx, fraudMax, batchSize*outreachOversample)
	if err != nil {
		return nil, err
	}
	summary := &OutreachSummary{Ok: true, Candidates: len(candidates)}
	if len(candidates) == 0 {
		return summary, nil
	}

	ids := make([]uint64, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}
	statuses, err := s.relationshipRepo.GetStatuses(ctx, ids)
	if err != nil {
		return nil, err
	}

	for _, creator := range candidates {
		if summary.Drafted >= batchSize {
			break
		}

		if status, ok := statuses[creator.ID]; ok && closedRelationship(status) {
			summary.Skipped++
			continue
		}

		open, dErr := s.outreachRepo.HasOpenDraft(ctx, creator.ID)
		if dErr != nil {
			return nil, dErr
		}
		if open {
			summary.Skipped++
			continue
		}

		// 关系档案跟着第一封草稿建立，后续状态流转都挂在它上面
		if _, ok := statuses[creator.ID]; !ok {
			if cErr := s.relationshipRepo.Create(ctx, &model.CreatorRelationship{
				CreatorID: creator.ID,
				Status:    consts.RelationshipNew,
			}); cErr != nil {
				return nil, cErr
			}
		}

		draft := &model.OutreachDraft{
			CreatorID:      creator.ID,
			Message:        s.BuildPersonalizedDM(creator, cfg.CampaignName),
			Status:         consts.ApprovalPending,
			OutreachStatus: consts.ThreadPending,
			SendChannel:    consts.SendChannelInstagramDM,
		}
		if cfg.OfferType != "" {
			offer := cfg.OfferType
			draft.OfferType = &offer
		}
		if cfg.CampaignName != "" {
			campaign := cfg.CampaignName
			draft.CampaignName = &campaign
		}
		if cErr := s.outreachRepo.Create(ctx, draft); cErr != nil {
			return nil, cErr
		}
		summary.Drafted++
	}

	log.InfoContext(ctx, "outreach batch drafted",
		"candidates", summary.Candidates,
		"drafted", summary.Drafted,
		"skipped", summary.Skipped,
	)
	return summary, nil
}

// BuildPersonalizationContext 从已有画像字段提炼私信开场素材。
// 领域标签取第一个，备注按主题词表匹配，两者都没有时留空。
func (s *outreachServiceImpl) BuildPersonalizationContext(creator *model.Creator) PersonalizationContext {
	pc := PersonalizationContext{}

	if tags := strVal(creator.NicheTags); tags != "" {
		first := strings.TrimSpace(strings.SplitN(tags, ",", 2)[0])
		pc.TopNiche = first
	}

	notes := strings.ToLower(strVal(creator.Notes))
	for _, topic := range recentTopics {
		if strings.Contains(notes, topic) {
			pc.RecentTopic = topic
			break
		}
	}

	switch {
	case pc.TopNiche != "":
		pc.Compliment = fmt.Sprintf("I love how you share about %s.", pc.TopNiche)
	case pc.RecentTopic != "":
		pc.Compliment = fmt.Sprintf("I really enjoy your %s content.", pc.RecentTopic)
	}
	return pc
}

// BuildPersonalizedDM 生成确定性的私信正文，不经过模型。
// 同一画像永远产出同一文案，审批界面看到什么就发什么。
func (s *outreachServiceImpl) BuildPersonalizedDM(creator *model.Creator, campaignName string) string {
	handle := strings.TrimSpace(strings.TrimLeft(creator.Handle, "@"))
	if handle == "" {
		handle = "there"
	}

	opener := s.BuildPersonalizationContext(creator).Compliment
	if opener == "" {
		opener = defaultOpener
	}

	campaign := ""
	if campaignName != "" {
		campaign = fmt.Sprintf(" (%s)", campaignName)
	}

	brand := config.Cfg.Outreach.BrandBlurbName
	if brand == "" {
		brand = defaultBrandName
	}
	signer := config.Cfg.Outreach.SignerName
	if signer == "" {
		signer = defaultSignerName
	}

	return fmt.Sprintf(dmTemplate, handle, opener, brand, campaign, signer)
}

// MarkContacted 标记草稿已人工发出：线程转 sent，关系转 contacted
func (s *outreachServiceImpl) MarkContacted(ctx context.Context, draftID uint64) error {
	draft, err := s.outreachRepo.GetByID(ctx, draftID)
	if err != nil {
		return err
	}
	if draft == nil {
		return ErrDraftNotFound
	}

	now := time.Now()
	draft.OutreachStatus = consts.ThreadSent
	draft.SentAt = &now
	if err := s.outreachRepo.Update(ctx, draft); err != nil {
		return err
	}

	return s.transitionRelationship(ctx, draft.CreatorID, consts.RelationshipContacted, &now)
}

// RecordReply 记录对方已回复：线程转 replied，关系转 replied
func (s *outreachServiceImpl) RecordReply(ctx context.Context, draftID uint64) error {
	draft, err := s.outreachRepo.GetByID(ctx, draftID)
	if err != nil {
		return err
	}
	if draft == nil {
		return ErrDraftNotFound
	}

	now := time.Now()
	draft.OutreachStatus = consts.ThreadReplied
	draft.LastResponseAt = &now
	if err := s.outreachRepo.Update(ctx, draft); err != nil {
		return err
	}

	return s.transitionRelationship(ctx, draft.CreatorID, consts.RelationshipReplied, nil)
}

func (s *outreachServiceImpl) transitionRelationship(ctx context.Context, creatorID uint64, status string, contactedAt *time.Time) error {
	relationship, err := s.relationshipRepo.GetByCreatorID(ctx, creatorID)
	if err != nil {
		return err
	}
	if relationship == nil {
		return s.relationshipRepo.Create(ctx, &model.CreatorRelationship{
			CreatorID:       creatorID,
			Status:          status,
			LastContactedAt: contactedAt,
		})
	}

	relationship.Status = status
	if contactedAt != nil {
		relationship.LastContactedAt = contactedAt
	}
	return s.relationshipRepo.Update(ctx, relationship)
}

// closedRelationship 已有结论的关系不再触达
func closedRelationship(status string) bool {
	switch status {
	case consts.RelationshipPartnered, consts.RelationshipDeclined, consts.RelationshipBlocked:
		return true
	default:
		return false
	}
}
