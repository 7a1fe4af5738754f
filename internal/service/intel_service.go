package service

import (
	"Trellis/internal/config"
	"Trellis/internal/model"
	"Trellis/internal/pkg/consts"
	"Trellis/internal/pkg/scrape"
	"Trellis/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"math"
	"regexp"
	"strings"
	"time"
)

const (
	DefaultIntelCreators    = 50
	DefaultIntelPostsToScan = 8

	// 单条简介信号的正文上限与单条话题信号收录的标签上限
	bioSignalMaxRunes = 1200
	maxSignalHashtags = 25

	// 每帖参与建图的提及上限，受众重合边只算巡检队列头部
	maxMentionsPerPost = 5
	maxOverlapCohort   = 10

	signalCorpusLimit = 50
)

// defaultNicheKeywords 细分领域词表，品牌侧关心的身体护理与康养语汇
var defaultNicheKeywords = []string{
	"body butter", "shea", "mango butter", "body oil", "natural skincare",
	"melanin skincare", "dry skin", "eczema", "glowing skin", "skin barrier",
	"moisture", "self care", "selfcare", "holistic", "herbal", "tea",
	"gut health", "hormone", "pcos", "pre diabetic", "blood sugar",
	"black owned", "black-owned", "plant based", "plantbased",
	"faith", "christian",
}

var lexicalWordRe = regexp.MustCompile(`[a-z0-9]{3,}`)

// PostScan 单个帖子页的扫描结果，信号算完后用提及继续建图
type PostScan struct {
	Shortcode string
	Mentions  []string
}

// IntelSummary 一轮画像巡检的结构化结果
type IntelSummary struct {
	Ok              bool `json:"ok"`
	Scanned         int  `json:"scanned"`
	Failed          int  `json:"failed"`
	MentionEdges    int  `json:"mention_edges"`
	SimilarityEdges int  `json:"similarity_edges"`
	OverlapEdges    int  `json:"overlap_edges"`
}

type IntelService interface {
	RunCreatorIntel(ctx context.Context, limitCreators, similarityTopK int) (*IntelSummary, error)
	SnapshotCreator(ctx context.Context, fetcher scrape.Fetcher, creator *model.Creator) (*scrape.Snapshot, error)
	UpdateGrowthFields(ctx context.Context, creator *model.Creator) error
	ComputeNicheSignals(ctx context.Context, fetcher scrape.Fetcher, creator *model.Creator) (float64, []PostScan, error)
	BestPartnerSimilarity(ctx context.Context, creator *model.Creator) (float64, error)
}

type intelServiceImpl struct {
	creatorRepo repository.CreatorRepo
	metricsRepo repository.MetricsRepo
	signalRepo  repository.SignalRepo
	graph       GraphService
	fetcher     scrape.Fetcher
}

func NewIntelService(
	creatorRepo repository.CreatorRepo,
	metricsRepo repository.MetricsRepo,
	signalRepo repository.SignalRepo,
	graph GraphService,
	fetcher scrape.Fetcher,
) IntelService {
	return &intelServiceImpl{
		creatorRepo: creatorRepo,
		metricsRepo: metricsRepo,
		signalRepo:  signalRepo,
		graph:       graph,
		fetcher:     fetcher,
	}
}

// RunCreatorIntel 对评分队列头部的创作者做一轮画像巡检：逐个快照、
// 重算增长与信号、刷新综合分，最后统一构建相似边与受众重合边。
// 抓取失败只跳过当前创作者，落库失败中止整轮。
func (s *intelServiceImpl) RunCreatorIntel(ctx context.Context, limitCreators, similarityTopK int) (*IntelSummary, error) {
	if limitCreators <= 0 {
		limitCreators = config.Cfg.Intel.LimitCreators
	}
	if limitCreators <= 0 {
		limitCreators = DefaultIntelCreators
	}
	if similarityTopK <= 0 {
		similarityTopK = config.Cfg.Intel.SimilarityTopK
	}

	creators, err := s.creatorRepo.ListForIntel(ctx, limitCreators)
	if err != nil {
		return nil, err
	}
	summary := &IntelSummary{Ok: true}
	if len(creators) == 0 {
		return summary, nil
	}

	cache := scrape.NewRunCache(s.fetcher)
	now := time.Now()

	for _, creator := range creators {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if _, sErr := s.SnapshotCreator(ctx, cache, creator); sErr != nil {
			log.WarnContext(ctx, "snapshot creator failed", "handle", creator.Handle, "err", sErr)
			summary.Failed++
			continue
		}
		if gErr := s.UpdateGrowthFields(ctx, creator); gErr != nil {
			return nil, gErr
		}

		// 主页刚被快照抓过，这里命中本轮缓存，不会再发请求
		nicheScore, scans, nErr := s.ComputeNicheSignals(ctx, cache, creator)
		if nErr != nil {
			return nil, nErr
		}

		partnerSim, pErr := s.BestPartnerSimilarity(ctx, creator)
		if pErr != nil {
			return nil, pErr
		}

		ns := nicheScore
		intelAt := now
		creator.NicheScore = &ns
		creator.Score = FitScore(nicheScore, creator.Growth7d, creator.Growth30d, partnerSim)
		creator.LastIntelRunAt = &intelAt
		if uErr := s.creatorRepo.Update(ctx, creator); uErr != nil {
			return nil, uErr
		}
		summary.Scanned++

		written, mErr := s.buildMentionEdges(ctx, creator, scans)
		if mErr != nil {
			return nil, mErr
		}
		summary.MentionEdges += written
	}

	// 相似边等全体画像刷新后再建，保证双方都用的是本轮数据
	for _, creator := range creators {
		written, eErr := s.graph.BuildSimilarityEdges(ctx, creator, creators, similarityTopK)
		if eErr != nil {
			return nil, eErr
		}
		summary.SimilarityEdges += written
	}

	summary.OverlapEdges, err = s.buildOverlapEdges(ctx, creators)
	if err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "creator intel finished",
		"scanned", summary.Scanned,
		"failed", summary.Failed,
		"mention_edges", summary.MentionEdges,
		"similarity_edges", summary.SimilarityEdges,
		"overlap_edges", summary.OverlapEdges,
		"cached_pages", cache.Len(),
	)
	return summary, nil
}

// SnapshotCreator 抓取主页并把粉丝数、帖子数写进当日指标行。
// 当日已有快照则覆盖，解析不到的字段照样落 nil。
func (s *intelServiceImpl) SnapshotCreator(ctx context.Context, fetcher scrape.Fetcher, creator *model.Creator) (*scrape.Snapshot, error) {
	html, err := fetcher.Fetch(ctx, scrape.ProfileURL(creator.Handle))
	if err != nil {
		return nil, err
	}
	snap := scrape.ParseProfile(html, creator.Handle)

	today := time.Now().Format(time.DateOnly)
	existing, err := s.metricsRepo.GetByCreatorAndDate(ctx, creator.ID, today)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		err = s.metricsRepo.Create(ctx, &model.CreatorMetricsDaily{
			CreatorID:    creator.ID,
			SnapshotDate: today,
			FollowersEst: snap.Followers,
			PostsCount:   snap.Posts,
		})
	} else {
		existing.FollowersEst = snap.Followers
		existing.PostsCount = snap.Posts
		err = s.metricsRepo.Update(ctx, existing)
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// UpdateGrowthFields 用最新快照对比 7 天前与 30 天前的最近快照，
// 在内存里刷新增长字段，任一侧缺失则该字段置 nil。不负责落库。
func (s *intelServiceImpl) UpdateGrowthFields(ctx context.Context, creator *model.Creator) error {
	newest, err := s.metricsRepo.Latest(ctx, creator.ID)
	if err != nil {
		return err
	}

	creator.Growth7d = nil
	creator.Growth30d = nil
	if newest == nil {
		return nil
	}

	now := time.Now()
	s7, err := s.metricsRepo.LatestOnOrBefore(ctx, creator.ID, now.AddDate(0, 0, -7).Format(time.DateOnly))
	if err != nil {
		return err
	}
	s30, err := s.metricsRepo.LatestOnOrBefore(ctx, creator.ID, now.AddDate(0, 0, -30).Format(time.DateOnly))
	if err != nil {
		return err
	}

	if s7 != nil {
		creator.Growth7d = growthPct(newest.FollowersEst, s7.FollowersEst)
	}
	if s30 != nil {
		creator.Growth30d = growthPct(newest.FollowersEst, s30.FollowersEst)
	}
	return nil
}

// ComputeNicheSignals 重算一名创作者的细分领域信号：简介关键词一条，
// 再扫最近帖子页，按帖生成关键词与话题标签信号，整批替换旧信号。
// 返回本轮信号总分与各帖的提及扫描结果。
func (s *intelServiceImpl) ComputeNicheSignals(ctx context.Context, fetcher scrape.Fetcher, creator *model.Creator) (float64, []PostScan, error) {
	profileURL := scrape.ProfileURL(creator.Handle)
	html, err := fetcher.Fetch(ctx, profileURL)
	if err != nil {
		return 0, nil, err
	}
	snap := scrape.ParseProfile(html, creator.Handle)
	keywords := nicheKeywords()

	var signals []*model.CreatorSignal
	score := 0.0

	if bioScore := keywordScore(snap.Bio, keywords); bioScore > 0 {
		src := profileURL
		signals = append(signals, &model.CreatorSignal{
			CreatorID:  creator.ID,
			SignalType: consts.SignalBio,
			SignalText: truncateRunes(snap.Bio, bioSignalMaxRunes),
			Weight:     bioScore,
			SourceURL:  &src,
		})
		// 简介是账号定位的主动自述，权重高于单帖命中
		score += bioScore * 1.5
	}

	postsToScan := config.Cfg.Intel.PostsToScan
	if postsToScan <= 0 {
		postsToScan = DefaultIntelPostsToScan
	}

	var scans []PostScan
	for _, sc := range scrape.ExtractProfileShortcodes(html, postsToScan) {
		postURL := scrape.PostURL(sc)
		postHTML, fErr := fetcher.Fetch(ctx, postURL)
		if fErr != nil {
			log.DebugContext(ctx, "fetch post for signals failed", "shortcode", sc, "err", fErr)
			continue
		}

		postScore := keywordScore(postHTML, keywords)
		hashtags := scrape.ExtractHashtags(postHTML)
		hashtagScore := 0.0
		for _, tag := range hashtags {
			if keywordScore(tag, keywords) > 0 {
				hashtagScore += 0.5
			}
		}

		if postScore > 0 {
			src := postURL
			signals = append(signals, &model.CreatorSignal{
				CreatorID:  creator.ID,
				SignalType: consts.SignalPost,
				SignalText: fmt.Sprintf("Matched keywords on post %s", sc),
				Weight:     postScore,
				SourceURL:  &src,
			})
			score += postScore
		}
		if hashtagScore > 0 {
			src := postURL
			head := hashtags
			if len(head) > maxSignalHashtags {
				head = head[:maxSignalHashtags]
			}
			signals = append(signals, &model.CreatorSignal{
				CreatorID:  creator.ID,
				SignalType: consts.SignalHashtag,
				SignalText: strings.Join(head, ", "),
				Weight:     hashtagScore,
				SourceURL:  &src,
			})
			score += hashtagScore
		}

		scans = append(scans, PostScan{Shortcode: sc, Mentions: scrape.ExtractMentions(postHTML)})
	}

	if err := s.signalRepo.ReplaceForCreator(ctx, creator.ID, signals); err != nil {
		return 0, nil, err
	}
	return score, scans, nil
}

// BestPartnerSimilarity 取与现有合作伙伴语料的最高词面相似度，没有伙伴时为 0
func (s *intelServiceImpl) BestPartnerSimilarity(ctx context.Context, creator *model.Creator) (float64, error) {
	partners, err := s.creatorRepo.ListPartners(ctx, signalCorpusLimit)
	if err != nil {
		return 0, err
	}
	if len(partners) == 0 {
		return 0, nil
	}

	own, err := s.creatorCorpus(ctx, creator)
	if err != nil {
		return 0, err
	}

	best := 0.0
	for _, partner := range partners {
		corpus, cErr := s.creatorCorpus(ctx, partner)
		if cErr != nil {
			return 0, cErr
		}
		if sim := LexicalSimilarity(own, corpus); sim > best {
			best = sim
		}
	}
	return best, nil
}

// creatorCorpus 拼接用户名、领域标签、备注与信号文本，作为词面比较语料
func (s *intelServiceImpl) creatorCorpus(ctx context.Context, creator *model.Creator) (string, error) {
	signals, err := s.signalRepo.ListByCreator(ctx, creator.ID, signalCorpusLimit)
	if err != nil {
		return "", err
	}

	parts := []string{creator.Handle, strVal(creator.NicheTags), strVal(creator.Notes)}
	for _, sig := range signals {
		parts = append(parts, sig.SignalText)
	}
	return strings.Join(parts, " "), nil
}

// buildMentionEdges 把帖子页里的提及写进关系图：发帖人指向被提及者，
// 同帖互提的账号之间再补一条弱关联边。被提及者不存在时先建档。
func (s *intelServiceImpl) buildMentionEdges(ctx context.Context, creator *model.Creator, scans []PostScan) (int, error) {
	written := 0
	for _, scan := range scans {
		mentions := scan.Mentions
		if len(mentions) > maxMentionsPerPost {
			mentions = mentions[:maxMentionsPerPost]
		}

		var mentionedIDs []uint64
		for _, handle := range mentions {
			if handle == creator.Handle {
				continue
			}
			mentioned, err := s.graph.EnsureCreator(ctx, handle, creator.Platform)
			if err != nil {
				return written, err
			}
			if err := s.graph.UpsertEdge(ctx, creator.ID, mentioned.ID, consts.EdgeMention, 1.0, nil); err != nil {
				return written, err
			}
			written++
			mentionedIDs = append(mentionedIDs, mentioned.ID)
		}

		for i := 0; i < len(mentionedIDs); i++ {
			for j := i + 1; j < len(mentionedIDs); j++ {
				if err := s.graph.UpsertEdge(ctx, mentionedIDs[i], mentionedIDs[j], consts.EdgeCoMentioned, 0.5, nil); err != nil {
					return written, err
				}
				written++
			}
		}
	}
	return written, nil
}

// buildOverlapEdges 对巡检队列头部的账号两两估算受众重合度并写边
func (s *intelServiceImpl) buildOverlapEdges(ctx context.Context, creators []*model.Creator) (int, error) {
	cohort := creators
	if len(cohort) > maxOverlapCohort {
		cohort = cohort[:maxOverlapCohort]
	}

	written := 0
	for i := 0; i < len(cohort); i++ {
		for j := i + 1; j < len(cohort); j++ {
			score := s.graph.OverlapScore(ctx, cohort[i], cohort[j])
			if score <= 0 {
				continue
			}
			metadata := map[string]interface{}{"method": "tags+graph"}
			if err := s.graph.UpsertEdge(ctx, cohort[i].ID, cohort[j].ID, consts.EdgeAudienceOverlap, score, metadata); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}

// FitScore 把细分证据、增长与伙伴相似度折算成 0 到 100 的综合分。
// 细分信号最多 40 分，伙伴相似最多 30 分，7 天与 30 天增长各最多 15 分。
func FitScore(nicheScore float64, growth7d, growth30d *float64, partnerSim float64) int {
	score := math.Min(40, nicheScore*4)
	score += math.Min(30, partnerSim*30)
	if growth7d != nil && *growth7d > 0 {
		score += math.Min(15, *growth7d*300)
	}
	if growth30d != nil && *growth30d > 0 {
		score += math.Min(15, *growth30d*100)
	}
	return int(math.Round(math.Min(score, 100)))
}

// LexicalSimilarity 小写分词后的词集 Jaccard，任一侧没有词时为 0
func LexicalSimilarity(a, b string) float64 {
	as := wordSet(a)
	bs := wordSet(b)
	if len(as) == 0 || len(bs) == 0 {
		return 0
	}

	inter := 0
	union := len(bs)
	for w := range as {
		if _, ok := bs[w]; ok {
			inter++
		} else {
			union++
		}
	}
	return float64(inter) / float64(union)
}

func wordSet(text string) map[string]struct{} {
	words := lexicalWordRe.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// keywordScore 关键词命中加权：每命中记 1 分，再按词长加成最多 1 分
func keywordScore(text string, keywords []string) float64 {
	lowered := strings.ToLower(text)
	score := 0.0
	for _, kw := range keywords {
		kw = strings.ToLower(kw)
		if kw == "" {
			continue
		}
		if strings.Contains(lowered, kw) {
			score += 1.0 + math.Min(1.0, float64(len(kw))/20.0)
		}
	}
	return score
}

// growthPct 相对增幅，任一侧缺失或基数非正时返回 nil
func growthPct(latest, previous *int) *float64 {
	if latest == nil || previous == nil || *latest == 0 || *previous <= 0 {
		return nil
	}
	pct := float64(*latest-*previous) / float64(*previous)
	return &pct
}

// nicheKeywords 配置词表优先，缺省回落内置词表
func nicheKeywords() []string {
	if kws := config.Cfg.Intel.NicheKeywords; len(kws) > 0 {
		return kws
	}
	return defaultNicheKeywords
}

// truncateRunes 按字符数截断，保证多字节文本不被截出半个字符
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
