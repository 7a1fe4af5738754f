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
	"math/rand"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jinzhu/copier"
	"golang.org/x/sync/semaphore"
)

// SeedKind 候选收集的列表页形态
type SeedKind string

const (
	SeedKindHashtag SeedKind = "hashtag"
	SeedKindProfile SeedKind = "profile"
)

// DiscoverOptions 候选账号收集参数，非法字段回落到全局默认值
type DiscoverOptions struct {
	PerSeedPosts    int
	MaxTotalHandles int
	MaxConcurrency  int
	PreferMentions  bool
	SeedKind        SeedKind
}

func (o *DiscoverOptions) applyDefaults() {
	if o.PerSeedPosts <= 0 {
		o.PerSeedPosts = config.DefaultPerSeedPosts
	}
	if o.MaxTotalHandles <= 0 {
		o.MaxTotalHandles = config.DefaultMaxTotalHandles
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = config.DefaultMaxConcurrency
	}
	if o.SeedKind == "" {
		o.SeedKind = SeedKindHashtag
	}
}

// DiscoverySummary 一次发现任务的结构化结果
type DiscoverySummary struct {
	Ok       bool     `json:"ok"`
	Reason   string   `json:"reason,omitempty"`
	Seeds    []string `json:"seeds,omitempty"`
	Handles  int      `json:"handles"`
	Enriched int      `json:"enriched"`
	Excluded int      `json:"excluded"`
	Skipped  int      `json:"skipped"`
	Created  int64    `json:"created"`
	Updated  int64    `json:"updated"`
}

type DiscoveryService interface {
	DiscoverHandles(ctx context.Context, seeds []string, opts DiscoverOptions) ([]string, error)
	DiscoverFromSeeds(ctx context.Context, limit, rotate int) (*DiscoverySummary, error)
	ExpandFromCreators(ctx context.Context, limit int) (*DiscoverySummary, error)
}

type discoveryServiceImpl struct {
	creatorRepo repository.CreatorRepo
	fetcher     scrape.Fetcher
}

func NewDiscoveryService(creatorRepo repository.CreatorRepo, fetcher scrape.Fetcher) DiscoveryService {
	return &discoveryServiceImpl{
		creatorRepo: creatorRepo,
		fetcher:     fetcher,
	}
}

// DiscoverHandles 单独跑一轮候选收集，使用独立的本轮页面缓存
func (s *discoveryServiceImpl) DiscoverHandles(ctx context.Context, seeds []string, opts DiscoverOptions) ([]string, error) {
	return collectHandles(ctx, scrape.NewRunCache(s.fetcher), seeds, opts)
}

// DiscoverFromSeeds 话题页发现：随机轮换 rotate 个种子话题，走完
// 帖子收集、画像过滤、定向排除三段，最后按 limit 上限落库。
func (s *discoveryServiceImpl) DiscoverFromSeeds(ctx context.Context, limit, rotate int) (*DiscoverySummary, error) {
	targeting := config.Cfg.Targeting
	if len(targeting.SeedHashtags) == 0 {
		return nil, ErrNoSeedHashtags
	}

	sample := sampleStrings(targeting.SeedHashtags, rotate)
	notes := fmt.Sprintf("Discovered via #%s", strings.Join(sample, " #"))

	opts := DiscoverOptions{
		PerSeedPosts:    targeting.PerSeedPosts,
		MaxTotalHandles: collectCap(limit, targeting),
		MaxConcurrency:  targeting.MaxConcurrency,
		PreferMentions:  true,
		SeedKind:        SeedKindHashtag,
	}
	return s.runDiscovery(ctx, sample, opts, notes, limit)
}

// ExpandFromCreators 相邻扩散：用库里评分最高的可触达创作者主页做种子，
// 从其帖子页再挖一层同生态账号。与话题发现共用收集、过滤与落库逻辑。
func (s *discoveryServiceImpl) ExpandFromCreators(ctx context.Context, limit int) (*DiscoverySummary, error) {
	targeting := config.Cfg.Targeting
	if !targeting.Expand.Enabled {
		return &DiscoverySummary{Ok: false, Reason: "expansion_disabled"}, nil
	}

	seedCreators, err := s.creatorRepo.ListSeedCandidates(ctx, targeting.Expand.SeedCount)
	if err != nil {
		return nil, err
	}
	if len(seedCreators) == 0 {
		return nil, ErrNoSeedCreators
	}

	seeds := make([]string, 0, len(seedCreators))
	for _, c := range seedCreators {
		seeds = append(seeds, c.Handle)
	}
	notes := fmt.Sprintf("Discovered via expansion of @%s", strings.Join(seeds, " @"))

	opts := DiscoverOptions{
		PerSeedPosts:    targeting.Expand.PerSeedPosts,
		MaxTotalHandles: collectCap(limit, targeting),
		MaxConcurrency:  targeting.Expand.MaxConcurrency,
		PreferMentions:  true,
		SeedKind:        SeedKindProfile,
	}
	return s.runDiscovery(ctx, seeds, opts, notes, limit)
}

// runDiscovery 收集、画像、过滤并落库，返回本轮汇总。
// 所有数据库操作都发生在驱动协程上，抓取协程只返回纯数据。
func (s *discoveryServiceImpl) runDiscovery(ctx context.Context, seeds []string, opts DiscoverOptions, notes string, limit int) (*DiscoverySummary, error) {
	targeting := config.Cfg.Targeting
	cache := scrape.NewRunCache(s.fetcher)

	handles, err := collectHandles(ctx, cache, seeds, opts)
	if err != nil {
		return nil, err
	}

	enriched := EnrichAndFilter(ctx, cache, handles, EnrichOptions{
		FollowerMin:      targeting.FollowerMin,
		FollowerMax:      targeting.FollowerMax,
		HardMaxFollowers: targeting.HardMaxFollowers,
		IncludeExcluded:  true,
		MaxConcurrency:   opts.MaxConcurrency,
	})

	items, excluded, skipped := buildCreatorItems(enriched, targeting, notes)

	created, updated, err := s.creatorRepo.ReconcileDiscovered(ctx, items, limit)
	if err != nil {
		return nil, err
	}

	summary := &DiscoverySummary{
		Ok:       true,
		Seeds:    seeds,
		Handles:  len(handles),
		Enriched: len(enriched),
		Excluded: excluded,
		Skipped:  skipped,
		Created:  created,
		Updated:  updated,
	}
	log.InfoContext(ctx, "creator discovery finished",
		"seeds", seeds,
		"handles", summary.Handles,
		"enriched", summary.Enriched,
		"excluded", excluded,
		"skipped", skipped,
		"created", created,
		"updated", updated,
		"cached_pages", cache.Len(),
	)
	return summary, nil
}

// collectHandles 逐个种子抓列表页、并发抓帖子页，按完成顺序收集候选用户名。
// 累计条数（去重前）达到 MaxTotalHandles 即停止收集，最后去重并截断。
func collectHandles(ctx context.Context, fetcher scrape.Fetcher, seeds []string, opts DiscoverOptions) ([]string, error) {
	opts.applyDefaults()

	var handles []string
	seenPosts := make(map[string]struct{})
	sem := semaphore.NewWeighted(int64(opts.MaxConcurrency))

	for _, seed := range seeds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		listURL, label := listingURL(seed, opts.SeedKind)
		if listURL == "" {
			continue
		}

		html, err := fetchUnderSem(ctx, fetcher, sem, listURL)
		if err != nil {
			log.WarnContext(ctx, "fetch listing page failed", "seed", label, "err", err)
			continue
		}
		if scrape.LooksLikeLoginWall(html) {
			log.WarnContext(ctx, "listing page behind login wall", "seed", label)
			continue
		}

		// 多取再打乱，避免每次都只扫到置顶热帖
		shortcodes := scrape.ExtractShortcodes(html)
		rand.Shuffle(len(shortcodes), func(i, j int) {
			shortcodes[i], shortcodes[j] = shortcodes[j], shortcodes[i]
		})
		if len(shortcodes) > opts.PerSeedPosts {
			shortcodes = shortcodes[:opts.PerSeedPosts]
		}

		// 帖子去重在驱动协程完成，抓取协程之间不共享状态
		var fresh []string
		for _, sc := range shortcodes {
			if _, ok := seenPosts[sc]; ok {
				continue
			}
			seenPosts[sc] = struct{}{}
			fresh = append(fresh, sc)
		}
		if len(fresh) == 0 {
			continue
		}

		results := make(chan []string, len(fresh))
		for _, sc := range fresh {
			go func(shortcode string) {
				results <- fetchPostHandles(ctx, fetcher, sem, shortcode, opts.PreferMentions)
			}(sc)
		}

		// 通道带满量缓冲，提前停止收集时剩余协程写完即退出
		for received := 0; received < len(fresh) && len(handles) < opts.MaxTotalHandles; received++ {
			handles = append(handles, <-results...)
		}

		if len(handles) >= opts.MaxTotalHandles {
			break
		}
	}

	out := scrape.UniqueHandles(handles)
	if len(out) > opts.MaxTotalHandles {
		out = out[:opts.MaxTotalHandles]
	}
	return out, nil
}

// fetchPostHandles 抓单个帖子页，返回发帖人与页面提及。失败返回空。
func fetchPostHandles(ctx context.Context, fetcher scrape.Fetcher, sem *semaphore.Weighted, shortcode string, preferMentions bool) []string {
	html, err := fetchUnderSem(ctx, fetcher, sem, scrape.PostURL(shortcode))
	if err != nil {
		log.DebugContext(ctx, "fetch post page failed", "shortcode", shortcode, "err", err)
		return nil
	}
	if scrape.LooksLikeLoginWall(html) {
		return nil
	}

	var found []string
	if owner := scrape.ExtractOwnerHandle(html); owner != "" {
		found = append(found, owner)
	}
	if preferMentions {
		found = append(found, scrape.ExtractMentions(html)...)
	}
	return found
}

func fetchUnderSem(ctx context.Context, fetcher scrape.Fetcher, sem *semaphore.Weighted, pageURL string) (string, error) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer sem.Release(1)
	return fetcher.Fetch(ctx, pageURL)
}

// buildCreatorItems 把画像结果转成待落库的创作者记录。
// 画像排除计入 excluded，定向词表排除计入 skipped，两者都不落库。
func buildCreatorItems(enriched []EnrichedItem, targeting config.TargetingConfig, notes string) (items []*model.Creator, excluded, skipped int) {
	now := time.Now()
	nicheTags := joinNicheTags(targeting.TargetNiches)

	for i := range enriched {
		item := enriched[i]
		if item.Excluded {
			excluded++
			continue
		}
		if reason := excludedByRules(item.Handle, item.Bio, targeting.Exclude); reason != "" {
			log.Debug("creator skipped by targeting rules", "handle", item.Handle, "reason", reason)
			skipped++
			continue
		}

		creator := &model.Creator{}
		if err := copier.Copy(creator, &item); err != nil {
			log.Warn("copy enriched item failed", "handle", item.Handle, "err", err)
			continue
		}
		creator.Platform = consts.PlatformInstagram
		if nicheTags != "" {
			tags := nicheTags
			creator.NicheTags = &tags
		}
		note := notes
		creator.Notes = &note
		scrapedAt := now
		creator.LastScrapedAt = &scrapedAt

		// 初始软性风险评估，notes 里的种子词也参与判定
		score, flags := AssessFraud(creator)
		creator.FraudScore = score
		if len(flags) > 0 {
			if raw, err := json.Marshal(flags); err == nil {
				encoded := string(raw)
				creator.FraudFlags = &encoded
			}
		}

		items = append(items, creator)
	}
	return items, excluded, skipped
}

// excludedByRules 命中定向配置黑名单时返回排除原因，否则返回空串
func excludedByRules(handle, bio string, ex config.ExcludeConfig) string {
	h := strings.ToLower(handle)
	for _, tok := range ex.HandleContains {
		if tok != "" && strings.Contains(h, strings.ToLower(tok)) {
			return "handle_excluded"
		}
	}
	b := strings.ToLower(bio)
	for _, tok := range ex.TextContains {
		if tok != "" && strings.Contains(b, strings.ToLower(tok)) {
			return "text_excluded"
		}
	}
	return ""
}

func listingURL(seed string, kind SeedKind) (pageURL, label string) {
	switch kind {
	case SeedKindProfile:
		h := scrape.NormalizeHandle(seed)
		if h == "" {
			return "", ""
		}
		return scrape.ProfileURL(h), h
	default:
		tag := strings.TrimLeft(strings.TrimSpace(seed), "#")
		if tag == "" {
			return "", ""
		}
		return scrape.HashtagURL(tag), tag
	}
}

// collectCap 收集上限：落库上限的 Oversample 倍，但不超过全局收集上限。
// 画像阶段会淘汰一部分候选，超采样保证淘汰后仍够填满 limit。
func collectCap(limit int, targeting config.TargetingConfig) int {
	total := targeting.MaxTotalHandles
	if limit > 0 && limit*targeting.Oversample < total {
		total = limit * targeting.Oversample
	}
	return total
}

// sampleStrings 随机取 k 个不重复元素，k 不大于 0 或超过长度时取全部
func sampleStrings(src []string, k int) []string {
	out := make([]string, len(src))
	copy(out, src)
	rand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	if k > 0 && k < len(out) {
		out = out[:k]
	}
	return out
}

func joinNicheTags(niches []string) string {
	joined := strings.Join(niches, ", ")
	if len(joined) > 1500 {
		joined = joined[:1500]
	}
	return joined
}
