package service

import (
	"Trellis/internal/config"
	"Trellis/internal/pkg/scrape"
	"context"
	log "log/slog"
	"strings"

	"golang.org/x/sync/semaphore"
)

// Exclusion reasons recorded when a discovered profile fails enrichment filters.
const (
	ExcludeReasonSpam         = "spammy_profile"
	ExcludeReasonBrand        = "brand_account"
	ExcludeReasonMega         = "mega_account"
	ExcludeReasonOutsideRange = "outside_target_follower_range"
)

// 词表来自人工运营阶段积累的黑名单，全部按小写比较
var (
	spamHandleTokens = []string{"giveaway", "promo", "free", "forex", "crypto"}
	spamBioTokens    = []string{
		"dm for promo", "dm for collab", "free money", "forex", "crypto",
		"betting", "giveaway", "cashapp", "onlyfans", "telegram",
	}
	brandLinkTokens = []string{"shop", "order", "store", "website"}
)

// EnrichedItem 单个候选账号的画像结果。Bio 保留原文供下游定向排除规则使用。
type EnrichedItem struct {
	Handle        string
	Bio           string
	FollowersEst  *int
	PostsCount    *int
	IsBrand       bool
	IsSpam        bool
	Excluded      bool
	ExcludeReason string
}

// EnrichOptions 画像过滤参数，非法字段回落到全局默认值
type EnrichOptions struct {
	FollowerMin      int
	FollowerMax      int
	HardMaxFollowers int
	IncludeExcluded  bool
	MaxConcurrency   int
}

func (o *EnrichOptions) applyDefaults() {
	if o.FollowerMin <= 0 {
		o.FollowerMin = config.DefaultFollowerMin
	}
	if o.FollowerMax <= 0 {
		o.FollowerMax = config.DefaultFollowerMax
	}
	if o.HardMaxFollowers <= 0 {
		o.HardMaxFollowers = config.DefaultHardMaxFollowers
	}
	if o.MaxConcurrency <= 0 {
		o.MaxConcurrency = config.DefaultMaxConcurrency
	}
}

// IsSpammyProfile 用户名或简介命中刷量词表即视为垃圾号
func IsSpammyProfile(handle, bio string) bool {
	h := strings.ToLower(handle)
	for _, t := range spamHandleTokens {
		if strings.Contains(h, t) {
			return true
		}
	}
	b := strings.ToLower(bio)
	for _, t := range spamBioTokens {
		if strings.Contains(b, t) {
			return true
		}
	}
	return false
}

// LooksLikeBrand 带外链且简介有卖货话术，或卖货词搭配物流词，视为品牌号
func LooksLikeBrand(bio, externalURL string) bool {
	b := strings.ToLower(bio)
	if externalURL != "" {
		for _, t := range brandLinkTokens {
			if strings.Contains(b, t) {
				return true
			}
		}
	}
	if strings.Contains(b, "shop") || strings.Contains(b, "store") || strings.Contains(b, "order") {
		if strings.Contains(b, "link in bio") || strings.Contains(b, "shipping") {
			return true
		}
	}
	return false
}

// classifyEnriched 按 垃圾 > 品牌 > 超量级 > 粉丝区间 的优先级给出排除原因。
// 粉丝数未知时不做区间过滤。
func classifyEnriched(handle string, snap *scrape.Snapshot, opts EnrichOptions) EnrichedItem {
	followers := intVal(snap.Followers)
	isSpam := IsSpammyProfile(handle, snap.Bio)
	isBrand := LooksLikeBrand(snap.Bio, snap.ExternalURL)

	item := EnrichedItem{
		Handle:       handle,
		Bio:          snap.Bio,
		FollowersEst: snap.Followers,
		PostsCount:   snap.Posts,
		IsBrand:      isBrand,
		IsSpam:       isSpam,
	}

	switch {
	case isSpam:
		item.Excluded, item.ExcludeReason = true, ExcludeReasonSpam
	case isBrand:
		item.Excluded, item.ExcludeReason = true, ExcludeReasonBrand
	case followers >= opts.HardMaxFollowers:
		item.Excluded, item.ExcludeReason = true, ExcludeReasonMega
	case followers != 0 && (followers < opts.FollowerMin || followers > opts.FollowerMax):
		item.Excluded, item.ExcludeReason = true, ExcludeReasonOutsideRange
	}
	return item
}

// EnrichAndFilter 并发抓取候选账号主页并分类，默认只保留未被排除的账号。
// 抓取失败与登录墙静默丢弃，上游发现阶段有超采样兜底。结果按完成顺序返回。
func EnrichAndFilter(ctx context.Context, fetcher scrape.Fetcher, handles []string, opts EnrichOptions) []EnrichedItem {
	opts.applyDefaults()

	unique := scrape.UniqueHandles(handles)
	if len(unique) == 0 {
		return nil
	}

	sem := semaphore.NewWeighted(int64(opts.MaxConcurrency))
	results := make(chan *EnrichedItem, len(unique))

	for _, handle := range unique {
		go func(h string) {
			item, err := enrichOne(ctx, fetcher, sem, h, opts)
			if err != nil {
				log.WarnContext(ctx, "enrich profile failed", "handle", h, "err", err)
				results <- nil
				return
			}
			results <- item
		}(handle)
	}

	var out []EnrichedItem
	for range unique {
		item := <-results
		if item == nil {
			continue
		}
		if item.Excluded && !opts.IncludeExcluded {
			continue
		}
		out = append(out, *item)
	}
	return out
}

func enrichOne(ctx context.Context, fetcher scrape.Fetcher, sem *semaphore.Weighted, handle string, opts EnrichOptions) (*EnrichedItem, error) {
	html, err := fetchUnderSem(ctx, fetcher, sem, scrape.ProfileURL(handle))
	if err != nil {
		return nil, err
	}
	if scrape.LooksLikeLoginWall(html) {
		return nil, nil
	}
	snap := scrape.ParseProfile(html, handle)
	item := classifyEnriched(handle, &snap, opts)
	return &item, nil
}
