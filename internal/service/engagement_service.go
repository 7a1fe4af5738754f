package service

import (
	"Trellis/internal/config"
	"Trellis/internal/model"
	"Trellis/internal/pkg/consts"
	"Trellis/internal/pkg/llm"
	"Trellis/internal/pkg/redis"
	"Trellis/internal/pkg/safety"
	"Trellis/internal/pkg/scrape"
	"Trellis/internal/repository"
	"context"
	"fmt"
	log "log/slog"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	DefaultEngagementQueue   = 20
	DefaultEngagementPerHour = 25
	DefaultJitterMinutes     = 6
	DefaultDueBatch          = 50

	captionMaxRunes   = 600
	recentCommentKeep = 10

	commentMinWords = 8
	commentMaxWords = 20
	commentMinChars = 30
)

// 执行阶段的状态码，任务日志原样透出
const (
	ExecutionBlocked        = "blocked_by_safety"
	ExecutionNotImplemented = "live_execution_not_implemented"
)

// 评论生成的品牌口吻，所有文案都要过它
const commentSystemPrompt = `You are Mary from Hello To Natural: warm, grounded, feminine, real.
Write human comments that sound like a real woman, not a bot.
No links. No emoji-only replies. Avoid generic praise. No repetitive phrasing.`

var (
	commentSpaceRe   = regexp.MustCompile(`\s+`)
	commentMentionRe = regexp.MustCompile(`@\w+`)
	commentHashtagRe = regexp.MustCompile(`#\w+`)
)

// EngagementSummary 排队结果，计数进任务日志
type EngagementSummary struct {
	Ok      bool `json:"ok"`
	Planned int  `json:"planned"`
	Failed  int  `json:"failed"`
	Skipped int  `json:"skipped"`
}

// ExecutionSummary 执行结果，Status 对齐任务层的约定字符串
type ExecutionSummary struct {
	Status string `json:"status"`
	Due    int    `json:"due"`
}

// EngagementService 互动队列：生成评论草稿、排期、到期执行。
// 队列构建永远不碰真实账号，执行链路由安全闸门把守。
type EngagementService interface {
	GenerateComment(ctx context.Context, caption string, topicHint string) (string, error)
	BuildEngagementQueue(ctx context.Context, limit int) (*EngagementSummary, error)
	ExecuteDue(ctx context.Context, limit int) (*ExecutionSummary, error)
}

type engagementServiceImpl struct {
	creatorRepo    repository.CreatorRepo
	engagementRepo repository.EngagementRepo
	generator      llm.Generator
	guard          safety.Gate
	fetcher        scrape.Fetcher
}

func NewEngagementService(
	creatorRepo repository.CreatorRepo,
	engagementRepo repository.EngagementRepo,
	generator llm.Generator,
	guard safety.Gate,
	fetcher scrape.Fetcher,
) EngagementService {
	return &engagementServiceImpl{
		creatorRepo:    creatorRepo,
		engagementRepo: engagementRepo,
		generator:      generator,
		guard:          guard,
		fetcher:        fetcher,
	}
}

// GenerateComment 为目标帖子生成一条待人工审核的评论。
// 产出要么通过全部硬规则，要么是空串，空串由调用方记失败。
func (s *engagementServiceImpl) GenerateComment(ctx context.Context, caption string, topicHint string) (string, error) {
	caption = truncateRunes(strings.TrimSpace(caption), captionMaxRunes)
	if topicHint == "" {
		topicHint = "wellness"
	}

	avoid, err := s.recentComments(ctx)
	if err != nil {
		return "", err
	}

	raw, err := s.generator.Generate(ctx, commentSystemPrompt, commentUserPrompt(caption, topicHint, avoid), 0.7)
	if err != nil {
		return "", err
	}
	text := sanitizeComment(raw)
	if commentRulesOK(text) {
		return text, nil
	}

	// 一次修复机会：违规稿连同原始标题退回重写，再不过就放弃
	raw, err = s.generator.Generate(ctx, commentSystemPrompt, commentRepairPrompt(text, caption), 0.6)
	if err != nil {
		return "", err
	}
	text = sanitizeComment(raw)
	if commentRulesOK(text) {
		return text, nil
	}
	return "", nil
}

// BuildEngagementQueue 为最近发现的高分账号排一批评论草稿。
// 目标是每个账号的最新一条帖子，已有同目标记录的直接跳过。
func (s *engagementServiceImpl) BuildEngagementQueue(ctx context.Context, limit int) (*EngagementSummary, error) {
	if limit <= 0 {
		limit = config.Cfg.Engagement.QueueLimit
	}
	if limit <= 0 {
		limit = DefaultEngagementQueue
	}

	creators, err := s.creatorRepo.ListSeedCandidates(ctx, limit)
	if err != nil {
		return nil, err
	}
	summary := &EngagementSummary{Ok: true}
	if len(creators) == 0 {
		return summary, nil
	}

	cache := scrape.NewRunCache(s.fetcher)
	slots := ScheduleActions(len(creators), time.Now(), config.Cfg.Engagement.PerHour, config.Cfg.Engagement.JitterMinutes)

	for _, creator := range creators {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		html, err := cache.Fetch(ctx, scrape.ProfileURL(creator.Handle))
		if err != nil {
			log.WarnContext(ctx, "Fetch profile for engagement failed", "handle", creator.Handle, "err", err)
			summary.Skipped++
			continue
		}
		if scrape.LooksLikeLoginWall(html) {
			summary.Skipped++
			continue
		}
		shortcodes := scrape.ExtractProfileShortcodes(html, 1)
		if len(shortcodes) == 0 {
			summary.Skipped++
			continue
		}
		targetURL := scrape.PostURL(shortcodes[0])

		existing, err := s.engagementRepo.GetByTarget(ctx, creator.Platform, consts.ActionComment, targetURL)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			summary.Skipped++
			continue
		}

		snap := scrape.ParseProfile(html, creator.Handle)
		topicHint := ""
		if creator.NicheTags != nil {
			topicHint = strings.TrimSpace(strings.SplitN(*creator.NicheTags, ",", 2)[0])
		}
		text, genErr := s.GenerateComment(ctx, snap.Bio, topicHint)

		handle := creator.Handle
		action := &model.EngagementAction{
			Platform:     creator.Platform,
			ActionType:   consts.ActionComment,
			TargetURL:    targetURL,
			TargetHandle: &handle,
		}
		if caption := strings.TrimSpace(snap.Bio); caption != "" {
			trimmed := truncateRunes(caption, captionMaxRunes)
			action.TargetCaption = &trimmed
		}
		if genErr != nil || text == "" {
			note := "comment generation failed"
			action.Status = consts.EngagementFailed
			action.Notes = &note
			summary.Failed++
			if genErr != nil {
				log.WarnContext(ctx, "Comment generation failed", "handle", creator.Handle, "err", genErr)
			}
		} else {
			at := slots[summary.Planned]
			action.Status = consts.EngagementPending
			action.ProposedText = &text
			action.ScheduledFor = &at
			summary.Planned++
		}
		if err := s.engagementRepo.Create(ctx, action); err != nil {
			return nil, err
		}
		if text != "" {
			if err := redis.PushCapped(ctx, consts.RecentCommentKey, text, recentCommentKeep); err != nil {
				log.DebugContext(ctx, "Recent comment push failed", "err", err)
			}
		}
	}

	log.InfoContext(ctx, "Engagement queue built",
		"planned", summary.Planned,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"cached_pages", cache.Len(),
	)
	return summary, nil
}

// ExecuteDue 把到期且已审核通过的动作交给执行层。
// 真实派发通道尚未接入：闸门放行后只预占小时配额，不标记任何动作为已执行。
func (s *engagementServiceImpl) ExecuteDue(ctx context.Context, limit int) (*ExecutionSummary, error) {
	if limit <= 0 {
		limit = DefaultDueBatch
	}
	if !s.guard.Allow(ctx) {
		return &ExecutionSummary{Status: ExecutionBlocked}, nil
	}

	due, err := s.engagementRepo.ListDue(ctx, time.Now(), limit)
	if err != nil {
		return nil, err
	}
	summary := &ExecutionSummary{Status: ExecutionNotImplemented, Due: len(due)}
	if len(due) == 0 {
		return summary, nil
	}
	if err := s.guard.IncrActions(ctx, int64(len(due))); err != nil {
		return nil, err
	}

	log.InfoContext(ctx, "Engagement execute deferred", "due", len(due), "status", summary.Status)
	return summary, nil
}

// ScheduleActions 把 count 个动作摊到不超过限速的时间槽上。
// 固定的三拍抖动打散整点规律，最后排序保证时间不回头。
func ScheduleActions(count int, startAt time.Time, perHour int, jitterMinutes int) []time.Time {
	if perHour <= 0 {
		perHour = DefaultEngagementPerHour
	}
	if jitterMinutes <= 0 {
		jitterMinutes = DefaultJitterMinutes
	}
	step := 60 / perHour
	if step < 2 {
		step = 2
	}

	times := make([]time.Time, 0, count)
	t := startAt
	for i := 0; i < count; i++ {
		j := (i%3)*jitterMinutes - jitterMinutes
		times = append(times, t.Add(time.Duration(j)*time.Minute))
		t = t.Add(time.Duration(step) * time.Minute)
	}
	sort.Slice(times, func(a, b int) bool { return times[a].Before(times[b]) })
	return times
}

// recentComments 近期已用文案，数据库与 redis 双来源防止跨进程撞车
func (s *engagementServiceImpl) recentComments(ctx context.Context) ([]string, error) {
	fromDB, err := s.engagementRepo.ListRecentComments(ctx, recentCommentKeep)
	if err != nil {
		return nil, err
	}
	fromCache, err := redis.GetList(ctx, consts.RecentCommentKey)
	if err != nil {
		log.DebugContext(ctx, "Recent comment cache read failed", "err", err)
		fromCache = nil
	}
	return mergeAvoidLists(fromDB, fromCache, recentCommentKeep), nil
}

// mergeAvoidLists 合并去重两路文案，保序，最多 limit 条
func mergeAvoidLists(fromDB []string, fromCache []string, limit int) []string {
	merged := make([]string, 0, limit)
	seen := make(map[string]struct{}, limit)
	for _, list := range [][]string{fromDB, fromCache} {
		for _, c := range list {
			c = strings.TrimSpace(c)
			if c == "" {
				continue
			}
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			merged = append(merged, c)
			if len(merged) >= limit {
				return merged
			}
		}
	}
	return merged
}

func commentUserPrompt(caption string, topicHint string, avoid []string) string {
	lines := "- (none)"
	if len(avoid) > 0 {
		var b strings.Builder
		for i, c := range avoid {
			if i > 0 {
				b.WriteByte('\n')
			}
			b.WriteString("- ")
			b.WriteString(c)
		}
		lines = b.String()
	}
	return fmt.Sprintf(`Write ONE Instagram comment.

Requirements:
- 8 to 20 words.
- References something specific from the post caption (paraphrase a phrase or theme).
- Not emoji-only. Max 1 emoji total (optional).
- No links, no hashtags, no @mentions.
- Not generic ("Love this!", "So good!", "Amazing post" are banned).
- Must feel like a real woman.

Post caption:
"""%s"""

Topic hint: %s

Avoid repeating these phrases or styles:
%s

Return ONLY the comment text.`, caption, topicHint, lines)
}

func commentRepairPrompt(bad string, caption string) string {
	return fmt.Sprintf(`Fix this comment to meet the rules (8 to 20 words, specific, not generic, no links, no hashtags, no @mentions).
Bad comment: %s
Post caption: %s
Return ONLY the corrected comment.`, bad, caption)
}

// sanitizeComment 清洗模型输出：压空白、剥首尾引号、去 @ 提及与 # 话题
func sanitizeComment(s string) string {
	s = strings.TrimSpace(commentSpaceRe.ReplaceAllString(s, " "))
	s = strings.Trim(s, `"'`)
	s = strings.TrimSpace(commentMentionRe.ReplaceAllString(s, ""))
	s = strings.TrimSpace(commentHashtagRe.ReplaceAllString(s, ""))
	return s
}

// commentRulesOK 硬规则：8~20 个词、不少于 30 个字符、不带链接
func commentRulesOK(text string) bool {
	words := strings.Fields(text)
	if len(words) < commentMinWords || len(words) > commentMaxWords {
		return false
	}
	if utf8.RuneCountInString(text) < commentMinChars {
		return false
	}
	return !strings.Contains(strings.ToLower(text), "http")
}
