package service

import (
	"Trellis/internal/config"
	"Trellis/internal/model"
	"Trellis/internal/pkg/consts"
	"Trellis/internal/pkg/llm"
	"Trellis/internal/pkg/scrape"
	"Trellis/internal/pkg/trends"
	"Trellis/internal/repository"
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

const (
	DefaultIdeasPerDay   = 5
	DefaultMaxPagesTotal = 10

	// 信号摘要塞进提示词前的截断长度
	signalsPromptMax = 8000
	// 文章正文在信号里只保留开头一段
	articleExcerptMax = 800
)

// 选题方向的品牌系统提示词
const brandSystemPrompt = `You are a content strategist for Hello To Natural, a faith-friendly natural wellness brand.
Create Reel ideas that are practical, kind, and credible.
Avoid medical claims, avoid diagnosing, and avoid fear-based language.
Use simple, warm, sister-to-sister tone.
Keep Reels: 12–25 seconds.
Always include a clear CTA: Save / Share / Comment keyword.`

// 拍摄包生成的系统提示词，输出必须是纯 JSON
const shootPackSystemPrompt = `You are a content producer for Hello To Natural (H2N), a natural wellness brand.
You create practical, safe, non-medical, non-diagnostic content.
Avoid medical claims (no cures, no guarantees). Use benefit language that is cosmetic/wellness oriented.
Output must be valid JSON only.`

var (
	brollSplitRe   = regexp.MustCompile(`,`)
	hashtagSplitRe = regexp.MustCompile(`[\s,]+`)
)

// TrendSignals 当日收集到的选题信号，按来源分桶
type TrendSignals struct {
	Trends   []trends.TrendItem `json:"trends"`
	YouTube  []string           `json:"youtube"`
	Reddit   []string           `json:"reddit"`
	Articles []string           `json:"articles"`
}

// ReelIdea 单条 Reel 选题，键名与模型的输出契约一致
type ReelIdea struct {
	Hook          string   `json:"hook"`
	Concept       string   `json:"concept"`
	ScriptOutline string   `json:"script_outline"`
	Broll         []string `json:"broll"`
	Caption       string   `json:"caption"`
	Hashtags      []string `json:"hashtags"`
}

// CalendarSlot 发布日历的一个槽位
type CalendarSlot struct {
	Slot        int
	ScheduledAt time.Time
	Hook        string
	Concept     string
}

// ContentSummary 内容情报流水线的运行结果
type ContentSummary struct {
	Ok       bool   `json:"ok"`
	PlanDate string `json:"plan_date"`
	Ideas    int    `json:"ideas"`
	Signals  int    `json:"signals"`
}

// IdeationService 每日内容情报：收信号、定计划、出选题、排日历、入库。
// 模型不可用时整条链路降级到确定性兜底，不中断当日产出。
type IdeationService interface {
	GatherSignals(ctx context.Context) *TrendSignals
	BuildDailyPlan(ctx context.Context, signals *TrendSignals) string
	GenerateReelIdeas(ctx context.Context, signals *TrendSignals, n int) []ReelIdea
	GenerateShootPack(ctx context.Context, idea ReelIdea) (string, error)
	RunContentIntel(ctx context.Context) (*ContentSummary, error)
}

type ideationServiceImpl struct {
	planRepo  repository.PlanRepo
	generator llm.Generator
	rss       trends.Fetcher
	fetcher   scrape.Fetcher
}

func NewIdeationService(
	planRepo repository.PlanRepo,
	generator llm.Generator,
	rss trends.Fetcher,
	fetcher scrape.Fetcher,
) IdeationService {
	return &ideationServiceImpl{
		planRepo:  planRepo,
		generator: generator,
		rss:       rss,
		fetcher:   fetcher,
	}
}

// GatherSignals 拉取全部趋势源。单源失败只降级该源，不影响其余
func (s *ideationServiceImpl) GatherSignals(ctx context.Context) *TrendSignals {
	cfg := config.Cfg.Content
	signals := &TrendSignals{}

	for _, feedURL := range cfg.RSSFeeds {
		xmlText, err := s.rss.FetchRSS(ctx, feedURL)
		if err != nil {
			log.WarnContext(ctx, "Fetch trends rss failed", "url", feedURL, "err", err)
			continue
		}
		signals.Trends = append(signals.Trends, trends.ParseTrendsRSS(xmlText)...)
	}

	maxPages := cfg.MaxPagesTotal
	if maxPages <= 0 {
		maxPages = DefaultMaxPagesTotal
	}
	pageURLs := cfg.HTMLSources
	if len(pageURLs) > maxPages {
		pageURLs = pageURLs[:maxPages]
	}

	for _, pageURL := range pageURLs {
		html, err := s.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			log.WarnContext(ctx, "Fetch trend page failed", "url", pageURL, "err", err)
			continue
		}
		switch {
		case strings.Contains(pageURL, "youtube.com/results"):
			signals.YouTube = append(signals.YouTube, trends.ParseVideoTitles(html)...)
		case strings.Contains(pageURL, "reddit.com/r/"):
			signals.Reddit = append(signals.Reddit, trends.ParseForumHeadlines(html)...)
		default:
			if text := trends.ExtractArticleText(html, pageURL, articleExcerptMax); text != "" {
				signals.Articles = append(signals.Articles, text)
			}
		}
	}
	return signals
}

// BuildDailyPlan 用信号生成当日计划文本，模型失灵时退回确定性文案
func (s *ideationServiceImpl) BuildDailyPlan(ctx context.Context, signals *TrendSignals) string {
	text, err := s.generator.Generate(ctx, brandSystemPrompt, dailyPlanPrompt(signals), 0.3)
	text = strings.TrimSpace(text)
	if err != nil || text == "" {
		if err != nil {
			log.WarnContext(ctx, "Daily plan generation failed, using fallback", "err", err)
		}
		return fallbackDailyPlan(signals)
	}
	return text
}

// GenerateReelIdeas 严格 JSON 契约产出 n 条选题。
// 空回复换低温重试，坏 JSON 退回模型自修复，仍不可用则用保底选题补齐。
func (s *ideationServiceImpl) GenerateReelIdeas(ctx context.Context, signals *TrendSignals, n int) []ReelIdea {
	if n <= 0 {
		n = config.Cfg.Content.IdeasPerDay
	}
	if n <= 0 {
		n = DefaultIdeasPerDay
	}

	raw, err := s.generator.Generate(ctx, brandSystemPrompt, reelIdeasPrompt(signals, n), 0.6)
	if err != nil || strings.TrimSpace(raw) == "" {
		if err != nil {
			log.WarnContext(ctx, "Reel ideas generation failed", "err", err)
		}
		raw, err = s.generator.Generate(ctx, brandSystemPrompt,
			fmt.Sprintf("Return ONLY valid JSON per the contract. Generate %d ideas now.", n), 0.2)
		if err != nil {
			log.WarnContext(ctx, "Reel ideas retry failed, padding with fallback", "err", err)
			return padIdeas(nil, n)
		}
	}

	var items []map[string]interface{}
	if err := llm.DecodeLoose(raw, &items); err != nil {
		fixed, repairErr := s.generator.Generate(ctx, brandSystemPrompt, ideasRepairPrompt(raw, n), 0.2)
		if repairErr != nil || llm.DecodeLoose(fixed, &items) != nil {
			log.WarnContext(ctx, "Reel ideas json unusable, padding with fallback", "err", err)
			return padIdeas(nil, n)
		}
	}
	return padIdeas(normalizeIdeas(items, n), n)
}

// GenerateShootPack 为单条选题生成拍摄包，返回规整后的 JSON 文本
func (s *ideationServiceImpl) GenerateShootPack(ctx context.Context, idea ReelIdea) (string, error) {
	raw, err := s.generator.Generate(ctx, shootPackSystemPrompt, shootPackPrompt(idea), 0.4)
	if err != nil {
		return "", err
	}
	blob := llm.BraceSlice(raw)
	if blob == "" {
		return "", errors.New("no json object in shoot pack reply")
	}
	pack := map[string]interface{}{}
	if err := json.Unmarshal([]byte(blob), &pack); err != nil {
		return "", fmt.Errorf("decode shoot pack: %w", err)
	}
	normalized, err := json.Marshal(pack)
	if err != nil {
		return "", err
	}
	return string(normalized), nil
}

// RunContentIntel 完整流水线：上游失败逐级降级，入库失败才算整体失败
func (s *ideationServiceImpl) RunContentIntel(ctx context.Context) (*ContentSummary, error) {
	signals := s.GatherSignals(ctx)
	planText := s.BuildDailyPlan(ctx, signals)
	ideas := s.GenerateReelIdeas(ctx, signals, 0)
	calendar := BuildCalendar(ideas, time.Now())

	planDate := time.Now().Format(time.DateOnly)
	if _, err := s.planRepo.UpsertPlan(ctx, planDate, planText); err != nil {
		return nil, err
	}

	drafts := make([]*model.PostDraft, 0, len(ideas))
	for i, idea := range ideas {
		draft := &model.PostDraft{
			ContentType: consts.ContentTypeReel,
			Status:      consts.ApprovalPending,
		}
		if hook := strings.TrimSpace(idea.Hook); hook != "" {
			draft.Hook = &hook
		}
		caption := strings.TrimSpace(idea.Caption)
		draft.Caption = &caption
		if tags := joinNonEmpty(idea.Hashtags, "\n"); tags != "" {
			draft.Hashtags = &tags
		}
		if notes := mediaNotes(idea); notes != "" {
			draft.MediaNotes = &notes
		}
		if i < len(calendar) {
			at := calendar[i].ScheduledAt
			draft.ScheduledFor = &at
		}
		if pack, err := s.GenerateShootPack(ctx, idea); err != nil {
			log.WarnContext(ctx, "Shoot pack generation failed", "slot", i+1, "err", err)
		} else {
			draft.ShootPack = &pack
		}
		drafts = append(drafts, draft)
	}
	if err := s.planRepo.CreateDrafts(ctx, drafts); err != nil {
		return nil, err
	}

	summary := &ContentSummary{
		Ok:       true,
		PlanDate: planDate,
		Ideas:    len(ideas),
		Signals:  signalCount(signals),
	}
	log.InfoContext(ctx, "Content intel finished",
		"plan_date", planDate,
		"ideas", summary.Ideas,
		"signals", summary.Signals,
	)
	return summary, nil
}

// BuildCalendar 排双时段日历：11:30 与 18:30，每两条推进一天
func BuildCalendar(ideas []ReelIdea, start time.Time) []CalendarSlot {
	slots := make([]CalendarSlot, 0, len(ideas))
	day := start
	for i, idea := range ideas {
		hour, minute := 11, 30
		if i%2 == 1 {
			hour, minute = 18, 30
		}
		at := time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
		slots = append(slots, CalendarSlot{
			Slot:        i + 1,
			ScheduledAt: at,
			Hook:        idea.Hook,
			Concept:     idea.Concept,
		})
		if (i+1)%2 == 0 {
			day = day.AddDate(0, 0, 1)
		}
	}
	return slots
}

// normalizeIdeas 整形宽松解析出的对象：字符串去空白、列表容忍逗号串，
// 只看前 n 条，缺 hook 或 concept 的一律丢弃
func normalizeIdeas(items []map[string]interface{}, n int) []ReelIdea {
	out := make([]ReelIdea, 0, n)
	for i, it := range items {
		if i >= n {
			break
		}
		idea := ReelIdea{
			Hook:          strField(it, "hook"),
			Concept:       strField(it, "concept"),
			ScriptOutline: strField(it, "script_outline"),
			Broll:         coerceList(it["broll"], brollSplitRe),
			Caption:       strField(it, "caption"),
			Hashtags:      coerceList(it["hashtags"], hashtagSplitRe),
		}
		if idea.Hook == "" || idea.Concept == "" {
			continue
		}
		out = append(out, idea)
	}
	return out
}

// fallbackReelIdea 模型彻底失灵时的保底选题，文案是品牌审定过的安全内容
func fallbackReelIdea() ReelIdea {
	return ReelIdea{
		Hook:          "Glow check: what’s in your body butter?",
		Concept:       "Quick ingredient + texture education with a fun ASMR whip shot.",
		ScriptOutline: "Show the butter texture, explain 1–2 key benefits, end with CTA to shop.",
		Broll:         []string{"whipping butter close-up", "hand application", "product label shot"},
		Caption:       "Soft skin season is here. Which butter are you grabbing today?",
		Hashtags:      []string{"#hellotonatural", "#bodybutter", "#selfcare", "#skincare"},
	}
}

func padIdeas(ideas []ReelIdea, n int) []ReelIdea {
	for len(ideas) < n {
		ideas = append(ideas, fallbackReelIdea())
	}
	return ideas[:n]
}

func dailyPlanPrompt(signals *TrendSignals) string {
	return fmt.Sprintf(`Using the signals below, identify 2-3 themes that are trending today and how Hello To Natural can respond.

Signals (summarized):
- Google Trends: %s
- YouTube topics: %s
- Reddit topics: %s
- Article notes: %s

Output a short daily plan with:
1) Today's themes
2) 1 Reel format recommendation (face-forward, b-roll, text-over)
3) 1 CTA recommendation
4) A reminder of safety (no medical claims)`,
		strings.Join(trendNames(signals.Trends, 10), "; "),
		strings.Join(head(signals.YouTube, 10), "; "),
		strings.Join(head(signals.Reddit, 10), "; "),
		strings.Join(head(signals.Articles, 3), " | "))
}

func reelIdeasPrompt(signals *TrendSignals, n int) string {
	blob, _ := json.MarshalIndent(signals, "", "  ")
	return fmt.Sprintf(`You are generating Instagram Reel ideas for the brand Hello To Natural (H2N).
Use the trend signals below as inspiration, but keep it brand-safe and realistic.

Trend Signals (summarized):
%s

Requirements:
- Generate exactly %d ideas.
- Each idea must be UNIQUE.
- Content must be safe and avoid medical claims.
- Make them practical, engaging, and aligned with H2N body care / self-care vibe.
- Tone: fun, sexy, playful, confident, but tasteful.

JSON OUTPUT CONTRACT (strict):
Return ONLY valid JSON.
No markdown, no code fences, no commentary.
Output must be a JSON array of %d objects, each with EXACT keys:
- hook (string)
- concept (string)
- script_outline (string)
- broll (array of strings)
- caption (string)
- hashtags (array of strings)`, truncateRunes(string(blob), signalsPromptMax), n, n)
}

func ideasRepairPrompt(raw string, n int) string {
	return fmt.Sprintf(`You returned invalid JSON.

Fix it and return ONLY valid JSON (no markdown, no commentary).
It must be a JSON array of %d objects with EXACT keys:
hook, concept, script_outline, broll, caption, hashtags.

Here is your previous output:
%s`, n, raw)
}

func shootPackPrompt(idea ReelIdea) string {
	return fmt.Sprintf(`Create a structured "Shoot Pack" for a short Instagram Reel.

Return JSON with exactly these keys:
- title
- hook_line (1 line)
- on_screen_text (array of 4-6 short lines)
- script (array of 5-8 bullet lines, short)
- broll (array of 6-10 shot ideas)
- filming_notes (array of 4-7 tips)
- caption_polish (string)
- first_comment (string)
- safety_checklist (array of 4-7 items)

Inputs:
HOOK:
%s

CAPTION:
%s

HASHTAGS (newline separated):
%s

EXISTING MEDIA NOTES:
%s

Rules:
- Keep it actionable and easy to film at home.
- Do not include medical claims.
- Keep hook punchy and aligned with natural body care.
- Make sure the JSON is valid (no trailing commas).`,
		idea.Hook, idea.Caption, joinNonEmpty(idea.Hashtags, "\n"), mediaNotes(idea))
}

// fallbackDailyPlan 不依赖模型的当日计划，信号为空时也能出稿
func fallbackDailyPlan(signals *TrendSignals) string {
	themes := trendNames(signals.Trends, 3)
	if len(themes) == 0 {
		themes = head(signals.YouTube, 3)
	}
	if len(themes) == 0 {
		themes = head(signals.Reddit, 3)
	}
	line := "steady-state body care education"
	if len(themes) > 0 {
		line = strings.Join(themes, "; ")
	}
	return "Today's themes: " + line + "\n" +
		"Reel format: b-roll with text overlay, 12 to 25 seconds.\n" +
		"CTA: ask viewers to save the post and comment a keyword.\n" +
		"Safety: cosmetic and wellness benefits only, no medical claims."
}

// mediaNotes 把脚本骨架与 b-roll 清单拼进备注栏
func mediaNotes(idea ReelIdea) string {
	var parts []string
	if outline := strings.TrimSpace(idea.ScriptOutline); outline != "" {
		parts = append(parts, "Script outline:\n"+outline)
	}
	var shots []string
	for _, b := range idea.Broll {
		if b = strings.TrimSpace(b); b != "" {
			shots = append(shots, "- "+b)
		}
	}
	if len(shots) > 0 {
		parts = append(parts, "B-roll ideas:\n"+strings.Join(shots, "\n"))
	}
	return strings.Join(parts, "\n\n")
}

func joinNonEmpty(items []string, sep string) string {
	kept := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			kept = append(kept, it)
		}
	}
	return strings.Join(kept, sep)
}

func strField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

// coerceList 列表字段的宽松取值：数组取字符串项，字符串按分隔符拆开
func coerceList(v interface{}, splitter *regexp.Regexp) []string {
	switch val := v.(type) {
	case []interface{}:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
		}
		return out
	case string:
		parts := splitter.Split(strings.TrimSpace(val), -1)
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	default:
		return nil
	}
}

func trendNames(items []trends.TrendItem, n int) []string {
	names := make([]string, 0, n)
	for _, it := range items {
		if len(names) >= n {
			break
		}
		name := it.Trend
		if it.Traffic != "" {
			name = fmt.Sprintf("%s (%s)", it.Trend, it.Traffic)
		}
		names = append(names, name)
	}
	return names
}

func head(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func signalCount(signals *TrendSignals) int {
	return len(signals.Trends) + len(signals.YouTube) + len(signals.Reddit) + len(signals.Articles)
}
