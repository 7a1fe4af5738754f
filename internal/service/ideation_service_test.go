package service

import (
	"Trellis/internal/config"
	"Trellis/internal/model"
	"Trellis/internal/pkg/trends"
	"Trellis/internal/repository"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const twoIdeasJSON = `[
  {"hook": "Hook one", "concept": "Concept one", "script_outline": "S1", "broll": ["b1", "b2"], "caption": "Cap one", "hashtags": ["#a", "#b"]},
  {"hook": "Hook two", "concept": "Concept two", "script_outline": "S2", "broll": ["b3"], "caption": "Cap two", "hashtags": ["#c"]}
]`

const trendFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss xmlns:ht="https://trends.google.com/trending/rss" version="2.0">
  <channel>
    <item>
      <title>shea butter</title>
      <ht:approx_traffic>50,000+</ht:approx_traffic>
    </item>
    <item>
      <title>winter skincare</title>
      <ht:approx_traffic>20,000+</ht:approx_traffic>
    </item>
  </channel>
</rss>`

const videoResultsPage = `<html><body>
<a id="video-title" title="Whipped body butter recipe">x</a>
<a id="video-title" title="5 minute self care night">y</a>
</body></html>`

const forumThreadsPage = `<html><body>
<h3>Menu</h3>
<h3>What saved my winter skin this year</h3>
</body></html>`

const emptyArticlePage = `<html><head><title>Journal</title></head><body></body></html>`

type planUpsert struct {
	planDate string
	summary  string
}

// fakePlanRepo 记录入库的计划与草稿
type fakePlanRepo struct {
	upserts   []planUpsert
	drafts    []*model.PostDraft
	upsertErr error
	createErr error
}

var _ repository.PlanRepo = (*fakePlanRepo)(nil)

func (f *fakePlanRepo) GetByDate(_ context.Context, planDate string) (*model.DailyPlan, error) {
	for _, u := range f.upserts {
		if u.planDate == planDate {
			return &model.DailyPlan{PlanDate: u.planDate, Summary: u.summary}, nil
		}
	}
	return nil, nil
}

func (f *fakePlanRepo) UpsertPlan(_ context.Context, planDate string, summary string) (*model.DailyPlan, error) {
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	f.upserts = append(f.upserts, planUpsert{planDate: planDate, summary: summary})
	return &model.DailyPlan{ID: uint64(len(f.upserts)), PlanDate: planDate, Summary: summary}, nil
}

func (f *fakePlanRepo) CreateDrafts(_ context.Context, drafts []*model.PostDraft) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.drafts = append(f.drafts, drafts...)
	return nil
}

// fakeRSS 返回预置的 feed 文本
type fakeRSS struct {
	feeds map[string]string
	fails map[string]error
}

var _ trends.Fetcher = (*fakeRSS)(nil)

func (f *fakeRSS) FetchRSS(_ context.Context, feedURL string) (string, error) {
	if err, ok := f.fails[feedURL]; ok {
		return "", err
	}
	xmlText, ok := f.feeds[feedURL]
	if !ok {
		return "", errors.New("no canned feed for " + feedURL)
	}
	return xmlText, nil
}

func contentTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Content = config.ContentConfig{IdeasPerDay: 2}
	return cfg
}

func TestBuildCalendar(t *testing.T) {
	// 起始时刻的钟点不参与排期，只取日期
	start := time.Date(2026, 8, 26, 23, 45, 0, 0, time.UTC)
	ideas := []ReelIdea{
		{Hook: "h1", Concept: "c1"},
		{Hook: "h2", Concept: "c2"},
		{Hook: "h3", Concept: "c3"},
		{Hook: "h4", Concept: "c4"},
		{Hook: "h5", Concept: "c5"},
	}

	want := []CalendarSlot{
		{Slot: 1, ScheduledAt: time.Date(2026, 8, 26, 11, 30, 0, 0, time.UTC), Hook: "h1", Concept: "c1"},
		{Slot: 2, ScheduledAt: time.Date(2026, 8, 26, 18, 30, 0, 0, time.UTC), Hook: "h2", Concept: "c2"},
		{Slot: 3, ScheduledAt: time.Date(2026, 8, 27, 11, 30, 0, 0, time.UTC), Hook: "h3", Concept: "c3"},
		{Slot: 4, ScheduledAt: time.Date(2026, 8, 27, 18, 30, 0, 0, time.UTC), Hook: "h4", Concept: "c4"},
		{Slot: 5, ScheduledAt: time.Date(2026, 8, 28, 11, 30, 0, 0, time.UTC), Hook: "h5", Concept: "c5"},
	}
	got := BuildCalendar(ideas, start)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("BuildCalendar() mismatch (-want +got):\n%s", diff)
	}

	if got := BuildCalendar(nil, start); len(got) != 0 {
		t.Errorf("BuildCalendar(nil) = %v, want empty", got)
	}
}

func TestNormalizeIdeas(t *testing.T) {
	tests := []struct {
		name  string
		items []map[string]interface{}
		n     int
		want  []ReelIdea
	}{
		{
			name: "clean object",
			items: []map[string]interface{}{{
				"hook":           " Hook ",
				"concept":        "Concept",
				"script_outline": "Outline",
				"broll":          []interface{}{" b1 ", "b2", ""},
				"caption":        " Cap ",
				"hashtags":       []interface{}{"#a", " #b "},
			}},
			n: 3,
			want: []ReelIdea{{
				Hook:          "Hook",
				Concept:       "Concept",
				ScriptOutline: "Outline",
				Broll:         []string{"b1", "b2"},
				Caption:       "Cap",
				Hashtags:      []string{"#a", "#b"},
			}},
		},
		{
			name: "broll as comma separated string",
			items: []map[string]interface{}{{
				"hook":    "h",
				"concept": "c",
				"broll":   "close-up, hands , label",
			}},
			n:    1,
			want: []ReelIdea{{Hook: "h", Concept: "c", Broll: []string{"close-up", "hands", "label"}}},
		},
		{
			name: "hashtags split on spaces and commas",
			items: []map[string]interface{}{{
				"hook":     "h",
				"concept":  "c",
				"hashtags": "#a #b,#c",
			}},
			n:    1,
			want: []ReelIdea{{Hook: "h", Concept: "c", Hashtags: []string{"#a", "#b", "#c"}}},
		},
		{
			name: "missing hook dropped",
			items: []map[string]interface{}{
				{"concept": "c"},
				{"hook": "h", "concept": "c"},
			},
			n:    2,
			want: []ReelIdea{{Hook: "h", Concept: "c"}},
		},
		{
			name:  "non-string hook dropped",
			items: []map[string]interface{}{{"hook": 42, "concept": "c"}},
			n:     1,
			want:  []ReelIdea{},
		},
		{
			name: "only first n raw items considered",
			items: []map[string]interface{}{
				{"hook": "h1", "concept": "c1"},
				{"hook": "h2", "concept": "c2"},
				{"hook": "h3", "concept": "c3"},
			},
			n:    2,
			want: []ReelIdea{{Hook: "h1", Concept: "c1"}, {Hook: "h2", Concept: "c2"}},
		},
		{
			name:  "numeric broll ignored",
			items: []map[string]interface{}{{"hook": "h", "concept": "c", "broll": 7}},
			n:     1,
			want:  []ReelIdea{{Hook: "h", Concept: "c"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeIdeas(tt.items, tt.n)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("normalizeIdeas() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPadIdeas(t *testing.T) {
	got := padIdeas(nil, 2)
	if len(got) != 2 {
		t.Fatalf("padIdeas(nil, 2) len = %d, want 2", len(got))
	}
	if got[0].Hook != "Glow check: what’s in your body butter?" {
		t.Errorf("fallback hook = %q", got[0].Hook)
	}
	if diff := cmp.Diff(fallbackReelIdea(), got[1]); diff != "" {
		t.Errorf("fallback idea mismatch (-want +got):\n%s", diff)
	}

	kept := []ReelIdea{{Hook: "h1", Concept: "c1"}, {Hook: "h2", Concept: "c2"}, {Hook: "h3", Concept: "c3"}}
	want := []ReelIdea{{Hook: "h1", Concept: "c1"}, {Hook: "h2", Concept: "c2"}}
	if diff := cmp.Diff(want, padIdeas(kept, 2)); diff != "" {
		t.Errorf("padIdeas() truncation mismatch (-want +got):\n%s", diff)
	}
}

func TestGatherSignals(t *testing.T) {
	const (
		feedURL    = "https://trends.example/rss"
		deadFeed   = "https://dead.example/rss"
		videoURL   = "https://www.youtube.com/results?search_query=body+butter"
		redditURL  = "https://www.reddit.com/r/SkincareAddiction/"
		articleURL = "https://journal.example/post"
		blockedURL = "https://blocked.example/trends"
	)
	cfg := contentTestConfig()
	cfg.Content.RSSFeeds = []string{feedURL, deadFeed}
	cfg.Content.HTMLSources = []string{videoURL, redditURL, articleURL, blockedURL}
	config.Cfg = cfg

	rss := &fakeRSS{
		feeds: map[string]string{feedURL: trendFeedXML},
		fails: map[string]error{deadFeed: errors.New("dns failure")},
	}
	f := &fakeFetcher{
		pages: map[string]string{
			videoURL:   videoResultsPage,
			redditURL:  forumThreadsPage,
			articleURL: emptyArticlePage,
		},
		fails: map[string]error{blockedURL: errors.New("403")},
	}
	svc := NewIdeationService(&fakePlanRepo{}, &fakeGenerator{}, rss, f)

	got := svc.GatherSignals(context.Background())

	wantTrends := []trends.TrendItem{
		{Trend: "shea butter", Traffic: "50,000+"},
		{Trend: "winter skincare", Traffic: "20,000+"},
	}
	if diff := cmp.Diff(wantTrends, got.Trends); diff != "" {
		t.Errorf("Trends mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Whipped body butter recipe", "5 minute self care night"}, got.YouTube); diff != "" {
		t.Errorf("YouTube mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"What saved my winter skin this year"}, got.Reddit); diff != "" {
		t.Errorf("Reddit mismatch (-want +got):\n%s", diff)
	}
	if len(got.Articles) != 0 {
		t.Errorf("Articles = %v, want none", got.Articles)
	}
}

func TestGatherSignalsHonorsPageCap(t *testing.T) {
	const (
		firstURL  = "https://www.youtube.com/results?search_query=a"
		secondURL = "https://www.youtube.com/results?search_query=b"
	)
	cfg := contentTestConfig()
	cfg.Content.HTMLSources = []string{firstURL, secondURL}
	cfg.Content.MaxPagesTotal = 1
	config.Cfg = cfg

	f := &fakeFetcher{pages: map[string]string{
		firstURL:  videoResultsPage,
		secondURL: videoResultsPage,
	}}
	svc := NewIdeationService(&fakePlanRepo{}, &fakeGenerator{}, &fakeRSS{}, f)

	got := svc.GatherSignals(context.Background())

	if n := f.callCount(secondURL); n != 0 {
		t.Errorf("second page fetched %d times despite cap", n)
	}
	if len(got.YouTube) != 2 {
		t.Errorf("YouTube = %v, want titles from the first page only", got.YouTube)
	}
}

func TestBuildDailyPlan(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"  Lean into shea butter education today.  "}}
	svc := NewIdeationService(&fakePlanRepo{}, gen, &fakeRSS{}, &fakeFetcher{})

	signals := &TrendSignals{
		Trends:  []trends.TrendItem{{Trend: "shea butter", Traffic: "50,000+"}},
		YouTube: []string{"Whipped body butter recipe"},
	}
	got := svc.BuildDailyPlan(context.Background(), signals)

	if got != "Lean into shea butter education today." {
		t.Errorf("BuildDailyPlan() = %q, want trimmed model reply", got)
	}
	if len(gen.calls) != 1 {
		t.Fatalf("generator calls = %d, want 1", len(gen.calls))
	}
	call := gen.calls[0]
	if call.temp != 0.3 {
		t.Errorf("temp = %v, want 0.3", call.temp)
	}
	if call.system != brandSystemPrompt {
		t.Errorf("system prompt mismatch: %q", call.system)
	}
	if !strings.Contains(call.user, "- Google Trends: shea butter (50,000+)") {
		t.Errorf("prompt missing trends summary: %q", call.user)
	}
	if !strings.Contains(call.user, "- YouTube topics: Whipped body butter recipe") {
		t.Errorf("prompt missing youtube summary: %q", call.user)
	}
}

func TestBuildDailyPlanFallback(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("model offline")}
	svc := NewIdeationService(&fakePlanRepo{}, gen, &fakeRSS{}, &fakeFetcher{})

	signals := &TrendSignals{Trends: []trends.TrendItem{{Trend: "shea butter", Traffic: "50,000+"}}}
	want := "Today's themes: shea butter (50,000+)\n" +
		"Reel format: b-roll with text overlay, 12 to 25 seconds.\n" +
		"CTA: ask viewers to save the post and comment a keyword.\n" +
		"Safety: cosmetic and wellness benefits only, no medical claims."
	if got := svc.BuildDailyPlan(context.Background(), signals); got != want {
		t.Errorf("BuildDailyPlan() fallback = %q, want %q", got, want)
	}

	// 空回复也走兜底，信号为空时主题退到固定文案
	gen = &fakeGenerator{replies: []string{"   "}}
	svc = NewIdeationService(&fakePlanRepo{}, gen, &fakeRSS{}, &fakeFetcher{})
	got := svc.BuildDailyPlan(context.Background(), &TrendSignals{})
	if !strings.HasPrefix(got, "Today's themes: steady-state body care education") {
		t.Errorf("BuildDailyPlan() empty-signal fallback = %q", got)
	}
}

func TestGenerateReelIdeas(t *testing.T) {
	config.Cfg = contentTestConfig()
	gen := &fakeGenerator{replies: []string{twoIdeasJSON}}
	svc := NewIdeationService(&fakePlanRepo{}, gen, &fakeRSS{}, &fakeFetcher{})

	signals := &TrendSignals{Trends: []trends.TrendItem{{Trend: "shea butter", Traffic: "50,000+"}}}
	got := svc.GenerateReelIdeas(context.Background(), signals, 2)

	want := []ReelIdea{
		{Hook: "Hook one", Concept: "Concept one", ScriptOutline: "S1", Broll: []string{"b1", "b2"}, Caption: "Cap one", Hashtags: []string{"#a", "#b"}},
		{Hook: "Hook two", Concept: "Concept two", ScriptOutline: "S2", Broll: []string{"b3"}, Caption: "Cap two", Hashtags: []string{"#c"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GenerateReelIdeas() mismatch (-want +got):\n%s", diff)
	}
	if len(gen.calls) != 1 {
		t.Fatalf("generator calls = %d, want 1", len(gen.calls))
	}
	call := gen.calls[0]
	if call.temp != 0.6 {
		t.Errorf("temp = %v, want 0.6", call.temp)
	}
	if call.system != brandSystemPrompt {
		t.Errorf("system prompt mismatch: %q", call.system)
	}
	if !strings.Contains(call.user, "Generate exactly 2 ideas.") {
		t.Errorf("prompt missing idea count: %q", call.user)
	}
	if !strings.Contains(call.user, "shea butter") {
		t.Errorf("prompt missing trend signal: %q", call.user)
	}
}

func TestGenerateReelIdeasEmptyReplyRetriesLowTemp(t *testing.T) {
	config.Cfg = contentTestConfig()
	gen := &fakeGenerator{replies: []string{"   ", twoIdeasJSON}}
	svc := NewIdeationService(&fakePlanRepo{}, gen, &fakeRSS{}, &fakeFetcher{})

	got := svc.GenerateReelIdeas(context.Background(), &TrendSignals{}, 2)

	if len(got) != 2 || got[0].Hook != "Hook one" {
		t.Fatalf("GenerateReelIdeas() = %+v, want ideas from retry", got)
	}
	if len(gen.calls) != 2 {
		t.Fatalf("generator calls = %d, want 2", len(gen.calls))
	}
	retry := gen.calls[1]
	if retry.user != "Return ONLY valid JSON per the contract. Generate 2 ideas now." {
		t.Errorf("retry prompt = %q", retry.user)
	}
	if retry.temp != 0.2 {
		t.Errorf("retry temp = %v, want 0.2", retry.temp)
	}
}

func TestGenerateReelIdeasRepairsBadJSON(t *testing.T) {
	config.Cfg = contentTestConfig()
	gen := &fakeGenerator{replies: []string{"not json at all", twoIdeasJSON}}
	svc := NewIdeationService(&fakePlanRepo{}, gen, &fakeRSS{}, &fakeFetcher{})

	got := svc.GenerateReelIdeas(context.Background(), &TrendSignals{}, 2)

	if len(got) != 2 || got[0].Hook != "Hook one" {
		t.Fatalf("GenerateReelIdeas() = %+v, want repaired ideas", got)
	}
	if len(gen.calls) != 2 {
		t.Fatalf("generator calls = %d, want 2", len(gen.calls))
	}
	repair := gen.calls[1]
	if repair.temp != 0.2 {
		t.Errorf("repair temp = %v, want 0.2", repair.temp)
	}
	if !strings.Contains(repair.user, "You returned invalid JSON.") {
		t.Errorf("repair prompt missing preamble: %q", repair.user)
	}
	if !strings.Contains(repair.user, "not json at all") {
		t.Errorf("repair prompt missing previous output: %q", repair.user)
	}
}

func TestGenerateReelIdeasFallsBackWhenUnusable(t *testing.T) {
	config.Cfg = contentTestConfig()
	gen := &fakeGenerator{replies: []string{"garbage", "still garbage"}}
	svc := NewIdeationService(&fakePlanRepo{}, gen, &fakeRSS{}, &fakeFetcher{})

	got := svc.GenerateReelIdeas(context.Background(), &TrendSignals{}, 3)

	if len(gen.calls) != 2 {
		t.Fatalf("generator calls = %d, want 2", len(gen.calls))
	}
	if len(got) != 3 {
		t.Fatalf("ideas = %d, want 3", len(got))
	}
	fallback := fallbackReelIdea()
	for i, idea := range got {
		if diff := cmp.Diff(fallback, idea); diff != "" {
			t.Errorf("idea %d not fallback (-want +got):\n%s", i, diff)
		}
	}
}

func TestGenerateReelIdeasPadsShortList(t *testing.T) {
	config.Cfg = contentTestConfig()
	gen := &fakeGenerator{replies: []string{`[{"hook": "Only", "concept": "One"}]`}}
	svc := NewIdeationService(&fakePlanRepo{}, gen, &fakeRSS{}, &fakeFetcher{})

	got := svc.GenerateReelIdeas(context.Background(), &TrendSignals{}, 3)

	want := []ReelIdea{{Hook: "Only", Concept: "One"}, fallbackReelIdea(), fallbackReelIdea()}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GenerateReelIdeas() mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateShootPack(t *testing.T) {
	gen := &fakeGenerator{replies: []string{`Sure! {"title":"Whip it","script":["a","b"]} hope this helps`}}
	svc := NewIdeationService(&fakePlanRepo{}, gen, &fakeRSS{}, &fakeFetcher{})

	idea := ReelIdea{
		Hook:          "Glow check",
		Caption:       "Soft skin season",
		Hashtags:      []string{"#a", "#b"},
		ScriptOutline: "S1",
		Broll:         []string{"b1"},
	}
	got, err := svc.GenerateShootPack(context.Background(), idea)
	if err != nil {
		t.Fatalf("GenerateShootPack() error = %v", err)
	}
	if want := `{"script":["a","b"],"title":"Whip it"}`; got != want {
		t.Errorf("GenerateShootPack() = %q, want %q", got, want)
	}

	if len(gen.calls) != 1 {
		t.Fatalf("generator calls = %d, want 1", len(gen.calls))
	}
	call := gen.calls[0]
	if call.temp != 0.4 {
		t.Errorf("temp = %v, want 0.4", call.temp)
	}
	if call.system != shootPackSystemPrompt {
		t.Errorf("system prompt mismatch: %q", call.system)
	}
	if !strings.Contains(call.user, "HOOK:\nGlow check") {
		t.Errorf("prompt missing hook: %q", call.user)
	}
	if !strings.Contains(call.user, "HASHTAGS (newline separated):\n#a\n#b") {
		t.Errorf("prompt missing hashtags: %q", call.user)
	}
	if !strings.Contains(call.user, "Script outline:\nS1") {
		t.Errorf("prompt missing media notes: %q", call.user)
	}
}

func TestGenerateShootPackRejectsNonJSON(t *testing.T) {
	gen := &fakeGenerator{replies: []string{"no braces here"}}
	svc := NewIdeationService(&fakePlanRepo{}, gen, &fakeRSS{}, &fakeFetcher{})

	if _, err := svc.GenerateShootPack(context.Background(), ReelIdea{}); err == nil {
		t.Error("want error for reply without json object")
	}

	gen = &fakeGenerator{replies: []string{"{not valid json}"}}
	svc = NewIdeationService(&fakePlanRepo{}, gen, &fakeRSS{}, &fakeFetcher{})
	_, err := svc.GenerateShootPack(context.Background(), ReelIdea{})
	if err == nil || !strings.Contains(err.Error(), "decode shoot pack") {
		t.Errorf("err = %v, want decode error", err)
	}
}

func TestGenerateShootPackGeneratorError(t *testing.T) {
	genErr := errors.New("model offline")
	svc := NewIdeationService(&fakePlanRepo{}, &fakeGenerator{err: genErr}, &fakeRSS{}, &fakeFetcher{})

	if _, err := svc.GenerateShootPack(context.Background(), ReelIdea{}); !errors.Is(err, genErr) {
		t.Errorf("err = %v, want %v", err, genErr)
	}
}

func TestRunContentIntel(t *testing.T) {
	config.Cfg = contentTestConfig()
	gen := &fakeGenerator{replies: []string{
		"Plan for today",
		twoIdeasJSON,
		`{"title":"Pack one"}`,
		`{"title":"Pack two"}`,
	}}
	repo := &fakePlanRepo{}
	svc := NewIdeationService(repo, gen, &fakeRSS{}, &fakeFetcher{})

	got, err := svc.RunContentIntel(context.Background())
	if err != nil {
		t.Fatalf("RunContentIntel() error = %v", err)
	}

	today := time.Now().Format(time.DateOnly)
	want := &ContentSummary{Ok: true, PlanDate: today, Ideas: 2}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("summary mismatch (-want +got):\n%s", diff)
	}

	if len(repo.upserts) != 1 || repo.upserts[0].planDate != today || repo.upserts[0].summary != "Plan for today" {
		t.Errorf("upserts = %+v, want one plan for %s", repo.upserts, today)
	}
	if len(repo.drafts) != 2 {
		t.Fatalf("drafts = %d, want 2", len(repo.drafts))
	}

	first := repo.drafts[0]
	if first.ContentType != "reel" || first.Status != "pending" {
		t.Errorf("draft type/status = %s/%s", first.ContentType, first.Status)
	}
	if first.Hook == nil || *first.Hook != "Hook one" {
		t.Errorf("hook = %v", first.Hook)
	}
	if first.Caption == nil || *first.Caption != "Cap one" {
		t.Errorf("caption = %v", first.Caption)
	}
	if first.Hashtags == nil || *first.Hashtags != "#a\n#b" {
		t.Errorf("hashtags = %v", first.Hashtags)
	}
	if first.MediaNotes == nil || *first.MediaNotes != "Script outline:\nS1\n\nB-roll ideas:\n- b1\n- b2" {
		t.Errorf("media notes = %v", first.MediaNotes)
	}
	if first.ShootPack == nil || *first.ShootPack != `{"title":"Pack one"}` {
		t.Errorf("shoot pack = %v", first.ShootPack)
	}
	if first.ScheduledFor == nil || first.ScheduledFor.Hour() != 11 || first.ScheduledFor.Minute() != 30 {
		t.Errorf("scheduled for = %v, want 11:30 slot", first.ScheduledFor)
	}

	second := repo.drafts[1]
	if second.ScheduledFor == nil || second.ScheduledFor.Hour() != 18 || second.ScheduledFor.Minute() != 30 {
		t.Errorf("scheduled for = %v, want 18:30 slot", second.ScheduledFor)
	}
	if second.ShootPack == nil || *second.ShootPack != `{"title":"Pack two"}` {
		t.Errorf("shoot pack = %v", second.ShootPack)
	}

	gotTemps := make([]float64, 0, len(gen.calls))
	for _, c := range gen.calls {
		gotTemps = append(gotTemps, c.temp)
	}
	if diff := cmp.Diff([]float64{0.3, 0.6, 0.4, 0.4}, gotTemps); diff != "" {
		t.Errorf("temps mismatch (-want +got):\n%s", diff)
	}
}

func TestRunContentIntelShootPackFailureTolerated(t *testing.T) {
	config.Cfg = contentTestConfig()
	gen := &fakeGenerator{replies: []string{"Plan", twoIdeasJSON, "no braces", "also no braces"}}
	repo := &fakePlanRepo{}
	svc := NewIdeationService(repo, gen, &fakeRSS{}, &fakeFetcher{})

	got, err := svc.RunContentIntel(context.Background())
	if err != nil {
		t.Fatalf("RunContentIntel() error = %v", err)
	}
	if !got.Ok || got.Ideas != 2 {
		t.Errorf("summary = %+v", got)
	}
	if len(repo.drafts) != 2 {
		t.Fatalf("drafts = %d, want 2", len(repo.drafts))
	}
	for i, draft := range repo.drafts {
		if draft.ShootPack != nil {
			t.Errorf("draft %d shoot pack = %q, want nil", i, *draft.ShootPack)
		}
	}
}

func TestRunContentIntelPersistenceErrors(t *testing.T) {
	config.Cfg = contentTestConfig()

	upsertErr := errors.New("db down")
	repo := &fakePlanRepo{upsertErr: upsertErr}
	gen := &fakeGenerator{replies: []string{"Plan", twoIdeasJSON}}
	svc := NewIdeationService(repo, gen, &fakeRSS{}, &fakeFetcher{})
	if _, err := svc.RunContentIntel(context.Background()); !errors.Is(err, upsertErr) {
		t.Errorf("err = %v, want %v", err, upsertErr)
	}
	if len(repo.drafts) != 0 {
		t.Errorf("drafts = %d, want none after upsert failure", len(repo.drafts))
	}

	createErr := errors.New("insert failed")
	repo = &fakePlanRepo{createErr: createErr}
	gen = &fakeGenerator{replies: []string{"Plan", twoIdeasJSON, `{"title":"p1"}`, `{"title":"p2"}`}}
	svc = NewIdeationService(repo, gen, &fakeRSS{}, &fakeFetcher{})
	if _, err := svc.RunContentIntel(context.Background()); !errors.Is(err, createErr) {
		t.Errorf("err = %v, want %v", err, createErr)
	}
}
