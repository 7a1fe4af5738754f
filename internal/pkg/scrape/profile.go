package scrape

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	followersRe = regexp.MustCompile(`"edge_followed_by"\s*:\s*\{\s*"count"\s*:\s*(\d+)`)
	postsRe     = regexp.MustCompile(`"edge_owner_to_timeline_media"\s*:\s*\{\s*"count"\s*:\s*(\d+)`)
	bioRe       = regexp.MustCompile(`"biography"\s*:\s*"(.*?)"`)
	extURLRe    = regexp.MustCompile(`"external_url"\s*:\s*"(.*?)"`)
)

// Snapshot 个人主页的一次解析结果，解析不到的字段保持零值
type Snapshot struct {
	Handle      string
	Followers   *int
	Posts       *int
	Bio         string
	ExternalURL string
	IsVerified  bool
}

// ParseProfile 从主页 HTML 中解析画像字段，任何字段缺失都不算错误
func ParseProfile(html, handle string) Snapshot {
	return Snapshot{
		Handle:      handle,
		Followers:   matchCount(followersRe, html),
		Posts:       matchCount(postsRe, html),
		Bio:         decodeEscapes(matchFirst(bioRe, html)),
		ExternalURL: decodeEscapes(matchFirst(extURLRe, html)),
		IsVerified:  strings.Contains(html, `"is_verified":true`),
	}
}

func matchFirst(re *regexp.Regexp, html string) string {
	m := re.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	return m[1]
}

func matchCount(re *regexp.Regexp, html string) *int {
	m := re.FindStringSubmatch(html)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// decodeEscapes 尽力解码嵌入 JSON 的转义（\uXXXX、\n、\"、\\、\/），失败保留原文
func decodeEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	unquoted, err := strconv.Unquote(`"` + strings.ReplaceAll(s, `\/`, "/") + `"`)
	if err != nil {
		return s
	}
	return unquoted
}
