// Package scrape extracts creator handles, post shortcodes and profile
// fields from raw Instagram page HTML. Page structure changes constantly,
// so everything here works on loose regexp signals instead of the DOM and
// degrades to empty results rather than errors.
package scrape

import (
	"regexp"
	"strings"
)

var (
	handleRe    = regexp.MustCompile(`@([A-Za-z0-9._]{2,30})`)
	shortcodeRe = regexp.MustCompile(`/p/([A-Za-z0-9_-]{5,})/`)
	ownerRe     = regexp.MustCompile(`"owner"\s*:\s*\{[^}]*"username"\s*:\s*"([A-Za-z0-9._]{2,30})"`)
	hashtagRe   = regexp.MustCompile(`#([A-Za-z0-9_]{2,50})`)
)

// NormalizeHandle 规范化用户名：去空白、去前导 @、转小写。幂等。
func NormalizeHandle(handle string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(handle), "@"))
}

// UniqueHandles 规范化并按首次出现顺序去重。平台用户名不区分大小写。
func UniqueHandles(handles []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, raw := range handles {
		h := NormalizeHandle(raw)
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	return out
}

// ExtractHandles 从文本中提取被 @ 的用户名，按首次出现顺序去重
func ExtractHandles(text string) []string {
	var handles []string
	for _, m := range handleRe.FindAllStringSubmatch(text, -1) {
		handles = append(handles, m[1])
	}
	return UniqueHandles(handles)
}

// ExtractMentions 同 ExtractHandles，额外过滤纯数字误匹配（电话号、ID 片段）
func ExtractMentions(text string) []string {
	var mentions []string
	for _, h := range ExtractHandles(text) {
		if isAllDigits(h) {
			continue
		}
		mentions = append(mentions, h)
	}
	return mentions
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ExtractShortcodes 提取帖子 shortcode，保留大小写，按首次出现顺序去重
func ExtractShortcodes(html string) []string {
	var codes []string
	seen := make(map[string]struct{})
	for _, m := range shortcodeRe.FindAllStringSubmatch(html, -1) {
		sc := strings.Trim(m[1], "/")
		if sc == "" {
			continue
		}
		if _, ok := seen[sc]; ok {
			continue
		}
		seen[sc] = struct{}{}
		codes = append(codes, sc)
	}
	return codes
}

// ExtractProfileShortcodes 提取个人主页上最近帖子的 shortcode，最多 maxPosts 条
func ExtractProfileShortcodes(html string, maxPosts int) []string {
	if maxPosts <= 0 {
		return nil
	}
	codes := ExtractShortcodes(html)
	if len(codes) > maxPosts {
		codes = codes[:maxPosts]
	}
	return codes
}

// ExtractOwnerHandle 从帖子页嵌入的 JSON 中提取发帖人用户名，找不到返回空串
func ExtractOwnerHandle(html string) string {
	m := ownerRe.FindStringSubmatch(html)
	if m == nil {
		return ""
	}
	return NormalizeHandle(m[1])
}

// ExtractHashtags 提取话题标签，每次出现算一条，不去重
func ExtractHashtags(html string) []string {
	var tags []string
	for _, m := range hashtagRe.FindAllStringSubmatch(html, -1) {
		tags = append(tags, m[1])
	}
	return tags
}

// LooksLikeLoginWall 判断页面是否为登录墙或限流提示页
func LooksLikeLoginWall(html string) bool {
	lowered := strings.ToLower(html)
	if strings.Contains(lowered, "login") &&
		strings.Contains(lowered, "password") &&
		strings.Contains(lowered, "instagram") {
		return true
	}
	return strings.Contains(lowered, "please wait a few minutes")
}
