package service

import (
	"Trellis/internal/model"
	"strings"
)

var brandishHandleTokens = []string{"shop", "store", "official", "boutique", "brand"}

var spamNoteTokens = []string{"dm for promo", "crypto", "forex", "giveaway page", "link in bio→whatsapp"}

const megaFollowerCutoff = 250_000

// AssessFraud 0..100 风险分与证据标记，分越高越可疑
func AssessFraud(c *model.Creator) (int, map[string]interface{}) {
	followers := intVal(c.FollowersEst)
	flags := map[string]interface{}{}
	score := 0

	// 内容量过低
	if c.PostsCount != nil && *c.PostsCount < 8 {
		score += 25
		flags["low_posts"] = *c.PostsCount
	}

	// 粉丝体量大但互动率异常低
	if followers >= 20_000 && c.AvgEngagementRate != nil && *c.AvgEngagementRate < 0.2 {
		score += 35
		flags["low_er_for_size"] = *c.AvgEngagementRate
	}
	if followers >= 100_000 && c.AvgEngagementRate != nil && *c.AvgEngagementRate < 0.1 {
		score += 25
		flags["very_low_er_for_mega"] = *c.AvgEngagementRate
	}

	handle := strings.ToLower(c.Handle)
	for _, token := range brandishHandleTokens {
		if strings.Contains(handle, token) {
			score += 15
			flags["brandish_handle"] = true
			break
		}
	}

	notes := strings.ToLower(strVal(c.Notes))
	for _, token := range spamNoteTokens {
		if strings.Contains(notes, token) {
			score += 40
			flags["spam_signals"] = true
			break
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score, flags
}

// IsExcludable 硬排除：品牌号、垃圾号、巨型账号
func IsExcludable(c *model.Creator) (bool, string) {
	if c.IsBrand {
		return true, "brand"
	}
	if c.IsSpam {
		return true, "spam"
	}
	if c.FollowersEst != nil && *c.FollowersEst >= megaFollowerCutoff {
		return true, "mega_account"
	}
	return false, ""
}
