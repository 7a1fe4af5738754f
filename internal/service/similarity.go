package service

import (
	"Trellis/internal/model"
	"strings"
)

// 粉丝量分桶边界，同桶创作者在相似度上拿加分
const (
	bucketMicroMax     = 5_000
	bucketMicroPlusMax = 20_000
	bucketMidMax       = 80_000
	bucketLargeMax     = 250_000
)

func tagSet(nicheTags string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, part := range strings.Split(nicheTags, ",") {
		p := strings.ToLower(strings.TrimSpace(part))
		if p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

// JaccardTags 逗号分隔标签集的 Jaccard 相似度，任一侧为空记 0
func JaccardTags(aTags, bTags string) float64 {
	a := tagSet(aTags)
	b := tagSet(bTags)
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	inter := 0
	for tag := range a {
		if _, ok := b[tag]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union)
}

// FollowerBucket 粉丝量分桶，未知单独成桶
func FollowerBucket(followers *int) string {
	if followers == nil {
		return "unknown"
	}
	switch {
	case *followers < bucketMicroMax:
		return "micro"
	case *followers < bucketMicroPlusMax:
		return "micro+"
	case *followers < bucketMidMax:
		return "mid"
	case *followers < bucketLargeMax:
		return "large"
	default:
		return "mega"
	}
}

// SimilarityScore 确定性可解释的相似度：标签 Jaccard 为主，同桶加 0.1，封顶 1.0
func SimilarityScore(a, b *model.Creator) float64 {
	base := JaccardTags(strVal(a.NicheTags), strVal(b.NicheTags))
	if base <= 0 {
		return 0.0
	}
	if FollowerBucket(a.FollowersEst) == FollowerBucket(b.FollowersEst) {
		base += 0.1
	}
	if base > 1.0 {
		return 1.0
	}
	return base
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func intVal(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
