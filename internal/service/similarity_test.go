package service

import (
	"Trellis/internal/model"
	"math"
	"testing"
)

func floatEq(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestJaccardTags(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{"identical", "skincare,wellness", "skincare,wellness", 1.0},
		{"disjoint", "skincare", "gaming", 0.0},
		{"partial overlap", "a, b", "b, c", 1.0 / 3.0},
		{"left empty", "", "skincare", 0.0},
		{"right empty", "skincare", "   ", 0.0},
		{"case and spacing ignored", " Skincare ,WELLNESS", "skincare, wellness ", 1.0},
		{"duplicate tags collapse", "a,a,b", "a,b", 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := JaccardTags(tt.a, tt.b); !floatEq(got, tt.want) {
				t.Errorf("JaccardTags(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestFollowerBucket(t *testing.T) {
	tests := []struct {
		name      string
		followers *int
		want      string
	}{
		{"unknown", nil, "unknown"},
		{"micro", intPtr(4_999), "micro"},
		{"micro+ boundary", intPtr(5_000), "micro+"},
		{"micro+ top", intPtr(19_999), "micro+"},
		{"mid boundary", intPtr(20_000), "mid"},
		{"mid top", intPtr(79_999), "mid"},
		{"large boundary", intPtr(80_000), "large"},
		{"large top", intPtr(249_999), "large"},
		{"mega boundary", intPtr(250_000), "mega"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FollowerBucket(tt.followers); got != tt.want {
				t.Errorf("FollowerBucket = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSimilarityScore(t *testing.T) {
	tests := []struct {
		name string
		a    *model.Creator
		b    *model.Creator
		want float64
	}{
		{
			name: "no tag overlap scores zero even in same bucket",
			a:    &model.Creator{NicheTags: strPtr("skincare"), FollowersEst: intPtr(3_000)},
			b:    &model.Creator{NicheTags: strPtr("gaming"), FollowersEst: intPtr(3_000)},
			want: 0.0,
		},
		{
			name: "same bucket bonus applied",
			a:    &model.Creator{NicheTags: strPtr("a,b"), FollowersEst: intPtr(3_000)},
			b:    &model.Creator{NicheTags: strPtr("b,c"), FollowersEst: intPtr(4_000)},
			want: 1.0/3.0 + 0.1,
		},
		{
			name: "different bucket no bonus",
			a:    &model.Creator{NicheTags: strPtr("a,b"), FollowersEst: intPtr(3_000)},
			b:    &model.Creator{NicheTags: strPtr("b,c"), FollowersEst: intPtr(30_000)},
			want: 1.0 / 3.0,
		},
		{
			name: "both unknown counts as same bucket",
			a:    &model.Creator{NicheTags: strPtr("a,b")},
			b:    &model.Creator{NicheTags: strPtr("b,c")},
			want: 1.0/3.0 + 0.1,
		},
		{
			name: "capped at one",
			a:    &model.Creator{NicheTags: strPtr("a"), FollowersEst: intPtr(1_000)},
			b:    &model.Creator{NicheTags: strPtr("a"), FollowersEst: intPtr(1_000)},
			want: 1.0,
		},
		{
			name: "nil tags score zero",
			a:    &model.Creator{},
			b:    &model.Creator{NicheTags: strPtr("a")},
			want: 0.0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SimilarityScore(tt.a, tt.b)
			if !floatEq(got, tt.want) {
				t.Errorf("SimilarityScore = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("SimilarityScore out of [0,1]: %v", got)
			}
		})
	}
}

func intPtr(n int) *int          { return &n }
func strPtr(s string) *string    { return &s }
func floatPtr(f float64) *float64 { return &f }
