package scrape

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func intPtr(n int) *int { return &n }

func TestParseProfile(t *testing.T) {
	tests := []struct {
		name   string
		html   string
		handle string
		want   Snapshot
	}{
		{
			name: "full profile",
			html: `{"edge_followed_by": {"count": 15200}, "edge_owner_to_timeline_media": {"count": 214},` +
				` "biography": "Whipped body butter ✨\nsmall batch, big glow", "external_url": "https:\/\/hellotonatural.com",` +
				` "is_verified":true}`,
			handle: "maker.jane",
			want: Snapshot{
				Handle:      "maker.jane",
				Followers:   intPtr(15200),
				Posts:       intPtr(214),
				Bio:         "Whipped body butter ✨\nsmall batch, big glow",
				ExternalURL: "https://hellotonatural.com",
				IsVerified:  true,
			},
		},
		{
			name:   "spaced json still matches",
			html:   `"edge_followed_by" : { "count" : 980 }`,
			handle: "tiny.shop",
			want: Snapshot{
				Handle:    "tiny.shop",
				Followers: intPtr(980),
			},
		},
		{
			name:   "unicode escape in bio",
			html:   `{"biography": "Glöw rituals + shea"}`,
			handle: "glow",
			want: Snapshot{
				Handle: "glow",
				Bio:    "Glöw rituals + shea",
			},
		},
		{
			name:   "nothing parseable",
			html:   "<html><body>Sorry, this page isn't available.</body></html>",
			handle: "ghost",
			want:   Snapshot{Handle: "ghost"},
		},
		{
			name:   "verified false when spaced",
			html:   `{"is_verified": true}`,
			handle: "spaced",
			want:   Snapshot{Handle: "spaced"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseProfile(tt.html, tt.handle)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ParseProfile mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeEscapesKeepsRawOnBadInput(t *testing.T) {
	in := `broken \q escape`
	if got := decodeEscapes(in); got != in {
		t.Errorf("decodeEscapes(%q) = %q, want raw input back", in, got)
	}
}
