package service

import (
	"errors"
)

var (
	ErrNoSeedHashtags  = errors.New("no seed hashtags configured")
	ErrNoSeedCreators  = errors.New("no usable seed creators")
	ErrRunLocked       = errors.New("another run of this task holds the lock")
	ErrCreatorNotFound = errors.New("creator not found")
	ErrDraftNotFound   = errors.New("outreach draft not found")
	ErrBlockedBySafety = errors.New("blocked by safety guardrails")
)

// ReasonMap 哨兵错误到 run summary reason 码的映射
var ReasonMap = map[error]string{
	ErrNoSeedHashtags:  "no_seed_hashtags",
	ErrNoSeedCreators:  "no_seed_creators",
	ErrRunLocked:       "run_locked",
	ErrCreatorNotFound: "creator_not_found",
	ErrDraftNotFound:   "draft_not_found",
	ErrBlockedBySafety: "blocked_by_safety",
}

// ReasonOf 取错误对应的 reason 码，未登记的归为 internal_error
func ReasonOf(err error) string {
	for sentinel, reason := range ReasonMap {
		if errors.Is(err, sentinel) {
			return reason
		}
	}
	return "internal_error"
}
