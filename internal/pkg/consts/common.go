package consts

const (
	PlatformInstagram = "instagram"
)

// Creator outreach disposition.
const (
	OutreachEligible     = "eligible"
	OutreachExcluded     = "excluded"
	OutreachDoNotContact = "do_not_contact"
)

// Relationship lifecycle.
const (
	RelationshipNew       = "new"
	RelationshipContacted = "contacted"
	RelationshipReplied   = "replied"
	RelationshipPartnered = "partnered"
	RelationshipDeclined  = "declined"
	RelationshipBlocked   = "blocked"
)

// Creator graph edge types.
const (
	EdgeMention         = "mention"
	EdgeCoMentioned     = "co_mentioned"
	EdgeSimilarity      = "similarity"
	EdgeAudienceOverlap = "audience_overlap"
)

// Approval workflow shared by outreach drafts and post drafts.
const (
	ApprovalPending  = "pending"
	ApprovalApproved = "approved"
	ApprovalRejected = "rejected"
)

// DM thread lifecycle on an outreach draft.
const (
	ThreadPending = "pending"
	ThreadSent    = "sent"
	ThreadReplied = "replied"
)

// Engagement action lifecycle.
const (
	EngagementPending  = "pending"
	EngagementApproved = "approved"
	EngagementExecuted = "executed"
	EngagementSkipped  = "skipped"
	EngagementFailed   = "failed"
)

const (
	ActionComment = "comment"
	ActionLike    = "like"
	ActionFollow  = "follow"
)

// Niche signal evidence types.
const (
	SignalBio     = "bio"
	SignalPost    = "post"
	SignalHashtag = "hashtag"
)

const (
	ContentTypeReel     = "reel"
	ContentTypeCarousel = "carousel"
	ContentTypeStory    = "story"
	ContentTypeStatic   = "static"
)

const (
	SendChannelInstagramDM = "instagram_dm"
)
