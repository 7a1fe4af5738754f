package consts

const (
	ActionHourKey    = "actions:"
	KillSwitchKey    = "safety:kill_switch"
	ActionModeKey    = "safety:action_mode"
	RecentCommentKey = "engagement:recent:comments"
)

const (
	DiscoveryRunLock = "discovery:run:lock"
	IntelRunLock     = "intel:run:lock"
)
