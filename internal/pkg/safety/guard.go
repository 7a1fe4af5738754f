// Package safety holds the hard brakes for anything that could touch a
// live account: a kill switch, an action mode gate and an hourly action
// budget. Queue building never consults it; only the execute path does.
package safety

import (
	"Trellis/internal/config"
	"Trellis/internal/pkg/consts"
	"Trellis/internal/pkg/redis"
	"context"
	"fmt"
	log "log/slog"
	"strconv"
	"time"
)

const (
	ActionModeLive = "live"

	DefaultMaxActionsPerHour = 30

	// 计数键保留两个整点窗口，过期自清
	counterTTL = 7200 * time.Second
)

// Gate 动作派发前的安全闸门，业务层依赖接口方便测试替换
type Gate interface {
	Allow(ctx context.Context) bool
	IncrActions(ctx context.Context, n int64) error
}

type Guard struct {
	cfg config.SafetyConfig
}

func NewGuard(cfg config.SafetyConfig) *Guard {
	if cfg.MaxActionsPerHour <= 0 {
		cfg.MaxActionsPerHour = DefaultMaxActionsPerHour
	}
	return &Guard{cfg: cfg}
}

// Allow 三道闸门全过才放行：总开关、动作模式、小时配额
func (s *Guard) Allow(ctx context.Context) bool {
	if s.killSwitchOn(ctx) {
		log.WarnContext(ctx, "Action blocked: kill switch is on")
		return false
	}
	if s.actionMode(ctx) != ActionModeLive {
		return false
	}

	count, err := redis.GetValue(ctx, s.hourKey())
	if err != nil {
		log.ErrorContext(ctx, "Action counter read failed, blocking", "err", err)
		return false
	}
	if count == "" {
		return true
	}
	n, err := strconv.Atoi(count)
	if err != nil {
		return true
	}
	return n < s.cfg.MaxActionsPerHour
}

// IncrActions 预占本小时的动作配额，调度方在真正派发前调用
func (s *Guard) IncrActions(ctx context.Context, n int64) error {
	_, err := redis.IncrByWithExpiration(ctx, s.hourKey(), n, counterTTL)
	return err
}

// killSwitchOn 配置与 redis 任一生效即视为拉闸
func (s *Guard) killSwitchOn(ctx context.Context) bool {
	if s.cfg.KillSwitch {
		return true
	}
	v, err := redis.GetValue(ctx, consts.KillSwitchKey)
	if err != nil {
		return true
	}
	return v == "1" || v == "true"
}

// actionMode redis 可在线覆盖配置，便于不发版切换
func (s *Guard) actionMode(ctx context.Context) string {
	v, err := redis.GetValue(ctx, consts.ActionModeKey)
	if err == nil && v != "" {
		return v
	}
	return s.cfg.ActionMode
}

func (s *Guard) hourKey() string {
	return fmt.Sprintf("%s%d", consts.ActionHourKey, time.Now().Unix()/3600)
}
