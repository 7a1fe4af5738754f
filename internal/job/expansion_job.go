package job

import (
	"Trellis/internal/pkg/consts"
	"Trellis/internal/pkg/logger"
	"Trellis/internal/pkg/redis"
	"Trellis/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

const defaultExpansionLimit = 200

// ExpansionJob 相邻扩散任务，与话题发现共用一把运行锁：
// 两者写同一张 creators 表，同一时间只允许一轮发现类运行
type ExpansionJob struct {
	discoverySvc service.DiscoveryService
}

func NewExpansionJob(discoverySvc service.DiscoveryService) *ExpansionJob {
	return &ExpansionJob{discoverySvc: discoverySvc}
}

func (s *ExpansionJob) Run() {
	traceID := "job-expansion-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)
	s.RunExpansion(ctx, defaultExpansionLimit)
}

// RunExpansion 用库里评分最高的创作者做种子再挖一层
func (s *ExpansionJob) RunExpansion(ctx context.Context, limit int) {
	if limit <= 0 {
		limit = defaultExpansionLimit
	}

	lockVal, _ := ctx.Value(logger.TraceIDKey).(string)
	locked, err := redis.TryLock(ctx, consts.DiscoveryRunLock, lockVal, discoveryLockTTL, 1)
	if err != nil {
		log.ErrorContext(ctx, "expansion task lock error", "err", err)
		return
	}
	if !locked {
		log.WarnContext(ctx, "expansion task skipped, lock held by another run")
		return
	}
	defer redis.UnLock(ctx, consts.DiscoveryRunLock, lockVal)

	start := time.Now()
	log.InfoContext(ctx, "expansion task started", "limit", limit)

	summary, err := s.discoverySvc.ExpandFromCreators(ctx, limit)
	if err != nil {
		log.ErrorContext(ctx, "expansion task failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"reason", service.ReasonOf(err),
			"err", err,
		)
		return
	}

	log.InfoContext(ctx, "expansion task finished",
		"duration_ms", time.Since(start).Milliseconds(),
		"ok", summary.Ok,
		"reason", summary.Reason,
		"handles", summary.Handles,
		"created", summary.Created,
		"updated", summary.Updated,
	)
}
