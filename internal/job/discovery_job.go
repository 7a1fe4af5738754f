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

const (
	// 定时发现沿用运营基线：每轮最多落库 200 个账号，轮换 4 个种子标签
	defaultDiscoveryLimit  = 200
	defaultDiscoveryRotate = 4
	discoveryLockTTL       = 30 * time.Minute
)

// DiscoveryJob 话题种子发现任务
type DiscoveryJob struct {
	discoverySvc service.DiscoveryService
}

func NewDiscoveryJob(discoverySvc service.DiscoveryService) *DiscoveryJob {
	return &DiscoveryJob{discoverySvc: discoverySvc}
}

func (s *DiscoveryJob) Run() {
	traceID := "job-discovery-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)
	s.RunDiscovery(ctx, defaultDiscoveryLimit, defaultDiscoveryRotate)
}

// RunDiscovery 跑一轮话题发现，运行锁挡住并发重跑
func (s *DiscoveryJob) RunDiscovery(ctx context.Context, limit, rotate int) {
	if limit <= 0 {
		limit = defaultDiscoveryLimit
	}
	if rotate <= 0 {
		rotate = defaultDiscoveryRotate
	}

	lockVal, _ := ctx.Value(logger.TraceIDKey).(string)
	locked, err := redis.TryLock(ctx, consts.DiscoveryRunLock, lockVal, discoveryLockTTL, 1)
	if err != nil {
		log.ErrorContext(ctx, "discovery task lock error", "err", err)
		return
	}
	if !locked {
		log.WarnContext(ctx, "discovery task skipped, lock held by another run")
		return
	}
	defer redis.UnLock(ctx, consts.DiscoveryRunLock, lockVal)

	start := time.Now()
	log.InfoContext(ctx, "discovery task started", "limit", limit, "rotate", rotate)

	summary, err := s.discoverySvc.DiscoverFromSeeds(ctx, limit, rotate)
	if err != nil {
		log.ErrorContext(ctx, "discovery task failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"reason", service.ReasonOf(err),
			"err", err,
		)
		return
	}

	log.InfoContext(ctx, "discovery task finished",
		"duration_ms", time.Since(start).Milliseconds(),
		"ok", summary.Ok,
		"handles", summary.Handles,
		"created", summary.Created,
		"updated", summary.Updated,
		"excluded", summary.Excluded,
	)
}
