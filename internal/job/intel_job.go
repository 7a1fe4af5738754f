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

// 画像巡检会逐个抓主页和帖子页，留足窗口
const intelLockTTL = 60 * time.Minute

// IntelJob 创作者画像巡检任务
type IntelJob struct {
	intelSvc service.IntelService
}

func NewIntelJob(intelSvc service.IntelService) *IntelJob {
	return &IntelJob{intelSvc: intelSvc}
}

func (s *IntelJob) Run() {
	traceID := "job-intel-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)
	// 双零走配置，配置缺省再落到服务内置默认
	s.RunIntel(ctx, 0, 0)
}

// RunIntel 对巡检队列头部的创作者刷新快照、信号与关系边
func (s *IntelJob) RunIntel(ctx context.Context, limitCreators, similarityTopK int) {
	lockVal, _ := ctx.Value(logger.TraceIDKey).(string)
	locked, err := redis.TryLock(ctx, consts.IntelRunLock, lockVal, intelLockTTL, 1)
	if err != nil {
		log.ErrorContext(ctx, "intel task lock error", "err", err)
		return
	}
	if !locked {
		log.WarnContext(ctx, "intel task skipped, lock held by another run")
		return
	}
	defer redis.UnLock(ctx, consts.IntelRunLock, lockVal)

	start := time.Now()
	log.InfoContext(ctx, "intel task started",
		"limit_creators", limitCreators,
		"similarity_top_k", similarityTopK,
	)

	summary, err := s.intelSvc.RunCreatorIntel(ctx, limitCreators, similarityTopK)
	if err != nil {
		log.ErrorContext(ctx, "intel task failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"reason", service.ReasonOf(err),
			"err", err,
		)
		return
	}

	log.InfoContext(ctx, "intel task finished",
		"duration_ms", time.Since(start).Milliseconds(),
		"ok", summary.Ok,
		"scanned", summary.Scanned,
		"failed", summary.Failed,
		"mention_edges", summary.MentionEdges,
		"similarity_edges", summary.SimilarityEdges,
		"overlap_edges", summary.OverlapEdges,
	)
}
