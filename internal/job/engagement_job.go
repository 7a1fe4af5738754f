package job

import (
	"Trellis/internal/pkg/logger"
	"Trellis/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// EngagementJob 互动队列与执行任务。
// 定时只建队列；执行入口仅由运维消息触发，且在上线实盘前始终只做演练
type EngagementJob struct {
	engagementSvc service.EngagementService
}

func NewEngagementJob(engagementSvc service.EngagementService) *EngagementJob {
	return &EngagementJob{engagementSvc: engagementSvc}
}

func (s *EngagementJob) Run() {
	traceID := "job-engagement-queue-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)
	s.RunQueue(ctx, 0)
}

// RunQueue 为头部候选创作者起草待审批评论
func (s *EngagementJob) RunQueue(ctx context.Context, limit int) {
	start := time.Now()
	log.InfoContext(ctx, "engagement queue task started", "limit", limit)

	summary, err := s.engagementSvc.BuildEngagementQueue(ctx, limit)
	if err != nil {
		log.ErrorContext(ctx, "engagement queue task failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"reason", service.ReasonOf(err),
			"err", err,
		)
		return
	}

	log.InfoContext(ctx, "engagement queue task finished",
		"duration_ms", time.Since(start).Milliseconds(),
		"ok", summary.Ok,
		"planned", summary.Planned,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
	)
}

// RunExecute 清点到期动作并过安全闸门，不做真实投放
func (s *EngagementJob) RunExecute(ctx context.Context, limit int) {
	start := time.Now()
	log.InfoContext(ctx, "engagement execute task started", "limit", limit)

	summary, err := s.engagementSvc.ExecuteDue(ctx, limit)
	if err != nil {
		log.ErrorContext(ctx, "engagement execute task failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"reason", service.ReasonOf(err),
			"err", err,
		)
		return
	}

	log.InfoContext(ctx, "engagement execute task finished",
		"duration_ms", time.Since(start).Milliseconds(),
		"status", summary.Status,
		"due", summary.Due,
	)
}
