package job

import (
	"Trellis/internal/pkg/logger"
	"Trellis/internal/service"
	"context"
	log "log/slog"
	"time"

	"github.com/google/uuid"
)

// ContentJob 每日内容情报任务
type ContentJob struct {
	ideationSvc service.IdeationService
}

func NewContentJob(ideationSvc service.IdeationService) *ContentJob {
	return &ContentJob{ideationSvc: ideationSvc}
}

func (s *ContentJob) Run() {
	traceID := "job-content-intel-" + uuid.NewString()
	ctx := context.WithValue(context.Background(), logger.TraceIDKey, traceID)
	s.RunContentIntel(ctx)
}

// RunContentIntel 收信号、出选题并落当日计划与草稿
func (s *ContentJob) RunContentIntel(ctx context.Context) {
	start := time.Now()
	log.InfoContext(ctx, "content intel task started")

	summary, err := s.ideationSvc.RunContentIntel(ctx)
	if err != nil {
		log.ErrorContext(ctx, "content intel task failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"reason", service.ReasonOf(err),
			"err", err,
		)
		return
	}

	log.InfoContext(ctx, "content intel task finished",
		"duration_ms", time.Since(start).Milliseconds(),
		"ok", summary.Ok,
		"plan_date", summary.PlanDate,
		"ideas", summary.Ideas,
		"signals", summary.Signals,
	)
}
