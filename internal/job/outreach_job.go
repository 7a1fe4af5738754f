package job

import (
	"Trellis/internal/service"
	"context"
	log "log/slog"
	"time"
)

// OutreachJob 外联起草任务。不进定时器，批次大小由运维消息决定，
// 草稿永远停在待审批，发出与否是人的决定
type OutreachJob struct {
	outreachSvc service.OutreachService
}

func NewOutreachJob(outreachSvc service.OutreachService) *OutreachJob {
	return &OutreachJob{outreachSvc: outreachSvc}
}

// RunBatch 起草一批个性化私信
func (s *OutreachJob) RunBatch(ctx context.Context, batchSize int) {
	start := time.Now()
	log.InfoContext(ctx, "outreach batch task started", "batch_size", batchSize)

	summary, err := s.outreachSvc.BuildOutreachBatch(ctx, batchSize)
	if err != nil {
		log.ErrorContext(ctx, "outreach batch task failed",
			"duration_ms", time.Since(start).Milliseconds(),
			"reason", service.ReasonOf(err),
			"err", err,
		)
		return
	}

	log.InfoContext(ctx, "outreach batch task finished",
		"duration_ms", time.Since(start).Milliseconds(),
		"ok", summary.Ok,
		"candidates", summary.Candidates,
		"drafted", summary.Drafted,
		"skipped", summary.Skipped,
	)
}
