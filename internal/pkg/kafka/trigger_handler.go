package kafka

import (
	"Trellis/internal/job"
	"Trellis/internal/pkg/logger"
	"context"
	log "log/slog"
	"sync"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// 触发消息里 task 字段的取值
const (
	TaskDiscovery         = "discovery"
	TaskExpansion         = "expansion"
	TaskCreatorIntel      = "creator_intel"
	TaskOutreachBatch     = "outreach_batch"
	TaskEngagementQueue   = "engagement_queue"
	TaskEngagementExecute = "engagement_execute"
	TaskContentIntel      = "content_intel"
)

// TriggerMessage 运维触发消息，缺省字段由任务侧补默认值
type TriggerMessage struct {
	Task           string `json:"task"`
	Limit          int    `json:"limit"`
	Rotate         int    `json:"rotate"`
	LimitCreators  int    `json:"limit_creators"`
	SimilarityTopK int    `json:"similarity_top_k"`
}

type TriggerHandler struct {
	// 单实例同一时刻只跑一个触发任务，重复触发靠运行锁与草稿去重兜底
	mu sync.Mutex

	discoveryJob  *job.DiscoveryJob
	expansionJob  *job.ExpansionJob
	intelJob      *job.IntelJob
	outreachJob   *job.OutreachJob
	engagementJob *job.EngagementJob
	contentJob    *job.ContentJob
}

func NewTriggerHandler(
	discoveryJob *job.DiscoveryJob,
	expansionJob *job.ExpansionJob,
	intelJob *job.IntelJob,
	outreachJob *job.OutreachJob,
	engagementJob *job.EngagementJob,
	contentJob *job.ContentJob,
) *TriggerHandler {
	return &TriggerHandler{
		discoveryJob:  discoveryJob,
		expansionJob:  expansionJob,
		intelJob:      intelJob,
		outreachJob:   outreachJob,
		engagementJob: engagementJob,
		contentJob:    contentJob,
	}
}

func (s *TriggerHandler) Setup(sarama.ConsumerGroupSession) error {
	log.Info("ops trigger consumer setup")
	return nil
}

func (s *TriggerHandler) Cleanup(sarama.ConsumerGroupSession) error {
	log.Info("ops trigger consumer cleanup")
	return nil
}

func (s *TriggerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	log.Info("topic-ops-trigger consume claim")
	err := pullMessageBatch(session, claim, s.logic)
	if err != nil {
		log.Error("topic-ops-trigger process batch error", "err", err)
		return err
	}
	return nil
}

// logic 解析并派发单条触发消息。坏载荷与未知任务记日志后丢弃，
// 不返回错误，避免把消费组卡在一条死信上
func (s *TriggerHandler) logic(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var trigger TriggerMessage
	if err := json.Unmarshal(msg.Value, &trigger); err != nil {
		log.ErrorContext(ctx, "unmarshal trigger message error",
			"err", err,
			"partition", msg.Partition,
			"offset", msg.Offset,
		)
		return nil
	}

	traceID := "trigger-" + trigger.Task + "-" + uuid.NewString()
	runCtx := context.WithValue(ctx, logger.TraceIDKey, traceID)
	log.InfoContext(runCtx, "ops trigger received",
		"task", trigger.Task,
		"partition", msg.Partition,
		"offset", msg.Offset,
	)

	s.mu.Lock()
	defer s.mu.Unlock()

	switch trigger.Task {
	case TaskDiscovery:
		s.discoveryJob.RunDiscovery(runCtx, trigger.Limit, trigger.Rotate)
	case TaskExpansion:
		s.expansionJob.RunExpansion(runCtx, trigger.Limit)
	case TaskCreatorIntel:
		s.intelJob.RunIntel(runCtx, trigger.LimitCreators, trigger.SimilarityTopK)
	case TaskOutreachBatch:
		s.outreachJob.RunBatch(runCtx, trigger.Limit)
	case TaskEngagementQueue:
		s.engagementJob.RunQueue(runCtx, trigger.Limit)
	case TaskEngagementExecute:
		s.engagementJob.RunExecute(runCtx, trigger.Limit)
	case TaskContentIntel:
		s.contentJob.RunContentIntel(runCtx)
	default:
		log.WarnContext(runCtx, "unknown trigger task, message dropped", "task", trigger.Task)
	}
	return nil
}
