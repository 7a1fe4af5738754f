package kafka

import (
	"Trellis/internal/config"
	"Trellis/internal/job"
	"context"
	log "log/slog"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
)

// ConsumerManager 管理 worker 侧的 Kafka 消费者
type ConsumerManager struct {
	triggerConsumer sarama.ConsumerGroup
	triggerHandler  sarama.ConsumerGroupHandler
}

func NewConsumerManager(
	cfg *config.Config,
	discoveryJob *job.DiscoveryJob,
	expansionJob *job.ExpansionJob,
	intelJob *job.IntelJob,
	outreachJob *job.OutreachJob,
	engagementJob *job.EngagementJob,
	contentJob *job.ContentJob,
) (*ConsumerManager, error) {
	saramaCfg := newSaramaConfig(cfg.Kafka)

	triggerConsumer, err := sarama.NewConsumerGroup(cfg.Kafka.Brokers, cfg.Trigger.GroupID, saramaCfg)
	if err != nil {
		return nil, errors.Wrap(err, "create trigger consumer group")
	}
	triggerHandler := NewTriggerHandler(
		discoveryJob,
		expansionJob,
		intelJob,
		outreachJob,
		engagementJob,
		contentJob,
	)

	return &ConsumerManager{
		triggerConsumer: triggerConsumer,
		triggerHandler:  triggerHandler,
	}, nil
}

// Start 启动消费循环，阻塞到 ctx 取消后关闭消费者
func (m *ConsumerManager) Start(ctx context.Context, cfg *config.Config) error {
	go func() {
		topic := cfg.Trigger.Topic
		log.Info("Ops trigger consumer started", "topic", topic)
		for {
			if err := m.triggerConsumer.Consume(ctx, []string{topic}, m.triggerHandler); err != nil {
				log.Error("Error from consumer", "err", err)
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()

	<-ctx.Done()
	log.Info("Kafka Manager shutting down...")

	if err := m.triggerConsumer.Close(); err != nil {
		log.Error("Failed to close trigger consumer", "err", err)
	}

	return nil
}

// newSaramaConfig 统一初始化 sarama.Config，位点手动提交，批次处理完成后统一标记
func newSaramaConfig(kafkaCfg config.KafkaConfig) *sarama.Config {
	c := sarama.NewConfig()

	if kafkaCfg.Sasl.Enable {
		c.Net.SASL.Enable = true
		c.Net.SASL.Mechanism = sarama.SASLTypePlaintext
		c.Net.SASL.User = kafkaCfg.Sasl.Username
		c.Net.SASL.Password = kafkaCfg.Sasl.Password
	}

	c.Consumer.Return.Errors = true
	c.Consumer.Offsets.Initial = sarama.OffsetNewest

	c.Consumer.Group.Session.Timeout = time.Duration(kafkaCfg.Consumer.SessionTimeout) * time.Second
	c.Consumer.Group.Heartbeat.Interval = time.Duration(kafkaCfg.Consumer.HeartbeatInterval) * time.Second
	c.Consumer.Group.Rebalance.Timeout = time.Duration(kafkaCfg.Consumer.RebalanceTimeout) * time.Second
	c.Consumer.Offsets.AutoCommit.Enable = false
	c.Consumer.MaxProcessingTime = time.Duration(kafkaCfg.Consumer.MaxProcessingTime) * time.Second

	return c
}
