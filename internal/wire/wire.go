package wire

import (
	"Trellis/internal/config"
	"Trellis/internal/job"
	"Trellis/internal/pkg/cron"
	"Trellis/internal/pkg/kafka"
	"Trellis/internal/pkg/llm"
	"Trellis/internal/pkg/safety"
	"Trellis/internal/pkg/scrape"
	"Trellis/internal/pkg/trends"
	"Trellis/internal/repository"
	"Trellis/internal/service"

	"gorm.io/gorm"
)

// ApplicationContainer 封装了应用运行所需的所有顶级组件
type ApplicationContainer struct {
	DB           *gorm.DB
	CronMgr      *cron.Manager
	KafkaManager *kafka.ConsumerManager
}

func BuildApplication(db *gorm.DB, cfg *config.Config) (*ApplicationContainer, error) {
	creatorRepo := repository.NewCreatorRepo(db)
	relationshipRepo := repository.NewRelationshipRepo(db)
	edgeRepo := repository.NewEdgeRepo(db)
	metricsRepo := repository.NewMetricsRepo(db)
	signalRepo := repository.NewSignalRepo(db)
	outreachRepo := repository.NewOutreachRepo(db)
	engagementRepo := repository.NewEngagementRepo(db)
	planRepo := repository.NewPlanRepo(db)

	// 进程级共享无头浏览器，各服务在自己的运行入口包每轮页面缓存
	fetcher := scrape.NewBrowser(cfg.Browser)
	rssClient := trends.NewClient(cfg.Browser.UserAgent)
	guard := safety.NewGuard(cfg.Safety)
	generator := llm.NewClient()

	graphService := service.NewGraphService(creatorRepo, edgeRepo)
	discoveryService := service.NewDiscoveryService(creatorRepo, fetcher)
	intelService := service.NewIntelService(creatorRepo, metricsRepo, signalRepo, graphService, fetcher)
	outreachService := service.NewOutreachService(creatorRepo, relationshipRepo, outreachRepo)
	engagementService := service.NewEngagementService(creatorRepo, engagementRepo, generator, guard, fetcher)
	ideationService := service.NewIdeationService(planRepo, generator, rssClient, fetcher)

	discoveryJob := job.NewDiscoveryJob(discoveryService)
	expansionJob := job.NewExpansionJob(discoveryService)
	intelJob := job.NewIntelJob(intelService)
	outreachJob := job.NewOutreachJob(outreachService)
	engagementJob := job.NewEngagementJob(engagementService)
	contentJob := job.NewContentJob(ideationService)

	cronMgr := cron.NewCronManager(discoveryJob, expansionJob, intelJob, engagementJob, contentJob)

	kafkaMgr, err := kafka.NewConsumerManager(
		cfg,
		discoveryJob,
		expansionJob,
		intelJob,
		outreachJob,
		engagementJob,
		contentJob,
	)
	if err != nil {
		return nil, err
	}

	return &ApplicationContainer{
		DB:           db,
		CronMgr:      cronMgr,
		KafkaManager: kafkaMgr,
	}, nil
}
