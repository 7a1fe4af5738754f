package cron

import (
	"Trellis/internal/job"
	log "log/slog"

	"github.com/robfig/cron/v3"
)

type Manager struct {
	engine        *cron.Cron
	discoveryJob  *job.DiscoveryJob
	expansionJob  *job.ExpansionJob
	intelJob      *job.IntelJob
	engagementJob *job.EngagementJob
	contentJob    *job.ContentJob
}

func NewCronManager(
	discoveryJob *job.DiscoveryJob,
	expansionJob *job.ExpansionJob,
	intelJob *job.IntelJob,
	engagementJob *job.EngagementJob,
	contentJob *job.ContentJob,
) *Manager {
	return &Manager{
		engine:        cron.New(cron.WithSeconds()),
		discoveryJob:  discoveryJob,
		expansionJob:  expansionJob,
		intelJob:      intelJob,
		engagementJob: engagementJob,
		contentJob:    contentJob,
	}
}

// RegisterJobs 注册定时任务。外联批次不进定时器，只由运维消息触发
func (s *Manager) RegisterJobs() error {
	// 画像巡检放在凌晨低峰，避开发现轮的抓取窗口
	if _, err := s.engine.AddJob("0 0 3 * * *", s.intelJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("0 15 7 * * *", s.contentJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("0 10 9 * * *", s.engagementJob); err != nil {
		return err
	}
	if _, err := s.engine.AddJob("0 0 */6 * * *", s.discoveryJob); err != nil {
		return err
	}
	// 相邻扩散错开半小时，和整点的话题发现不抢同一把运行锁
	if _, err := s.engine.AddJob("0 30 */12 * * *", s.expansionJob); err != nil {
		return err
	}
	return nil
}

func (s *Manager) Start() {
	log.Info("Cron 定时任务引擎启动")
	s.engine.Start()
}

func (s *Manager) Stop() {
	log.Info("Cron 定时任务引擎停止")
	s.engine.Stop()
}
