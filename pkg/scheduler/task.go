package scheduler

import (
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"LevelRadar/pkg/collector"
	"LevelRadar/pkg/model"
	"LevelRadar/pkg/monitor"
	"LevelRadar/pkg/store"
)

// Scheduler 任务调度器：负责每日过期清理和数据源健康检查
type Scheduler struct {
	cron    *cron.Cron
	store   store.AlertStore
	prices  collector.PriceSource
	monitor *monitor.Monitor
}

// NewScheduler 创建任务调度器
func NewScheduler(alertStore store.AlertStore, prices collector.PriceSource, healthMonitor *monitor.Monitor) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		store:   alertStore,
		prices:  prices,
		monitor: healthMonitor,
	}
}

// Start 启动调度器
func (s *Scheduler) Start() {
	// 每日凌晨清理过期预警
	s.cron.AddFunc("30 3 * * *", s.sweepExpired)

	// 每5分钟检查数据源健康状态
	s.cron.AddFunc("@every 5m", s.checkPriceSource)

	s.cron.Start()
	log.Println("任务调度器已启动")
}

// Stop 停止调度器
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// sweepExpired 将已过期的预警停用，触发字段保持不变。
// 监控引擎本身只跳过过期预警，停用动作统一由这里执行。
func (s *Scheduler) sweepExpired() {
	alerts, err := s.store.List(store.Filter{Status: model.StatusEnabled})
	if err != nil {
		log.Printf("过期清理失败: %v", err)
		return
	}

	now := time.Now()
	swept := 0
	for _, alert := range alerts {
		if alert.ActiveAt(now) {
			continue
		}
		if err := s.store.Disable(alert.UUID, "expired"); err != nil {
			log.Printf("停用过期预警 %s 失败: %v", alert.UUID, err)
			continue
		}
		swept++
	}

	if swept > 0 {
		log.Printf("过期清理完成，共停用 %d 条预警", swept)
	}
}

// checkPriceSource 监控数据源健康状态
func (s *Scheduler) checkPriceSource() {
	if s.monitor == nil {
		return
	}
	s.monitor.CheckComponent("price_source", func() error {
		_, err := s.prices.Resolve("INDICES", "NIFTY 50", model.DefaultAttribute)
		return err
	})
}
