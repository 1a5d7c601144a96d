// pkg/engine/monitor.go
package engine

import (
	"context"
	"fmt"
	"log"
	"time"

	"LevelRadar/pkg/collector"
	"LevelRadar/pkg/model"
	"LevelRadar/pkg/store"
)

// TriggerPublisher 触发事件发布接口
type TriggerPublisher interface {
	PublishTrigger(event model.TriggerEvent) error
}

// Monitor 预警触发监控引擎。每轮评估扫描所有待触发预警，
// 解析当前价格并评估条件，条件首次成立时原子地转换到triggered状态。
type Monitor struct {
	store     store.AlertStore
	prices    collector.PriceSource
	publisher TriggerPublisher // 可为nil，仅记录日志
	interval  time.Duration
	now       func() time.Time
}

// NewMonitor 创建触发监控引擎
func NewMonitor(alertStore store.AlertStore, prices collector.PriceSource, publisher TriggerPublisher, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = time.Second
	}
	return &Monitor{
		store:     alertStore,
		prices:    prices,
		publisher: publisher,
		interval:  interval,
		now:       time.Now,
	}
}

// SetClock 注入时钟，测试中用于确定性地驱动有效期判断
func (m *Monitor) SetClock(now func() time.Time) {
	m.now = now
}

// Start 启动轮询循环，按固定周期执行评估轮次，直到上下文取消。
// 单个轮次的失败只记录日志，下一个周期自动重试。
func (m *Monitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	log.Printf("触发监控引擎已启动，轮询周期: %s", m.interval)

	for {
		select {
		case <-ctx.Done():
			log.Println("触发监控引擎已停止")
			return
		case <-ticker.C:
			if _, err := m.RunPass(ctx); err != nil {
				log.Printf("评估轮次失败: %v", err)
			}
		}
	}
}

// RunPass 执行一轮完整评估，返回本轮新触发的预警事件。
// 存储不可用时整轮中止并返回错误；单个预警的价格解析失败只跳过该预警。
func (m *Monitor) RunPass(ctx context.Context) ([]model.TriggerEvent, error) {
	alerts, err := m.store.ListEligible()
	if err != nil {
		return nil, fmt.Errorf("读取待评估预警失败: %w", err)
	}

	now := m.now()
	var triggered []model.TriggerEvent

	for _, alert := range alerts {
		if ctx.Err() != nil {
			// 收到停止信号，放弃剩余预警；已完成的转换都是原子的
			break
		}

		event, ok := m.evaluateAlert(alert, now)
		if !ok {
			continue
		}

		triggered = append(triggered, *event)
		log.Printf("预警已触发: %s %s %s %.2f，当前价格 %.2f",
			alert.Name, alert.Instrument(), alert.Operator, event.TargetValue, event.TriggeredPrice)

		if m.publisher != nil {
			if err := m.publisher.PublishTrigger(*event); err != nil {
				log.Printf("发布触发事件失败: %v", err)
			}
		}
	}

	return triggered, nil
}

// evaluateAlert 评估单个预警，返回触发事件和是否触发。
// 任何失败都只影响当前预警，不会向轮次传播。
func (m *Monitor) evaluateAlert(alert *model.Alert, now time.Time) (*model.TriggerEvent, bool) {
	// 已触发或未启用的预警不参与评估
	if alert.Status != model.StatusEnabled || alert.AlertCount >= 1 {
		return nil, false
	}

	// 过期预警跳过，不改动任何状态
	if !alert.ActiveAt(now) {
		return nil, false
	}

	lhs, err := m.prices.Resolve(alert.LHSExchange, alert.LHSTradingSymbol, alert.LHSAttribute)
	if err != nil {
		log.Printf("预警 %s 左操作数解析失败，本轮跳过: %v", alert.UUID, err)
		return nil, false
	}

	rhs, err := m.resolveRHS(alert)
	if err != nil {
		log.Printf("预警 %s 右操作数解析失败，本轮跳过: %v", alert.UUID, err)
		return nil, false
	}

	holds, err := Compare(alert.Operator, lhs, rhs)
	if err != nil {
		// 创建时已拒绝未知操作符，这里只可能是存量脏数据
		log.Printf("预警 %s 条件评估失败: %v", alert.UUID, err)
		return nil, false
	}
	if !holds {
		return nil, false
	}

	won, err := m.store.MarkTriggered(alert.UUID, lhs, now)
	if err != nil {
		log.Printf("预警 %s 触发状态更新失败: %v", alert.UUID, err)
		return nil, false
	}
	if !won {
		// 并发轮次已完成转换，此处静默放弃
		return nil, false
	}

	return &model.TriggerEvent{
		AlertUUID:      alert.UUID,
		Name:           alert.Name,
		UserID:         alert.UserID,
		Instrument:     alert.Instrument(),
		Exchange:       alert.LHSExchange,
		TradingSymbol:  alert.LHSTradingSymbol,
		Operator:       alert.Operator,
		TargetValue:    rhs,
		TriggeredPrice: lhs,
		TriggeredAt:    now,
	}, true
}

// resolveRHS 解析右操作数：固定数值或动态查询第二个标的
func (m *Monitor) resolveRHS(alert *model.Alert) (float64, error) {
	switch alert.RHSKind {
	case model.RHSConstantKind:
		if alert.RHSConstant == nil {
			return 0, fmt.Errorf("rhs_constant缺失")
		}
		return *alert.RHSConstant, nil
	case model.RHSVariableKind:
		return m.prices.Resolve(alert.RHSExchange, alert.RHSTradingSymbol, alert.RHSAttribute)
	}
	return 0, fmt.Errorf("不支持的rhs_type: %q", alert.RHSKind)
}
