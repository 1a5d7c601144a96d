// pkg/store/store.go
package store

import (
	"errors"
	"time"

	"LevelRadar/pkg/model"
)

// ErrAlertNotFound 预警不存在
var ErrAlertNotFound = errors.New("预警不存在")

// Filter 预警查询过滤条件
type Filter struct {
	Status        model.AlertStatus // 为空表示不过滤
	UserID        string
	Instrument    string // 格式: EXCHANGE:SYMBOL
	TriggeredOnly bool   // 只返回alert_count>=1的记录
	Limit         int    // <=0 表示不限制
}

// AlertStore 预警存储接口。MarkTriggered必须是原子条件更新：
// 并发写入者中只有一个能完成enabled到triggered的转换。
type AlertStore interface {
	Create(alert *model.Alert) error
	GetByUUID(uuid string) (*model.Alert, error)
	List(filter Filter) ([]*model.Alert, error)
	// ListEligible 返回status=enabled且alert_count=0的预警
	ListEligible() ([]*model.Alert, error)
	// ListTriggeredSince 返回指定时刻后触发的预警，按last_triggered_at倒序
	ListTriggeredSince(since time.Time, limit int) ([]*model.Alert, error)
	// MarkTriggered 条件更新：仅当status=enabled且alert_count=0时转换为triggered。
	// 返回本次调用是否完成了转换（竞争失败返回false，不算错误）。
	MarkTriggered(uuid string, price float64, at time.Time) (bool, error)
	// Disable 停用预警并记录原因，不改动触发字段
	Disable(uuid string, reason string) error
	// Reenable 重新启用预警，同时将alert_count重置为0
	Reenable(uuid string) error
	Delete(uuid string) error
}
