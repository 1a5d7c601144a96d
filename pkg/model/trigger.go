// pkg/model/trigger.go
package model

import "time"

// TriggerEvent 预警触发事件，发布到消息流供下游规则引擎消费
type TriggerEvent struct {
	AlertUUID      string    `json:"alert_uuid"`
	Name           string    `json:"name"`
	UserID         string    `json:"user_id"`
	Instrument     string    `json:"instrument"` // 格式: EXCHANGE:SYMBOL
	Exchange       string    `json:"exchange"`
	TradingSymbol  string    `json:"tradingsymbol"`
	Operator       string    `json:"operator"`
	TargetValue    float64   `json:"target_value"`    // 触发时右操作数的取值
	TriggeredPrice float64   `json:"triggered_price"` // 触发时左操作数的取值
	TriggeredAt    time.Time `json:"triggered_at"`
}
