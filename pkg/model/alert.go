// pkg/model/alert.go
package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AlertStatus 预警状态枚举
type AlertStatus string

const (
	StatusEnabled   AlertStatus = "enabled"   // 启用中，等待触发
	StatusTriggered AlertStatus = "triggered" // 已触发（终态）
	StatusDisabled  AlertStatus = "disabled"  // 已停用（终态，外部设置）
)

// RHSKind 右操作数类型
type RHSKind string

const (
	RHSConstantKind RHSKind = "constant" // 固定数值
	RHSVariableKind RHSKind = "variable" // 动态查询另一个标的的价格
)

// ExpiryType 有效期类型
type ExpiryType string

const (
	ExpiryToday      ExpiryType = "today"       // 仅当日有效
	ExpiryPersistent ExpiryType = "persistent"  // 永久有效
	ExpiryDate       ExpiryType = "expiry_date" // 有效至指定日期
)

// 支持的比较操作符
var SupportedOperators = []string{">=", "<=", ">", "<", "==", "!="}

// DefaultAttribute 默认监控属性
const DefaultAttribute = "LastTradedPrice"

// Alert 价格预警
type Alert struct {
	UUID   string `gorm:"type:uuid;primaryKey" json:"uuid"`
	Name   string `gorm:"type:varchar(100);not null" json:"name"`
	UserID string `gorm:"type:varchar(50);index" json:"user_id"`

	// 左操作数：被监控的标的
	LHSExchange      string `gorm:"type:varchar(20);not null" json:"lhs_exchange"`
	LHSTradingSymbol string `gorm:"type:varchar(50);not null;index" json:"lhs_tradingsymbol"`
	LHSAttribute     string `gorm:"type:varchar(30);not null" json:"lhs_attribute"`

	// 比较操作符：>=, <=, >, <, ==, !=
	Operator string `gorm:"type:varchar(2);not null" json:"operator"`

	// 右操作数：constant 与 variable 互斥，创建时校验
	RHSKind          RHSKind  `gorm:"type:varchar(10);not null" json:"rhs_type"`
	RHSConstant      *float64 `gorm:"type:decimal(14,4)" json:"rhs_constant,omitempty"`
	RHSExchange      string   `gorm:"type:varchar(20)" json:"rhs_exchange,omitempty"`
	RHSTradingSymbol string   `gorm:"type:varchar(50)" json:"rhs_tradingsymbol,omitempty"`
	RHSAttribute     string   `gorm:"type:varchar(30)" json:"rhs_attribute,omitempty"`

	// 生命周期状态
	Status         AlertStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	DisabledReason string      `gorm:"type:varchar(100)" json:"disabled_reason,omitempty"`

	// 触发记录：一次性触发语义，AlertCount 只能为 0 或 1
	AlertCount         int        `gorm:"not null;default:0;index" json:"alert_count"`
	LastTriggeredAt    *time.Time `json:"last_triggered_at,omitempty"`
	LastTriggeredPrice *float64   `gorm:"type:decimal(14,4)" json:"last_triggered_price,omitempty"`

	// 有效期策略，独立于触发状态
	ExpiryType ExpiryType `gorm:"type:varchar(15);not null;default:persistent" json:"expiry_type"`
	ExpiryDate *time.Time `gorm:"type:date" json:"expiry_date,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (a *Alert) BeforeCreate(tx *gorm.DB) error {
	if a.UUID == "" {
		a.UUID = uuid.New().String()
	}
	return nil
}

func (Alert) TableName() string {
	return "alerts"
}

// Instrument 返回左操作数的标的标识，格式 EXCHANGE:SYMBOL
func (a *Alert) Instrument() string {
	return a.LHSExchange + ":" + a.LHSTradingSymbol
}

// Validate 创建时校验，非法配置不允许进入监控
func (a *Alert) Validate(now time.Time) error {
	if a.Name == "" {
		return fmt.Errorf("name不能为空")
	}
	if a.LHSExchange == "" || a.LHSTradingSymbol == "" {
		return fmt.Errorf("lhs_exchange和lhs_tradingsymbol不能为空")
	}
	if a.LHSAttribute == "" {
		a.LHSAttribute = DefaultAttribute
	}

	if !IsSupportedOperator(a.Operator) {
		return fmt.Errorf("不支持的操作符: %q", a.Operator)
	}

	switch a.RHSKind {
	case RHSConstantKind:
		if a.RHSConstant == nil {
			return fmt.Errorf("rhs_type为constant时必须提供rhs_constant")
		}
		if *a.RHSConstant <= 0 {
			return fmt.Errorf("rhs_constant必须为正数")
		}
		if a.RHSExchange != "" || a.RHSTradingSymbol != "" || a.RHSAttribute != "" {
			return fmt.Errorf("rhs_type为constant时不允许设置variable字段")
		}
	case RHSVariableKind:
		if a.RHSExchange == "" || a.RHSTradingSymbol == "" {
			return fmt.Errorf("rhs_type为variable时必须提供rhs_exchange和rhs_tradingsymbol")
		}
		if a.RHSConstant != nil {
			return fmt.Errorf("rhs_type为variable时不允许设置rhs_constant")
		}
		if a.RHSAttribute == "" {
			a.RHSAttribute = DefaultAttribute
		}
	default:
		return fmt.Errorf("不支持的rhs_type: %q", a.RHSKind)
	}

	switch a.ExpiryType {
	case ExpiryToday, ExpiryPersistent:
		if a.ExpiryDate != nil {
			return fmt.Errorf("expiry_type为%s时不允许设置expiry_date", a.ExpiryType)
		}
	case ExpiryDate:
		if a.ExpiryDate == nil {
			return fmt.Errorf("expiry_type为expiry_date时必须提供expiry_date")
		}
		if dateKey(*a.ExpiryDate) < dateKey(now) {
			return fmt.Errorf("expiry_date不能早于今天")
		}
	default:
		return fmt.Errorf("不支持的expiry_type: %q", a.ExpiryType)
	}

	return nil
}

// ActiveAt 按有效期策略判断指定时刻预警是否仍需要参与评估。
// 过期只影响是否参与评估，不改变触发状态。
func (a *Alert) ActiveAt(t time.Time) bool {
	switch a.ExpiryType {
	case ExpiryPersistent:
		return true
	case ExpiryToday:
		return dateKey(a.CreatedAt) == dateKey(t)
	case ExpiryDate:
		if a.ExpiryDate == nil {
			return true
		}
		return dateKey(t) <= dateKey(*a.ExpiryDate)
	}
	// 未知策略视为有效，与原有行为保持一致
	return true
}

// IsSupportedOperator 检查操作符是否受支持
func IsSupportedOperator(op string) bool {
	for _, s := range SupportedOperators {
		if op == s {
			return true
		}
	}
	return false
}

// dateKey 取各自时区下的日历日用于按日比较。
// 数据库date列解码出的时间可能带UTC时区，截断后的瞬时值不能直接比较。
func dateKey(t time.Time) int {
	y, m, d := t.Date()
	return y*10000 + int(m)*100 + d
}
