// pkg/model/quote.go
package model

import "time"

// Quote 标的行情数据
type Quote struct {
	Instrument    string    `json:"instrument"` // 格式: EXCHANGE:SYMBOL
	LastPrice     float64   `json:"last_price"`
	Open          float64   `json:"open"`
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Close         float64   `json:"close"`
	Volume        float64   `json:"volume"`
	ChangePercent float64   `json:"change_percent"`
	Timestamp     time.Time `json:"timestamp"`
}
