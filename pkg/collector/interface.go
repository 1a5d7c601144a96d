package collector

import (
	"errors"

	"LevelRadar/pkg/model"
)

// ErrPriceUnavailable 价格暂不可用（标的未知或行情过期）。
// 调用方据此跳过本轮评估，下一轮自动重试，绝不返回0价格冒充真实行情。
var ErrPriceUnavailable = errors.New("价格不可用")

// PriceSource 价格解析接口
type PriceSource interface {
	Resolve(exchange, tradingsymbol, attribute string) (float64, error)
}

// QuoteFetcher 行情数据获取接口
type QuoteFetcher interface {
	FetchQuotes(instruments []string) ([]model.Quote, error)
}
