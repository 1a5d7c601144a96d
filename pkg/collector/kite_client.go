package collector

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"LevelRadar/pkg/model"
)

// KiteClient Kite行情API客户端
type KiteClient struct {
	APIKey      string
	AccessToken string
	BaseURL     string
	Client      *http.Client
}

// kiteQuoteResponse Kite行情API响应结构
type kiteQuoteResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    map[string]struct {
		LastPrice float64 `json:"last_price"`
		Volume    float64 `json:"volume"`
		OHLC      struct {
			Open  float64 `json:"open"`
			High  float64 `json:"high"`
			Low   float64 `json:"low"`
			Close float64 `json:"close"`
		} `json:"ohlc"`
	} `json:"data"`
}

// NewKiteClient 创建新的Kite行情客户端，timeout非正值时使用10s缺省
func NewKiteClient(apiKey, accessToken, baseURL string, timeout time.Duration) *KiteClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &KiteClient{
		APIKey:      apiKey,
		AccessToken: accessToken,
		BaseURL:     baseURL,
		Client: &http.Client{
			Timeout: timeout,
		},
	}
}

// fetch 执行行情查询请求
func (c *KiteClient) fetch(instruments []string) (*kiteQuoteResponse, error) {
	params := url.Values{}
	for _, ins := range instruments {
		params.Add("i", ins)
	}

	httpReq, err := http.NewRequest("GET", c.BaseURL+"/quote?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}

	httpReq.Header.Set("X-Kite-Version", "3")
	httpReq.Header.Set("Authorization", fmt.Sprintf("token %s:%s", c.APIKey, c.AccessToken))

	resp, err := c.Client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("执行HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: API返回非200状态码: %d", ErrPriceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}

	var quoteResp kiteQuoteResponse
	if err := json.Unmarshal(body, &quoteResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	if quoteResp.Status != "success" {
		return nil, fmt.Errorf("%w: API返回错误: %s", ErrPriceUnavailable, quoteResp.Message)
	}

	return &quoteResp, nil
}

// Resolve 解析指定标的属性的当前数值
func (c *KiteClient) Resolve(exchange, tradingsymbol, attribute string) (float64, error) {
	instrument := exchange + ":" + tradingsymbol

	quoteResp, err := c.fetch([]string{instrument})
	if err != nil {
		return 0, err
	}

	data, ok := quoteResp.Data[instrument]
	if !ok {
		return 0, fmt.Errorf("%w: 标的 %s 不存在", ErrPriceUnavailable, instrument)
	}

	var value float64
	switch attribute {
	case model.DefaultAttribute:
		value = data.LastPrice
	case "OpenPrice":
		value = data.OHLC.Open
	case "HighPrice":
		value = data.OHLC.High
	case "LowPrice":
		value = data.OHLC.Low
	case "ClosePrice":
		value = data.OHLC.Close
	case "Volume":
		return data.Volume, nil
	default:
		return 0, fmt.Errorf("不支持的属性: %q", attribute)
	}

	// 0价格视为行情缺失，避免被误当成真实价格
	if value <= 0 {
		return 0, fmt.Errorf("%w: 标的 %s 无有效价格", ErrPriceUnavailable, instrument)
	}

	return value, nil
}

// FetchQuotes 批量获取行情数据
func (c *KiteClient) FetchQuotes(instruments []string) ([]model.Quote, error) {
	quoteResp, err := c.fetch(instruments)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	quotes := make([]model.Quote, 0, len(instruments))
	for _, ins := range instruments {
		data, ok := quoteResp.Data[ins]
		if !ok {
			continue
		}

		quote := model.Quote{
			Instrument: ins,
			LastPrice:  data.LastPrice,
			Open:       data.OHLC.Open,
			High:       data.OHLC.High,
			Low:        data.OHLC.Low,
			Close:      data.OHLC.Close,
			Volume:     data.Volume,
			Timestamp:  now,
		}
		if data.OHLC.Close > 0 {
			quote.ChangePercent = (data.LastPrice - data.OHLC.Close) / data.OHLC.Close * 100
		}
		quotes = append(quotes, quote)
	}

	return quotes, nil
}
