package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"LevelRadar/pkg/model"
	"LevelRadar/pkg/store"
)

type fakeQuoteFetcher struct{}

func (f *fakeQuoteFetcher) FetchQuotes(instruments []string) ([]model.Quote, error) {
	quotes := make([]model.Quote, 0, len(instruments))
	for _, ins := range instruments {
		quotes = append(quotes, model.Quote{Instrument: ins, LastPrice: 100, Timestamp: time.Now()})
	}
	return quotes, nil
}

func newTestServer(t *testing.T) (*gin.Engine, store.AlertStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	alertStore := store.NewMemoryStore()
	handlers := NewHandlers(alertStore, &fakeQuoteFetcher{}, nil)
	server := NewServer("0", 0, 0)
	server.SetupRoutes(handlers)
	return server.Router(), alertStore
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("编码请求体失败: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func validCreateRequest() map[string]interface{} {
	return map[string]interface{}{
		"name":              "NIFTY压力位",
		"lhs_exchange":      "INDICES",
		"lhs_tradingsymbol": "NIFTY 50",
		"operator":          ">=",
		"rhs_type":          "constant",
		"rhs_constant":      27000.0,
	}
}

func TestCreateAlert_OK(t *testing.T) {
	router, alertStore := newTestServer(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/alerts", validCreateRequest())
	if w.Code != http.StatusOK {
		t.Fatalf("创建应成功, 状态码%d: %s", w.Code, w.Body.String())
	}

	alerts, err := alertStore.List(store.Filter{})
	if err != nil {
		t.Fatalf("查询失败: %v", err)
	}
	if len(alerts) != 1 {
		t.Fatalf("应保存1条预警, 实际%d条", len(alerts))
	}
	alert := alerts[0]
	if alert.Status != model.StatusEnabled || alert.AlertCount != 0 {
		t.Fatalf("新建预警应为enabled且计数为0")
	}
	if alert.LHSAttribute != model.DefaultAttribute {
		t.Fatalf("缺省属性应为%s", model.DefaultAttribute)
	}
	if alert.UUID == "" {
		t.Fatalf("应分配UUID")
	}
}

func TestCreateAlert_Validation(t *testing.T) {
	router, _ := newTestServer(t)

	cases := []struct {
		name   string
		mutate func(req map[string]interface{})
	}{
		{"未知操作符", func(req map[string]interface{}) { req["operator"] = "~=" }},
		{"constant缺少数值", func(req map[string]interface{}) { delete(req, "rhs_constant") }},
		{"variable缺少标的", func(req map[string]interface{}) {
			req["rhs_type"] = "variable"
			delete(req, "rhs_constant")
		}},
		{"过去的expiry_date", func(req map[string]interface{}) {
			req["expiry_type"] = "expiry_date"
			req["expiry_date"] = "2020-01-01"
		}},
		{"非法expiry_date格式", func(req map[string]interface{}) {
			req["expiry_type"] = "expiry_date"
			req["expiry_date"] = "01/01/2030"
		}},
		{"缺少name", func(req map[string]interface{}) { delete(req, "name") }},
	}

	for _, tc := range cases {
		req := validCreateRequest()
		tc.mutate(req)
		w := doJSON(t, router, http.MethodPost, "/api/v1/alerts", req)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("%s: 应返回400, 实际%d", tc.name, w.Code)
		}
	}
}

func TestDeleteAlert(t *testing.T) {
	router, alertStore := newTestServer(t)

	target := 100.0
	alert := &model.Alert{
		Name:             "待删除",
		LHSExchange:      "NSE",
		LHSTradingSymbol: "TCS",
		LHSAttribute:     model.DefaultAttribute,
		Operator:         ">=",
		RHSKind:          model.RHSConstantKind,
		RHSConstant:      &target,
		Status:           model.StatusEnabled,
		ExpiryType:       model.ExpiryPersistent,
	}
	if err := alertStore.Create(alert); err != nil {
		t.Fatalf("创建失败: %v", err)
	}

	w := doJSON(t, router, http.MethodDelete, "/api/v1/alerts/"+alert.UUID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("删除应成功, 状态码%d", w.Code)
	}

	// 重复删除返回404
	w = doJSON(t, router, http.MethodDelete, "/api/v1/alerts/"+alert.UUID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("删除不存在的预警应返回404, 实际%d", w.Code)
	}
}

func TestGetTriggeredAlerts(t *testing.T) {
	router, alertStore := newTestServer(t)

	target := 100.0
	alert := &model.Alert{
		Name:             "已触发",
		LHSExchange:      "NSE",
		LHSTradingSymbol: "TCS",
		LHSAttribute:     model.DefaultAttribute,
		Operator:         ">=",
		RHSKind:          model.RHSConstantKind,
		RHSConstant:      &target,
		Status:           model.StatusEnabled,
		ExpiryType:       model.ExpiryPersistent,
	}
	if err := alertStore.Create(alert); err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	triggeredAt := time.Now().Add(-time.Minute)
	if _, err := alertStore.MarkTriggered(alert.UUID, 105, triggeredAt); err != nil {
		t.Fatalf("触发更新失败: %v", err)
	}

	w := doJSON(t, router, http.MethodGet, "/api/v1/alerts/triggered", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("查询应成功, 状态码%d", w.Code)
	}

	var resp struct {
		Data []model.Alert `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(resp.Data) != 1 {
		t.Fatalf("应返回1条已触发预警, 实际%d条", len(resp.Data))
	}
	got := resp.Data[0]
	if got.LastTriggeredPrice == nil || *got.LastTriggeredPrice != 105 {
		t.Fatalf("应携带触发价格")
	}

	// since晚于触发时间则不返回
	since := time.Now().Format(time.RFC3339)
	w = doJSON(t, router, http.MethodGet, "/api/v1/alerts/triggered?since="+since, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("查询应成功, 状态码%d", w.Code)
	}
	resp.Data = nil
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("解析响应失败: %v", err)
	}
	if len(resp.Data) != 0 {
		t.Fatalf("since之前触发的预警不应返回")
	}
}

func TestEnableResetsTriggeredAlert(t *testing.T) {
	router, alertStore := newTestServer(t)

	target := 100.0
	alert := &model.Alert{
		Name:             "重新启用",
		LHSExchange:      "NSE",
		LHSTradingSymbol: "TCS",
		LHSAttribute:     model.DefaultAttribute,
		Operator:         ">=",
		RHSKind:          model.RHSConstantKind,
		RHSConstant:      &target,
		Status:           model.StatusEnabled,
		ExpiryType:       model.ExpiryPersistent,
	}
	if err := alertStore.Create(alert); err != nil {
		t.Fatalf("创建失败: %v", err)
	}
	if _, err := alertStore.MarkTriggered(alert.UUID, 105, time.Now()); err != nil {
		t.Fatalf("触发更新失败: %v", err)
	}

	w := doJSON(t, router, http.MethodPut, fmt.Sprintf("/api/v1/alerts/%s/enable", alert.UUID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("启用应成功, 状态码%d", w.Code)
	}

	stored, _ := alertStore.GetByUUID(alert.UUID)
	if stored.Status != model.StatusEnabled || stored.AlertCount != 0 {
		t.Fatalf("重新启用应重置计数")
	}
}

func TestGetQuotes(t *testing.T) {
	router, _ := newTestServer(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/quotes?instruments=NSE:TCS", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("行情查询应成功, 状态码%d", w.Code)
	}

	w = doJSON(t, router, http.MethodGet, "/api/v1/quotes", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("缺少instruments参数应返回400, 实际%d", w.Code)
	}
}
