package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"LevelRadar/pkg/collector"
	"LevelRadar/pkg/model"
	"LevelRadar/pkg/monitor"
	"LevelRadar/pkg/store"
)

// Handlers API处理程序
type Handlers struct {
	store         store.AlertStore
	quoteFetcher  collector.QuoteFetcher
	healthMonitor *monitor.Monitor
}

// NewHandlers 创建新的API处理程序
func NewHandlers(alertStore store.AlertStore, quoteFetcher collector.QuoteFetcher, healthMonitor *monitor.Monitor) *Handlers {
	return &Handlers{
		store:         alertStore,
		quoteFetcher:  quoteFetcher,
		healthMonitor: healthMonitor,
	}
}

// HealthCheck 健康检查处理程序
func (h *Handlers) HealthCheck(c *gin.Context) {
	if h.healthMonitor == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}

	status := http.StatusOK
	overall := "ok"
	if !h.healthMonitor.Healthy() {
		status = http.StatusServiceUnavailable
		overall = "degraded"
	}

	c.JSON(status, gin.H{
		"status":     overall,
		"components": h.healthMonitor.GetAllStatus(),
	})
}

// ReadinessCheck 就绪检查处理程序
func (h *Handlers) ReadinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
	})
}

// CreateAlertRequest 创建预警请求
type CreateAlertRequest struct {
	Name             string   `json:"name" binding:"required"`
	UserID           string   `json:"user_id"`
	LHSExchange      string   `json:"lhs_exchange" binding:"required"`
	LHSTradingSymbol string   `json:"lhs_tradingsymbol" binding:"required"`
	LHSAttribute     string   `json:"lhs_attribute"`
	Operator         string   `json:"operator" binding:"required"`
	RHSType          string   `json:"rhs_type" binding:"required"`
	RHSConstant      *float64 `json:"rhs_constant"`
	RHSExchange      string   `json:"rhs_exchange"`
	RHSTradingSymbol string   `json:"rhs_tradingsymbol"`
	RHSAttribute     string   `json:"rhs_attribute"`
	ExpiryType       string   `json:"expiry_type"`
	ExpiryDate       string   `json:"expiry_date"` // YYYY-MM-DD
}

// CreateAlert 创建预警处理程序
func (h *Handlers) CreateAlert(c *gin.Context) {
	var req CreateAlertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "无效的请求参数: " + err.Error(),
		})
		return
	}

	alert := model.Alert{
		Name:             req.Name,
		UserID:           req.UserID,
		LHSExchange:      strings.ToUpper(strings.TrimSpace(req.LHSExchange)),
		LHSTradingSymbol: strings.ToUpper(strings.TrimSpace(req.LHSTradingSymbol)),
		LHSAttribute:     req.LHSAttribute,
		Operator:         req.Operator,
		RHSKind:          model.RHSKind(req.RHSType),
		RHSConstant:      req.RHSConstant,
		RHSExchange:      strings.ToUpper(strings.TrimSpace(req.RHSExchange)),
		RHSTradingSymbol: strings.ToUpper(strings.TrimSpace(req.RHSTradingSymbol)),
		RHSAttribute:     req.RHSAttribute,
		Status:           model.StatusEnabled,
		ExpiryType:       model.ExpiryType(req.ExpiryType),
	}
	if alert.ExpiryType == "" {
		alert.ExpiryType = model.ExpiryPersistent
	}

	if req.ExpiryDate != "" {
		expiry, err := time.ParseInLocation("2006-01-02", req.ExpiryDate, time.Local)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "expiry_date必须为YYYY-MM-DD格式",
			})
			return
		}
		alert.ExpiryDate = &expiry
	}

	if err := alert.Validate(time.Now()); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	if err := h.store.Create(&alert); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "保存预警失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "success",
		"data":   alert,
	})
}

// ListAlerts 查询预警列表处理程序
func (h *Handlers) ListAlerts(c *gin.Context) {
	filter := store.Filter{
		UserID:     c.Query("user_id"),
		Instrument: c.Query("instrument"),
	}
	if status := c.Query("status"); status != "" {
		filter.Status = model.AlertStatus(status)
	}

	alerts, err := h.store.List(filter)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "查询预警失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": alerts,
	})
}

// GetActiveAlerts 查询待触发预警：enabled、未触发且未过期
func (h *Handlers) GetActiveAlerts(c *gin.Context) {
	alerts, err := h.store.ListEligible()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "查询预警失败: " + err.Error(),
		})
		return
	}

	now := time.Now()
	active := make([]*model.Alert, 0, len(alerts))
	for _, alert := range alerts {
		if alert.ActiveAt(now) {
			active = append(active, alert)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"data": active,
	})
}

// GetTriggeredAlerts 查询最近触发的预警，按触发时间倒序
func (h *Handlers) GetTriggeredAlerts(c *gin.Context) {
	var since time.Time
	if sinceParam := c.Query("since"); sinceParam != "" {
		parsed, err := time.Parse(time.RFC3339, sinceParam)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "since必须为RFC3339格式",
			})
			return
		}
		since = parsed
	}

	alerts, err := h.store.ListTriggeredSince(since, 100)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "查询已触发预警失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": alerts,
	})
}

// GetAlert 查询单个预警处理程序
func (h *Handlers) GetAlert(c *gin.Context) {
	alert, err := h.store.GetByUUID(c.Param("uuid"))
	if err != nil {
		if errors.Is(err, store.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "预警不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "获取预警失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": alert})
}

// DeleteAlert 删除预警处理程序
func (h *Handlers) DeleteAlert(c *gin.Context) {
	err := h.store.Delete(c.Param("uuid"))
	if err != nil {
		if errors.Is(err, store.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "预警不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "删除预警失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// EnableAlert 重新启用预警，触发计数同时清零
func (h *Handlers) EnableAlert(c *gin.Context) {
	err := h.store.Reenable(c.Param("uuid"))
	if err != nil {
		if errors.Is(err, store.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "预警不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "启用预警失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// DisableAlert 停用预警处理程序
func (h *Handlers) DisableAlert(c *gin.Context) {
	err := h.store.Disable(c.Param("uuid"), "user_disabled")
	if err != nil {
		if errors.Is(err, store.ErrAlertNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "预警不存在"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "停用预警失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "success"})
}

// GetQuotes 获取行情处理程序
func (h *Handlers) GetQuotes(c *gin.Context) {
	instrumentsParam := c.Query("instruments")
	if instrumentsParam == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "instruments参数不能为空",
		})
		return
	}

	// 分割标的标识
	instruments := strings.Split(instrumentsParam, ",")

	quotes, err := h.quoteFetcher.FetchQuotes(instruments)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "获取行情数据失败: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": quotes,
	})
}
