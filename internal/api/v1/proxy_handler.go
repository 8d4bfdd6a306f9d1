package v1

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SoumitraRai/BiFrost/internal/api/response"
	"github.com/SoumitraRai/BiFrost/internal/model"
	"github.com/SoumitraRai/BiFrost/internal/service"
)

type ProxyHandler struct {
	proxyService   *service.ProxyService
	trafficService *service.TrafficService
	logger         *zap.Logger
}

type startSessionRequest struct {
	UserID    int64  `json:"userId"`
	IPAddress string `json:"ipAddress"`
}

type updateSettingsRequest struct {
	EnablePaymentFilter       *bool `json:"enablePaymentFilter"`
	AutoApproval              *bool `json:"autoApproval"`
	BraveCertificateInstalled *bool `json:"braveCertificateInstalled"`
}

type addTrafficLogRequest struct {
	SessionID        int64     `json:"sessionId"`
	Timestamp        time.Time `json:"timestamp"`
	URL              string    `json:"url"`
	Method           string    `json:"method"`
	StatusCode       int       `json:"statusCode"`
	ContentType      string    `json:"contentType"`
	Size             int64     `json:"size"`
	IsPaymentRelated bool      `json:"isPaymentRelated"`
	IsApproved       *bool     `json:"isApproved"`
}

func NewProxyHandler(proxyService *service.ProxyService, trafficService *service.TrafficService, logger *zap.Logger) *ProxyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProxyHandler{
		proxyService:   proxyService,
		trafficService: trafficService,
		logger:         logger,
	}
}

func RegisterProxyRoutes(group *gin.RouterGroup, proxyService *service.ProxyService, trafficService *service.TrafficService, logger *zap.Logger) {
	handler := NewProxyHandler(proxyService, trafficService, logger)
	proxy := group.Group("/proxy")
	proxy.POST("/sessions/start", handler.StartSession)
	proxy.POST("/sessions/:sessionId/stop", handler.StopSession)
	proxy.GET("/sessions/user/:userId", handler.ActiveSessions)
	proxy.GET("/settings/user/:userId", handler.Settings)
	proxy.PUT("/settings/user/:userId", handler.UpdateSettings)
	proxy.POST("/logs", handler.AddTrafficLog)
	proxy.GET("/logs/session/:sessionId", handler.SessionLogs)
	proxy.GET("/logs/payments/user/:userId", handler.PaymentLogs)
}

func (h *ProxyHandler) StartSession(c *gin.Context) {
	var req startSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID <= 0 {
		response.Error(c, http.StatusBadRequest, "User ID is required.")
		return
	}

	sessionID, err := h.proxyService.StartSession(c.Request.Context(), req.UserID, req.IPAddress)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, "User ID is required.")
			return
		}
		h.logger.Error("start session failed", zap.Int64("user_id", req.UserID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "Failed to start proxy session.")
		return
	}

	response.OK(c, gin.H{
		"message":   "Proxy session started successfully.",
		"sessionId": sessionID,
	})
}

func (h *ProxyHandler) StopSession(c *gin.Context) {
	sessionID, ok := parseIDParam(c, "sessionId")
	if !ok {
		response.Error(c, http.StatusBadRequest, "Session ID is required.")
		return
	}

	if err := h.proxyService.StopSession(c.Request.Context(), sessionID); err != nil {
		if errors.Is(err, service.ErrInvalidSessionID) {
			response.Error(c, http.StatusBadRequest, "Session ID is required.")
			return
		}
		h.logger.Error("stop session failed", zap.Int64("session_id", sessionID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "Failed to end proxy session.")
		return
	}

	response.Message(c, "Proxy session ended successfully.")
}

func (h *ProxyHandler) ActiveSessions(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		response.Error(c, http.StatusBadRequest, "User ID is required.")
		return
	}

	sessions, err := h.proxyService.ActiveSessions(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("list active sessions failed", zap.Int64("user_id", userID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "Failed to fetch active sessions.")
		return
	}
	if sessions == nil {
		sessions = []*model.ProxySession{}
	}

	response.OK(c, sessions)
}

func (h *ProxyHandler) Settings(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		response.Error(c, http.StatusBadRequest, "User ID is required.")
		return
	}

	settings, err := h.proxyService.Settings(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("fetch settings failed", zap.Int64("user_id", userID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "Failed to fetch proxy settings.")
		return
	}

	response.OK(c, settings)
}

func (h *ProxyHandler) UpdateSettings(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		response.Error(c, http.StatusBadRequest, "User ID is required.")
		return
	}

	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "User ID is required.")
		return
	}

	settings, err := h.proxyService.UpdateSettings(c.Request.Context(), userID, service.SettingsUpdate{
		EnablePaymentFilter:       req.EnablePaymentFilter,
		AutoApproval:              req.AutoApproval,
		BraveCertificateInstalled: req.BraveCertificateInstalled,
	})
	if err != nil {
		h.logger.Error("update settings failed", zap.Int64("user_id", userID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "Failed to update proxy settings.")
		return
	}

	response.OK(c, gin.H{
		"message":  "Proxy settings updated successfully.",
		"settings": settings,
	})
}

func (h *ProxyHandler) AddTrafficLog(c *gin.Context) {
	var req addTrafficLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Session ID is required.")
		return
	}

	entry := &model.TrafficLog{
		SessionID:        req.SessionID,
		Timestamp:        req.Timestamp,
		URL:              req.URL,
		Method:           req.Method,
		StatusCode:       req.StatusCode,
		ContentType:      req.ContentType,
		Size:             req.Size,
		IsPaymentRelated: req.IsPaymentRelated,
		IsApproved:       req.IsApproved,
	}

	id, err := h.trafficService.AddLog(c.Request.Context(), entry)
	if err != nil {
		if errors.Is(err, service.ErrInvalidTrafficLog) {
			response.Error(c, http.StatusBadRequest, "Session ID is required.")
			return
		}
		h.logger.Error("add traffic log failed", zap.Int64("session_id", req.SessionID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "Failed to record traffic log.")
		return
	}

	response.OK(c, gin.H{
		"message": "Traffic log recorded successfully.",
		"logId":   id,
	})
}

func (h *ProxyHandler) SessionLogs(c *gin.Context) {
	sessionID, ok := parseIDParam(c, "sessionId")
	if !ok {
		response.Error(c, http.StatusBadRequest, "Session ID is required.")
		return
	}

	logs, err := h.trafficService.SessionLogs(c.Request.Context(), sessionID)
	if err != nil {
		h.logger.Error("fetch session logs failed", zap.Int64("session_id", sessionID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "Failed to fetch traffic logs.")
		return
	}
	if logs == nil {
		logs = []*model.TrafficLog{}
	}

	response.OK(c, logs)
}

func (h *ProxyHandler) PaymentLogs(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		response.Error(c, http.StatusBadRequest, "User ID is required.")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, http.StatusBadRequest, "Limit must be a non-negative integer.")
			return
		}
		limit = parsed
	}

	logs, err := h.trafficService.PaymentLogs(c.Request.Context(), userID, limit)
	if err != nil {
		h.logger.Error("fetch payment logs failed", zap.Int64("user_id", userID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "Failed to fetch payment logs.")
		return
	}
	if logs == nil {
		logs = []*model.TrafficLog{}
	}

	response.OK(c, logs)
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
