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

type StatsHandler struct {
	statsService *service.StatsService
	logger       *zap.Logger
}

type recordStatsRequest struct {
	UserID                int64  `json:"userId"`
	Date                  string `json:"date"`
	RequestsCount         int64  `json:"requestsCount"`
	BlockedPaymentsCount  int64  `json:"blockedPaymentsCount"`
	ApprovedPaymentsCount int64  `json:"approvedPaymentsCount"`
	DataTransferred       int64  `json:"dataTransferred"`
}

func NewStatsHandler(statsService *service.StatsService, logger *zap.Logger) *StatsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatsHandler{statsService: statsService, logger: logger}
}

func RegisterStatsRoutes(group *gin.RouterGroup, statsService *service.StatsService, logger *zap.Logger) {
	handler := NewStatsHandler(statsService, logger)
	stats := group.Group("/stats")
	stats.POST("/record", handler.Record)
	stats.GET("/daily/:userId", handler.Daily)
	stats.GET("/monthly/:userId", handler.Monthly)
}

func (h *StatsHandler) Record(c *gin.Context) {
	var req recordStatsRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID <= 0 {
		response.Error(c, http.StatusBadRequest, "User ID is required.")
		return
	}

	inc := service.StatsIncrement{
		UserID:                req.UserID,
		RequestsCount:         req.RequestsCount,
		BlockedPaymentsCount:  req.BlockedPaymentsCount,
		ApprovedPaymentsCount: req.ApprovedPaymentsCount,
		DataTransferred:       req.DataTransferred,
	}
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "Date must be in YYYY-MM-DD format.")
			return
		}
		inc.Date = parsed
	}

	if err := h.statsService.Record(c.Request.Context(), inc); err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			response.Error(c, http.StatusBadRequest, "User ID is required.")
			return
		}
		h.logger.Error("record stats failed", zap.Int64("user_id", req.UserID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "Failed to record stats.")
		return
	}

	response.Message(c, "Stats recorded successfully.")
}

func (h *StatsHandler) Daily(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		response.Error(c, http.StatusBadRequest, "User ID is required.")
		return
	}

	days := 0
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, http.StatusBadRequest, "Days must be a non-negative integer.")
			return
		}
		days = parsed
	}

	rows, err := h.statsService.Daily(c.Request.Context(), userID, days)
	if err != nil {
		h.logger.Error("fetch daily stats failed", zap.Int64("user_id", userID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "Failed to fetch user stats.")
		return
	}
	if rows == nil {
		rows = []*model.DailyStats{}
	}

	response.OK(c, rows)
}

func (h *StatsHandler) Monthly(c *gin.Context) {
	userID, ok := parseIDParam(c, "userId")
	if !ok {
		response.Error(c, http.StatusBadRequest, "User ID is required.")
		return
	}

	rows, err := h.statsService.Monthly(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("fetch monthly stats failed", zap.Int64("user_id", userID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "Failed to fetch user monthly stats.")
		return
	}
	if rows == nil {
		rows = []*model.DailyStats{}
	}

	response.OK(c, rows)
}
