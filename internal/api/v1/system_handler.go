package v1

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"

	"github.com/SoumitraRai/BiFrost/internal/api/response"
	"github.com/SoumitraRai/BiFrost/internal/sse"
	systemlog "github.com/SoumitraRai/BiFrost/pkg/logger"
)

type SystemHandler struct {
	hub      *sse.Hub
	logStore *systemlog.SystemLogStore
	logger   *zap.Logger
	started  time.Time
}

func NewSystemHandler(hub *sse.Hub, logStore *systemlog.SystemLogStore, logger *zap.Logger) *SystemHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SystemHandler{
		hub:      hub,
		logStore: logStore,
		logger:   logger,
		started:  time.Now(),
	}
}

func RegisterSystemRoutes(group *gin.RouterGroup, hub *sse.Hub, logStore *systemlog.SystemLogStore, logger *zap.Logger) {
	handler := NewSystemHandler(hub, logStore, logger)
	system := group.Group("/system")
	system.GET("/info", handler.Info)
	system.GET("/logs", handler.Logs)
}

func (h *SystemHandler) Info(c *gin.Context) {
	info := gin.H{
		"goroutines":     runtime.NumGoroutine(),
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	}

	if h.hub != nil {
		info["sse_clients"] = h.hub.ConnectedCount()
	}

	if hostInfo, err := host.Info(); err == nil {
		info["hostname"] = hostInfo.Hostname
		info["os"] = hostInfo.OS
		info["platform"] = hostInfo.Platform
		info["host_uptime_seconds"] = hostInfo.Uptime
	} else {
		h.logger.Warn("host info unavailable", zap.Error(err))
	}

	if values, err := cpu.Percent(500*time.Millisecond, false); err == nil && len(values) > 0 {
		info["cpu_percent"] = values[0]
	}

	if stat, err := mem.VirtualMemory(); err == nil {
		info["mem_percent"] = stat.UsedPercent
		info["mem_total"] = stat.Total
		info["mem_used"] = stat.Used
	}

	response.OK(c, info)
}

func (h *SystemHandler) Logs(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, http.StatusBadRequest, "Invalid limit.")
			return
		}
		limit = parsed
	}
	level := c.Query("level")

	entries := h.logStore.Recent(limit, level)
	if entries == nil {
		entries = []systemlog.SystemLogEntry{}
	}

	response.OK(c, entries)
}
