package v1

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/SoumitraRai/BiFrost/internal/api/response"
	inputsanitize "github.com/SoumitraRai/BiFrost/internal/api/sanitize"
	"github.com/SoumitraRai/BiFrost/internal/approval"
)

type ApprovalHandler struct {
	queue  *approval.Queue
	logger *zap.Logger
}

type interceptedRequest struct {
	ID        string `json:"id"`
	SessionID int64  `json:"sessionId"`
	URL       string `json:"url"`
	Method    string `json:"method"`
	Detail    string `json:"detail"`
}

type decisionRequest struct {
	Action string `json:"action"`
}

func NewApprovalHandler(queue *approval.Queue, logger *zap.Logger) *ApprovalHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApprovalHandler{queue: queue, logger: logger}
}

func RegisterApprovalRoutes(group *gin.RouterGroup, queue *approval.Queue, logger *zap.Logger) {
	handler := NewApprovalHandler(queue, logger)
	approvals := group.Group("/approvals")
	approvals.POST("/intercepted", handler.Intercepted)
	approvals.GET("/pending", handler.Pending)
	approvals.POST("/:flowId/decision", handler.Decide)
	approvals.GET("/:flowId/decision", handler.Decision)
	approvals.GET("/:flowId/wait", handler.Wait)
}

func (h *ApprovalHandler) Intercepted(c *gin.Context) {
	var req interceptedRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		response.Error(c, http.StatusBadRequest, "URL is required.")
		return
	}

	flowID := h.queue.Register(approval.Flow{
		ID:         strings.TrimSpace(req.ID),
		SessionID:  req.SessionID,
		URL:        inputsanitize.Text(req.URL),
		Method:     strings.ToUpper(inputsanitize.Text(req.Method)),
		Detail:     inputsanitize.Text(req.Detail),
		ReceivedAt: time.Now().UTC(),
	})

	response.OK(c, gin.H{
		"message": "Payment request registered.",
		"flowId":  flowID,
	})
}

func (h *ApprovalHandler) Pending(c *gin.Context) {
	flows := h.queue.Pending()
	if flows == nil {
		flows = []approval.Flow{}
	}
	response.OK(c, flows)
}

func (h *ApprovalHandler) Decide(c *gin.Context) {
	flowID := strings.TrimSpace(c.Param("flowId"))
	var req decisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "Action is required.")
		return
	}

	err := h.queue.Decide(flowID, strings.ToLower(strings.TrimSpace(req.Action)))
	if err != nil {
		switch {
		case errors.Is(err, approval.ErrFlowNotFound):
			response.Error(c, http.StatusNotFound, "Payment request not found.")
		case errors.Is(err, approval.ErrInvalidDecision):
			response.Error(c, http.StatusBadRequest, "Action must be approve or deny.")
		case errors.Is(err, approval.ErrAlreadyDecided):
			response.Error(c, http.StatusConflict, "Payment request already decided.")
		default:
			h.logger.Error("record decision failed", zap.String("flow_id", flowID), zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "Failed to record decision.")
		}
		return
	}

	response.Message(c, "Decision recorded.")
}

func (h *ApprovalHandler) Decision(c *gin.Context) {
	flowID := strings.TrimSpace(c.Param("flowId"))
	decision, err := h.queue.Decision(flowID)
	if err != nil {
		if errors.Is(err, approval.ErrFlowNotFound) {
			response.Error(c, http.StatusNotFound, "Payment request not found.")
			return
		}
		h.logger.Error("fetch decision failed", zap.String("flow_id", flowID), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "Failed to fetch decision.")
		return
	}

	if decision == "" {
		response.OK(c, gin.H{"flowId": flowID, "decision": nil})
		return
	}
	response.OK(c, gin.H{"flowId": flowID, "decision": decision})
}

// Wait long-polls until the flow is decided. A timeout answers 408 with a
// deny verdict so an unattended prompt fails closed.
func (h *ApprovalHandler) Wait(c *gin.Context) {
	flowID := strings.TrimSpace(c.Param("flowId"))
	decision, err := h.queue.Wait(c.Request.Context(), flowID)
	if err != nil {
		switch {
		case errors.Is(err, approval.ErrFlowNotFound):
			response.Error(c, http.StatusNotFound, "Payment request not found.")
			return
		case errors.Is(err, approval.ErrWaitTimeout):
			c.JSON(http.StatusRequestTimeout, gin.H{"flowId": flowID, "decision": decision})
			return
		default:
			// Client went away; nothing useful to write.
			return
		}
	}

	response.OK(c, gin.H{"flowId": flowID, "decision": decision})
}
