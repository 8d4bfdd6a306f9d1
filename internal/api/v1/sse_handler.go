package v1

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SoumitraRai/BiFrost/internal/api/response"
	"github.com/SoumitraRai/BiFrost/internal/sse"
)

type SSEHandler struct {
	hub *sse.Hub
}

func NewSSEHandler(hub *sse.Hub) *SSEHandler {
	return &SSEHandler{hub: hub}
}

func RegisterSSERoutes(group *gin.RouterGroup, hub *sse.Hub) {
	handler := NewSSEHandler(hub)
	group.GET("/events", handler.Events)
}

func (h *SSEHandler) Events(c *gin.Context) {
	if h.hub == nil {
		response.Error(c, http.StatusServiceUnavailable, "Event stream unavailable.")
		return
	}

	userID := strings.TrimSpace(c.Query("userId"))
	if userID == "" {
		response.Error(c, http.StatusBadRequest, "User ID is required.")
		return
	}
	if _, err := strconv.ParseInt(userID, 10, 64); err != nil {
		response.Error(c, http.StatusBadRequest, "User ID is required.")
		return
	}

	flusher, ok := c.Writer.(interface{ Flush() })
	if !ok {
		response.Error(c, http.StatusInternalServerError, "Streaming unsupported.")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	client := sse.NewClient(userID)
	h.hub.Register(client)
	defer h.hub.Unregister(userID)

	lastID := c.GetHeader("Last-Event-ID")
	for _, event := range h.hub.Since(lastID) {
		if err := writeSSEEvent(c, event); err != nil {
			return
		}
		flusher.Flush()
	}

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-client.Done:
			return
		case event := <-client.Ch:
			if err := writeSSEEvent(c, event); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEEvent(c *gin.Context, event sse.Event) error {
	if _, err := fmt.Fprintf(c.Writer, "id: %s\n", event.ID); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(c.Writer, "event: %s\n", event.Type); err != nil {
		return err
	}

	for _, line := range strings.Split(event.Data, "\n") {
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n", line); err != nil {
			return err
		}
	}

	_, err := fmt.Fprint(c.Writer, "\n")
	return err
}
