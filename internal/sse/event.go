package sse

import (
	"encoding/json"
	"strconv"
	"sync/atomic"
)

type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data string `json:"data"`
}

const (
	EventHeartbeat       = "heartbeat"
	EventPaymentDetected = "payment.detected"
	EventPaymentDecided  = "payment.decided"
	EventSessionStarted  = "session.started"
	EventSessionEnded    = "session.ended"
)

var globalEventID int64

func NewEvent(eventType string, payload any) Event {
	id := atomic.AddInt64(&globalEventID, 1)
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("null")
	}

	return Event{
		ID:   strconv.FormatInt(id, 10),
		Type: eventType,
		Data: string(data),
	}
}
