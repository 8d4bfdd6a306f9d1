package sse

import (
	"strconv"

	"github.com/SoumitraRai/BiFrost/internal/event"
)

// RegisterBusBridge subscribes the hub to the bus. Payment events reach every
// connected client; session events carrying a user id go only to that user's
// stream. A session event without a user id falls back to broadcast.
func RegisterBusBridge(bus *event.Bus, hub *Hub) {
	if bus == nil || hub == nil {
		return
	}

	bus.Subscribe(event.EventPaymentDetected, func(payload any) {
		hub.Broadcast(NewEvent(EventPaymentDetected, payload))
	})
	bus.Subscribe(event.EventPaymentDecided, func(payload any) {
		hub.Broadcast(NewEvent(EventPaymentDecided, payload))
	})
	bus.Subscribe(event.EventSessionStarted, func(payload any) {
		deliverSessionEvent(hub, EventSessionStarted, payload)
	})
	bus.Subscribe(event.EventSessionEnded, func(payload any) {
		deliverSessionEvent(hub, EventSessionEnded, payload)
	})
}

func deliverSessionEvent(hub *Hub, eventType string, payload any) {
	if session, ok := payload.(event.SessionPayload); ok && session.UserID > 0 {
		hub.SendToUser(strconv.FormatInt(session.UserID, 10), NewEvent(eventType, payload))
		return
	}
	hub.Broadcast(NewEvent(eventType, payload))
}
