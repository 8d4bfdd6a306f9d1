package event

import (
	"strings"
	"sync"
	"time"
)

const (
	EventPaymentDetected = "payment.detected"
	EventPaymentDecided  = "payment.decided"
	EventSessionStarted  = "session.started"
	EventSessionEnded    = "session.ended"
)

type SessionPayload struct {
	SessionID int64 `json:"session_id"`
	UserID    int64 `json:"user_id,omitempty"`
}

type PaymentDetectedPayload struct {
	FlowID    string    `json:"flow_id"`
	URL       string    `json:"url"`
	Method    string    `json:"method"`
	Timestamp time.Time `json:"timestamp"`
}

type PaymentDecidedPayload struct {
	FlowID   string `json:"flow_id"`
	Decision string `json:"decision"`
}

// Bus is a fire-and-forget in-process pub/sub. Handlers run on their own
// goroutines; publishers never block on slow subscribers.
type Bus struct {
	handlers sync.Map
	mu       sync.Mutex
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(event string, handler func(payload any)) {
	if b == nil || handler == nil {
		return
	}

	eventName := strings.TrimSpace(event)
	if eventName == "" {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	handlers := make([]func(payload any), 0, 1)
	if current, ok := b.handlers.Load(eventName); ok {
		if casted, valid := current.([]func(payload any)); valid {
			handlers = append(handlers, casted...)
		}
	}
	handlers = append(handlers, handler)
	b.handlers.Store(eventName, handlers)
}

func (b *Bus) Publish(event string, payload any) {
	if b == nil {
		return
	}

	eventName := strings.TrimSpace(event)
	if eventName == "" {
		return
	}

	current, ok := b.handlers.Load(eventName)
	if !ok {
		return
	}

	handlers, ok := current.([]func(payload any))
	if !ok || len(handlers) == 0 {
		return
	}

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		go handler(payload)
	}
}
