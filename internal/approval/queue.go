package approval

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/SoumitraRai/BiFrost/internal/event"
	"github.com/SoumitraRai/BiFrost/internal/metrics"
)

const (
	DecisionApprove = "approve"
	DecisionDeny    = "deny"

	// DefaultWaitTimeout bounds a single long-poll; the caller receives a
	// deny verdict when it elapses, so an unattended prompt fails closed.
	DefaultWaitTimeout = 30 * time.Second

	defaultPendingTTL       = 2 * time.Minute
	defaultDecidedRetention = 10 * time.Minute
)

var (
	ErrFlowNotFound    = errors.New("flow not found")
	ErrInvalidDecision = errors.New("invalid decision")
	ErrAlreadyDecided  = errors.New("flow already decided")
	ErrWaitTimeout     = errors.New("decision wait timed out")
)

// Flow is one intercepted payment request awaiting a verdict.
type Flow struct {
	ID         string    `json:"id"`
	SessionID  int64     `json:"session_id,omitempty"`
	URL        string    `json:"url"`
	Method     string    `json:"method"`
	Detail     string    `json:"detail,omitempty"`
	ReceivedAt time.Time `json:"received_at"`
	Decision   string    `json:"decision,omitempty"`
	DecidedAt  time.Time `json:"decided_at,omitempty"`
}

type flowEntry struct {
	flow    Flow
	decided chan struct{}
}

// Queue is the mutex-guarded pending-payment store. All state is in-process;
// a restart drops undecided flows, which the interception engine treats as a
// deny after its own timeout.
type Queue struct {
	mu      sync.Mutex
	flows   map[string]*flowEntry
	bus     *event.Bus
	logger  *zap.Logger
	waitTTL time.Duration

	pendingTTL       time.Duration
	decidedRetention time.Duration
}

func NewQueue(bus *event.Bus, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		flows:            make(map[string]*flowEntry),
		bus:              bus,
		logger:           logger,
		waitTTL:          DefaultWaitTimeout,
		pendingTTL:       defaultPendingTTL,
		decidedRetention: defaultDecidedRetention,
	}
}

// Register adds a flow and returns its id, generating one when absent.
// Re-registering a known id is idempotent.
func (q *Queue) Register(flow Flow) string {
	if strings.TrimSpace(flow.ID) == "" {
		flow.ID = uuid.NewString()
	}
	if flow.ReceivedAt.IsZero() {
		flow.ReceivedAt = time.Now().UTC()
	}

	q.mu.Lock()
	if _, exists := q.flows[flow.ID]; exists {
		q.mu.Unlock()
		return flow.ID
	}
	q.flows[flow.ID] = &flowEntry{
		flow:    flow,
		decided: make(chan struct{}),
	}
	pending := q.pendingCountLocked()
	q.mu.Unlock()

	metrics.SetPendingApprovals(pending)
	if q.bus != nil {
		q.bus.Publish(event.EventPaymentDetected, event.PaymentDetectedPayload{
			FlowID:    flow.ID,
			URL:       flow.URL,
			Method:    flow.Method,
			Timestamp: flow.ReceivedAt,
		})
	}
	return flow.ID
}

// Pending lists undecided flows, oldest first.
func (q *Queue) Pending() []Flow {
	q.mu.Lock()
	out := make([]Flow, 0, len(q.flows))
	for _, entry := range q.flows {
		if entry.flow.Decision == "" {
			out = append(out, entry.flow)
		}
	}
	q.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].ReceivedAt.Before(out[j].ReceivedAt)
	})
	return out
}

// Decide records the verdict and wakes every waiter for the flow.
func (q *Queue) Decide(flowID, decision string) error {
	decision = strings.ToLower(strings.TrimSpace(decision))
	if decision != DecisionApprove && decision != DecisionDeny {
		return ErrInvalidDecision
	}

	q.mu.Lock()
	entry, ok := q.flows[flowID]
	if !ok {
		q.mu.Unlock()
		return ErrFlowNotFound
	}
	if entry.flow.Decision != "" {
		q.mu.Unlock()
		return ErrAlreadyDecided
	}
	entry.flow.Decision = decision
	entry.flow.DecidedAt = time.Now().UTC()
	close(entry.decided)
	pending := q.pendingCountLocked()
	q.mu.Unlock()

	metrics.SetPendingApprovals(pending)
	metrics.CountDecision(decision)
	if q.bus != nil {
		q.bus.Publish(event.EventPaymentDecided, event.PaymentDecidedPayload{
			FlowID:   flowID,
			Decision: decision,
		})
	}
	return nil
}

// Decision returns the current verdict; empty string while pending.
func (q *Queue) Decision(flowID string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	entry, ok := q.flows[flowID]
	if !ok {
		return "", ErrFlowNotFound
	}
	return entry.flow.Decision, nil
}

// Wait blocks until the flow is decided or the queue's wait timeout elapses.
// On timeout the returned decision is deny alongside ErrWaitTimeout.
func (q *Queue) Wait(ctx context.Context, flowID string) (string, error) {
	q.mu.Lock()
	entry, ok := q.flows[flowID]
	if !ok {
		q.mu.Unlock()
		return "", ErrFlowNotFound
	}
	if entry.flow.Decision != "" {
		decision := entry.flow.Decision
		q.mu.Unlock()
		return decision, nil
	}
	decided := entry.decided
	q.mu.Unlock()

	timer := time.NewTimer(q.waitTTL)
	defer timer.Stop()

	select {
	case <-decided:
		return q.Decision(flowID)
	case <-timer.C:
		return DecisionDeny, ErrWaitTimeout
	case <-ctx.Done():
		return DecisionDeny, ctx.Err()
	}
}

// Sweep auto-denies pending flows older than the pending TTL and drops
// decided flows past the retention window. Run from the scheduler.
func (q *Queue) Sweep(now time.Time) (denied, removed int) {
	type expired struct {
		id string
	}

	q.mu.Lock()
	var toDeny []expired
	for id, entry := range q.flows {
		if entry.flow.Decision == "" {
			if now.Sub(entry.flow.ReceivedAt) > q.pendingTTL {
				toDeny = append(toDeny, expired{id: id})
			}
			continue
		}
		if now.Sub(entry.flow.DecidedAt) > q.decidedRetention {
			delete(q.flows, id)
			removed++
		}
	}
	q.mu.Unlock()

	for _, item := range toDeny {
		if err := q.Decide(item.id, DecisionDeny); err == nil {
			denied++
		}
	}

	if denied > 0 || removed > 0 {
		q.logger.Info("approval queue swept",
			zap.Int("auto_denied", denied),
			zap.Int("removed", removed),
		)
	}
	return denied, removed
}

func (q *Queue) pendingCountLocked() int {
	count := 0
	for _, entry := range q.flows {
		if entry.flow.Decision == "" {
			count++
		}
	}
	return count
}
