package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SoumitraRai/BiFrost/internal/api/sanitize"
	"github.com/SoumitraRai/BiFrost/internal/event"
	"github.com/SoumitraRai/BiFrost/internal/metrics"
	"github.com/SoumitraRai/BiFrost/internal/model"
	"github.com/SoumitraRai/BiFrost/internal/repository"
)

var ErrInvalidTrafficLog = errors.New("invalid traffic log")

type TrafficService struct {
	trafficRepo repository.TrafficRepository
	bus         *event.Bus
	logger      *zap.Logger
}

func NewTrafficService(trafficRepo repository.TrafficRepository, bus *event.Bus, logger *zap.Logger) *TrafficService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TrafficService{
		trafficRepo: trafficRepo,
		bus:         bus,
		logger:      logger,
	}
}

// AddLog appends one observed request. The URL and method are stored
// sanitized because the admin UI renders them verbatim.
func (s *TrafficService) AddLog(ctx context.Context, log *model.TrafficLog) (int64, error) {
	if log == nil || log.SessionID <= 0 || strings.TrimSpace(log.URL) == "" {
		return 0, ErrInvalidTrafficLog
	}

	log.URL = sanitize.Text(log.URL)
	log.Method = strings.ToUpper(sanitize.Text(log.Method))
	log.ContentType = sanitize.Text(log.ContentType)

	id, err := s.trafficRepo.Create(ctx, log)
	if err != nil {
		return 0, err
	}

	metrics.CountRequest(log.StatusCode, log.IsPaymentRelated)
	if log.IsPaymentRelated && s.bus != nil {
		s.bus.Publish(event.EventPaymentDetected, event.PaymentDetectedPayload{
			URL:       log.URL,
			Method:    log.Method,
			Timestamp: log.Timestamp,
		})
	}
	return id, nil
}

func (s *TrafficService) SessionLogs(ctx context.Context, sessionID int64) ([]*model.TrafficLog, error) {
	if sessionID <= 0 {
		return nil, ErrInvalidSessionID
	}
	return s.trafficRepo.ListBySession(ctx, sessionID)
}

func (s *TrafficService) PaymentLogs(ctx context.Context, userID int64, limit int) ([]*model.TrafficLog, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}

	started := time.Now()
	logs, err := s.trafficRepo.ListPaymentsByUser(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("payment logs fetched",
		zap.Int64("user_id", userID),
		zap.Int("count", len(logs)),
		zap.Duration("cost", time.Since(started)),
	)
	return logs, nil
}
