package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/SoumitraRai/BiFrost/internal/event"
	"github.com/SoumitraRai/BiFrost/internal/model"
	"github.com/SoumitraRai/BiFrost/internal/repository"
)

var ErrInvalidSessionID = errors.New("invalid session id")

// SettingsUpdate carries the PUT body; nil fields fall back to the defaults
// the original controller synthesized (filter on, auto-approval off,
// certificate not installed).
type SettingsUpdate struct {
	EnablePaymentFilter       *bool
	AutoApproval              *bool
	BraveCertificateInstalled *bool
}

type ProxyService struct {
	sessionRepo  repository.SessionRepository
	settingsRepo repository.SettingsRepository
	bus          *event.Bus
	logger       *zap.Logger
}

func NewProxyService(
	sessionRepo repository.SessionRepository,
	settingsRepo repository.SettingsRepository,
	bus *event.Bus,
	logger *zap.Logger,
) *ProxyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProxyService{
		sessionRepo:  sessionRepo,
		settingsRepo: settingsRepo,
		bus:          bus,
		logger:       logger,
	}
}

func (s *ProxyService) StartSession(ctx context.Context, userID int64, ipAddress string) (int64, error) {
	if userID <= 0 {
		return 0, ErrInvalidInput
	}

	session := &model.ProxySession{
		UserID: userID,
		Status: model.SessionStatusActive,
	}
	if trimmed := strings.TrimSpace(ipAddress); trimmed != "" {
		session.IPAddress = &trimmed
	}

	sessionID, err := s.sessionRepo.Create(ctx, session)
	if err != nil {
		return 0, err
	}

	s.publish(event.EventSessionStarted, event.SessionPayload{
		SessionID: sessionID,
		UserID:    userID,
	})
	return sessionID, nil
}

// StopSession transitions an Active session to Ended. Stopping a session that
// is already Ended (or Failed) is a silent no-op, matching the conditional
// update underneath.
func (s *ProxyService) StopSession(ctx context.Context, sessionID int64) error {
	if sessionID <= 0 {
		return ErrInvalidSessionID
	}

	if err := s.sessionRepo.End(ctx, sessionID); err != nil {
		return err
	}

	s.publish(event.EventSessionEnded, event.SessionPayload{SessionID: sessionID})
	return nil
}

func (s *ProxyService) ActiveSessions(ctx context.Context, userID int64) ([]*model.ProxySession, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.sessionRepo.FindActiveByUser(ctx, userID)
}

// Settings returns the stored row, or the default triple without persisting
// it when the user has none.
func (s *ProxyService) Settings(ctx context.Context, userID int64) (*model.ProxySettings, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}

	settings, err := s.settingsRepo.FindByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.DefaultSettings(userID), nil
	}
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *ProxyService) UpdateSettings(ctx context.Context, userID int64, update SettingsUpdate) (*model.ProxySettings, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}

	settings := model.DefaultSettings(userID)
	if update.EnablePaymentFilter != nil {
		settings.EnablePaymentFilter = *update.EnablePaymentFilter
	}
	if update.AutoApproval != nil {
		settings.AutoApproval = *update.AutoApproval
	}
	if update.BraveCertificateInstalled != nil {
		settings.BraveCertificateInstalled = *update.BraveCertificateInstalled
	}

	if err := s.settingsRepo.Upsert(ctx, settings); err != nil {
		return nil, err
	}
	return settings, nil
}

func (s *ProxyService) publish(name string, payload any) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(name, payload)
}
