package repository

import (
	"context"
	"errors"

	"github.com/SoumitraRai/BiFrost/internal/model"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type UserRepository interface {
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
}

type SessionRepository interface {
	Create(ctx context.Context, session *model.ProxySession) (int64, error)
	// End moves an Active session to Ended and stamps end_time. Sessions that
	// are already Ended or Failed are left untouched and no error is returned.
	End(ctx context.Context, sessionID int64) error
	FindActiveByUser(ctx context.Context, userID int64) ([]*model.ProxySession, error)
}

type SettingsRepository interface {
	FindByUser(ctx context.Context, userID int64) (*model.ProxySettings, error)
	Upsert(ctx context.Context, settings *model.ProxySettings) error
}

type TrafficRepository interface {
	Create(ctx context.Context, log *model.TrafficLog) (int64, error)
	ListBySession(ctx context.Context, sessionID int64) ([]*model.TrafficLog, error)
	ListPaymentsByUser(ctx context.Context, userID int64, limit int) ([]*model.TrafficLog, error)
}

type StatsRepository interface {
	// IncrementDaily upserts the (user_id, date) row, adding the counter
	// values instead of overwriting them.
	IncrementDaily(ctx context.Context, stats *model.DailyStats) error
	ListDaily(ctx context.Context, userID int64, days int) ([]*model.DailyStats, error)
	ListMonthly(ctx context.Context, userID int64) ([]*model.DailyStats, error)
}
