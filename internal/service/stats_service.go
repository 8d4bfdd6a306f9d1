package service

import (
	"context"
	"time"

	"github.com/SoumitraRai/BiFrost/internal/model"
	"github.com/SoumitraRai/BiFrost/internal/repository"
)

const defaultDailyWindow = 7

// StatsIncrement is one additive contribution to a user's counters. Date
// defaults to today (UTC) when zero.
type StatsIncrement struct {
	UserID                int64
	Date                  time.Time
	RequestsCount         int64
	BlockedPaymentsCount  int64
	ApprovedPaymentsCount int64
	DataTransferred       int64
}

type StatsService struct {
	statsRepo repository.StatsRepository
}

func NewStatsService(statsRepo repository.StatsRepository) *StatsService {
	return &StatsService{statsRepo: statsRepo}
}

func (s *StatsService) Record(ctx context.Context, inc StatsIncrement) error {
	if inc.UserID <= 0 {
		return ErrInvalidInput
	}

	return s.statsRepo.IncrementDaily(ctx, &model.DailyStats{
		UserID:                inc.UserID,
		Date:                  inc.Date,
		RequestsCount:         inc.RequestsCount,
		BlockedPaymentsCount:  inc.BlockedPaymentsCount,
		ApprovedPaymentsCount: inc.ApprovedPaymentsCount,
		DataTransferred:       inc.DataTransferred,
	})
}

func (s *StatsService) Daily(ctx context.Context, userID int64, days int) ([]*model.DailyStats, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}
	if days <= 0 {
		days = defaultDailyWindow
	}
	return s.statsRepo.ListDaily(ctx, userID, days)
}

func (s *StatsService) Monthly(ctx context.Context, userID int64) ([]*model.DailyStats, error) {
	if userID <= 0 {
		return nil, ErrInvalidInput
	}
	return s.statsRepo.ListMonthly(ctx, userID)
}
