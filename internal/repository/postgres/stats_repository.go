package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SoumitraRai/BiFrost/internal/model"
	"github.com/SoumitraRai/BiFrost/internal/repository"
)

type statsRepository struct {
	pool *pgxpool.Pool
}

func NewStatsRepository(pool *pgxpool.Pool) repository.StatsRepository {
	return &statsRepository{pool: pool}
}

var _ repository.StatsRepository = (*statsRepository)(nil)

func (r *statsRepository) IncrementDaily(ctx context.Context, stats *model.DailyStats) error {
	if stats.Date.IsZero() {
		now := time.Now().UTC()
		stats.Date = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	}

	query := `
		INSERT INTO stats (
			user_id, date, requests_count, blocked_payments_count,
			approved_payments_count, data_transferred
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, date)
		DO UPDATE SET
			requests_count = stats.requests_count + EXCLUDED.requests_count,
			blocked_payments_count = stats.blocked_payments_count + EXCLUDED.blocked_payments_count,
			approved_payments_count = stats.approved_payments_count + EXCLUDED.approved_payments_count,
			data_transferred = stats.data_transferred + EXCLUDED.data_transferred
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		stats.UserID,
		stats.Date,
		stats.RequestsCount,
		stats.BlockedPaymentsCount,
		stats.ApprovedPaymentsCount,
		stats.DataTransferred,
	)
	return err
}

func (r *statsRepository) ListDaily(ctx context.Context, userID int64, days int) ([]*model.DailyStats, error) {
	if days <= 0 {
		days = 7
	}

	query := `
		SELECT id, user_id, date, requests_count, blocked_payments_count,
		       approved_payments_count, data_transferred
		FROM stats
		WHERE user_id = $1 AND date >= CURRENT_DATE - $2::int
		ORDER BY date ASC
	`

	rows, err := r.pool.Query(ctx, query, userID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]*model.DailyStats, 0)
	for rows.Next() {
		var row model.DailyStats
		if err := rows.Scan(
			&row.ID,
			&row.UserID,
			&row.Date,
			&row.RequestsCount,
			&row.BlockedPaymentsCount,
			&row.ApprovedPaymentsCount,
			&row.DataTransferred,
		); err != nil {
			return nil, err
		}
		stats = append(stats, &row)
	}
	return stats, rows.Err()
}

func (r *statsRepository) ListMonthly(ctx context.Context, userID int64) ([]*model.DailyStats, error) {
	query := `
		SELECT date_trunc('month', date)::date AS month,
		       SUM(requests_count),
		       SUM(blocked_payments_count),
		       SUM(approved_payments_count),
		       SUM(data_transferred)
		FROM stats
		WHERE user_id = $1 AND date >= CURRENT_DATE - INTERVAL '12 months'
		GROUP BY date_trunc('month', date)
		ORDER BY month ASC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make([]*model.DailyStats, 0)
	for rows.Next() {
		row := model.DailyStats{UserID: userID}
		if err := rows.Scan(
			&row.Date,
			&row.RequestsCount,
			&row.BlockedPaymentsCount,
			&row.ApprovedPaymentsCount,
			&row.DataTransferred,
		); err != nil {
			return nil, err
		}
		stats = append(stats, &row)
	}
	return stats, rows.Err()
}
