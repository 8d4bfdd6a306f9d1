package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SoumitraRai/BiFrost/internal/model"
	"github.com/SoumitraRai/BiFrost/internal/repository"
)

type trafficRepository struct {
	pool *pgxpool.Pool
}

func NewTrafficRepository(pool *pgxpool.Pool) repository.TrafficRepository {
	return &trafficRepository{pool: pool}
}

var _ repository.TrafficRepository = (*trafficRepository)(nil)

const trafficColumns = `
	id, session_id, timestamp, url, method, status_code,
	content_type, size, is_payment_related, is_approved
`

func (r *trafficRepository) Create(ctx context.Context, log *model.TrafficLog) (int64, error) {
	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO traffic_logs (
			session_id, timestamp, url, method, status_code,
			content_type, size, is_payment_related, is_approved
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		log.SessionID,
		log.Timestamp,
		log.URL,
		log.Method,
		log.StatusCode,
		log.ContentType,
		log.Size,
		log.IsPaymentRelated,
		log.IsApproved,
	).Scan(&log.ID)
	if err != nil {
		return 0, err
	}
	return log.ID, nil
}

func (r *trafficRepository) ListBySession(ctx context.Context, sessionID int64) ([]*model.TrafficLog, error) {
	query := `
		SELECT ` + trafficColumns + `
		FROM traffic_logs
		WHERE session_id = $1
		ORDER BY timestamp DESC
	`

	rows, err := r.pool.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrafficLogs(rows)
}

func (r *trafficRepository) ListPaymentsByUser(ctx context.Context, userID int64, limit int) ([]*model.TrafficLog, error) {
	query := `
		SELECT t.id, t.session_id, t.timestamp, t.url, t.method, t.status_code,
		       t.content_type, t.size, t.is_payment_related, t.is_approved
		FROM traffic_logs t
		JOIN proxy_sessions s ON t.session_id = s.id
		WHERE s.user_id = $1 AND t.is_payment_related = TRUE
		ORDER BY t.timestamp DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, userID, normalizeLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrafficLogs(rows)
}

func scanTrafficLogs(rows pgx.Rows) ([]*model.TrafficLog, error) {
	logs := make([]*model.TrafficLog, 0)
	for rows.Next() {
		var log model.TrafficLog
		if err := rows.Scan(
			&log.ID,
			&log.SessionID,
			&log.Timestamp,
			&log.URL,
			&log.Method,
			&log.StatusCode,
			&log.ContentType,
			&log.Size,
			&log.IsPaymentRelated,
			&log.IsApproved,
		); err != nil {
			return nil, err
		}
		logs = append(logs, &log)
	}
	return logs, rows.Err()
}
