package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SoumitraRai/BiFrost/internal/model"
	"github.com/SoumitraRai/BiFrost/internal/repository"
)

type sessionRepository struct {
	pool *pgxpool.Pool
}

func NewSessionRepository(pool *pgxpool.Pool) repository.SessionRepository {
	return &sessionRepository{pool: pool}
}

var _ repository.SessionRepository = (*sessionRepository)(nil)

const sessionColumns = `id, user_id, start_time, end_time, ip_address, status`

func (r *sessionRepository) Create(ctx context.Context, session *model.ProxySession) (int64, error) {
	if session.Status == "" {
		session.Status = model.SessionStatusActive
	}
	if session.StartTime.IsZero() {
		session.StartTime = time.Now().UTC()
	}

	query := `
		INSERT INTO proxy_sessions (user_id, start_time, ip_address, status)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.pool.QueryRow(
		ctx,
		query,
		session.UserID,
		session.StartTime,
		session.IPAddress,
		session.Status,
	).Scan(&session.ID)
	if err != nil {
		return 0, err
	}
	return session.ID, nil
}

func (r *sessionRepository) End(ctx context.Context, sessionID int64) error {
	// Conditional on Active so repeated stops and stops of Failed sessions
	// are silent no-ops rather than status rewrites.
	query := `
		UPDATE proxy_sessions
		SET status = $2, end_time = NOW()
		WHERE id = $1 AND status = $3
	`

	_, err := r.pool.Exec(ctx, query, sessionID, model.SessionStatusEnded, model.SessionStatusActive)
	return err
}

func (r *sessionRepository) FindActiveByUser(ctx context.Context, userID int64) ([]*model.ProxySession, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM proxy_sessions
		WHERE user_id = $1 AND status = $2
		ORDER BY start_time DESC
	`

	rows, err := r.pool.Query(ctx, query, userID, model.SessionStatusActive)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]*model.ProxySession, 0)
	for rows.Next() {
		var session model.ProxySession
		if err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.StartTime,
			&session.EndTime,
			&session.IPAddress,
			&session.Status,
		); err != nil {
			return nil, err
		}
		sessions = append(sessions, &session)
	}
	return sessions, rows.Err()
}
