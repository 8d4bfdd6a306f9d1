package jobs

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/SoumitraRai/BiFrost/internal/metrics"
)

const sessionGaugeTimeout = 5 * time.Second

// SessionJob keeps the active-session gauge current. It queries the pool
// directly; the count spans all users, which no repository method needs.
type SessionJob struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func NewSessionJob(pool *pgxpool.Pool, logger *zap.Logger) *SessionJob {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionJob{pool: pool, logger: logger}
}

func (j *SessionJob) RefreshActiveGauge() {
	if j == nil || j.pool == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sessionGaugeTimeout)
	defer cancel()

	var total int64
	err := j.pool.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM proxy_sessions WHERE status = 'Active'`,
	).Scan(&total)
	if err != nil {
		j.logger.Warn("collect active session gauge failed", zap.Error(err))
		return
	}
	metrics.SetActiveSessions(total)
}
