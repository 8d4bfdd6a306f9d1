package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/SoumitraRai/BiFrost/internal/repository"
)

var (
	ErrNotFound  = repository.ErrNotFound
	ErrDuplicate = repository.ErrDuplicate
)

const (
	defaultPaymentLogLimit = 50
	maxPaymentLogLimit     = 500
)

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultPaymentLogLimit
	}
	if limit > maxPaymentLogLimit {
		return maxPaymentLogLimit
	}
	return limit
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
