package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SoumitraRai/BiFrost/internal/model"
	"github.com/SoumitraRai/BiFrost/internal/repository"
)

type settingsRepository struct {
	pool *pgxpool.Pool
}

func NewSettingsRepository(pool *pgxpool.Pool) repository.SettingsRepository {
	return &settingsRepository{pool: pool}
}

var _ repository.SettingsRepository = (*settingsRepository)(nil)

func (r *settingsRepository) FindByUser(ctx context.Context, userID int64) (*model.ProxySettings, error) {
	query := `
		SELECT id, user_id, enable_payment_filter, auto_approval,
		       brave_certificate_installed, last_updated
		FROM proxy_settings
		WHERE user_id = $1
	`

	var settings model.ProxySettings
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&settings.ID,
		&settings.UserID,
		&settings.EnablePaymentFilter,
		&settings.AutoApproval,
		&settings.BraveCertificateInstalled,
		&settings.LastUpdated,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, settings *model.ProxySettings) error {
	query := `
		INSERT INTO proxy_settings (
			user_id, enable_payment_filter, auto_approval,
			brave_certificate_installed, last_updated
		)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (user_id)
		DO UPDATE SET
			enable_payment_filter = EXCLUDED.enable_payment_filter,
			auto_approval = EXCLUDED.auto_approval,
			brave_certificate_installed = EXCLUDED.brave_certificate_installed,
			last_updated = NOW()
	`

	_, err := r.pool.Exec(
		ctx,
		query,
		settings.UserID,
		settings.EnablePaymentFilter,
		settings.AutoApproval,
		settings.BraveCertificateInstalled,
	)
	return err
}
