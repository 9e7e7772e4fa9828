package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/flightsplit-backend/internal/models"
)

type settingsRepo struct{ pool *pgxpool.Pool }

func (r *settingsRepo) Get(ctx context.Context) (models.Settings, error) {
	var s models.Settings
	err := r.pool.QueryRow(ctx,
		`SELECT handling_fee_percentage, updated_at FROM app_settings WHERE id = 1`,
	).Scan(&s.HandlingFeePercentage, &s.UpdatedAt)
	return s, translate(err)
}

func (r *settingsRepo) SetFeePercentage(ctx context.Context, pct decimal.Decimal) (models.Settings, error) {
	var s models.Settings
	err := r.pool.QueryRow(ctx,
		`INSERT INTO app_settings (id, handling_fee_percentage, updated_at) VALUES (1, $1, now())
		 ON CONFLICT (id) DO UPDATE SET handling_fee_percentage = EXCLUDED.handling_fee_percentage, updated_at = now()
		 RETURNING handling_fee_percentage, updated_at`,
		pct,
	).Scan(&s.HandlingFeePercentage, &s.UpdatedAt)
	return s, translate(err)
}

func (r *settingsRepo) EnsureDefaults(ctx context.Context, pct decimal.Decimal) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO app_settings (id, handling_fee_percentage) VALUES (1, $1) ON CONFLICT (id) DO NOTHING`, pct)
	return err
}
