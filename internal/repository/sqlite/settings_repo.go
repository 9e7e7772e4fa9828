package sqlite

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/baharkarakas/flightsplit-backend/internal/models"
)

const settingsRowID = 1

type settingsRepo struct{ db *gorm.DB }

func (r *settingsRepo) Get(ctx context.Context) (models.Settings, error) {
	var row settingsRow
	if err := r.db.WithContext(ctx).First(&row, settingsRowID).Error; err != nil {
		return models.Settings{}, translate(err)
	}
	return models.Settings{HandlingFeePercentage: row.HandlingFeePercentage, UpdatedAt: row.UpdatedAt}, nil
}

func (r *settingsRepo) SetFeePercentage(ctx context.Context, pct decimal.Decimal) (models.Settings, error) {
	row := settingsRow{ID: settingsRowID, HandlingFeePercentage: pct, UpdatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"handling_fee_percentage", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return models.Settings{}, err
	}
	return models.Settings{HandlingFeePercentage: row.HandlingFeePercentage, UpdatedAt: row.UpdatedAt}, nil
}

func (r *settingsRepo) EnsureDefaults(ctx context.Context, pct decimal.Decimal) error {
	row := settingsRow{ID: settingsRowID, HandlingFeePercentage: pct, UpdatedAt: time.Now().UTC()}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}
