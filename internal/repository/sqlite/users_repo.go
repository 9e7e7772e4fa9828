package sqlite

import (
	"context"

	"gorm.io/gorm"

	"github.com/baharkarakas/flightsplit-backend/internal/models"
)

// UsersRepo is exported because local runs and tests seed contact records
// directly; in production the auth system owns the table.
type UsersRepo struct{ db *gorm.DB }

func NewUsersRepo(db *gorm.DB) *UsersRepo { return &UsersRepo{db} }

func (r *UsersRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	var row userRow
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return models.User{}, translate(err)
	}
	return row.toModel(), nil
}

func (r *UsersRepo) Upsert(ctx context.Context, u models.User) error {
	row := userRow{ID: u.ID, DisplayName: u.DisplayName, Email: u.Email, Phone: u.Phone, CreatedAt: u.CreatedAt}
	return r.db.WithContext(ctx).Save(&row).Error
}
