package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/flightsplit-backend/internal/models"
)

type usersRepo struct{ pool *pgxpool.Pool }

func (r *usersRepo) GetByID(ctx context.Context, id string) (models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx,
		`SELECT id, display_name, email, phone, created_at FROM users WHERE id=$1`, id,
	).Scan(&u.ID, &u.DisplayName, &u.Email, &u.Phone, &u.CreatedAt)
	return u, translate(err)
}
