package postgres

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/baharkarakas/flightsplit-backend/internal/repository"
)

func NewRepositories(pool *pgxpool.Pool) repository.Repositories {
	return repository.Repositories{
		Offers:       &offersRepo{pool},
		Transactions: &transactionsRepo{pool},
		Settings:     &settingsRepo{pool},
		Users:        &usersRepo{pool},
		AuditLogs:    &auditLogsRepo{pool},
	}
}
