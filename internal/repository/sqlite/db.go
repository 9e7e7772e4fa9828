// Package sqlite is the embedded storage backend. It backs local single-node
// runs and gives the test suites a real SQL engine without external services.
package sqlite

import (
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/baharkarakas/flightsplit-backend/internal/repository"
)

// Open connects to the database at dsn and migrates the schema. SQLite
// serialises writers anyway, so the pool is pinned to one connection to keep
// in-memory databases alive and to avoid SQLITE_BUSY between our own goroutines.
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenInMemory returns a fresh private in-memory database.
func OpenInMemory() (*gorm.DB, error) {
	return Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
}

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&userRow{}, &offerRow{}, &transactionRow{}, &settingsRow{}, &auditLogRow{}); err != nil {
		return errors.Wrap(err, "automigrate")
	}
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS transactions_one_completed_per_offer
		ON transactions (offer_id) WHERE payment_status = 'completed'`).Error
}

func NewRepositories(db *gorm.DB) repository.Repositories {
	return repository.Repositories{
		Offers:       &offersRepo{db},
		Transactions: &transactionsRepo{db},
		Settings:     &settingsRepo{db},
		Users:        &UsersRepo{db},
		AuditLogs:    &auditLogsRepo{db},
	}
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return repository.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return errors.Mark(err, repository.ErrConflict)
	}
	return err
}
