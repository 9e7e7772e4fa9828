package postgres

import (
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/baharkarakas/flightsplit-backend/internal/repository"
)

const pgUniqueViolation = "23505"

// translate maps driver errors onto the repository sentinels and leaves
// everything else untouched.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		return errors.Mark(errors.Wrapf(err, "unique %s", pgErr.ConstraintName), repository.ErrConflict)
	}
	return err
}
