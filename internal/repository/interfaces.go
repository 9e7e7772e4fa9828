package repository

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"

	"github.com/baharkarakas/flightsplit-backend/internal/models"
)

var (
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict means a conditional write lost: the row was not in the
	// expected state, or a uniqueness rule rejected the insert.
	ErrConflict = errors.New("repository: conflict")
	// ErrIllegalTransition means the requested from -> to pair is not part of
	// the offer state machine. No write is attempted.
	ErrIllegalTransition = errors.New("repository: illegal offer transition")
)

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

type OfferFilter struct {
	Departure string
	Arrival   string
	DateFrom  *time.Time
	DateTo    *time.Time
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	// ViewerID is excluded from the open listing, or is the owner when Mine is set.
	ViewerID string
	Mine     bool
	Limit    int
	Offset   int
}

// Normalize clamps paging to sane bounds.
func (f *OfferFilter) Normalize() {
	f.Limit, f.Offset = ClampPage(f.Limit, f.Offset)
}

func ClampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// OfferMutation carries the optional field changes applied together with a status transition.
type OfferMutation struct {
	MatchedUserID *string
}

// CheckTransition guards every TryTransition implementation.
func CheckTransition(from, to models.OfferStatus) error {
	switch {
	case !from.Valid() || !to.Valid():
		return errors.Wrapf(ErrIllegalTransition, "unknown status in %q -> %q", from, to)
	case from.Terminal():
		return errors.Wrapf(ErrIllegalTransition, "%s is final", from)
	case !models.CanTransition(from, to):
		return errors.Wrapf(ErrIllegalTransition, "%s -> %s", from, to)
	}
	return nil
}

type Offers interface {
	Create(ctx context.Context, o models.Offer) (models.Offer, error)
	FindByID(ctx context.Context, id string) (models.Offer, error)
	List(ctx context.Context, f OfferFilter) ([]models.Offer, error)
	// TryTransition moves the offer from `from` to `to` in one atomic conditional
	// write. It returns ErrIllegalTransition for pairs models.CanTransition
	// rejects, ErrConflict when the stored status is not `from` and
	// ErrNotFound when the offer does not exist.
	TryTransition(ctx context.Context, id string, from, to models.OfferStatus, m OfferMutation) (models.Offer, error)
}

type Transactions interface {
	// Append inserts a new ledger row. A second completed row for the same offer
	// fails with ErrConflict.
	Append(ctx context.Context, tx models.Transaction) (models.Transaction, error)
	FindByID(ctx context.Context, id string) (models.Transaction, error)
	FindCompletedForOffer(ctx context.Context, offerID string) (models.Transaction, error)
	// MarkCompleted is idempotent: an already completed row is returned unchanged.
	MarkCompleted(ctx context.Context, id string) (models.Transaction, error)
	MarkFailed(ctx context.Context, id string) (models.Transaction, error)
	ListForUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error)
	ListForOffer(ctx context.Context, offerID string) ([]models.Transaction, error)
	// ListOrphanedCompleted returns completed rows whose offer is still accepted.
	ListOrphanedCompleted(ctx context.Context, limit int) ([]models.Transaction, error)
}

type Settings interface {
	Get(ctx context.Context) (models.Settings, error)
	SetFeePercentage(ctx context.Context, pct decimal.Decimal) (models.Settings, error)
	// EnsureDefaults seeds the settings row if it is missing.
	EnsureDefaults(ctx context.Context, pct decimal.Decimal) error
}

type Users interface {
	GetByID(ctx context.Context, id string) (models.User, error)
}

type AuditLogs interface {
	Create(ctx context.Context, l models.AuditLog) error
}

type Repositories struct {
	Offers       Offers
	Transactions Transactions
	Settings     Settings
	Users        Users
	AuditLogs    AuditLogs
}
