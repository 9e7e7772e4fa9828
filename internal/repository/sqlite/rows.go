package sqlite

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/baharkarakas/flightsplit-backend/internal/models"
)

// Amounts are stored as TEXT so values round-trip exactly; range filters cast
// them to REAL.

type userRow struct {
	ID          string `gorm:"primaryKey"`
	DisplayName string `gorm:"not null;default:''"`
	Email       string `gorm:"not null;default:''"`
	Phone       *string
	CreatedAt   time.Time
}

func (userRow) TableName() string { return "users" }

func (r userRow) toModel() models.User {
	return models.User{ID: r.ID, DisplayName: r.DisplayName, Email: r.Email, Phone: r.Phone, CreatedAt: r.CreatedAt}
}

type offerRow struct {
	ID                   string          `gorm:"primaryKey"`
	OwnerUserID          string          `gorm:"not null;index;check:offers_matched_iff_taken,(matched_user_id IS NOT NULL) = (status IN ('accepted','completed'))"`
	DepartureLocation    string          `gorm:"not null"`
	ArrivalLocation      string          `gorm:"not null"`
	FlightDate           time.Time       `gorm:"not null;index"`
	TotalFlightCost      decimal.Decimal `gorm:"type:text;not null;check:offers_total_positive,CAST(total_flight_cost AS REAL) > 0"`
	RequestedShareAmount decimal.Decimal `gorm:"type:text;not null;check:offers_share_within_total,CAST(requested_share_amount AS REAL) > 0 AND CAST(requested_share_amount AS REAL) <= CAST(total_flight_cost AS REAL)"`
	Status               string          `gorm:"not null;index;check:offers_status_known,status IN ('open','accepted','completed','cancelled')"`
	MatchedUserID        *string         `gorm:"check:offers_matched_not_owner,matched_user_id IS NULL OR matched_user_id <> owner_user_id"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

func (offerRow) TableName() string { return "offers" }

func newOfferRow(o models.Offer) offerRow {
	return offerRow{
		ID:                   o.ID,
		OwnerUserID:          o.OwnerUserID,
		DepartureLocation:    o.DepartureLocation,
		ArrivalLocation:      o.ArrivalLocation,
		FlightDate:           o.FlightDate.UTC(),
		TotalFlightCost:      o.TotalFlightCost,
		RequestedShareAmount: o.RequestedShareAmount,
		Status:               string(o.Status),
		MatchedUserID:        o.MatchedUserID,
		CreatedAt:            o.CreatedAt.UTC(),
		UpdatedAt:            o.UpdatedAt.UTC(),
	}
}

func (r offerRow) toModel() models.Offer {
	return models.Offer{
		ID:                   r.ID,
		OwnerUserID:          r.OwnerUserID,
		DepartureLocation:    r.DepartureLocation,
		ArrivalLocation:      r.ArrivalLocation,
		FlightDate:           r.FlightDate,
		TotalFlightCost:      r.TotalFlightCost,
		RequestedShareAmount: r.RequestedShareAmount,
		Status:               models.OfferStatus(r.Status),
		MatchedUserID:        r.MatchedUserID,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
	}
}

type transactionRow struct {
	ID                   string          `gorm:"primaryKey"`
	OfferID              string          `gorm:"not null;index"`
	PayerUserID          string          `gorm:"not null;index"`
	RecipientUserID      string          `gorm:"not null;index;check:transactions_distinct_parties,payer_user_id <> recipient_user_id"`
	Amount               decimal.Decimal `gorm:"type:text;not null"`
	HandlingFee          decimal.Decimal `gorm:"type:text;not null"`
	PaymentMethod        string          `gorm:"not null"`
	PaymentStatus        string          `gorm:"not null;index"`
	TransactionReference *string
	TransactionDate      time.Time `gorm:"not null;index"`
}

func (transactionRow) TableName() string { return "transactions" }

func newTransactionRow(t models.Transaction) transactionRow {
	return transactionRow{
		ID:                   t.ID,
		OfferID:              t.OfferID,
		PayerUserID:          t.PayerUserID,
		RecipientUserID:      t.RecipientUserID,
		Amount:               t.Amount,
		HandlingFee:          t.HandlingFee,
		PaymentMethod:        string(t.PaymentMethod),
		PaymentStatus:        string(t.PaymentStatus),
		TransactionReference: t.TransactionReference,
		TransactionDate:      t.TransactionDate.UTC(),
	}
}

func (r transactionRow) toModel() models.Transaction {
	return models.Transaction{
		ID:                   r.ID,
		OfferID:              r.OfferID,
		PayerUserID:          r.PayerUserID,
		RecipientUserID:      r.RecipientUserID,
		Amount:               r.Amount,
		HandlingFee:          r.HandlingFee,
		PaymentMethod:        models.PaymentMethod(r.PaymentMethod),
		PaymentStatus:        models.PaymentStatus(r.PaymentStatus),
		TransactionReference: r.TransactionReference,
		TransactionDate:      r.TransactionDate,
	}
}

type settingsRow struct {
	ID                    int             `gorm:"primaryKey;autoIncrement:false"`
	HandlingFeePercentage decimal.Decimal `gorm:"type:text;not null"`
	UpdatedAt             time.Time
}

func (settingsRow) TableName() string { return "app_settings" }

type auditLogRow struct {
	ID         string         `gorm:"primaryKey"`
	EntityType string         `gorm:"not null;index:audit_logs_entity"`
	EntityID   string         `gorm:"not null;index:audit_logs_entity"`
	Action     string         `gorm:"not null"`
	ActorID    string         `gorm:"not null;default:''"`
	Details    map[string]any `gorm:"serializer:json"`
	CreatedAt  time.Time
}

func (auditLogRow) TableName() string { return "audit_logs" }
