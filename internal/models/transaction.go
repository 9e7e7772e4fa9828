package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCard   PaymentMethod = "card"
	PaymentCrypto PaymentMethod = "crypto"
)

func (m PaymentMethod) Valid() bool { return m == PaymentCard || m == PaymentCrypto }

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentPending || s == PaymentCompleted || s == PaymentFailed
}

// Transaction is one settlement attempt for an accepted offer. Amount and
// HandlingFee are fixed when the row is written.
type Transaction struct {
	ID                   string          `json:"id"`
	OfferID              string          `json:"offer_id"`
	PayerUserID          string          `json:"payer_user_id"`
	RecipientUserID      string          `json:"recipient_user_id"`
	Amount               decimal.Decimal `json:"amount"`
	HandlingFee          decimal.Decimal `json:"handling_fee"`
	PaymentMethod        PaymentMethod   `json:"payment_method"`
	PaymentStatus        PaymentStatus   `json:"payment_status"`
	TransactionReference *string         `json:"transaction_reference,omitempty"`
	TransactionDate      time.Time       `json:"transaction_date"`
}
