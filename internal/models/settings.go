package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Settings struct {
	HandlingFeePercentage decimal.Decimal `json:"handling_fee_percentage"`
	UpdatedAt             time.Time       `json:"updated_at"`
}
