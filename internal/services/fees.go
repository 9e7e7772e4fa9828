package services

import (
	"context"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// FeeProvider returns the handling-fee percentage in force right now.
type FeeProvider interface {
	FeePercentage(ctx context.Context) (decimal.Decimal, error)
}

// ComputeHandlingFee returns amount × pct / 100 rounded half away from zero to
// two decimal places.
func ComputeHandlingFee(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred).Round(2)
}
