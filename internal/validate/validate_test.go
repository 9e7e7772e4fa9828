package validate

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleReq struct {
	Name   string `json:"name" validate:"required,max=5"`
	Method string `json:"payment_method" validate:"required,oneof=card crypto"`
	Date   string `json:"flight_date" validate:"omitempty,datetime=2006-01-02"`
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	errs := Struct(sampleReq{Name: "toolong", Method: "cash", Date: "2025/01/01"})
	require.Len(t, errs, 3)

	byField := map[string]string{}
	for _, e := range errs {
		byField[e.Field] = e.Msg
	}
	assert.Equal(t, "must be at most 5 characters", byField["name"])
	assert.Equal(t, "must be one of card, crypto", byField["payment_method"])
	assert.Contains(t, byField["flight_date"], "2006-01-02")
}

func TestStruct_Valid(t *testing.T) {
	assert.Nil(t, Struct(sampleReq{Name: "ok", Method: "card"}))
}

func TestDecimalHelpers(t *testing.T) {
	assert.Nil(t, Positive("amount", decimal.RequireFromString("0.01")))
	assert.NotNil(t, Positive("amount", decimal.Zero))
	assert.NotNil(t, Positive("amount", decimal.RequireFromString("-1")))

	assert.Nil(t, MaxPlaces("amount", decimal.RequireFromString("10.50"), 2))
	assert.NotNil(t, MaxPlaces("amount", decimal.RequireFromString("10.505"), 2))
}

func TestErrs_AddSkipsNil(t *testing.T) {
	var errs Errs
	errs = errs.Add(Required("a", "x"), Required("b", " "), nil)
	require.Len(t, errs, 1)
	assert.Equal(t, "b: required", errs.Error())
}
