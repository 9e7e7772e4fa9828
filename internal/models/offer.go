package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OfferStatus string

const (
	OfferOpen      OfferStatus = "open"
	OfferAccepted  OfferStatus = "accepted"
	OfferCompleted OfferStatus = "completed"
	OfferCancelled OfferStatus = "cancelled"
)

// allowedTransitions is the whole offer state machine. Anything not listed is rejected.
var allowedTransitions = map[OfferStatus][]OfferStatus{
	OfferOpen:     {OfferAccepted, OfferCancelled},
	OfferAccepted: {OfferCompleted},
}

// CanTransition reports whether from -> to is a legal offer transition.
func CanTransition(from, to OfferStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transition can leave the status.
func (s OfferStatus) Terminal() bool {
	return len(allowedTransitions[s]) == 0
}

func (s OfferStatus) Valid() bool {
	switch s {
	case OfferOpen, OfferAccepted, OfferCompleted, OfferCancelled:
		return true
	}
	return false
}

type Offer struct {
	ID                   string          `json:"id"`
	OwnerUserID          string          `json:"owner_user_id"`
	DepartureLocation    string          `json:"departure_location"`
	ArrivalLocation      string          `json:"arrival_location"`
	FlightDate           time.Time       `json:"flight_date"`
	TotalFlightCost      decimal.Decimal `json:"total_flight_cost"`
	RequestedShareAmount decimal.Decimal `json:"requested_share_amount"`
	Status               OfferStatus     `json:"status"`
	MatchedUserID        *string         `json:"matched_user_id,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// MatchedTo reports whether the offer was accepted by userID.
func (o Offer) MatchedTo(userID string) bool {
	return o.MatchedUserID != nil && *o.MatchedUserID == userID
}
