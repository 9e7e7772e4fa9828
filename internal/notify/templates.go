package notify

import (
	"fmt"
	"strings"
)

type Message struct {
	Subject string
	Body    string
}

// Render turns an event into human readable text. Unknown events still
// produce a generic message so nothing is silently lost.
func Render(name string, event Event, payload map[string]any) Message {
	route := fmt.Sprintf("%v → %v", payload["departure_location"], payload["arrival_location"])
	date := fmt.Sprint(payload["flight_date"])

	var subject, line string
	switch event {
	case EventOfferCreated:
		subject = "Your flight share is listed"
		line = fmt.Sprintf("Your share of %v for %s on %s is now visible to other travellers.", payload["requested_share_amount"], route, date)
	case EventOfferAccepted:
		subject = "Someone accepted your flight share"
		line = fmt.Sprintf("Your share for %s on %s was accepted. Payment of %v is pending.", route, date, payload["requested_share_amount"])
	case EventOfferCancelled:
		subject = "Flight share cancelled"
		line = fmt.Sprintf("Your share for %s on %s has been cancelled.", route, date)
	case EventPaymentCompleted:
		subject = "Payment completed"
		line = fmt.Sprintf("Payment of %v (fee %v) for %s on %s is complete.", payload["amount"], payload["handling_fee"], route, date)
	case EventPaymentFailed:
		subject = "Payment failed"
		line = fmt.Sprintf("Payment of %v for %s on %s did not go through. The seat is still reserved for you.", payload["amount"], route, date)
	default:
		subject = "Flight share update"
		line = "There is an update on one of your flight shares."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n%s\n", name, line)
	if id, ok := payload["offer_id"]; ok {
		fmt.Fprintf(&b, "\nOffer: %v\n", id)
	}
	b.WriteString("\n- FlightSplit")
	return Message{Subject: subject, Body: b.String()}
}
