// Package notify delivers offer and payment events to users. Callers treat
// delivery as best effort: a failed notification never undoes a state change.
package notify

import (
	"context"
	"log/slog"
)

type Event string

const (
	EventOfferCreated     Event = "offer_created"
	EventOfferAccepted    Event = "offer_accepted"
	EventOfferCancelled   Event = "offer_cancelled"
	EventPaymentCompleted Event = "payment_completed"
	EventPaymentFailed    Event = "payment_failed"
)

type Gateway interface {
	Notify(ctx context.Context, userID string, event Event, payload map[string]any) error
}

// LogGateway only logs. It is the default when no queue is configured.
type LogGateway struct{ log *slog.Logger }

func NewLogGateway(log *slog.Logger) *LogGateway {
	if log == nil {
		log = slog.Default()
	}
	return &LogGateway{log: log}
}

func (g *LogGateway) Notify(ctx context.Context, userID string, event Event, payload map[string]any) error {
	g.log.InfoContext(ctx, "notification", "user_id", userID, "event", string(event), "payload", payload)
	return nil
}
