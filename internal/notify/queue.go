package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
)

const DefaultQueue = "notifications"

// Job is the queued form of a notification.
type Job struct {
	UserID  string         `json:"user_id"`
	Event   Event          `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
	Tries   int            `json:"tries"`
	Created time.Time      `json:"created"`
}

// QueueGateway pushes jobs onto a Redis list consumed by Dispatcher.
type QueueGateway struct {
	rdb   redis.Cmdable
	queue string
	now   func() time.Time
}

func NewQueueGateway(rdb redis.Cmdable, queue string) *QueueGateway {
	if queue == "" {
		queue = DefaultQueue
	}
	return &QueueGateway{rdb: rdb, queue: queue, now: time.Now}
}

func (g *QueueGateway) Notify(ctx context.Context, userID string, event Event, payload map[string]any) error {
	data, err := json.Marshal(Job{UserID: userID, Event: event, Payload: payload, Created: g.now().UTC()})
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}
	if err := g.rdb.LPush(ctx, g.queue, data).Err(); err != nil {
		return errors.Wrapf(err, "queue %s for %s", event, userID)
	}
	return nil
}
