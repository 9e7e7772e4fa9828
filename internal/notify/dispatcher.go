package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"

	"github.com/baharkarakas/flightsplit-backend/internal/metrics"
	"github.com/baharkarakas/flightsplit-backend/internal/repository"
)

const defaultMaxTries = 3

type DispatcherConfig struct {
	Redis      redis.Cmdable
	Queue      string
	Users      repository.Users
	Senders    []Sender
	MaxTries   int
	RetryDelay time.Duration
	PopTimeout time.Duration
	Logger     *slog.Logger
}

// Dispatcher consumes the queue filled by QueueGateway and delivers each job
// through every channel the recipient can be reached on. Failed jobs are
// retried up to MaxTries and then parked on "<queue>:failed".
type Dispatcher struct {
	rdb        redis.Cmdable
	queue      string
	users      repository.Users
	senders    []Sender
	maxTries   int
	retryDelay time.Duration
	popTimeout time.Duration
	log        *slog.Logger
}

func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	d := &Dispatcher{
		rdb:        cfg.Redis,
		queue:      cfg.Queue,
		users:      cfg.Users,
		senders:    cfg.Senders,
		maxTries:   cfg.MaxTries,
		retryDelay: cfg.RetryDelay,
		popTimeout: cfg.PopTimeout,
		log:        cfg.Logger,
	}
	if d.queue == "" {
		d.queue = DefaultQueue
	}
	if d.maxTries <= 0 {
		d.maxTries = defaultMaxTries
	}
	if d.popTimeout <= 0 {
		d.popTimeout = 2 * time.Second
	}
	if d.log == nil {
		d.log = slog.Default()
	}
	return d
}

func (d *Dispatcher) FailedQueue() string { return d.queue + ":failed" }

// Start consumes jobs until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.log.Info("notification dispatcher started", "queue", d.queue)
	for {
		select {
		case <-ctx.Done():
			d.log.Info("notification dispatcher stopped")
			return
		default:
			d.ProcessNext(ctx)
		}
	}
}

// ProcessNext waits up to the pop timeout for one job and handles it. It
// reports whether a job was taken off the queue.
func (d *Dispatcher) ProcessNext(ctx context.Context) bool {
	result, err := d.rdb.BRPop(ctx, d.popTimeout, d.queue).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			d.log.Warn("notification queue pop failed", "err", err)
			// back off so a dead redis does not spin the loop
			select {
			case <-ctx.Done():
			case <-time.After(d.popTimeout):
			}
		}
		return false
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		d.log.Error("bad notification payload", "err", err)
		return true
	}

	job.Tries++
	if err := d.deliver(ctx, job); err != nil {
		d.retryOrPark(ctx, job, err)
	}
	return true
}

func (d *Dispatcher) deliver(ctx context.Context, job Job) error {
	user, err := d.users.GetByID(ctx, job.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			d.log.Warn("notification recipient unknown, dropping", "user_id", job.UserID, "event", string(job.Event))
			return nil
		}
		return errors.Wrap(err, "load recipient")
	}

	msg := Render(user.Name(), job.Event, job.Payload)
	var errs error
	delivered := 0
	for _, s := range d.senders {
		if !s.CanReach(user) {
			continue
		}
		if err := s.Send(ctx, user, msg); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "%s", s.Channel()))
			continue
		}
		delivered++
	}
	if errs != nil && delivered == 0 {
		return errs
	}
	if errs != nil {
		d.log.Warn("notification partially delivered", "user_id", job.UserID, "event", string(job.Event), "err", errs)
	}
	return nil
}

func (d *Dispatcher) retryOrPark(ctx context.Context, job Job, cause error) {
	if job.Tries < d.maxTries {
		d.log.Warn("notification delivery failed, retrying", "user_id", job.UserID, "event", string(job.Event), "attempt", job.Tries, "err", cause)
		if d.retryDelay > 0 {
			select {
			case <-ctx.Done():
			case <-time.After(d.retryDelay):
			}
		}
		data, _ := json.Marshal(job)
		if err := d.rdb.LPush(context.WithoutCancel(ctx), d.queue, data).Err(); err != nil {
			d.log.Error("notification requeue failed", "err", err)
		}
		return
	}

	metrics.NotificationsFailed.WithLabelValues(string(job.Event)).Inc()
	d.log.Error("notification failed permanently", "user_id", job.UserID, "event", string(job.Event), "tries", job.Tries, "err", cause)
	data, _ := json.Marshal(map[string]any{
		"job":   job,
		"error": cause.Error(),
		"time":  time.Now().UTC(),
	})
	if err := d.rdb.LPush(context.WithoutCancel(ctx), d.FailedQueue(), data).Err(); err != nil {
		d.log.Error("notification park failed", "err", err)
	}
}
