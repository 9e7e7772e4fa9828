package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/baharkarakas/flightsplit-backend/internal/services"
)

// Reconciler is the settlement repair step; *services.OfferService implements it.
type Reconciler interface {
	ReconcileOrphans(ctx context.Context, limit int) (services.ReconcileResult, error)
}

// SchedulerConfig configures the periodic settlement reconciliation.
type SchedulerConfig struct {
	Reconciler Reconciler
	Interval   time.Duration
	BatchSize  int
	Logger     *slog.Logger
}

// Scheduler runs reconciliation once at start and then on a fixed interval.
type Scheduler struct {
	reconciler Reconciler
	interval   time.Duration
	batch      int
	log        *slog.Logger
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 100
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{reconciler: cfg.Reconciler, interval: interval, batch: batch, log: log}
}

// Start blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	if s == nil || s.reconciler == nil {
		return
	}
	s.RunOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce drains orphaned settlements batch by batch until a pass finds
// fewer than a full batch or makes no progress.
func (s *Scheduler) RunOnce(ctx context.Context) services.ReconcileResult {
	var total services.ReconcileResult
	for ctx.Err() == nil {
		res, err := s.reconciler.ReconcileOrphans(ctx, s.batch)
		if err != nil {
			s.log.Error("reconcile run failed", "err", err)
			break
		}
		total.Scanned += res.Scanned
		total.Completed += res.Completed
		total.Failed += res.Failed
		if res.Scanned < s.batch || res.Completed == 0 {
			break
		}
	}
	if total.Scanned > 0 {
		s.log.Info("reconcile run finished", "scanned", total.Scanned, "completed", total.Completed, "failed", total.Failed)
	}
	return total
}
