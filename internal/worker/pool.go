package worker

import (
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/baharkarakas/flightsplit-backend/internal/metrics"
)

type task func()

// Pool runs fire-and-forget jobs on a fixed set of goroutines. Submit never
// blocks the caller: when the queue is full the job is dropped and counted.
type Pool struct {
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
	jobs   chan task
	log    *slog.Logger
}

func NewPool(n, queue int, log *slog.Logger) *Pool {
	if n <= 0 {
		n = 1
	}
	if queue <= 0 {
		queue = 1024
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Pool{jobs: make(chan task, queue), log: log}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
				p.run(job)
			}
		}()
	}
	return p
}

func (p *Pool) run(job task) {
	defer func() {
		if rec := recover(); rec != nil {
			p.log.Error("worker job panicked", "panic", rec, "stack", string(debug.Stack()))
		}
	}()
	job()
}

// Submit enqueues f and reports whether it was accepted.
func (p *Pool) Submit(f func()) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		metrics.WorkerDropped.Inc()
		return false
	}
	select {
	case p.jobs <- f:
		metrics.WorkerQueueDepth.Set(float64(len(p.jobs)))
		return true
	default:
		metrics.WorkerDropped.Inc()
		return false
	}
}

// Stop rejects new jobs, drains the queue and waits for running jobs.
func (p *Pool) Stop() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.mu.Unlock()
	p.wg.Wait()
}
