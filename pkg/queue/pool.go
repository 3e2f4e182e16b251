package queue

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playbookrun/orchestrator/pkg/domain"
)

// Config controls how many workers run and how long a single job may take.
type Config struct {
	WorkerCount int
	QueueDepth  int
	JobDeadline time.Duration
}

// DefaultConfig returns sensible defaults: 4 workers, a 256-deep backlog,
// 60s per job.
func DefaultConfig() Config {
	return Config{WorkerCount: 4, QueueDepth: 256, JobDeadline: 60 * time.Second}
}

// WorkerPool dispatches submitted jobs to a fixed-size pool of workers,
// each driving a job through an Executor and reporting to a ResultSink.
type WorkerPool struct {
	config   Config
	executor Executor
	sink     ResultSink
	jobs     chan domain.Job
	workers  []*Worker

	mu            sync.RWMutex
	cancelFuncs   map[string]context.CancelFunc
	started       bool
}

// NewWorkerPool creates a new worker pool. It does not start workers —
// call Start.
func NewWorkerPool(cfg Config, executor Executor, sink ResultSink) *WorkerPool {
	return &WorkerPool{
		config:      cfg,
		executor:    executor,
		sink:        sink,
		jobs:        make(chan domain.Job, cfg.QueueDepth),
		cancelFuncs: make(map[string]context.CancelFunc),
	}
}

// Start spawns the configured number of worker goroutines. Safe to call
// once; subsequent calls are no-ops.
func (p *WorkerPool) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	slog.Info("starting worker pool", "worker_count", p.config.WorkerCount)
	for i := 0; i < p.config.WorkerCount; i++ {
		w := newWorker(fmt.Sprintf("worker-%d", i), p.executor, p.sink, p.config.JobDeadline, p.jobs, p)
		p.workers = append(p.workers, w)
		w.Start(ctx)
	}
}

// Stop signals every worker to finish its current job and exit, then
// waits for them all.
func (p *WorkerPool) Stop() {
	for _, w := range p.workers {
		w.Stop()
	}
}

// Submit enqueues a job for processing. Returns an error if the queue is
// full — callers should treat this as backpressure, not a job failure.
func (p *WorkerPool) Submit(job domain.Job) error {
	select {
	case p.jobs <- job:
		return nil
	default:
		return fmt.Errorf("job queue is full (depth %d)", p.config.QueueDepth)
	}
}

// Cancel triggers context cancellation for an in-flight job on this pool.
// Returns true if the job was found and cancelled here.
func (p *WorkerPool) Cancel(jobID string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if cancel, ok := p.cancelFuncs[jobID]; ok {
		cancel()
		return true
	}
	return false
}

func (p *WorkerPool) registerJob(jobID string, cancel context.CancelFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancelFuncs[jobID] = cancel
}

func (p *WorkerPool) unregisterJob(jobID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cancelFuncs, jobID)
}

// Health reports the pool's current state.
func (p *WorkerPool) Health() PoolHealth {
	stats := make([]WorkerHealth, len(p.workers))
	active := 0
	for i, w := range p.workers {
		h := w.Health()
		stats[i] = h
		if h.Status == WorkerStatusWorking {
			active++
		}
	}
	return PoolHealth{
		IsHealthy:     true,
		QueueDepth:    len(p.jobs),
		ActiveWorkers: active,
		TotalWorkers:  len(p.workers),
		WorkerStats:   stats,
	}
}
