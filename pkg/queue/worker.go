package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/playbookrun/orchestrator/pkg/domain"
)

// Worker pulls jobs off a shared channel and drives each one through an
// Executor, one job at a time, until told to stop.
type Worker struct {
	id       string
	executor Executor
	sink     ResultSink
	deadline time.Duration
	jobs     <-chan domain.Job
	registry jobRegistry

	stopCh chan struct{}
	wg     sync.WaitGroup

	mu            sync.RWMutex
	status        WorkerStatus
	currentJobID  string
	jobsProcessed int
	lastActivity  time.Time
}

// jobRegistry is the subset of WorkerPool a Worker uses to register the
// in-flight job's cancel function for manual cancellation.
type jobRegistry interface {
	registerJob(jobID string, cancel context.CancelFunc)
	unregisterJob(jobID string)
}

func newWorker(id string, executor Executor, sink ResultSink, deadline time.Duration, jobs <-chan domain.Job, registry jobRegistry) *Worker {
	return &Worker{
		id:           id,
		executor:     executor,
		sink:         sink,
		deadline:     deadline,
		jobs:         jobs,
		registry:     registry,
		stopCh:       make(chan struct{}),
		status:       WorkerStatusIdle,
		lastActivity: time.Now(),
	}
}

// Start begins the worker's pull loop in a goroutine.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

// Stop signals the worker to exit after finishing its current job and
// waits for it to do so.
func (w *Worker) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case job, ok := <-w.jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

func (w *Worker) process(ctx context.Context, job domain.Job) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	w.registry.registerJob(job.JobID, cancel)
	defer w.registry.unregisterJob(job.JobID)

	w.setWorking(job.JobID)
	defer w.setIdle()

	result, err := w.executor.Execute(jobCtx, job, w.deadline)
	if err != nil {
		slog.Error("job execution failed", "job_id", job.JobID, "worker", w.id, "error", err)
	}

	w.sink.OnResult(job, result, err)

	w.mu.Lock()
	w.jobsProcessed++
	w.mu.Unlock()
}

func (w *Worker) setWorking(jobID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = WorkerStatusWorking
	w.currentJobID = jobID
	w.lastActivity = time.Now()
}

func (w *Worker) setIdle() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.status = WorkerStatusIdle
	w.currentJobID = ""
	w.lastActivity = time.Now()
}

// Health returns the worker's current state.
func (w *Worker) Health() WorkerHealth {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return WorkerHealth{
		ID:            w.id,
		Status:        w.status,
		CurrentJobID:  w.currentJobID,
		JobsProcessed: w.jobsProcessed,
		LastActivity:  w.lastActivity,
	}
}
