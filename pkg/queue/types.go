// Package queue dispatches submitted jobs to a pool of workers that each
// drive a job through the Orchestrator.
package queue

import (
	"context"
	"time"

	"github.com/playbookrun/orchestrator/pkg/domain"
)

// Executor runs a single job to completion and returns its result. The
// concrete implementation in cmd/server wraps an *orchestrator.Orchestrator;
// persistence (pkg/store) goes through ResultSink. Both are interfaces here
// so the queue package has no direct dependency on either package.
type Executor interface {
	Execute(ctx context.Context, job domain.Job, deadline time.Duration) (domain.ExecutionResult, error)
}

// ResultSink is notified once a job finishes, successfully or not.
type ResultSink interface {
	OnResult(job domain.Job, result domain.ExecutionResult, err error)
}

// WorkerStatus is a worker's current activity.
type WorkerStatus string

const (
	WorkerStatusIdle    WorkerStatus = "idle"
	WorkerStatusWorking WorkerStatus = "working"
)

// WorkerHealth reports one worker's current state.
type WorkerHealth struct {
	ID                string       `json:"id"`
	Status            WorkerStatus `json:"status"`
	CurrentJobID      string       `json:"current_job_id,omitempty"`
	JobsProcessed     int          `json:"jobs_processed"`
	LastActivity      time.Time    `json:"last_activity"`
}

// PoolHealth summarizes the worker pool's health.
type PoolHealth struct {
	IsHealthy     bool           `json:"is_healthy"`
	QueueDepth    int            `json:"queue_depth"`
	ActiveWorkers int            `json:"active_workers"`
	TotalWorkers  int            `json:"total_workers"`
	WorkerStats   []WorkerHealth `json:"worker_stats"`
}
