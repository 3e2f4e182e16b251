package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playbookrun/orchestrator/pkg/domain"
)

type fakeExecutor struct {
	mu    sync.Mutex
	calls []domain.Job
	delay time.Duration
}

func (f *fakeExecutor) Execute(ctx context.Context, job domain.Job, _ time.Duration) (domain.ExecutionResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, job)
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return domain.ExecutionResult{}, ctx.Err()
		}
	}
	return domain.ExecutionResult{FinalStatus: domain.FinalStatusCompleted}, nil
}

func (f *fakeExecutor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeSink struct {
	mu      sync.Mutex
	results map[string]domain.ExecutionResult
	done    chan struct{}
}

func newFakeSink(expected int) *fakeSink {
	return &fakeSink{results: make(map[string]domain.ExecutionResult), done: make(chan struct{}, expected)}
}

func (f *fakeSink) OnResult(job domain.Job, result domain.ExecutionResult, _ error) {
	f.mu.Lock()
	f.results[job.JobID] = result
	f.mu.Unlock()
	f.done <- struct{}{}
}

func (f *fakeSink) waitFor(n int, timeout time.Duration) bool {
	for i := 0; i < n; i++ {
		select {
		case <-f.done:
		case <-time.After(timeout):
			return false
		}
	}
	return true
}

func TestWorkerPool_ProcessesSubmittedJobs(t *testing.T) {
	exec := &fakeExecutor{}
	sink := newFakeSink(3)
	pool := NewWorkerPool(Config{WorkerCount: 2, QueueDepth: 8, JobDeadline: time.Second}, exec, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	for i := 0; i < 3; i++ {
		require.NoError(t, pool.Submit(domain.Job{JobID: "job"}))
	}

	require.True(t, sink.waitFor(3, time.Second))
	assert.Equal(t, 3, exec.callCount())
}

func TestWorkerPool_SubmitFailsWhenQueueFull(t *testing.T) {
	exec := &fakeExecutor{delay: 200 * time.Millisecond}
	sink := newFakeSink(10)
	pool := NewWorkerPool(Config{WorkerCount: 1, QueueDepth: 1, JobDeadline: time.Second}, exec, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	require.NoError(t, pool.Submit(domain.Job{JobID: "a"}))
	require.NoError(t, pool.Submit(domain.Job{JobID: "b"}))
	err := pool.Submit(domain.Job{JobID: "c"})
	assert.Error(t, err)
}

func TestWorkerPool_CancelStopsInFlightJob(t *testing.T) {
	exec := &fakeExecutor{delay: 5 * time.Second}
	sink := newFakeSink(1)
	pool := NewWorkerPool(Config{WorkerCount: 1, QueueDepth: 1, JobDeadline: time.Minute}, exec, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	require.NoError(t, pool.Submit(domain.Job{JobID: "job-1"}))
	require.Eventually(t, func() bool { return pool.Cancel("job-1") }, time.Second, time.Millisecond)

	require.True(t, sink.waitFor(1, time.Second))
}

func TestWorkerPool_HealthReportsWorkerCount(t *testing.T) {
	exec := &fakeExecutor{}
	sink := newFakeSink(1)
	pool := NewWorkerPool(Config{WorkerCount: 3, QueueDepth: 8, JobDeadline: time.Second}, exec, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	health := pool.Health()
	assert.Equal(t, 3, health.TotalWorkers)
}
