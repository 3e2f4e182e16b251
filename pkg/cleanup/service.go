// Package cleanup provides data retention for finished job executions.
package cleanup

import (
	"context"
	"log/slog"
	"time"
)

// ResultDeleter is the subset of pkg/store.Store the cleanup service needs,
// kept as an interface so tests can substitute an in-memory fake.
type ResultDeleter interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionConfig controls how long finished execution results are kept.
type RetentionConfig struct {
	ResultRetentionDays int
	CleanupInterval     time.Duration
}

// DefaultRetentionConfig returns sensible defaults: 30 days of execution
// history, swept once an hour.
func DefaultRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		ResultRetentionDays: 30,
		CleanupInterval:     time.Hour,
	}
}

// Service periodically deletes execution results older than the
// configured retention window. All operations are idempotent and safe to
// run from multiple replicas.
type Service struct {
	config  *RetentionConfig
	results ResultDeleter

	cancel context.CancelFunc
	done   chan struct{}
}

// NewService creates a new cleanup service.
func NewService(cfg *RetentionConfig, results ResultDeleter) *Service {
	return &Service{config: cfg, results: results}
}

// Start launches the background cleanup loop.
func (s *Service) Start(ctx context.Context) {
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.run(ctx)

	slog.Info("cleanup service started",
		"result_retention_days", s.config.ResultRetentionDays,
		"interval", s.config.CleanupInterval)
}

// Stop signals the cleanup loop to exit and waits for it to finish.
func (s *Service) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
	slog.Info("cleanup service stopped")
}

func (s *Service) run(ctx context.Context) {
	defer close(s.done)

	s.sweep(ctx)

	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	cutoff := time.Now().AddDate(0, 0, -s.config.ResultRetentionDays)
	count, err := s.results.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error("retention sweep failed", "error", err)
		return
	}
	if count > 0 {
		slog.Info("retention: deleted expired execution results", "count", count)
	}
}
