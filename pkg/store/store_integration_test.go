//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/playbookrun/orchestrator/pkg/domain"
)

// startTestPostgres spins up a disposable Postgres container scoped to a
// single test, since pkg/store's migrations are cheap to rerun.
func startTestPostgres(t *testing.T) Config {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("orchestrator_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	return Config{
		Host:     host,
		Port:     port.Int(),
		User:     "test",
		Password: "test",
		Database: "orchestrator_test",
		SSLMode:  "disable",
	}
}

func TestStore_SaveAndGetResult(t *testing.T) {
	cfg := startTestPostgres(t)
	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	job := domain.Job{JobID: "job-1", TenantID: "acme", DomainID: "dom1", Kind: domain.AgentClassIngestion}
	result := domain.ExecutionResult{
		FinalStatus: domain.FinalStatusCompleted,
		ExecutionLog: []domain.ExecutionLogEntry{
			{AgentID: "triage", AgentName: "Triage", Status: domain.LogStatusSuccess, Timestamp: time.Now().UTC()},
		},
		CacheStats: domain.CacheStats{ExecutedAgents: 1, TotalAgents: 1},
	}

	require.NoError(t, s.SaveResult(context.Background(), job, result))

	got, err := s.GetResult(context.Background(), "job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.FinalStatusCompleted, got.FinalStatus)
	require.Len(t, got.ExecutionLog, 1)
	assert.Equal(t, "triage", got.ExecutionLog[0].AgentID)
}

func TestStore_DeleteOlderThan(t *testing.T) {
	cfg := startTestPostgres(t)
	s, err := Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	job := domain.Job{JobID: "old-job", TenantID: "acme", DomainID: "dom1", Kind: domain.AgentClassIngestion}
	require.NoError(t, s.SaveResult(context.Background(), job, domain.ExecutionResult{FinalStatus: domain.FinalStatusCompleted}))

	deleted, err := s.DeleteOlderThan(context.Background(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = s.GetResult(context.Background(), "old-job")
	assert.Error(t, err)
}
