// Package store provides Postgres-backed persistence for finished job
// executions, built directly on pgx/v5 plus golang-migrate rather than an
// ORM — see DESIGN.md for the full rationale.
package store

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres" // registers the "postgres://" migrate driver
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/playbookrun/orchestrator/pkg/domain"
)

//go:embed migrations
var migrationsFS embed.FS

// Config holds the connection settings for the execution-result store.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns int32
}

// Store persists domain.ExecutionResult rows keyed by job ID.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to Postgres, applies pending migrations, and returns a
// ready-to-use Store.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(dsn); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// SaveResult persists a finished execution result for job. Called once per
// job by the Orchestrator's caller, never by the Orchestrator itself — the
// core DAG executor has no persistence dependency of its own.
func (s *Store) SaveResult(ctx context.Context, job domain.Job, result domain.ExecutionResult) error {
	logJSON, err := json.Marshal(result.ExecutionLog)
	if err != nil {
		return fmt.Errorf("marshal execution log: %w", err)
	}
	statsJSON, err := json.Marshal(result.CacheStats)
	if err != nil {
		return fmt.Errorf("marshal cache stats: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO execution_results (job_id, tenant_id, domain_id, kind, final_status, execution_log, cache_stats)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (job_id) DO UPDATE SET
			final_status = EXCLUDED.final_status,
			execution_log = EXCLUDED.execution_log,
			cache_stats = EXCLUDED.cache_stats`,
		job.JobID, job.TenantID, job.DomainID, string(job.Kind), string(result.FinalStatus), logJSON, statsJSON,
	)
	if err != nil {
		return fmt.Errorf("insert execution result: %w", err)
	}
	return nil
}

// GetResult fetches a previously saved execution result by job ID.
func (s *Store) GetResult(ctx context.Context, jobID string) (domain.ExecutionResult, error) {
	var finalStatus string
	var logJSON, statsJSON []byte

	err := s.pool.QueryRow(ctx, `
		SELECT final_status, execution_log, cache_stats
		FROM execution_results WHERE job_id = $1`, jobID,
	).Scan(&finalStatus, &logJSON, &statsJSON)
	if err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("query execution result: %w", err)
	}

	var result domain.ExecutionResult
	result.FinalStatus = domain.FinalStatus(finalStatus)
	if err := json.Unmarshal(logJSON, &result.ExecutionLog); err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("unmarshal execution log: %w", err)
	}
	if err := json.Unmarshal(statsJSON, &result.CacheStats); err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("unmarshal cache stats: %w", err)
	}
	return result, nil
}

// DeleteOlderThan removes execution results created before cutoff, used by
// pkg/cleanup's retention sweep.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM execution_results WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired execution results: %w", err)
	}
	return tag.RowsAffected(), nil
}

func runMigrations(dsn string) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}
	defer func() { _ = sourceDriver.Close() }()

	m, err := migrate.NewWithSourceInstance("iofs", sourceDriver, dsn)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
