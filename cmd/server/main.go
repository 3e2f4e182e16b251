// Command server runs the playbook orchestrator: it loads tenant
// configuration, wires the registry, invoker, and DAG executor into a
// worker pool, and exposes job submission and status over HTTP.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/playbookrun/orchestrator/pkg/api"
	"github.com/playbookrun/orchestrator/pkg/cleanup"
	"github.com/playbookrun/orchestrator/pkg/config"
	"github.com/playbookrun/orchestrator/pkg/domain"
	"github.com/playbookrun/orchestrator/pkg/invoker"
	"github.com/playbookrun/orchestrator/pkg/llmprovider"
	"github.com/playbookrun/orchestrator/pkg/orchestrator"
	"github.com/playbookrun/orchestrator/pkg/queue"
	"github.com/playbookrun/orchestrator/pkg/status"
	"github.com/playbookrun/orchestrator/pkg/store"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(parsed)
		}
	}
	return defaultValue
}

// executorAdapter bridges the queue package's Executor interface to an
// *orchestrator.Orchestrator, and resultSink (below) satisfies its
// ResultSink interface by persisting to a *store.Store — both kept here
// rather than in either package so neither depends on the other.
type executorAdapter struct {
	orch *orchestrator.Orchestrator
}

func (e *executorAdapter) Execute(ctx context.Context, job domain.Job, deadline time.Duration) (domain.ExecutionResult, error) {
	return e.orch.Execute(ctx, job, deadline)
}

type resultSink struct {
	st *store.Store
}

func (s *resultSink) OnResult(job domain.Job, result domain.ExecutionResult, err error) {
	if err != nil {
		slog.Error("job finished with error", "job_id", job.JobID, "error", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if saveErr := s.st.SaveResult(ctx, job, result); saveErr != nil {
		slog.Error("failed to persist execution result", "job_id", job.JobID, "error", saveErr)
	}
}

func main() {
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./deploy/config"),
		"Path to tenant configuration directory")
	tenantID := flag.String("tenant-id", getEnv("TENANT_ID", domain.SystemTenant), "Tenant ID to load")
	flag.Parse()

	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		log.Printf("warning: could not load %s: %v", envPath, err)
		log.Printf("continuing with existing environment variables")
	} else {
		log.Printf("loaded environment from %s", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	ginMode := getEnv("GIN_MODE", "release")
	gin.SetMode(ginMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := config.Initialize(ctx, *configDir, *tenantID)
	if err != nil {
		log.Fatalf("failed to initialize configuration: %v", err)
	}

	dbCfg := store.Config{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     5432,
		User:     getEnv("DB_USER", "orchestrator"),
		Password: getEnv("DB_PASSWORD", ""),
		Database: getEnv("DB_NAME", "orchestrator"),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
		MaxConns: getEnvInt32("DB_MAX_CONNS", 10),
	}
	st, err := store.Open(ctx, dbCfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer st.Close()
	log.Println("connected to postgres and applied migrations")

	provider := llmprovider.NewHTTPProvider(
		getEnv("LLM_PROVIDER_URL", "http://localhost:11434"),
		getEnv("LLM_PROVIDER_API_KEY", ""),
		getEnv("LLM_PROVIDER_MODEL", "default"),
		30*time.Second,
	)
	agentInvoker := invoker.NewLLMInvoker(provider)
	publisher := status.NewLogPublisher(slog.Default())
	orch := orchestrator.New(reg, agentInvoker, publisher)

	pool := queue.NewWorkerPool(queue.DefaultConfig(), &executorAdapter{orch: orch}, &resultSink{st: st})
	pool.Start(ctx)
	defer pool.Stop()

	retention := cleanup.DefaultRetentionConfig()
	cleanupSvc := cleanup.NewService(retention, st)
	cleanupSvc.Start(ctx)
	defer cleanupSvc.Stop()

	server := api.NewServer(pool, st)
	router := server.Router()

	log.Printf("starting playbook orchestrator")
	log.Printf("http port: %s", httpPort)
	log.Printf("config directory: %s", *configDir)
	log.Printf("http server listening on :%s", httpPort)

	if err := router.Run(":" + httpPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
