// Package api exposes the job-submission and status HTTP surface over a
// queue.WorkerPool and a store.Store. See DESIGN.md for how this package
// is grounded.
package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/playbookrun/orchestrator/pkg/domain"
	"github.com/playbookrun/orchestrator/pkg/queue"
)

// JobSubmitter enqueues a job for asynchronous execution. Satisfied by
// *queue.WorkerPool.
type JobSubmitter interface {
	Submit(job domain.Job) error
	Cancel(jobID string) bool
	Health() queue.PoolHealth
}

// ResultFetcher resolves a persisted execution result by job ID. Satisfied
// by *store.Store.
type ResultFetcher interface {
	GetResult(ctx context.Context, jobID string) (domain.ExecutionResult, error)
}

// Server wires the HTTP surface together.
type Server struct {
	submitter JobSubmitter
	results   ResultFetcher
}

// NewServer creates a new API server.
func NewServer(submitter JobSubmitter, results ResultFetcher) *Server {
	return &Server{submitter: submitter, results: results}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.Default()
	router.GET("/health", s.Health)

	v1 := router.Group("/api/v1")
	v1.POST("/jobs", s.SubmitJob)
	v1.GET("/jobs/:id", s.GetJob)
	v1.POST("/jobs/:id/cancel", s.CancelJob)

	return router
}

// SubmitJobRequest is the request body for POST /api/v1/jobs.
type SubmitJobRequest struct {
	TenantID string              `json:"tenant_id" binding:"required"`
	DomainID string              `json:"domain_id" binding:"required"`
	Kind     domain.AgentClass   `json:"kind" binding:"required"`
	UserID   string              `json:"user_id"`
	Input    map[string]any      `json:"input"`
}

// SubmitJob handles POST /api/v1/jobs.
func (s *Server) SubmitJob(c *gin.Context) {
	var req SubmitJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Kind.IsValid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job kind: " + string(req.Kind)})
		return
	}

	job := domain.Job{
		JobID:    uuid.NewString(),
		Kind:     req.Kind,
		TenantID: req.TenantID,
		UserID:   req.UserID,
		DomainID: req.DomainID,
		Input:    req.Input,
	}

	if err := s.submitter.Submit(job); err != nil {
		log.Printf("submit job %s: %v", job.JobID, err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"job_id": job.JobID, "status": "queued"})
}

// GetJob handles GET /api/v1/jobs/:id.
func (s *Server) GetJob(c *gin.Context) {
	jobID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	result, err := s.results.GetResult(ctx, jobID)
	if err != nil {
		// The store only holds finished jobs, so a miss here means either an
		// unknown id or a job still in flight; callers poll until it appears.
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found or still processing"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// CancelJob handles POST /api/v1/jobs/:id/cancel.
func (s *Server) CancelJob(c *gin.Context) {
	jobID := c.Param("id")
	if !s.submitter.Cancel(jobID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found or already finished"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"job_id": jobID, "status": "cancelling"})
}

// Health handles GET /health.
func (s *Server) Health(c *gin.Context) {
	health := s.submitter.Health()
	status := http.StatusOK
	if !health.IsHealthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status": "ok",
		"workers": gin.H{
			"total":       health.TotalWorkers,
			"active":      health.ActiveWorkers,
			"queue_depth": health.QueueDepth,
		},
	})
}
