// Package orchestrator implements the per-job DAG executor: given a
// playbook (a validated DAG of agent nodes) and a job, it walks the nodes in
// topological order, invokes each agent through an Invoker, memoizes
// per-node results within the job, fails fast and cascades skips once an
// agent errors or the job's context is cancelled, and produces a
// deterministic execution log plus live status events.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/playbookrun/orchestrator/pkg/dag"
	"github.com/playbookrun/orchestrator/pkg/domain"
	"github.com/playbookrun/orchestrator/pkg/invoker"
	"github.com/playbookrun/orchestrator/pkg/registry"
	"github.com/playbookrun/orchestrator/pkg/status"
)

// Clock abstracts time so tests can control timestamps and durations
// deterministically, an injectable clock in place of direct
// time.Now()/time.Since() calls in business logic.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Orchestrator executes playbooks against a job, one job at a time per
// Execute call. A single Orchestrator value is safe for concurrent use
// across independent jobs.
type Orchestrator struct {
	registry  registry.Registry
	invoker   invoker.Invoker
	publisher status.Publisher
	clock     Clock
	parallel  bool
}

// Option configures an Orchestrator at construction time.
type Option func(*Orchestrator)

// WithClock overrides the orchestrator's clock (tests use a fake).
func WithClock(c Clock) Option {
	return func(o *Orchestrator) { o.clock = c }
}

// WithParallelLevels enables the optional level-parallel schedule: nodes at
// the same topological level (per dag.TopologicalLevelize) execute
// concurrently instead of the default flat, one-at-a-time dag.TopologicalSort
// walk. Execution logs remain sorted by agent ID within a level regardless.
func WithParallelLevels(enabled bool) Option {
	return func(o *Orchestrator) { o.parallel = enabled }
}

// New creates an Orchestrator. reg resolves agent/playbook definitions, inv
// invokes individual agents, pub broadcasts live status events (best
// effort — a Publish failure never fails the job).
func New(reg registry.Registry, inv invoker.Invoker, pub status.Publisher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry:  reg,
		invoker:   inv,
		publisher: pub,
		clock:     realClock{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// jobCache memoizes agent outputs within a single Execute call. It is never
// shared across jobs or across Execute calls — memoization is job-scoped.
type jobCache struct {
	mu      sync.Mutex
	outputs map[string]domain.AgentOutput
}

func newJobCache() *jobCache {
	return &jobCache{outputs: make(map[string]domain.AgentOutput)}
}

func (c *jobCache) get(agentID string) (domain.AgentOutput, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out, ok := c.outputs[agentID]
	return out, ok
}

func (c *jobCache) put(agentID string, out domain.AgentOutput) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outputs[agentID] = out
}

func (c *jobCache) snapshot() map[string]domain.AgentOutput {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]domain.AgentOutput, len(c.outputs))
	for k, v := range c.outputs {
		out[k] = v
	}
	return out
}

// Execute runs job's playbook to completion and returns the execution
// result. The cache used for memoization is scoped to this single call and
// is discarded (after being snapshotted into CacheStats) on return — it is
// never reused across jobs.
//
// Cancellation: if ctx is done by the time the next node boundary is
// reached, that node and every node after it in the walk are marked skipped
// with Reasoning "Cancelled" instead of being invoked, and the job's
// FinalStatus is failed. A node already in flight when ctx is cancelled is
// still allowed to finish (the invoker itself observes ctx for per-call
// deadline/cancellation); only nodes not yet started are skip-cascaded.
func (o *Orchestrator) Execute(ctx context.Context, job domain.Job, deadline time.Duration) (domain.ExecutionResult, error) {
	playbook, err := o.registry.GetPlaybook(ctx, job.TenantID, job.DomainID, job.Kind)
	if err != nil {
		return domain.ExecutionResult{}, fmt.Errorf("resolve playbook: %w", err)
	}

	agentDefs, err := o.loadAgents(ctx, job.TenantID, playbook.Nodes)
	if err != nil {
		return domain.ExecutionResult{}, err
	}

	o.publish(status.Event{
		JobID:     job.JobID,
		UserID:    job.UserID,
		TenantID:  job.TenantID,
		Status:    status.TagLoadingAgents,
		Message:   "agents loaded, computing execution order",
		Timestamp: o.clock.Now(),
	})

	// TopologicalLevelize backs the optional parallel schedule and the
	// planning metadata below; TopologicalSort is what the default
	// sequential walk actually iterates, so two independent chains execute
	// (and log) in a single canonical id order rather than grouped by depth.
	levels, cycleErr := dag.TopologicalLevelize(playbook.Nodes, playbook.Edges)
	if cycleErr != nil {
		return domain.ExecutionResult{}, fmt.Errorf("playbook is not a valid DAG: %w", cycleErr)
	}
	order, cycleErr := dag.TopologicalSort(playbook.Nodes, playbook.Edges)
	if cycleErr != nil {
		return domain.ExecutionResult{}, fmt.Errorf("playbook is not a valid DAG: %w", cycleErr)
	}

	o.publish(status.Event{
		JobID:     job.JobID,
		UserID:    job.UserID,
		TenantID:  job.TenantID,
		Status:    status.TagAgentsLoaded,
		Message:   "playbook resolved",
		Metadata:  map[string]any{"nodes": playbook.Nodes},
		Timestamp: o.clock.Now(),
	})

	cache := newJobCache()

	var (
		log       []domain.ExecutionLogEntry
		failed    bool
		cancelled bool
		executed  int
	)

	if o.parallel {
		for _, level := range levels {
			if !cancelled && ctx.Err() != nil {
				cancelled = true
			}
			entries := o.runLevelParallel(ctx, job, level, agentDefs, cache, failed || cancelled, skipReasonFor(cancelled), deadline)
			for _, e := range entries {
				if e.Status == domain.LogStatusError {
					failed = true
				}
				if e.Status == domain.LogStatusSuccess {
					executed++
				}
			}
			log = append(log, entries...)
		}
	} else {
		for _, nodeID := range order {
			if !cancelled && ctx.Err() != nil {
				cancelled = true
			}
			entry := o.runOne(ctx, job, nodeID, agentDefs[nodeID], cache, failed || cancelled, skipReasonFor(cancelled), deadline)
			if entry.Status == domain.LogStatusError {
				failed = true
			}
			if entry.Status == domain.LogStatusSuccess {
				executed++
			}
			log = append(log, entry)
		}
	}

	finalStatus := domain.FinalStatusCompleted
	if failed || cancelled {
		finalStatus = domain.FinalStatusFailed
	}

	o.publish(status.Event{
		JobID:     job.JobID,
		UserID:    job.UserID,
		TenantID:  job.TenantID,
		Status:    terminalTagFor(finalStatus),
		Message:   string(finalStatus),
		Timestamp: o.clock.Now(),
	})

	return domain.ExecutionResult{
		FinalStatus: finalStatus,
		ExecutionLog: log,
		CacheStats: domain.CacheStats{
			ExecutedAgents: executed,
			TotalAgents:    len(playbook.Nodes),
		},
	}, nil
}

// skipReasonFor returns the reasoning text recorded against a node skipped
// because the job's context was cancelled, or "" for an ordinary
// fail-cascade skip.
func skipReasonFor(cancelled bool) string {
	if cancelled {
		return "Cancelled"
	}
	return ""
}

// terminalTagFor maps a job's terminal FinalStatus to its status event tag.
func terminalTagFor(finalStatus domain.FinalStatus) string {
	if finalStatus == domain.FinalStatusFailed {
		return status.TagError
	}
	return status.TagComplete
}

// loadAgents resolves every node in nodes to its AgentDef, tenant-scoped
// with system-tenant fallback via the registry.
func (o *Orchestrator) loadAgents(ctx context.Context, tenantID string, nodes []string) (map[string]*domain.AgentDef, error) {
	defs, err := o.registry.ListAgents(ctx, tenantID, nodes)
	if err != nil {
		return nil, fmt.Errorf("load agents: %w", err)
	}
	for _, id := range nodes {
		if _, ok := defs[id]; !ok {
			return nil, fmt.Errorf("agent %q referenced by playbook is not registered: %w", id, domain.ErrAgentNotFound)
		}
	}
	return defs, nil
}

// runOne executes (or skips) a single node and returns its log entry.
// skipCascade, once true, marks every remaining node as skipped instead of
// invoking it — the fail-fast-with-skip-cascade behavior — recording
// skipReason ("Cancelled" for a context-cancellation cascade, "" for an
// ordinary post-error cascade) as the entry's Reasoning.
func (o *Orchestrator) runOne(ctx context.Context, job domain.Job, nodeID string, agentDef *domain.AgentDef, cache *jobCache, skipCascade bool, skipReason string, deadline time.Duration) domain.ExecutionLogEntry {
	start := o.clock.Now()

	if skipCascade {
		return domain.ExecutionLogEntry{
			AgentID:   nodeID,
			AgentName: agentDef.AgentName,
			Status:    domain.LogStatusSkipped,
			Timestamp: start,
			Reasoning: skipReason,
		}
	}

	if cached, ok := cache.get(nodeID); ok {
		return logEntryFromOutput(nodeID, agentDef.AgentName, domain.LogStatusCached, cached, start, 0)
	}

	input, inputErr := buildAgentInput(job, agentDef, cache)
	if inputErr != nil {
		out := domain.AgentOutput{Status: domain.AgentStatusError, ErrorMessage: inputErr.Error()}
		cache.put(nodeID, out)
		elapsed := o.clock.Now().Sub(start)
		o.publish(status.Event{
			JobID:     job.JobID,
			UserID:    job.UserID,
			TenantID:  job.TenantID,
			AgentName: &agentDef.AgentName,
			Status:    status.TagError,
			Message:   out.ErrorMessage,
			Timestamp: o.clock.Now(),
		})
		return logEntryFromOutput(nodeID, agentDef.AgentName, domain.LogStatusError, out, start, elapsed)
	}

	o.publish(status.Event{
		JobID:     job.JobID,
		UserID:    job.UserID,
		TenantID:  job.TenantID,
		AgentName: &agentDef.AgentName,
		Status:    status.TagInvoking,
		Timestamp: start,
	})

	invokeCtx, cancel := invoker.WithDeadline(ctx, deadline)
	defer cancel()

	out := o.invoker.Invoke(invokeCtx, agentDef, input)
	cache.put(nodeID, out)

	elapsed := o.clock.Now().Sub(start)
	logStatus := domain.LogStatusSuccess
	if out.Status == domain.AgentStatusError {
		logStatus = domain.LogStatusError
	}

	o.publish(status.Event{
		JobID:     job.JobID,
		UserID:    job.UserID,
		TenantID:  job.TenantID,
		AgentName: &agentDef.AgentName,
		Status:    publishTagFor(logStatus),
		Message:   out.ErrorMessage,
		Timestamp: o.clock.Now(),
	})

	return logEntryFromOutput(nodeID, agentDef.AgentName, logStatus, out, start, elapsed)
}

// runLevelParallel executes every node in level concurrently, then returns
// their log entries sorted by agent ID for deterministic output. A
// skipCascade already in effect before the level starts propagates to every
// node in the level; a failure discovered mid-level does not abort sibling
// invocations already in flight (fail-fast applies at the next level
// boundary, not mid-level).
func (o *Orchestrator) runLevelParallel(ctx context.Context, job domain.Job, level []string, agentDefs map[string]*domain.AgentDef, cache *jobCache, skipCascade bool, skipReason string, deadline time.Duration) []domain.ExecutionLogEntry {
	entries := make([]domain.ExecutionLogEntry, len(level))
	var wg sync.WaitGroup
	for i, nodeID := range level {
		wg.Add(1)
		go func(i int, nodeID string) {
			defer wg.Done()
			entries[i] = o.runOne(ctx, job, nodeID, agentDefs[nodeID], cache, skipCascade, skipReason, deadline)
		}(i, nodeID)
	}
	wg.Wait()

	sort.Slice(entries, func(i, j int) bool { return entries[i].AgentID < entries[j].AgentID })
	return entries
}

// buildAgentInput assembles a node's consolidated input map from the job's
// raw input plus each declared dependency's already-cached output. Every id
// in agentDef.Dependencies must already be in cache by the time its
// dependent runs — the topological walk guarantees this — so a miss is not
// a normal runtime condition but an internal invariant violation, reported
// as an agent-level error rather than silently omitting the key.
func buildAgentInput(job domain.Job, agentDef *domain.AgentDef, cache *jobCache) (map[string]any, error) {
	input := make(map[string]any, len(agentDef.Dependencies)+1)
	input[invoker.RawInputKey] = job.Input
	for _, dep := range agentDef.Dependencies {
		out, ok := cache.get(dep)
		if !ok {
			return nil, fmt.Errorf("internal: dependency %s not satisfied", dep)
		}
		input[invoker.DependencyOutputKey(dep)] = out.Output
	}
	return input, nil
}

func logEntryFromOutput(agentID, agentName string, logStatus domain.LogStatus, out domain.AgentOutput, ts time.Time, elapsed time.Duration) domain.ExecutionLogEntry {
	return domain.ExecutionLogEntry{
		AgentID:         agentID,
		AgentName:       agentName,
		Status:          logStatus,
		Timestamp:       ts,
		Reasoning:       out.Reasoning,
		Output:          out.Output,
		ExecutionTimeMs: int(elapsed.Milliseconds()),
		ErrorMessage:    out.ErrorMessage,
	}
}

func publishTagFor(logStatus domain.LogStatus) string {
	if logStatus == domain.LogStatusError {
		return status.TagError
	}
	return status.TagComplete
}

// publish is best-effort: a Publisher failure is logged as a warning, never
// propagated to the caller — publishing never fails the job.
func (o *Orchestrator) publish(evt status.Event) {
	if o.publisher == nil {
		return
	}
	if err := o.publisher.Publish(evt); err != nil {
		slog.Warn("status event publish failed", "job_id", evt.JobID, "status", evt.Status, "error", err)
	}
}
