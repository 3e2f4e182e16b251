// Package domain defines the shared data model for playbook orchestration:
// agents, domains, playbooks, jobs, and the artifacts an execution produces.
// Types here are immutable snapshots once handed to the orchestrator — see
// pkg/orchestrator for the component that consumes them.
package domain

import "time"

// AgentClass is the kind of job a playbook (and the agents in it) serves.
type AgentClass string

const (
	AgentClassIngestion AgentClass = "ingestion"
	AgentClassQuery     AgentClass = "query"
	AgentClassManagement AgentClass = "management"
)

// IsValid reports whether c is one of the three recognized agent classes.
func (c AgentClass) IsValid() bool {
	switch c {
	case AgentClassIngestion, AgentClassQuery, AgentClassManagement:
		return true
	default:
		return false
	}
}

// SystemTenant is the built-in tenant holding shared agents, consulted as a
// fallback whenever a lookup misses under the requesting tenant.
const SystemTenant = "system"

// MaxOutputSchemaKeys bounds the number of fields an agent may declare in
// its output schema (and, by extension, the number of keys an AgentOutput
// may carry).
const MaxOutputSchemaKeys = 5

// AgentDef is the immutable definition of one agent, as returned by the
// Registry. It never changes during a single job execution.
type AgentDef struct {
	AgentID      string
	AgentName    string
	TenantID     string
	AgentClass   AgentClass
	SystemPrompt string
	Tools        map[string]struct{}
	Dependencies []string // ordered list of agentIds this agent consumes
	OutputSchema map[string]string // field name -> declared type
	Enabled      bool
	Version      int
	IsBuiltin    bool
}

// Playbook is a DAG of agents for one job kind within a domain.
type Playbook struct {
	Class AgentClass
	Nodes []string   // agentIds, the DAG's vertex set
	Edges []Edge     // from -> to
}

// Edge is one directed dependency edge in a Playbook: From must execute
// (and be cached) before To is invoked.
type Edge struct {
	From string
	To   string
}

// DomainDef bundles the three playbooks sharing a domain id.
type DomainDef struct {
	DomainID   string
	TenantID   string
	Ingestion  Playbook
	Query      Playbook
	Management Playbook
}

// Playbook returns the playbook for the given class.
func (d DomainDef) Playbook(class AgentClass) Playbook {
	switch class {
	case AgentClassIngestion:
		return d.Ingestion
	case AgentClassQuery:
		return d.Query
	case AgentClassManagement:
		return d.Management
	default:
		return Playbook{}
	}
}

// Job is one invocation request for the Orchestrator: a playbook selection
// plus initial input and identity metadata.
type Job struct {
	JobID      string
	Kind       AgentClass
	TenantID   string
	UserID     string
	DomainID   string
	Input      map[string]any
	QueryID    string // optional, mutually exclusive with IncidentID
	IncidentID string // optional, mutually exclusive with QueryID
}

// AgentStatus is the outcome tag of a single agent invocation.
type AgentStatus string

const (
	AgentStatusSuccess AgentStatus = "success"
	AgentStatusError   AgentStatus = "error"
)

// AgentOutput is what the Agent Invoker returns for one agent call. It is
// cached by the Orchestrator for the lifetime of one job, regardless of
// Status, so dependents of a failed agent are never re-attempted.
type AgentOutput struct {
	Status       AgentStatus
	Output       map[string]any // nil when Status == error
	Reasoning    string
	Confidence   float64 // opaque; scale is a policy decision left to the caller
	ErrorMessage string   // set only when Status == error
}

// LogStatus is the status tag of one execution-log entry. It is a superset
// of AgentStatus: an orchestrator-internal node may also be "cached" or
// "skipped", statuses an agent invocation itself never reports.
type LogStatus string

const (
	LogStatusSuccess LogStatus = "success"
	LogStatusCached  LogStatus = "cached"
	LogStatusError   LogStatus = "error"
	LogStatusSkipped LogStatus = "skipped"
)

// ExecutionLogEntry is one append-only record of a node visited during a
// job. The wire shape (field names and JSON tags) is bit-exact per
// cross-implementation compatibility.
type ExecutionLogEntry struct {
	AgentID         string         `json:"agent_id"`
	AgentName       string         `json:"agent_name"`
	Status          LogStatus      `json:"status"`
	Timestamp       time.Time      `json:"timestamp"`
	Reasoning       string         `json:"reasoning"`
	Output          map[string]any `json:"output"`
	ExecutionTimeMs int            `json:"execution_time_ms"`
	ErrorMessage    string         `json:"error_message,omitempty"`
}

// FinalStatus is the terminal status of one Orchestrator.Execute call.
type FinalStatus string

const (
	FinalStatusCompleted FinalStatus = "completed"
	FinalStatusFailed    FinalStatus = "failed"
)

// CacheStats summarizes how many of a playbook's nodes were served from
// cache versus actually executed, snapshotted just before the per-job cache
// is discarded.
type CacheStats struct {
	CachedAgents   int
	ExecutedAgents int
	TotalAgents    int
}

// ExecutionResult is what Orchestrator.Execute returns.
type ExecutionResult struct {
	FinalStatus   FinalStatus
	ExecutionLog  []ExecutionLogEntry
	CacheStats    CacheStats
}
