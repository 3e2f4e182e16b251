// Package registry defines the read-only lookup contract the Orchestrator
// consumes to resolve agent and domain definitions, and provides a
// thread-safe in-memory implementation with system-tenant fallback.
//
// The registry is external to the orchestration core: in a full deployment
// it would be backed by a database or config-driven store. The tenant ->
// "system" fallback rule belongs to this contract, not to the orchestrator.
package registry

import (
	"context"

	"github.com/playbookrun/orchestrator/pkg/domain"
)

// Registry is the read-only lookup contract consumed by the Orchestrator.
// Implementations must be safe for concurrent use and must fall through to
// domain.SystemTenant when the primary tenant lacks the requested id.
type Registry interface {
	// GetAgent resolves an agent definition under tenantID, falling back to
	// domain.SystemTenant. Returns domain.ErrAgentNotFound if neither has it.
	GetAgent(ctx context.Context, tenantID, agentID string) (*domain.AgentDef, error)

	// GetDomain resolves a domain definition under tenantID, falling back to
	// domain.SystemTenant. Returns domain.ErrDomainNotFound if neither has it.
	GetDomain(ctx context.Context, tenantID, domainID string) (*domain.DomainDef, error)

	// GetPlaybook resolves the playbook of the given class within a domain.
	// Returns domain.ErrPlaybookNotFound if the domain has no such playbook.
	GetPlaybook(ctx context.Context, tenantID, domainID string, kind domain.AgentClass) (domain.Playbook, error)

	// ListAgents resolves a batch of agent ids under tenantID. Missing ids
	// are silently omitted from the result rather than failing the whole
	// call — used by the Orchestrator to resolve every playbook node's
	// definition up front, before any node runs.
	ListAgents(ctx context.Context, tenantID string, agentIDs []string) (map[string]*domain.AgentDef, error)
}
