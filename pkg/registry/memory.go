package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/playbookrun/orchestrator/pkg/domain"
)

// InMemoryRegistry is a thread-safe, map-backed Registry implementation
// keyed by (tenantID, id). It is the registry used by tests and by the demo
// cmd/server entrypoint; production deployments typically back Registry
// with a database instead.
type InMemoryRegistry struct {
	mu      sync.RWMutex
	agents  map[string]map[string]*domain.AgentDef  // tenantID -> agentID -> def
	domains map[string]map[string]*domain.DomainDef // tenantID -> domainID -> def
}

// NewInMemoryRegistry creates an empty registry. Use PutAgent/PutDomain to
// populate it.
func NewInMemoryRegistry() *InMemoryRegistry {
	return &InMemoryRegistry{
		agents:  make(map[string]map[string]*domain.AgentDef),
		domains: make(map[string]map[string]*domain.DomainDef),
	}
}

// PutAgent registers (or overwrites) an agent definition under its TenantID.
func (r *InMemoryRegistry) PutAgent(def *domain.AgentDef) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant := def.TenantID
	if tenant == "" {
		tenant = domain.SystemTenant
	}
	if _, ok := r.agents[tenant]; !ok {
		r.agents[tenant] = make(map[string]*domain.AgentDef)
	}
	r.agents[tenant][def.AgentID] = def
}

// PutDomain registers (or overwrites) a domain definition under its TenantID.
func (r *InMemoryRegistry) PutDomain(def *domain.DomainDef) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tenant := def.TenantID
	if tenant == "" {
		tenant = domain.SystemTenant
	}
	if _, ok := r.domains[tenant]; !ok {
		r.domains[tenant] = make(map[string]*domain.DomainDef)
	}
	r.domains[tenant][def.DomainID] = def
}

// GetAgent implements Registry.
func (r *InMemoryRegistry) GetAgent(_ context.Context, tenantID, agentID string) (*domain.AgentDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if def, ok := r.lookupAgent(tenantID, agentID); ok {
		return def, nil
	}
	return nil, fmt.Errorf("%w: %s (tenant %s)", domain.ErrAgentNotFound, agentID, tenantID)
}

// lookupAgent assumes the read lock is held.
func (r *InMemoryRegistry) lookupAgent(tenantID, agentID string) (*domain.AgentDef, bool) {
	if byID, ok := r.agents[tenantID]; ok {
		if def, ok := byID[agentID]; ok {
			return def, true
		}
	}
	if tenantID != domain.SystemTenant {
		if byID, ok := r.agents[domain.SystemTenant]; ok {
			if def, ok := byID[agentID]; ok {
				return def, true
			}
		}
	}
	return nil, false
}

// GetDomain implements Registry.
func (r *InMemoryRegistry) GetDomain(_ context.Context, tenantID, domainID string) (*domain.DomainDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if byID, ok := r.domains[tenantID]; ok {
		if def, ok := byID[domainID]; ok {
			return def, nil
		}
	}
	if tenantID != domain.SystemTenant {
		if byID, ok := r.domains[domain.SystemTenant]; ok {
			if def, ok := byID[domainID]; ok {
				return def, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s (tenant %s)", domain.ErrDomainNotFound, domainID, tenantID)
}

// GetPlaybook implements Registry.
func (r *InMemoryRegistry) GetPlaybook(ctx context.Context, tenantID, domainID string, kind domain.AgentClass) (domain.Playbook, error) {
	def, err := r.GetDomain(ctx, tenantID, domainID)
	if err != nil {
		return domain.Playbook{}, err
	}
	pb := def.Playbook(kind)
	if pb.Nodes == nil {
		return domain.Playbook{}, fmt.Errorf("%w: domain %s has no %s playbook", domain.ErrPlaybookNotFound, domainID, kind)
	}
	return pb, nil
}

// ListAgents implements Registry. Ids with no match (under tenantID or the
// system tenant) are silently omitted rather than failing the whole call.
func (r *InMemoryRegistry) ListAgents(_ context.Context, tenantID string, agentIDs []string) (map[string]*domain.AgentDef, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*domain.AgentDef, len(agentIDs))
	for _, id := range agentIDs {
		if def, ok := r.lookupAgent(tenantID, id); ok {
			result[id] = def
		}
	}
	return result, nil
}
