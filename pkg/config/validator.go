package config

import (
	"fmt"

	"github.com/playbookrun/orchestrator/pkg/dag"
	"github.com/playbookrun/orchestrator/pkg/domain"
)

// validateLoaded checks the tenant's newly loaded agents and domains:
// classes must be recognized, output schemas may declare at most
// domain.MaxOutputSchemaKeys fields, every agent's dependencies must pass
// dag.ValidateAgentDependencies, and every non-empty playbook must pass
// dag.ValidatePlaybook. Both checks run against the loaded agents only; the
// built-in system-tenant agents already in the registry are not part of that
// set, and empty playbooks are skipped.
func validateLoaded(agents []*domain.AgentDef, domains []*domain.DomainDef) error {
	byID := make(map[string]*domain.AgentDef, len(agents))
	for _, a := range agents {
		if !a.AgentClass.IsValid() {
			return NewValidationError("agent", a.AgentID, "class", fmt.Errorf("%w: %q", ErrInvalidValue, a.AgentClass))
		}
		if len(a.OutputSchema) > domain.MaxOutputSchemaKeys {
			return NewValidationError("agent", a.AgentID, "output_schema", fmt.Errorf("%w: %d keys declared, max is %d", ErrInvalidValue, len(a.OutputSchema), domain.MaxOutputSchemaKeys))
		}
		byID[a.AgentID] = a
	}

	for _, a := range agents {
		if err := dag.ValidateAgentDependencies(a.AgentID, a.Dependencies, byID); err != nil {
			return NewValidationError("agent", a.AgentID, "dependencies", err)
		}
	}

	for _, d := range domains {
		for _, pb := range []struct {
			class domain.AgentClass
			pb    domain.Playbook
		}{
			{domain.AgentClassIngestion, d.Ingestion},
			{domain.AgentClassQuery, d.Query},
			{domain.AgentClassManagement, d.Management},
		} {
			if len(pb.pb.Nodes) == 0 {
				continue
			}
			if err := dag.ValidatePlaybook(pb.pb, pb.class, byID); err != nil {
				return NewValidationError("domain", d.DomainID, string(pb.class), err)
			}
		}
	}

	return nil
}
