package config

import "github.com/playbookrun/orchestrator/pkg/domain"

// GetBuiltinConfig returns the built-in, system-tenant agents and domains
// shipped with the orchestrator. These are seeded into the registry before
// any tenant YAML is loaded, so a tenant that defines no agent or domain of
// the same id reaches them through InMemoryRegistry's tenant→system
// fallback. The fallback is per domain id: a tenant domain with the same id
// replaces the built-in one whole, and playbooks it leaves empty are not
// inherited from the system tenant.
func GetBuiltinConfig() ([]*domain.AgentDef, []*domain.DomainDef) {
	triage := &domain.AgentDef{
		AgentID:    "triage",
		AgentName:  "Triage",
		TenantID:   domain.SystemTenant,
		AgentClass: domain.AgentClassIngestion,
		SystemPrompt: "You triage an incoming free-form report. Classify its severity and topic, " +
			"and produce a short summary other agents can build on.",
		OutputSchema: map[string]string{
			"severity":   "string",
			"summary":    "string",
			"reasoning":  "string",
			"confidence": "number",
		},
		Enabled:   true,
		Version:   1,
		IsBuiltin: true,
	}

	enrich := &domain.AgentDef{
		AgentID:      "enrich",
		AgentName:    "Enrich",
		TenantID:     domain.SystemTenant,
		AgentClass:   domain.AgentClassIngestion,
		SystemPrompt: "Given the triage summary, extract structured entities (hosts, services, users) mentioned in the report.",
		Dependencies: []string{"triage"},
		OutputSchema: map[string]string{
			"entities":   "array",
			"reasoning":  "string",
			"confidence": "number",
		},
		Enabled:   true,
		Version:   1,
		IsBuiltin: true,
	}

	answer := &domain.AgentDef{
		AgentID:      "answer",
		AgentName:    "Answer",
		TenantID:     domain.SystemTenant,
		AgentClass:   domain.AgentClassQuery,
		SystemPrompt: "Answer the user's natural-language question against the domain's ingested knowledge.",
		OutputSchema: map[string]string{
			"answer":     "string",
			"reasoning":  "string",
			"confidence": "number",
		},
		Enabled:   true,
		Version:   1,
		IsBuiltin: true,
	}

	retire := &domain.AgentDef{
		AgentID:      "retire",
		AgentName:    "Retire",
		TenantID:     domain.SystemTenant,
		AgentClass:   domain.AgentClassManagement,
		SystemPrompt: "Decide whether a piece of ingested knowledge is stale and should be retired.",
		OutputSchema: map[string]string{
			"retire":     "bool",
			"reasoning":  "string",
			"confidence": "number",
		},
		Enabled:   true,
		Version:   1,
		IsBuiltin: true,
	}

	agents := []*domain.AgentDef{triage, enrich, answer, retire}

	general := &domain.DomainDef{
		DomainID: "general",
		TenantID: domain.SystemTenant,
		Ingestion: domain.Playbook{
			Class: domain.AgentClassIngestion,
			Nodes: []string{"triage", "enrich"},
			Edges: []domain.Edge{{From: "triage", To: "enrich"}},
		},
		Query: domain.Playbook{
			Class: domain.AgentClassQuery,
			Nodes: []string{"answer"},
		},
		Management: domain.Playbook{
			Class: domain.AgentClassManagement,
			Nodes: []string{"retire"},
		},
	}

	return agents, []*domain.DomainDef{general}
}
