package config

import "github.com/playbookrun/orchestrator/pkg/domain"

// orchestratorYAMLConfig is the top-level shape of orchestrator.yaml: the
// complete set of tenant-defined agents and domains, keyed by ID.
type orchestratorYAMLConfig struct {
	Agents  map[string]agentYAML  `yaml:"agents"`
	Domains map[string]domainYAML `yaml:"domains"`
}

// agentYAML mirrors domain.AgentDef, minus the fields the loader derives
// (TenantID comes from the load call, IsBuiltin is always false for
// user-defined agents).
type agentYAML struct {
	Name         string            `yaml:"name"`
	Class        string            `yaml:"class"`
	SystemPrompt string            `yaml:"system_prompt"`
	Tools        []string          `yaml:"tools"`
	Dependencies []string          `yaml:"dependencies"`
	OutputSchema map[string]string `yaml:"output_schema"`
	Enabled      *bool             `yaml:"enabled"`
	Version      int               `yaml:"version"`
}

func (a agentYAML) toDomain(id, tenantID string, builtin bool) *domain.AgentDef {
	enabled := true
	if a.Enabled != nil {
		enabled = *a.Enabled
	}
	version := a.Version
	if version == 0 {
		version = 1
	}
	tools := make(map[string]struct{}, len(a.Tools))
	for _, tool := range a.Tools {
		tools[tool] = struct{}{}
	}
	return &domain.AgentDef{
		AgentID:      id,
		AgentName:    a.Name,
		TenantID:     tenantID,
		AgentClass:   domain.AgentClass(a.Class),
		SystemPrompt: a.SystemPrompt,
		Tools:        tools,
		Dependencies: a.Dependencies,
		OutputSchema: a.OutputSchema,
		Enabled:      enabled,
		Version:      version,
		IsBuiltin:    builtin,
	}
}

// playbookYAML mirrors domain.Playbook.
type playbookYAML struct {
	Nodes []string    `yaml:"nodes"`
	Edges []edgeYAML  `yaml:"edges"`
}

type edgeYAML struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

func (p playbookYAML) toDomain(class domain.AgentClass) domain.Playbook {
	edges := make([]domain.Edge, 0, len(p.Edges))
	for _, e := range p.Edges {
		edges = append(edges, domain.Edge{From: e.From, To: e.To})
	}
	return domain.Playbook{Class: class, Nodes: p.Nodes, Edges: edges}
}

// domainYAML mirrors domain.DomainDef.
type domainYAML struct {
	Ingestion  playbookYAML `yaml:"ingestion"`
	Query      playbookYAML `yaml:"query"`
	Management playbookYAML `yaml:"management"`
}

func (d domainYAML) toDomain(id, tenantID string) *domain.DomainDef {
	return &domain.DomainDef{
		DomainID:   id,
		TenantID:   tenantID,
		Ingestion:  d.Ingestion.toDomain(domain.AgentClassIngestion),
		Query:      d.Query.toDomain(domain.AgentClassQuery),
		Management: d.Management.toDomain(domain.AgentClassManagement),
	}
}
