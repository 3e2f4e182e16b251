// Package config implements the load → merge → validate pipeline that
// turns a tenant's orchestrator.yaml into a populated pkg/registry
// registry: seed built-ins, load and env-expand the YAML, merge tenant
// definitions on top, then validate every agent, domain, and playbook.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/playbookrun/orchestrator/pkg/domain"
	"github.com/playbookrun/orchestrator/pkg/registry"
)

// Initialize loads, validates, and returns a populated registry for the
// given tenant. configDir must contain orchestrator.yaml. This is the
// primary entry point.
//
// Steps:
//  1. Seed the registry with the built-in system-tenant agents/domains.
//  2. Load orchestrator.yaml from configDir, expanding ${VAR} references.
//  3. Merge the tenant's agents/domains on top of (not replacing) the
//     built-ins — a tenant can override an individual agent by ID without
//     redefining everything else.
//  4. Validate every agent/domain/playbook.
func Initialize(ctx context.Context, configDir, tenantID string) (*registry.InMemoryRegistry, error) {
	log := slog.With("config_dir", configDir, "tenant_id", tenantID)
	log.InfoContext(ctx, "initializing configuration")

	reg := registry.NewInMemoryRegistry()

	builtinAgents, builtinDomains := GetBuiltinConfig()
	for _, a := range builtinAgents {
		reg.PutAgent(a)
	}
	for _, d := range builtinDomains {
		reg.PutDomain(d)
	}

	cfg, err := loadYAMLConfig(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			log.InfoContext(ctx, "no tenant configuration file found, using built-ins only")
			return reg, nil
		}
		return nil, NewLoadError("orchestrator.yaml", err)
	}

	agents, domains := materialize(cfg, tenantID)
	for _, a := range agents {
		reg.PutAgent(a)
	}
	for _, d := range domains {
		reg.PutDomain(d)
	}

	if err := validateLoaded(agents, domains); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	log.InfoContext(ctx, "configuration initialized", "agents", len(agents), "domains", len(domains))
	return reg, nil
}

func loadYAMLConfig(configDir string) (*orchestratorYAMLConfig, error) {
	path := filepath.Join(configDir, "orchestrator.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	data = ExpandEnv(data)

	var cfg orchestratorYAMLConfig
	cfg.Agents = make(map[string]agentYAML)
	cfg.Domains = make(map[string]domainYAML)
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return &cfg, nil
}

func materialize(cfg *orchestratorYAMLConfig, tenantID string) ([]*domain.AgentDef, []*domain.DomainDef) {
	agents := make([]*domain.AgentDef, 0, len(cfg.Agents))
	for id, a := range cfg.Agents {
		agents = append(agents, a.toDomain(id, tenantID, false))
	}

	domains := make([]*domain.DomainDef, 0, len(cfg.Domains))
	for id, d := range cfg.Domains {
		domains = append(domains, d.toDomain(id, tenantID))
	}

	return agents, domains
}
