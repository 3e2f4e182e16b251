package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playbookrun/orchestrator/pkg/domain"
)

func TestInMemoryRegistry_GetAgent_TenantHit(t *testing.T) {
	r := NewInMemoryRegistry()
	r.PutAgent(&domain.AgentDef{AgentID: "a1", TenantID: "acme", AgentClass: domain.AgentClassIngestion})

	def, err := r.GetAgent(context.Background(), "acme", "a1")
	require.NoError(t, err)
	assert.Equal(t, "a1", def.AgentID)
}

func TestInMemoryRegistry_GetAgent_SystemTenantFallback(t *testing.T) {
	r := NewInMemoryRegistry()
	r.PutAgent(&domain.AgentDef{AgentID: "shared", TenantID: domain.SystemTenant, AgentClass: domain.AgentClassQuery})

	def, err := r.GetAgent(context.Background(), "acme", "shared")
	require.NoError(t, err)
	assert.Equal(t, "shared", def.AgentID)
}

func TestInMemoryRegistry_GetAgent_TenantOverridesSystem(t *testing.T) {
	r := NewInMemoryRegistry()
	r.PutAgent(&domain.AgentDef{AgentID: "a1", TenantID: domain.SystemTenant, Version: 1})
	r.PutAgent(&domain.AgentDef{AgentID: "a1", TenantID: "acme", Version: 2})

	def, err := r.GetAgent(context.Background(), "acme", "a1")
	require.NoError(t, err)
	assert.Equal(t, 2, def.Version)
}

func TestInMemoryRegistry_GetAgent_NotFound(t *testing.T) {
	r := NewInMemoryRegistry()
	_, err := r.GetAgent(context.Background(), "acme", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrAgentNotFound))
}

func TestInMemoryRegistry_GetPlaybook(t *testing.T) {
	r := NewInMemoryRegistry()
	pb := domain.Playbook{Class: domain.AgentClassIngestion, Nodes: []string{"A"}, Edges: []domain.Edge{}}
	r.PutDomain(&domain.DomainDef{DomainID: "d1", TenantID: "acme", Ingestion: pb})

	got, err := r.GetPlaybook(context.Background(), "acme", "d1", domain.AgentClassIngestion)
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, got.Nodes)

	_, err = r.GetPlaybook(context.Background(), "acme", "d1", domain.AgentClassQuery)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrPlaybookNotFound))
}

func TestInMemoryRegistry_ListAgents_OmitsMissing(t *testing.T) {
	r := NewInMemoryRegistry()
	r.PutAgent(&domain.AgentDef{AgentID: "a1", TenantID: "acme"})
	r.PutAgent(&domain.AgentDef{AgentID: "a2", TenantID: "acme"})

	got, err := r.ListAgents(context.Background(), "acme", []string{"a1", "a2", "ghost"})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "a1")
	assert.Contains(t, got, "a2")
	assert.NotContains(t, got, "ghost")
}
