package dag

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playbookrun/orchestrator/pkg/domain"
)

func agentDef(id string, class domain.AgentClass, deps ...string) *domain.AgentDef {
	return &domain.AgentDef{AgentID: id, AgentClass: class, Dependencies: deps, Enabled: true}
}

func TestValidateAgentDependencies(t *testing.T) {
	tests := []struct {
		name         string
		selfID       string
		proposedDeps []string
		allAgents    map[string]*domain.AgentDef
		wantErr      error
	}{
		{
			name:         "no deps always valid",
			selfID:       "A",
			proposedDeps: nil,
			allAgents:    map[string]*domain.AgentDef{},
			wantErr:      nil,
		},
		{
			name:         "unknown dep rejected",
			selfID:       "A",
			proposedDeps: []string{"missing"},
			allAgents:    map[string]*domain.AgentDef{},
			wantErr:      ErrInvalidDependency,
		},
		{
			name:         "self dependency is a cycle",
			selfID:       "A",
			proposedDeps: []string{"A"},
			allAgents:    map[string]*domain.AgentDef{"A": agentDef("A", domain.AgentClassIngestion)},
			wantErr:      ErrCyclicDependency,
		},
		{
			name:         "introducing a two-node cycle is rejected",
			selfID:       "A",
			proposedDeps: []string{"B"},
			allAgents: map[string]*domain.AgentDef{
				"B": agentDef("B", domain.AgentClassIngestion, "A"),
			},
			wantErr: ErrCyclicDependency,
		},
		{
			name:         "valid linear dependency accepted",
			selfID:       "C",
			proposedDeps: []string{"B"},
			allAgents: map[string]*domain.AgentDef{
				"A": agentDef("A", domain.AgentClassIngestion),
				"B": agentDef("B", domain.AgentClassIngestion, "A"),
			},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAgentDependencies(tt.selfID, tt.proposedDeps, tt.allAgents)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want wrapping %v", err, tt.wantErr)
		})
	}
}

func TestValidateAgentDependenciesCycleHintNamesClosingEdge(t *testing.T) {
	allAgents := map[string]*domain.AgentDef{
		"B": agentDef("B", domain.AgentClassIngestion, "A"),
	}
	err := ValidateAgentDependencies("A", []string{"B"}, allAgents)
	require.Error(t, err)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Hint, "B -> A")
}

func TestValidatePlaybook(t *testing.T) {
	agents := map[string]*domain.AgentDef{
		"A": agentDef("A", domain.AgentClassIngestion),
		"B": agentDef("B", domain.AgentClassIngestion),
		"C": agentDef("C", domain.AgentClassIngestion),
		"Q": agentDef("Q", domain.AgentClassQuery),
	}

	tests := []struct {
		name    string
		pb      domain.Playbook
		class   domain.AgentClass
		wantErr error
	}{
		{
			name:    "missing nodes rejected",
			pb:      domain.Playbook{Nodes: nil, Edges: []domain.Edge{}},
			class:   domain.AgentClassIngestion,
			wantErr: ErrMissingGraph,
		},
		{
			name:    "missing edges rejected",
			pb:      domain.Playbook{Nodes: []string{"A"}, Edges: nil},
			class:   domain.AgentClassIngestion,
			wantErr: ErrMissingGraph,
		},
		{
			name:    "empty node set rejected",
			pb:      domain.Playbook{Nodes: []string{}, Edges: []domain.Edge{}},
			class:   domain.AgentClassIngestion,
			wantErr: ErrEmptyGraph,
		},
		{
			name:    "unknown node rejected",
			pb:      domain.Playbook{Nodes: []string{"ghost"}, Edges: []domain.Edge{}},
			class:   domain.AgentClassIngestion,
			wantErr: ErrUnknownNode,
		},
		{
			name:    "class mismatch rejected",
			pb:      domain.Playbook{Nodes: []string{"Q"}, Edges: []domain.Edge{}},
			class:   domain.AgentClassIngestion,
			wantErr: ErrClassMismatch,
		},
		{
			name: "dangling edge rejected",
			pb: domain.Playbook{
				Nodes: []string{"A", "B"},
				Edges: []domain.Edge{{From: "A", To: "ghost"}},
			},
			class:   domain.AgentClassIngestion,
			wantErr: ErrDanglingEdge,
		},
		{
			name: "multi-parent rejected",
			pb: domain.Playbook{
				Nodes: []string{"A", "B", "C"},
				Edges: []domain.Edge{{From: "A", To: "C"}, {From: "B", To: "C"}},
			},
			class:   domain.AgentClassIngestion,
			wantErr: ErrMultiParent,
		},
		{
			name: "cycle rejected",
			pb: domain.Playbook{
				Nodes: []string{"A", "B"},
				Edges: []domain.Edge{{From: "A", To: "B"}, {From: "B", To: "A"}},
			},
			class:   domain.AgentClassIngestion,
			wantErr: ErrCycleInPlaybook,
		},
		{
			name: "valid linear playbook accepted",
			pb: domain.Playbook{
				Nodes: []string{"A", "B", "C"},
				Edges: []domain.Edge{{From: "A", To: "B"}, {From: "B", To: "C"}},
			},
			class:   domain.AgentClassIngestion,
			wantErr: nil,
		},
		{
			name: "fan-out playbook (single parent per node) accepted",
			pb: domain.Playbook{
				Nodes: []string{"A", "B", "C"},
				Edges: []domain.Edge{{From: "A", To: "B"}, {From: "A", To: "C"}},
			},
			class:   domain.AgentClassIngestion,
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePlaybook(tt.pb, tt.class, agents)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want wrapping %v", err, tt.wantErr)
		})
	}
}

func TestTopologicalLevelize(t *testing.T) {
	nodes := []string{"A", "B", "C", "D"}
	edges := []domain.Edge{{From: "A", To: "B"}, {From: "A", To: "C"}, {From: "B", To: "D"}, {From: "C", To: "D"}}

	levels, err := TopologicalLevelize(nodes, edges)
	require.NoError(t, err)
	require.Len(t, levels, 3)
	assert.Equal(t, []string{"A"}, levels[0])
	assert.Equal(t, []string{"B", "C"}, levels[1])
	assert.Equal(t, []string{"D"}, levels[2])
}

func TestTopologicalLevelizeLexicographicTieBreak(t *testing.T) {
	nodes := []string{"zed", "beta", "alpha"}
	levels, err := TopologicalLevelize(nodes, nil)
	require.NoError(t, err)
	require.Len(t, levels, 1)
	assert.Equal(t, []string{"alpha", "beta", "zed"}, levels[0])
}

func TestTopologicalSortInterleavesIndependentChainsByID(t *testing.T) {
	// A (root) -> B; C (root) -> D: two independent, single-parent-legal
	// chains of different "depth positions". The flat sort must visit nodes
	// in pure lexicographic-ready order (A, C before B, D would be wrong
	// too) — each step takes the smallest currently-available id.
	nodes := []string{"A", "B", "C", "D"}
	edges := []domain.Edge{{From: "A", To: "B"}, {From: "C", To: "D"}}

	order, err := TopologicalSort(nodes, edges)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C", "D"}, order)
}

func TestTopologicalSortLexicographicTieBreak(t *testing.T) {
	nodes := []string{"zed", "beta", "alpha"}
	order, err := TopologicalSort(nodes, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta", "zed"}, order)
}

func TestTopologicalSortCycleError(t *testing.T) {
	nodes := []string{"A", "B"}
	edges := []domain.Edge{{From: "A", To: "B"}, {From: "B", To: "A"}}

	_, err := TopologicalSort(nodes, edges)
	require.Error(t, err)
	var cycleErr *ErrCycle
	require.ErrorAs(t, err, &cycleErr)
}

func TestTopologicalLevelizeCycleError(t *testing.T) {
	nodes := []string{"A", "B"}
	edges := []domain.Edge{{From: "A", To: "B"}, {From: "B", To: "A"}}

	_, err := TopologicalLevelize(nodes, edges)
	require.Error(t, err)
	var cycleErr *ErrCycle
	require.ErrorAs(t, err, &cycleErr)
}
