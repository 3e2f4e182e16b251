// Package dag implements the pure, side-effect-free graph validation rules
// that every written AgentDef and Playbook must satisfy: acyclicity,
// single-parent, class-consistency, and dependency existence. Nothing here
// touches the registry, the LLM, or the orchestrator's cache — it operates
// only on the graphs it is handed.
package dag

import (
	"fmt"
	"sort"

	"github.com/playbookrun/orchestrator/pkg/domain"
)

// ValidateAgentDependencies checks whether selfId may declare proposedDeps
// as its dependency list, given allAgents (the full agent set it would join).
// A dep must exist in allAgents; the composed graph (allAgents plus the edge
// selfId -> each proposedDep) must be acyclic. Self-dependency is a cycle of
// length one.
func ValidateAgentDependencies(selfID string, proposedDeps []string, allAgents map[string]*domain.AgentDef) error {
	for _, dep := range proposedDeps {
		if dep == selfID {
			return &ValidationError{Node: selfID, Hint: fmt.Sprintf("%s depends on itself", selfID), Err: ErrCyclicDependency}
		}
		if _, ok := allAgents[dep]; !ok {
			return &ValidationError{Node: dep, Hint: "not found in agent set", Err: ErrInvalidDependency}
		}
	}

	adjacency := make(map[string][]string, len(allAgents)+1)
	for id, def := range allAgents {
		adjacency[id] = def.Dependencies
	}
	adjacency[selfID] = proposedDeps

	if cyclePath, ok := detectCycle(adjacency); ok {
		return &ValidationError{
			Node: selfID,
			Hint: fmt.Sprintf("cycle closes on edge %s -> %s", cyclePath[len(cyclePath)-1], cyclePath[0]),
			Err:  ErrCyclicDependency,
		}
	}
	return nil
}

// ValidatePlaybook checks a playbook against the single-parent, acyclic,
// class-consistency and dangling-edge rules.
func ValidatePlaybook(pb domain.Playbook, playbookClass domain.AgentClass, allAgents map[string]*domain.AgentDef) error {
	if pb.Nodes == nil || pb.Edges == nil {
		return &ValidationError{Err: ErrMissingGraph, Hint: "nodes and edges are both required, even if empty"}
	}
	if len(pb.Nodes) == 0 {
		return &ValidationError{Err: ErrEmptyGraph}
	}

	nodeSet := make(map[string]struct{}, len(pb.Nodes))
	for _, n := range pb.Nodes {
		nodeSet[n] = struct{}{}
	}

	for _, n := range pb.Nodes {
		def, ok := allAgents[n]
		if !ok {
			return &ValidationError{Node: n, Err: ErrUnknownNode}
		}
		if def.AgentClass != playbookClass {
			return &ValidationError{
				Node: n,
				Hint: fmt.Sprintf("agent class %q does not match playbook class %q", def.AgentClass, playbookClass),
				Err:  ErrClassMismatch,
			}
		}
	}

	indegree := make(map[string]int, len(pb.Nodes))
	adjacency := make(map[string][]string, len(pb.Nodes))
	for _, n := range pb.Nodes {
		indegree[n] = 0
	}
	for _, e := range pb.Edges {
		if _, ok := nodeSet[e.From]; !ok {
			return &ValidationError{Node: e.From, Err: ErrDanglingEdge}
		}
		if _, ok := nodeSet[e.To]; !ok {
			return &ValidationError{Node: e.To, Err: ErrDanglingEdge}
		}
		indegree[e.To]++
		adjacency[e.From] = append(adjacency[e.From], e.To)
	}

	for n, deg := range indegree {
		if deg > 1 {
			return &ValidationError{Node: n, Err: ErrMultiParent, Hint: fmt.Sprintf("%d incoming edges", deg)}
		}
	}

	if cyclePath, ok := detectCycle(adjacency); ok {
		return &ValidationError{
			Hint: fmt.Sprintf("cycle closes on edge %s -> %s", cyclePath[len(cyclePath)-1], cyclePath[0]),
			Err:  ErrCycleInPlaybook,
		}
	}

	return nil
}

// colorState is the tri-color mark used by detectCycle's DFS.
type colorState int

const (
	colorWhite colorState = iota // unvisited
	colorGray                    // in progress (on the current DFS stack)
	colorBlack                   // done
)

// detectCycle runs a DFS with tri-color marking over adjacency (node ->
// successors). It returns the path from the cycle's entry node to the node
// that closes it, and true, if a cycle exists.
func detectCycle(adjacency map[string][]string) ([]string, bool) {
	color := make(map[string]colorState)
	var stack []string

	var visit func(node string) ([]string, bool)
	visit = func(node string) ([]string, bool) {
		color[node] = colorGray
		stack = append(stack, node)

		// Sort successors for deterministic cycle-hint messages across runs.
		succ := append([]string(nil), adjacency[node]...)
		sort.Strings(succ)

		for _, next := range succ {
			switch color[next] {
			case colorGray:
				// Closing edge found: node -> next. Return the stack slice
				// starting at next (the cycle's entry point).
				for i, n := range stack {
					if n == next {
						return append([]string(nil), stack[i:]...), true
					}
				}
				return []string{next, node}, true
			case colorWhite:
				if path, found := visit(next); found {
					return path, true
				}
			}
		}

		stack = stack[:len(stack)-1]
		color[node] = colorBlack
		return nil, false
	}

	// Deterministic outer iteration order.
	nodes := make([]string, 0, len(adjacency))
	for n := range adjacency {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	for _, n := range nodes {
		if color[n] == colorWhite {
			if path, found := visit(n); found {
				return path, true
			}
		}
	}
	return nil, false
}

// ErrCycle is returned by TopologicalLevelize when the supplied edge set is
// not acyclic (defense-in-depth; a validated playbook should never trigger
// this).
type ErrCycle struct {
	Path []string
}

func (e *ErrCycle) Error() string {
	return fmt.Sprintf("cycle detected in graph: %v", e.Path)
}

// TopologicalSort computes the single, flat node-by-node execution order the
// Orchestrator actually drives a playbook in: at each step, among the nodes
// whose predecessors have all already been emitted, the lexicographically
// smallest id goes next. This is Kahn's algorithm without level grouping,
// so two independent chains interleave by id rather than by depth.
// TopologicalLevelize (below) computes the coarser level grouping used only
// for planning metadata and the optional parallel schedule.
func TopologicalSort(nodes []string, edges []domain.Edge) ([]string, error) {
	indegree := make(map[string]int, len(nodes))
	adjacency := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		indegree[n] = 0
	}
	for _, e := range edges {
		indegree[e.To]++
		adjacency[e.From] = append(adjacency[e.From], e.To)
	}

	remaining := make(map[string]int, len(nodes))
	for n, d := range indegree {
		remaining[n] = d
	}

	order := make([]string, 0, len(nodes))
	for len(order) < len(nodes) {
		var next string
		found := false
		for n, d := range remaining {
			if d == 0 && (!found || n < next) {
				next, found = n, true
			}
		}
		if !found {
			break
		}
		delete(remaining, next)
		order = append(order, next)
		for _, succ := range adjacency[next] {
			if _, ok := remaining[succ]; ok {
				remaining[succ]--
			}
		}
	}

	if len(order) != len(nodes) {
		var leftover []string
		for n := range remaining {
			leftover = append(leftover, n)
		}
		sort.Strings(leftover)
		return nil, &ErrCycle{Path: leftover}
	}
	return order, nil
}

// TopologicalLevelize computes levels for planning/reporting metadata and
// the optional parallel schedule: level 0 holds all zero-in-degree nodes,
// level k+1 holds every node whose predecessors all lie in levels <= k.
// Within a level, nodes are ordered lexicographically by id for
// determinism. The default sequential walk uses TopologicalSort (above)
// instead, so that two independent chains execute and log in a single
// canonical id order rather than being grouped by depth.
func TopologicalLevelize(nodes []string, edges []domain.Edge) ([][]string, error) {
	indegree := make(map[string]int, len(nodes))
	adjacency := make(map[string][]string, len(nodes))
	for _, n := range nodes {
		indegree[n] = 0
	}
	for _, e := range edges {
		indegree[e.To]++
		adjacency[e.From] = append(adjacency[e.From], e.To)
	}

	remaining := make(map[string]int, len(nodes))
	for n, d := range indegree {
		remaining[n] = d
	}

	var levels [][]string
	visited := 0
	for {
		var frontier []string
		for n, d := range remaining {
			if d == 0 {
				frontier = append(frontier, n)
			}
		}
		if len(frontier) == 0 {
			break
		}
		sort.Strings(frontier)
		levels = append(levels, frontier)
		visited += len(frontier)

		for _, n := range frontier {
			delete(remaining, n)
			for _, next := range adjacency[n] {
				if _, ok := remaining[next]; ok {
					remaining[next]--
				}
			}
		}
	}

	if visited != len(nodes) {
		var leftover []string
		for n := range remaining {
			leftover = append(leftover, n)
		}
		sort.Strings(leftover)
		return nil, &ErrCycle{Path: leftover}
	}
	return levels, nil
}
