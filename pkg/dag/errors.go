package dag

import (
	"errors"
	"fmt"
)

// Sentinel errors for ValidateAgentDependencies and ValidatePlaybook.
// Every validation failure wraps one of these so callers can discriminate
// with errors.Is while still getting a human-readable message.
var (
	// ErrInvalidDependency: a proposed dependency id does not exist.
	ErrInvalidDependency = errors.New("invalid dependency")

	// ErrCyclicDependency: the proposed dependency set introduces a cycle.
	ErrCyclicDependency = errors.New("cyclic dependency")

	// ErrMissingGraph: a playbook is missing its nodes or edges collection
	// (both are required, even when empty).
	ErrMissingGraph = errors.New("missing graph")

	// ErrEmptyGraph: a playbook's node set is empty.
	ErrEmptyGraph = errors.New("empty graph")

	// ErrUnknownNode: a playbook node references an agent id that does not
	// exist in the supplied agent set.
	ErrUnknownNode = errors.New("unknown node")

	// ErrClassMismatch: a playbook node's agent class does not match the
	// playbook's declared class.
	ErrClassMismatch = errors.New("class mismatch")

	// ErrDanglingEdge: an edge references a from/to id not present in nodes.
	ErrDanglingEdge = errors.New("dangling edge")

	// ErrMultiParent: a node has more than one incoming edge.
	ErrMultiParent = errors.New("multiple parents")

	// ErrCycleInPlaybook: the playbook's edge set is not acyclic.
	ErrCycleInPlaybook = errors.New("cycle in playbook")
)

// ValidationError wraps a DAG validation failure with the offending node
// and a human-readable hint, matching the ValidationError/LoadError wrapper
// convention used across this codebase's config package.
type ValidationError struct {
	Node string // the offending agent/node id, when applicable
	Hint string // human-readable explanation (e.g. the cycle's closing edge)
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Node != "" {
		return fmt.Sprintf("%v: %s (%s)", e.Err, e.Node, e.Hint)
	}
	if e.Hint != "" {
		return fmt.Sprintf("%v: %s", e.Err, e.Hint)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
