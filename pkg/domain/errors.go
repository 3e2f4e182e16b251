package domain

import "errors"

// Sentinel errors returned by the Registry contract (pkg/registry) and
// consumed by the Orchestrator. Wrapped with %w so callers
// can errors.Is against them.
var (
	// ErrAgentNotFound indicates a lookup for an agent id found nothing, in
	// the requesting tenant or the system tenant fallback.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrDomainNotFound indicates a lookup for a domain id found nothing.
	ErrDomainNotFound = errors.New("domain not found")

	// ErrPlaybookNotFound indicates a domain exists but has no playbook for
	// the requested job kind.
	ErrPlaybookNotFound = errors.New("playbook not found")
)
