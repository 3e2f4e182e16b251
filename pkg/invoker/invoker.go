// Package invoker implements the Agent Invoker: it turns an AgentDef plus a
// consolidated input map into an AgentOutput by calling the LLM provider,
// extracting a JSON object from its response, and validating that object
// against the agent's declared output schema. It never panics or returns an
// error to the caller for LLM-side failures — those become AgentOutput with
// Status = error.
package invoker

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/playbookrun/orchestrator/pkg/domain"
	"github.com/playbookrun/orchestrator/pkg/llmprovider"
)

// RawInputKey is the stable key under which the job's original text/
// question is carried in an agent's consolidated input map.
const RawInputKey = "raw_input"

// DependencyOutputSuffix is appended to a dependency's agentId to form the
// key under which its output is carried in a downstream agent's input map.
const DependencyOutputSuffix = "_output"

// DependencyOutputKey returns the input-map key for depID's output.
func DependencyOutputKey(depID string) string {
	return depID + DependencyOutputSuffix
}

// Invoker is the contract the Orchestrator calls for every non-cached node.
type Invoker interface {
	Invoke(ctx context.Context, agentDef *domain.AgentDef, input map[string]any) domain.AgentOutput
}

// LLMInvoker is the concrete Invoker: it calls a llmprovider.Provider and
// validates the result against the agent's declared schema.
type LLMInvoker struct {
	provider    llmprovider.Provider
	temperature float64
}

// NewLLMInvoker creates an Invoker backed by provider, using a fixed low
// temperature for deterministic-ish structured output.
func NewLLMInvoker(provider llmprovider.Provider) *LLMInvoker {
	return &LLMInvoker{provider: provider, temperature: 0.1}
}

// Invoke implements Invoker. It never panics; every failure path returns an
// AgentOutput with Status = error rather than propagating an error value,
// since the Orchestrator boundary has no error channel for agent failures
// (only for infrastructure failures, which do not occur here).
func (inv *LLMInvoker) Invoke(ctx context.Context, agentDef *domain.AgentDef, input map[string]any) (result domain.AgentOutput) {
	defer func() {
		if r := recover(); r != nil {
			result = domain.AgentOutput{
				Status:       domain.AgentStatusError,
				ErrorMessage: fmt.Sprintf("invoker panic: %v", r),
			}
		}
	}()

	prompt := buildPrompt(agentDef, input)

	resp, err := inv.provider.Complete(ctx, llmprovider.Request{
		SystemPrompt: agentDef.SystemPrompt,
		UserContent:  prompt,
		Temperature:  inv.temperature,
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return domain.AgentOutput{Status: domain.AgentStatusError, ErrorMessage: "timeout"}
		}
		return domain.AgentOutput{Status: domain.AgentStatusError, ErrorMessage: err.Error()}
	}
	if ctx.Err() == context.DeadlineExceeded {
		return domain.AgentOutput{Status: domain.AgentStatusError, ErrorMessage: "timeout"}
	}

	extracted, degraded := extractJSON(resp.Text)
	if degraded {
		return domain.AgentOutput{
			Status:     domain.AgentStatusSuccess,
			Output:     map[string]any{"raw_response": resp.Text},
			Reasoning:  "could not extract structured JSON; returning raw text",
			Confidence: 0.5,
		}
	}

	if err := validateOutputSchema(extracted, agentDef.OutputSchema); err != nil {
		return domain.AgentOutput{Status: domain.AgentStatusError, ErrorMessage: err.Error()}
	}

	reasoning, _ := extracted["reasoning"].(string)
	confidence := 1.0
	if c, ok := extracted["confidence"].(float64); ok {
		confidence = c
	}

	return domain.AgentOutput{
		Status:     domain.AgentStatusSuccess,
		Output:     extracted,
		Reasoning:  reasoning,
		Confidence: confidence,
	}
}

// buildPrompt builds the user-role content: the serialized input followed by
// a trailing instruction demanding strict JSON output. The system prompt
// itself is sent separately via Request.SystemPrompt.
func buildPrompt(agentDef *domain.AgentDef, input map[string]any) string {
	serialized, err := json.Marshal(sortedInput(input))
	if err != nil {
		serialized = []byte("{}")
	}

	var sb strings.Builder
	sb.WriteString("Input:\n")
	sb.Write(serialized)
	sb.WriteString("\n\nRespond with a single strict JSON object only, matching the fields: ")
	sb.WriteString(schemaFieldList(agentDef.OutputSchema))
	sb.WriteString(". No prose, no markdown fences unless the JSON is fenced as a code block.")
	return sb.String()
}

// sortedInput returns input unchanged; json.Marshal already sorts map keys,
// this helper documents that determinism is relied upon for prompt
// reproducibility.
func sortedInput(input map[string]any) map[string]any {
	return input
}

func schemaFieldList(schema map[string]string) string {
	fields := make([]string, 0, len(schema))
	for k := range schema {
		fields = append(fields, k)
	}
	sort.Strings(fields)
	return strings.Join(fields, ", ")
}

// validateOutputSchema enforces the ≤5-key bound and that every key in
// output is declared in schema.
func validateOutputSchema(output map[string]any, schema map[string]string) error {
	if len(output) > domain.MaxOutputSchemaKeys {
		return fmt.Errorf("output has %d keys, exceeds max of %d", len(output), domain.MaxOutputSchemaKeys)
	}
	for k := range output {
		if _, ok := schema[k]; !ok {
			return fmt.Errorf("output key %q is not declared in the agent's output schema", k)
		}
	}
	return nil
}

// WithDeadline wraps ctx with the given timeout, returning the derived
// context and its cancel func. The Orchestrator calls this (or passes an
// already-deadlined context) before invoking an agent — every invocation
// carries a deadline from the caller.
func WithDeadline(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
