// Package llm defines the LM Adapter: a uniform capability to invoke
// a language model under a per-session configuration and produce a
// structured result for an agent signature. The actual provider
// integration is an external collaborator (spec-level non-goal); this
// package specifies the boundary and ships a deterministic in-memory
// implementation used by tests and by callers with no provider
// configured.
package llm

import (
	"context"
	"fmt"

	"orchestrator/pkg/apperrors"
	"orchestrator/pkg/config"
	"orchestrator/pkg/models"
)

// Config is the explicit, session-scoped model configuration threaded
// through every agent invocation (§9, "Session-scoped LM config ->
// explicit context").
type Config struct {
	Provider    config.Provider
	Model       string
	MaxTokens   int
	Temperature float64
}

// WithBounds clamps MaxTokens/Temperature to the adapter's enforced
// range, per §4.2 ("enforcing the max_tokens and temperature bounds").
func (c Config) WithBounds() Config {
	if c.MaxTokens <= 0 || c.MaxTokens > 32768 {
		c.MaxTokens = 4096
	}
	if c.Temperature < 0 {
		c.Temperature = 0
	}
	if c.Temperature > 2 {
		c.Temperature = 2
	}
	return c
}

// Result is the adapter's response to one Invoke call.
type Result struct {
	Outputs          map[models.FieldName]string
	PromptTokens      int
	CompletionTokens  int
	// TokensExact reports whether PromptTokens/CompletionTokens came
	// from the provider (true) or must be estimated downstream by the
	// Usage Tracker (false).
	TokensExact bool
}

// Adapter is the uniform LM invocation capability. Implementations
// must respect ctx cancellation by aborting the in-flight provider
// call (§5, "Cancellation").
type Adapter interface {
	Invoke(ctx context.Context, sig models.Signature, inputs map[models.FieldName]string, cfg Config) (Result, error)
}

// StaticAdapter is a deterministic in-memory Adapter used by tests and
// as a default when no real provider is wired. It synthesizes outputs
// from the requested signature so callers can exercise the full
// pipeline without a network dependency.
type StaticAdapter struct {
	// Respond, if set, overrides the synthesized response for a given
	// agent name; tests use this to script specific agent behavior
	// (including simulated errors).
	Respond map[string]func(inputs map[models.FieldName]string) (Result, error)
}

// NewStaticAdapter returns an Adapter that synthesizes plausible
// outputs for any signature, with no external dependency.
func NewStaticAdapter() *StaticAdapter {
	return &StaticAdapter{Respond: map[string]func(map[models.FieldName]string) (Result, error){}}
}

func (a *StaticAdapter) Invoke(ctx context.Context, sig models.Signature, inputs map[models.FieldName]string, cfg Config) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if fn, ok := a.Respond[sig.AgentName]; ok {
		return fn(inputs)
	}

	outputs := map[models.FieldName]string{}
	for _, out := range sig.Outputs {
		switch out {
		case models.FieldAnswer:
			outputs[models.FieldAnswer] = "This query does not match any available agent capability."
		case models.FieldCode:
			outputs[models.FieldCode] = "# generated by " + sig.AgentName + "\n"
		case models.FieldSummary:
			outputs[models.FieldSummary] = sig.AgentName + " completed for goal: " + inputs[models.FieldGoal]
		}
	}
	return Result{
		Outputs:          outputs,
		PromptTokens:     0,
		CompletionTokens: 0,
		TokensExact:      false,
	}, nil
}

// ErrAdapterTimeout wraps apperrors.ErrTimeout for callers that need
// to distinguish an adapter-originated timeout from a caller-side one.
var ErrAdapterTimeout = fmt.Errorf("adapter: %w", apperrors.ErrTimeout)
