// Package individual implements the AI System (Individual): executes
// one or more named agents directly against a query (`@agent` mode),
// per spec §4.4.
package individual

import (
	"context"
	"fmt"
	"strings"
	"time"

	"orchestrator/pkg/apperrors"
	"orchestrator/pkg/config"
	"orchestrator/pkg/llm"
	"orchestrator/pkg/models"
	"orchestrator/pkg/retriever"
)

// SignatureResolver looks up a single agent's derived signature by
// name. pkg/registry.Registry satisfies this.
type SignatureResolver interface {
	Signature(ctx context.Context, name string) (models.Signature, bool)
	AllAgentNames(ctx context.Context) []string
}

// UsageRecorder increments a (user, template) usage counter after a
// successful non-core agent invocation.
type UsageRecorder interface {
	IncrementUsage(ctx context.Context, userID, templateName string, at time.Time) error
}

// System is the Individual AI system. It holds no session state of
// its own — every call takes the session's current dataset,
// retrievers, user ID, and model config as arguments, per §9's
// explicit-context design note.
type System struct {
	Registry SignatureResolver
	Adapter  llm.Adapter
	Usage    UsageRecorder
}

// New builds an Individual system.
func New(registry SignatureResolver, adapter llm.Adapter, usage UsageRecorder) *System {
	return &System{Registry: registry, Adapter: adapter, Usage: usage}
}

// Forward executes one or more named agents against query and
// returns a mapping agent_name -> outputs. agentSpec is either one
// name or a comma-separated list; for multiple agents, execution is
// sequential with no cross-agent variable passing.
func (s *System) Forward(ctx context.Context, userID string, query, agentSpec string, dataset *models.Dataset, retrievers retriever.Set, cfg llm.Config) (map[string]models.AgentOutput, error) {
	names := splitAgentSpec(agentSpec)
	if len(names) == 0 {
		return nil, apperrors.NewValidationError("agent_spec", "agent_spec must name at least one agent", nil)
	}

	sigs := make([]models.Signature, 0, len(names))
	for _, name := range names {
		sig, ok := s.Registry.Signature(ctx, name)
		if !ok {
			available := s.Registry.AllAgentNames(ctx)
			return nil, fmt.Errorf("%w: %q (available: %s)", apperrors.ErrUnknownAgent, name, strings.Join(available, ", "))
		}
		sigs = append(sigs, sig)
	}

	if dataset == nil {
		return nil, apperrors.ErrNoDataset
	}
	datasetText := dataset.Descriptor()

	results := make(map[string]models.AgentOutput, len(sigs))
	for _, sig := range sigs {
		inputs, err := assembleInputs(ctx, sig, query, datasetText, "", retrievers)
		if err != nil {
			results[sig.AgentName] = models.AgentOutput{Error: err.Error()}
			continue
		}

		res, err := s.Adapter.Invoke(ctx, sig, inputs, cfg)
		if err != nil {
			results[sig.AgentName] = models.AgentOutput{Error: err.Error()}
			continue
		}

		results[sig.AgentName] = toOutput(sig, res)

		if !config.IsCoreAgent(sig.AgentName) && s.Usage != nil {
			_ = s.Usage.IncrementUsage(ctx, userID, sig.AgentName, time.Now())
		}
	}

	return results, nil
}

// splitAgentSpec parses a comma-separated agent_spec, trimming
// whitespace and dropping empty entries.
func splitAgentSpec(spec string) []string {
	parts := strings.Split(spec, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// assembleInputs populates a signature's declared input fields per
// §4.4's input-assembly rules, shared with pkg/planned.
func assembleInputs(ctx context.Context, sig models.Signature, query, datasetText, planInstructions string, retrievers retriever.Set) (map[models.FieldName]string, error) {
	inputs := make(map[models.FieldName]string, len(sig.Inputs))
	for _, field := range sig.Inputs {
		switch field {
		case models.FieldGoal:
			inputs[field] = query
		case models.FieldDataset:
			if retrievers.Dataset != nil {
				text, err := retriever.Top1(ctx, retrievers.Dataset, query)
				if err != nil {
					return nil, fmt.Errorf("%w: dataset retriever: %v", apperrors.ErrUpstream, err)
				}
				if text != "" {
					inputs[field] = text
					continue
				}
			}
			inputs[field] = datasetText
		case models.FieldStylingIndex:
			text, err := retriever.Top1(ctx, retrievers.Style, query)
			if err != nil {
				return nil, fmt.Errorf("%w: style retriever: %v", apperrors.ErrUpstream, err)
			}
			inputs[field] = text
		case models.FieldPlanInstructions:
			inputs[field] = planInstructions
		default:
			inputs[field] = ""
		}
	}
	return inputs, nil
}

// toOutput converts an adapter Result into the signature's declared
// output shape.
func toOutput(sig models.Signature, res llm.Result) models.AgentOutput {
	var out models.AgentOutput
	for _, field := range sig.Outputs {
		switch field {
		case models.FieldCode:
			out.Code = res.Outputs[models.FieldCode]
		case models.FieldSummary:
			out.Summary = res.Outputs[models.FieldSummary]
		case models.FieldAnswer:
			out.Answer = res.Outputs[models.FieldAnswer]
		}
	}
	return out
}
