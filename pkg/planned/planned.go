// Package planned implements the AI System (Planned): parses a plan
// and drives a sequential execution yielding incremental
// (agent, inputs, output) events, per spec §4.5.
package planned

import (
	"context"
	"encoding/json"
	"time"

	"orchestrator/pkg/config"
	"orchestrator/pkg/llm"
	"orchestrator/pkg/models"
	"orchestrator/pkg/planner"
	"orchestrator/pkg/retriever"
)

// planNotFound is the sentinel step name yielded when a plan has no
// resolvable agent at all (§4.5).
const planNotFound = "plan_not_found"

// SignatureResolver looks up a single agent's derived signature.
type SignatureResolver interface {
	Signature(ctx context.Context, name string) (models.Signature, bool)
}

// UsageRecorder increments a (user, template) usage counter.
type UsageRecorder interface {
	IncrementUsage(ctx context.Context, userID, templateName string, at time.Time) error
}

// System is the Planned AI system.
type System struct {
	Registry SignatureResolver
	Adapter  llm.Adapter
	Planner  *planner.Planner
	Usage    UsageRecorder
}

// New builds a Planned system.
func New(registry SignatureResolver, adapter llm.Adapter, p *planner.Planner, usage UsageRecorder) *System {
	return &System{Registry: registry, Adapter: adapter, Planner: p, Usage: usage}
}

// GetPlan wraps the Planner with retriever-populated dataset context.
func (s *System) GetPlan(ctx context.Context, query string, dataset *models.Dataset, retrievers retriever.Set, agentDesc map[string]string) (models.Plan, error) {
	descriptor := ""
	if dataset != nil {
		descriptor = dataset.Descriptor()
	}
	if retrievers.Dataset != nil {
		if text, err := retriever.Top1(ctx, retrievers.Dataset, query); err == nil && text != "" {
			descriptor = text
		}
	}
	return s.Planner.Plan(ctx, query, descriptor, agentDesc)
}

// ExecutePlan linearizes plan.Steps, invoking agents in order and
// emitting one event per completed step. Determinism: for a given
// (plan, query, retrieved contexts, lm_config), the event order is
// fixed; steps never run concurrently.
func (s *System) ExecutePlan(ctx context.Context, userID, query string, plan models.Plan, dataset *models.Dataset, retrievers retriever.Set, cfg llm.Config) <-chan models.ExecutionEvent {
	events := make(chan models.ExecutionEvent)

	go func() {
		defer close(events)

		// No agents enabled for this user (§8 scenario 5): surface the
		// planner's own remediation text as a single error-status
		// planner frame rather than falling through to the generic
		// plan_not_found path, whose message would be the wrong one.
		if plan.IsSentinel() && plan.Steps[0] == config.NoAgentsAvailablePlan {
			events <- models.ExecutionEvent{
				AgentName: "planner",
				Inputs:    map[string]string{},
				Output:    models.AgentOutput{Error: plan.Instructions[config.NoAgentsAvailablePlan].Instruction},
				Status:    config.FrameError,
			}
			return
		}

		if len(plan.Steps) == 0 || !anyResolvable(ctx, s.Registry, plan.Steps) {
			events <- models.ExecutionEvent{
				AgentName: planNotFound,
				Inputs:    map[string]string{},
				Output:    models.AgentOutput{Error: "plan has no resolvable agent"},
				Status:    config.FrameError,
			}
			return
		}

		datasetText := ""
		if dataset != nil {
			datasetText = dataset.Descriptor()
		}

		for _, step := range plan.Steps {
			if ctx.Err() != nil {
				return
			}

			sig, ok := s.Registry.Signature(ctx, step)
			if !ok {
				events <- models.ExecutionEvent{
					AgentName: step,
					Inputs:    map[string]string{},
					Output:    models.AgentOutput{Error: "unknown agent: " + step},
					Status:    config.FrameError,
				}
				continue
			}

			planInstructions := ""
			if spec, ok := plan.Instructions[step]; ok {
				if b, err := json.Marshal(spec); err == nil {
					planInstructions = string(b)
				}
			}

			inputs, err := assembleInputs(ctx, sig, query, datasetText, planInstructions, retrievers)
			if err != nil {
				events <- models.ExecutionEvent{
					AgentName: step,
					Inputs:    map[string]string{},
					Output:    models.AgentOutput{Error: err.Error()},
					Status:    config.FrameError,
				}
				continue
			}

			snapshot := snapshotInputs(inputs)

			res, err := s.Adapter.Invoke(ctx, sig, inputs, cfg)
			if err != nil {
				events <- models.ExecutionEvent{AgentName: step, Inputs: snapshot, Output: models.AgentOutput{Error: err.Error()}, Status: config.FrameError}
				continue
			}

			output := toOutput(sig, res)
			events <- models.ExecutionEvent{AgentName: step, Inputs: snapshot, Output: output, Status: config.FrameSuccess}

			if !config.IsCoreAgent(step) && s.Usage != nil {
				_ = s.Usage.IncrementUsage(ctx, userID, step, time.Now())
			}
		}
	}()

	return events
}

func anyResolvable(ctx context.Context, registry SignatureResolver, steps []string) bool {
	for _, step := range steps {
		if _, ok := registry.Signature(ctx, step); ok {
			return true
		}
	}
	return false
}

func snapshotInputs(inputs map[models.FieldName]string) map[string]string {
	out := make(map[string]string, len(inputs))
	for k, v := range inputs {
		out[string(k)] = v
	}
	return out
}

// assembleInputs mirrors pkg/individual's input-assembly rules,
// extended with the plan_instructions field (§4.5, "Per-step wiring").
func assembleInputs(ctx context.Context, sig models.Signature, query, datasetText, planInstructions string, retrievers retriever.Set) (map[models.FieldName]string, error) {
	inputs := make(map[models.FieldName]string, len(sig.Inputs))
	for _, field := range sig.Inputs {
		switch field {
		case models.FieldGoal:
			inputs[field] = query
		case models.FieldDataset:
			text, err := retriever.Top1(ctx, retrievers.Dataset, query)
			if err != nil {
				return nil, err
			}
			if text == "" {
				text = datasetText
			}
			inputs[field] = text
		case models.FieldStylingIndex:
			text, err := retriever.Top1(ctx, retrievers.Style, query)
			if err != nil {
				return nil, err
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
