// Package planner implements the Planner: it classifies query
// complexity and produces a plan — an ordered agent list plus
// per-agent I/O contract, per spec §4.3.
package planner

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"orchestrator/pkg/config"
	"orchestrator/pkg/llm"
	"orchestrator/pkg/models"
)

// minAgentThreshold is the "minimal threshold" below which the
// planner short-circuits to no_agents_available without consulting
// the LM (§4.3, step 1).
const minAgentThreshold = 1

// classifierSignature is the degenerate agent signature used for the
// complexity-classification call, grounded on the teacher's scoring
// agent (a single-LLM-call agent that emits a structured verdict
// rather than free text).
var classifierSignature = models.Signature{
	AgentName: "complexity_classifier",
	Inputs:    []models.FieldName{models.FieldGoal, models.FieldDataset, models.FieldAgentDesc},
	Outputs:   []models.FieldName{models.FieldComplexity, models.FieldReasoning},
}

// agentKeywords maps each core agent to the vocabulary that routes a
// goal to it. Matching beyond the four core agents would require a
// real LM-driven classification the adapter boundary abstracts away;
// agentDesc names without an entry here are skipped, so non-core
// templates are only reachable through explicit agent_spec
// (Individual mode).
var agentKeywords = map[string][]string{
	"preprocessing_agent":         {"clean", "missing", "outlier", "preprocess", "wrangle", "impute"},
	"statistical_analytics_agent": {"regression", "correlation", "statistic", "anova", "hypothesis", "trend", "p-value"},
	"sk_learn_agent":              {"classif", "cluster", "predict", "machine learning", " ml ", "train", "model accuracy"},
	"data_viz_agent":              {"plot", "visual", "chart", "graph", "confidence interval"},
}

// outputVar is the dataflow variable name each core agent contributes
// downstream when chained in an advanced plan.
var outputVar = map[string]string{
	"preprocessing_agent":         "cleaned_data",
	"statistical_analytics_agent": "regression_results",
	"sk_learn_agent":               "model_results",
}

// Planner drives complexity classification and plan construction.
type Planner struct {
	Adapter llm.Adapter
}

// New builds a Planner over adapter.
func New(adapter llm.Adapter) *Planner {
	return &Planner{Adapter: adapter}
}

// Plan implements the full algorithm of §4.3: threshold check,
// classification, sentinel dispatch, sub-planner dispatch with
// advanced -> intermediate fallback.
func (p *Planner) Plan(ctx context.Context, goal, datasetDescriptor string, agentDesc map[string]string) (models.Plan, error) {
	if len(agentDesc) < minAgentThreshold {
		return noAgentsPlan(), nil
	}

	complexity := p.classify(ctx, goal, datasetDescriptor, agentDesc)

	switch complexity {
	case config.ComplexityUnrelated:
		return models.Plan{
			Complexity: string(config.ComplexityUnrelated),
			Steps:      []string{config.BasicQAAgentName},
			Instructions: map[string]models.StepSpec{
				config.BasicQAAgentName: {Instruction: "Answer directly; the query does not require a data agent."},
			},
		}, nil
	case config.ComplexityBasic:
		if plan, ok := p.basicPlan(goal, agentDesc); ok {
			return plan, nil
		}
	case config.ComplexityAdvanced:
		if plan, ok := p.advancedPlan(goal, agentDesc); ok {
			return plan, nil
		}
		// advanced failed: fall back to intermediate (open question #2).
	}

	// intermediate is both the default dispatch target and the
	// fallback target for a failed basic/advanced sub-planner.
	if plan, ok := p.intermediatePlan(goal, agentDesc); ok {
		return plan, nil
	}
	return noAgentsPlan(), nil
}

func noAgentsPlan() models.Plan {
	return models.Plan{
		Complexity: string(config.ComplexityNoAgents),
		Steps:      []string{config.NoAgentsAvailablePlan},
		Instructions: map[string]models.StepSpec{
			config.NoAgentsAvailablePlan: {
				Instruction: "No agents are currently enabled for this user. Enable at least one agent in your preferences to continue.",
			},
		},
	}
}

// classify calls the adapter's complexity classifier and tolerates an
// unknown/unparseable return by treating it as intermediate (§4.3,
// "The classifier is advisory; the router must tolerate unknown
// returns").
func (p *Planner) classify(ctx context.Context, goal, datasetDescriptor string, agentDesc map[string]string) config.Complexity {
	inputs := map[models.FieldName]string{
		models.FieldGoal:      goal,
		models.FieldDataset:   datasetDescriptor,
		models.FieldAgentDesc: formatAgentDesc(agentDesc),
	}
	res, err := p.Adapter.Invoke(ctx, classifierSignature, inputs, llm.Config{})
	if err != nil {
		return config.ComplexityIntermediate
	}
	switch config.Complexity(res.Outputs[models.FieldComplexity]) {
	case config.ComplexityBasic, config.ComplexityIntermediate, config.ComplexityAdvanced, config.ComplexityUnrelated:
		return config.Complexity(res.Outputs[models.FieldComplexity])
	default:
		return config.ComplexityIntermediate
	}
}

func formatAgentDesc(agentDesc map[string]string) string {
	names := make([]string, 0, len(agentDesc))
	for name := range agentDesc {
		names = append(names, name)
	}
	sort.Strings(names)
	var b strings.Builder
	for _, name := range names {
		fmt.Fprintf(&b, "%s: %s\n", name, agentDesc[name])
	}
	return b.String()
}

// matchAgents returns the agents available in agentDesc whose
// keywords appear in goal, ordered by first occurrence (so producers
// precede consumers when the goal names them in dataflow order).
func matchAgents(goal string, agentDesc map[string]string) []string {
	lower := strings.ToLower(goal)

	type hit struct {
		name string
		pos  int
	}
	var hits []hit
	for name := range agentDesc {
		keywords, ok := agentKeywords[name]
		if !ok {
			continue
		}
		best := -1
		for _, kw := range keywords {
			if idx := strings.Index(lower, kw); idx != -1 && (best == -1 || idx < best) {
				best = idx
			}
		}
		if best != -1 {
			hits = append(hits, hit{name: name, pos: best})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.name)
	}
	return out
}

func (p *Planner) basicPlan(goal string, agentDesc map[string]string) (models.Plan, bool) {
	matches := matchAgents(goal, agentDesc)
	if len(matches) == 0 {
		return models.Plan{}, false
	}
	name := matches[0]
	return models.Plan{
		Complexity:   string(config.ComplexityBasic),
		Steps:        []string{name},
		Instructions: map[string]models.StepSpec{name: {Instruction: "Address the goal directly."}},
	}, true
}

func (p *Planner) intermediatePlan(goal string, agentDesc map[string]string) (models.Plan, bool) {
	matches := matchAgents(goal, agentDesc)
	if len(matches) == 0 {
		return models.Plan{}, false
	}
	if len(matches) > 2 {
		matches = matches[:2]
	}
	return chainPlan(config.ComplexityIntermediate, matches), true
}

func (p *Planner) advancedPlan(goal string, agentDesc map[string]string) (models.Plan, bool) {
	matches := matchAgents(goal, agentDesc)
	if len(matches) == 0 {
		return models.Plan{}, false
	}
	return chainPlan(config.ComplexityAdvanced, matches), true
}

// chainPlan links steps sequentially: each step's `use` is the
// cumulative set of variables created by earlier steps, and its
// `create` is its own output variable (if it has one). This is the
// dataflow-ordering + per-step contract the advanced sub-planner
// must produce (§4.3, "Tie-breaks").
func chainPlan(complexity config.Complexity, steps []string) models.Plan {
	instructions := make(map[string]models.StepSpec, len(steps))
	var created []string
	for _, name := range steps {
		use := append([]string(nil), created...)
		var create []string
		if v, ok := outputVar[name]; ok {
			create = []string{v}
			created = append(created, v)
		}
		instructions[name] = models.StepSpec{
			Create:      create,
			Use:         use,
			Instruction: fmt.Sprintf("Step for %s within the larger goal.", name),
		}
	}
	return models.Plan{Complexity: string(complexity), Steps: steps, Instructions: instructions}
}
