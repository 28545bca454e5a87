package models

import "orchestrator/pkg/config"

// StepSpec is the per-agent instruction payload attached to a plan
// step: which variables it creates, which it consumes, and a free-text
// instruction for the LM.
type StepSpec struct {
	Create      []string `json:"create"`
	Use         []string `json:"use"`
	Instruction string   `json:"instruction"`
}

// Plan is the planner's structured output: a record
// {complexity, steps, instructions}. Implementations must parse the
// arrow-syntax / JSON-instruction form once, at the planner boundary,
// and never re-parse it downstream (§9, "Plan as data").
type Plan struct {
	Complexity   string
	Steps        []string
	Instructions map[string]StepSpec
}

// IsSentinel reports whether the plan is one of the two sentinel
// single-step plans (basic_qa_agent or no_agents_available).
func (p Plan) IsSentinel() bool {
	return len(p.Steps) == 1 && (p.Steps[0] == config.BasicQAAgentName || p.Steps[0] == config.NoAgentsAvailablePlan)
}
