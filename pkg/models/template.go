package models

import (
	"strings"

	"orchestrator/pkg/config"
)

// AgentTemplate is the stored definition of an agent: name, prompt,
// category, variant. Templates with BaseAgent set inherit from a
// sibling (reserved for future specialization; unused by the core
// registry logic today).
type AgentTemplate struct {
	Name            string
	DisplayName     string
	Description     string
	PromptTemplate  string
	Category        config.Category
	Variant         config.Variant
	BaseAgent       string
	Premium         bool
	Active          bool
}

// FieldName is an agent signature input or output field.
type FieldName string

const (
	FieldGoal            FieldName = "goal"
	FieldDataset         FieldName = "dataset"
	FieldStylingIndex    FieldName = "styling_index"
	FieldPlanInstructions FieldName = "plan_instructions"
	FieldCode            FieldName = "code"
	FieldSummary         FieldName = "summary"
	FieldAnswer          FieldName = "answer"
	FieldError           FieldName = "error"

	// Fields used by the planner's complexity-classifier signature.
	FieldAgentDesc  FieldName = "agent_desc"
	FieldComplexity FieldName = "complexity"
	FieldReasoning  FieldName = "reasoning"

	// Fields used by the deep analyzer's internal staged signatures.
	FieldQuestions  FieldName = "questions"
	FieldPlanText   FieldName = "plan_text"
	FieldSynthesis  FieldName = "synthesis"
	FieldConclusion FieldName = "conclusion"
	FieldReport     FieldName = "report"
)

// vizNameHints is the name-substring fallback test used when a
// template has no category set (§4.1, "Signature construction").
var vizNameHints = []string{"viz", "visual", "plot", "chart", "matplotlib"}

// Signature is the derived input/output contract for a template,
// computed by BuildSignature rather than stored directly.
type Signature struct {
	AgentName string
	Inputs    []FieldName
	Outputs   []FieldName
}

// RequiresStylingIndex reports whether t's category (or, absent a
// category, its name) identifies it as a visualization agent.
func (t AgentTemplate) RequiresStylingIndex() bool {
	if t.Category != "" {
		return t.Category.IsVisualization()
	}
	return IsVisualizationName(t.Name)
}

// IsVisualizationName applies the same name-substring fallback test
// used by RequiresStylingIndex to a bare agent name, for callers (the
// deep analyzer's figure-collection stage) that only have a name, not
// a full template.
func IsVisualizationName(name string) bool {
	lower := strings.ToLower(name)
	for _, hint := range vizNameHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}

// BuildSignature derives t's agent signature. includePlanInstructions
// controls whether plan_instructions is always present (individual
// loads include it with an empty default so planner mode works
// uniformly, per §4.1).
func BuildSignature(t AgentTemplate, includePlanInstructions bool) Signature {
	inputs := []FieldName{FieldGoal, FieldDataset}
	if t.RequiresStylingIndex() {
		inputs = append(inputs, FieldStylingIndex)
	}
	if includePlanInstructions || t.Variant.UsablePlanner() {
		inputs = append(inputs, FieldPlanInstructions)
	}

	outputs := []FieldName{FieldCode, FieldSummary}
	if t.Name == "basic_qa_agent" {
		outputs = []FieldName{FieldAnswer}
	}

	return Signature{AgentName: t.Name, Inputs: inputs, Outputs: outputs}
}
