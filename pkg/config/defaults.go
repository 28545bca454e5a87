package config

// CoreAgentNames are the four default agents enabled unless a user
// preference explicitly disables them. Their planner_-prefixed
// counterparts share the same default-enabled rule (§4.1).
var CoreAgentNames = []string{
	"preprocessing_agent",
	"statistical_analytics_agent",
	"sk_learn_agent",
	"data_viz_agent",
}

// BasicQAAgentName is the sentinel agent the planner dispatches to for
// queries classified "unrelated".
const BasicQAAgentName = "basic_qa_agent"

// NoAgentsAvailablePlan is the sentinel plan value emitted when no
// agents are available for a user.
const NoAgentsAvailablePlan = "no_agents_available"

// IsCoreAgent reports whether name is one of the four default agents.
func IsCoreAgent(name string) bool {
	for _, n := range CoreAgentNames {
		if n == name {
			return true
		}
	}
	return false
}

// PlannerCap is the maximum number of planner-visible templates
// returned for a user, enforced both at registry read time and at
// bulk-preference-toggle time (open question #3).
const PlannerCap = 10

// Defaults holds system-wide defaults applied when a session doesn't
// specify its own values.
type Defaults struct {
	// LLM provider/model used when a session has no explicit model_config.
	LLMProvider string `yaml:"llm_provider,omitempty"`
	LLMModel    string `yaml:"llm_model,omitempty"`

	// MaxTokens/Temperature bounds enforced by the LM Adapter.
	MaxTokens   int     `yaml:"max_tokens,omitempty"`
	Temperature float64 `yaml:"temperature,omitempty"`

	// InteractiveTimeoutSeconds is the hard cap on interactive agent
	// invocation (§5, "Timeouts": 120s default).
	InteractiveTimeoutSeconds int `yaml:"interactive_timeout_seconds,omitempty"`

	// DeepAnalysisOverallTimeoutSeconds bounds the whole deep-analysis
	// run. DeepAnalysisStageTimeoutSeconds is loaded and defaulted but
	// not read by pkg/deepanalysis: individual stages run without a
	// separate time limit.
	DeepAnalysisStageTimeoutSeconds   int `yaml:"deep_analysis_stage_timeout_seconds,omitempty"`
	DeepAnalysisOverallTimeoutSeconds int `yaml:"deep_analysis_overall_timeout_seconds,omitempty"`
}

// WithDefaults returns d with zero-valued fields filled from hardcoded
// fallbacks, mirroring the teacher's layered-defaults pattern.
func (d Defaults) WithDefaults() Defaults {
	if d.LLMProvider == "" {
		d.LLMProvider = string(ProviderOpenAI)
	}
	if d.LLMModel == "" {
		d.LLMModel = "gpt-5-mini"
	}
	if d.MaxTokens == 0 {
		d.MaxTokens = 4096
	}
	if d.Temperature == 0 {
		d.Temperature = 0.7
	}
	if d.InteractiveTimeoutSeconds == 0 {
		d.InteractiveTimeoutSeconds = 120
	}
	if d.DeepAnalysisStageTimeoutSeconds == 0 {
		d.DeepAnalysisStageTimeoutSeconds = 180
	}
	if d.DeepAnalysisOverallTimeoutSeconds == 0 {
		d.DeepAnalysisOverallTimeoutSeconds = 1800
	}
	return d
}
