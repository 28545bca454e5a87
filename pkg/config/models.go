package config

// ModelRate holds the per-1K-token cost for a model, split by input and
// output tokens.
type ModelRate struct {
	Input  float64
	Output float64
}

// ModelTier groups models under a display name and a credit cost.
type ModelTier struct {
	Name    string
	Credits int
	Models  []string
}

// ModelCosts is the built-in per-provider, per-model rate table.
var ModelCosts = map[Provider]map[string]ModelRate{
	ProviderOpenAI: {
		"o1":          {Input: 0.015, Output: 0.06},
		"o1-pro":      {Input: 0.015, Output: 0.6},
		"o1-mini":     {Input: 0.00011, Output: 0.00044},
		"o3":          {Input: 0.002, Output: 0.008},
		"o3-mini":     {Input: 0.00011, Output: 0.00044},
		"gpt-5":       {Input: 0.00125, Output: 0.01},
		"gpt-5-mini":  {Input: 0.00025, Output: 0.002},
		"gpt-5-nano":  {Input: 0.00005, Output: 0.0004},
	},
	ProviderAnthropic: {
		"claude-3-5-haiku-latest":   {Input: 0.00025, Output: 0.000125},
		"claude-3-7-sonnet-latest":  {Input: 0.003, Output: 0.015},
		"claude-3-5-sonnet-latest":  {Input: 0.003, Output: 0.015},
		"claude-sonnet-4-20250514":  {Input: 0.003, Output: 0.015},
		"claude-3-opus-latest":      {Input: 0.015, Output: 0.075},
		"claude-opus-4-20250514":    {Input: 0.015, Output: 0.075},
		"claude-opus-4-1":           {Input: 0.015, Output: 0.075},
	},
	ProviderGroq: {
		"deepseek-r1-distill-llama-70b": {Input: 0.00075, Output: 0.00099},
		"gpt-oss-120B":                  {Input: 0.00075, Output: 0.00099},
		"gpt-oss-20B":                   {Input: 0.00075, Output: 0.00099},
	},
	ProviderGemini: {
		"gemini-2.5-pro-preview-03-25": {Input: 0.00015, Output: 0.001},
	},
}

// ModelTiers is the built-in tier table, ordered tier1 (cheapest) to
// tier5 (most expensive); index 0 is tier1.
var ModelTiers = []ModelTier{
	{Name: "Basic", Credits: 1, Models: []string{"claude-3-5-haiku-latest", "gpt-oss-20B"}},
	{Name: "Standard", Credits: 3, Models: []string{"o1-mini", "o3-mini", "gpt-5-nano"}},
	{Name: "Premium", Credits: 5, Models: []string{
		"o3", "claude-3-7-sonnet-latest", "claude-3-5-sonnet-latest",
		"claude-sonnet-4-20250514", "deepseek-r1-distill-llama-70b",
		"gpt-oss-120B", "gemini-2.5-pro-preview-03-25", "gpt-5-mini",
	}},
	{Name: "Premium Plus", Credits: 20, Models: []string{
		"gpt-4.5-preview", "o1", "o1-pro", "claude-3-opus-latest", "claude-opus-4-20250514",
	}},
	{Name: "Ultimate", Credits: 50, Models: []string{"gpt-5", "claude-opus-4-1"}},
}

// ProviderForModel returns the provider that serves model, and ok=false
// if the model is not present in the rate table.
func ProviderForModel(model string) (Provider, bool) {
	for provider, models := range ModelCosts {
		if _, ok := models[model]; ok {
			return provider, true
		}
	}
	return "", false
}

// RateFor returns the cost rate for a model, and ok=false when the
// model is absent from the table (cost must be treated as zero with a
// warning in that case).
func RateFor(model string) (ModelRate, bool) {
	provider, ok := ProviderForModel(model)
	if !ok {
		return ModelRate{}, false
	}
	rate, ok := ModelCosts[provider][model]
	return rate, ok
}

// TierFor returns the tier index (0-based) for a model, defaulting to
// tier1 (index 0) when the model is unrecognized.
func TierFor(model string) int {
	for i, tier := range ModelTiers {
		for _, m := range tier.Models {
			if m == model {
				return i
			}
		}
	}
	return 0
}

// CreditsFor returns the credit cost for invoking model.
func CreditsFor(model string) int {
	return ModelTiers[TierFor(model)].Credits
}
