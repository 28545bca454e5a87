package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCoreAgent(t *testing.T) {
	t.Run("core agent names match", func(t *testing.T) {
		for _, name := range CoreAgentNames {
			assert.True(t, IsCoreAgent(name))
		}
	})

	t.Run("non-core agent does not match", func(t *testing.T) {
		assert.False(t, IsCoreAgent("premium_agent"))
	})
}

func TestDefaults_WithDefaults(t *testing.T) {
	t.Run("zero value fills every field", func(t *testing.T) {
		d := Defaults{}.WithDefaults()
		assert.Equal(t, string(ProviderOpenAI), d.LLMProvider)
		assert.Equal(t, "gpt-5-mini", d.LLMModel)
		assert.Equal(t, 4096, d.MaxTokens)
		assert.Equal(t, 0.7, d.Temperature)
		assert.Equal(t, 120, d.InteractiveTimeoutSeconds)
		assert.Equal(t, 180, d.DeepAnalysisStageTimeoutSeconds)
		assert.Equal(t, 1800, d.DeepAnalysisOverallTimeoutSeconds)
	})

	t.Run("explicit values pass through unchanged", func(t *testing.T) {
		d := Defaults{LLMProvider: "anthropic", MaxTokens: 1024}.WithDefaults()
		assert.Equal(t, "anthropic", d.LLMProvider)
		assert.Equal(t, 1024, d.MaxTokens)
	})
}
