package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"orchestrator/pkg/config"
)

func TestPlan_IsSentinel(t *testing.T) {
	t.Run("basic_qa_agent sentinel", func(t *testing.T) {
		p := Plan{Steps: []string{config.BasicQAAgentName}}
		assert.True(t, p.IsSentinel())
	})

	t.Run("no_agents_available sentinel", func(t *testing.T) {
		p := Plan{Steps: []string{config.NoAgentsAvailablePlan}}
		assert.True(t, p.IsSentinel())
	})

	t.Run("regular single-step plan is not a sentinel", func(t *testing.T) {
		p := Plan{Steps: []string{"data_viz_agent"}}
		assert.False(t, p.IsSentinel())
	})

	t.Run("multi-step plan is never a sentinel", func(t *testing.T) {
		p := Plan{Steps: []string{"preprocessing_agent", "data_viz_agent"}}
		assert.False(t, p.IsSentinel())
	})
}
