package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"orchestrator/pkg/config"
)

func TestAgentTemplate_RequiresStylingIndex(t *testing.T) {
	t.Run("category takes precedence", func(t *testing.T) {
		tmpl := AgentTemplate{Name: "data_viz_agent", Category: config.CategoryDataVisualization}
		assert.True(t, tmpl.RequiresStylingIndex())
	})

	t.Run("non-viz category", func(t *testing.T) {
		tmpl := AgentTemplate{Name: "anything", Category: config.CategoryDataManipulation}
		assert.False(t, tmpl.RequiresStylingIndex())
	})

	t.Run("name fallback when category unset", func(t *testing.T) {
		assert.True(t, AgentTemplate{Name: "custom_plot_helper"}.RequiresStylingIndex())
		assert.False(t, AgentTemplate{Name: "preprocessing_agent"}.RequiresStylingIndex())
	})
}

func TestBuildSignature(t *testing.T) {
	t.Run("visualization agent gets styling_index input", func(t *testing.T) {
		tmpl := AgentTemplate{Name: "data_viz_agent", Category: config.CategoryDataVisualization, Variant: config.VariantBoth}
		sig := BuildSignature(tmpl, true)
		assert.Contains(t, sig.Inputs, FieldStylingIndex)
		assert.Equal(t, []FieldName{FieldCode, FieldSummary}, sig.Outputs)
	})

	t.Run("basic_qa_agent gets answer-only output", func(t *testing.T) {
		tmpl := AgentTemplate{Name: "basic_qa_agent", Variant: config.VariantIndividual}
		sig := BuildSignature(tmpl, true)
		assert.Equal(t, []FieldName{FieldAnswer}, sig.Outputs)
	})

	t.Run("planner variant always gets plan_instructions", func(t *testing.T) {
		tmpl := AgentTemplate{Name: "preprocessing_agent", Variant: config.VariantPlanner}
		sig := BuildSignature(tmpl, false)
		assert.Contains(t, sig.Inputs, FieldPlanInstructions)
	})

	t.Run("individual-only variant includes plan_instructions when requested", func(t *testing.T) {
		tmpl := AgentTemplate{Name: "preprocessing_agent", Variant: config.VariantIndividual}
		sig := BuildSignature(tmpl, true)
		assert.Contains(t, sig.Inputs, FieldPlanInstructions)

		sig = BuildSignature(tmpl, false)
		assert.NotContains(t, sig.Inputs, FieldPlanInstructions)
	})
}
