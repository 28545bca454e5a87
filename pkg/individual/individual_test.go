package individual

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orchestrator/pkg/apperrors"
	"orchestrator/pkg/llm"
	"orchestrator/pkg/models"
	"orchestrator/pkg/retriever"
)

type fakeRegistry struct {
	sigs map[string]models.Signature
}

func (f *fakeRegistry) Signature(ctx context.Context, name string) (models.Signature, bool) {
	sig, ok := f.sigs[name]
	return sig, ok
}

func (f *fakeRegistry) AllAgentNames(ctx context.Context) []string {
	names := make([]string, 0, len(f.sigs))
	for n := range f.sigs {
		names = append(names, n)
	}
	return names
}

type fakeUsage struct {
	incremented []string
}

func (f *fakeUsage) IncrementUsage(ctx context.Context, userID, templateName string, at time.Time) error {
	f.incremented = append(f.incremented, templateName)
	return nil
}

func testRegistry() *fakeRegistry {
	return &fakeRegistry{sigs: map[string]models.Signature{
		"data_viz_agent": {
			AgentName: "data_viz_agent",
			Inputs:    []models.FieldName{models.FieldGoal, models.FieldDataset, models.FieldStylingIndex},
			Outputs:   []models.FieldName{models.FieldCode, models.FieldSummary},
		},
		"preprocessing_agent": {
			AgentName: "preprocessing_agent",
			Inputs:    []models.FieldName{models.FieldGoal, models.FieldDataset},
			Outputs:   []models.FieldName{models.FieldCode, models.FieldSummary},
		},
		"premium_agent": {
			AgentName: "premium_agent",
			Inputs:    []models.FieldName{models.FieldGoal, models.FieldDataset},
			Outputs:   []models.FieldName{models.FieldCode, models.FieldSummary},
		},
	}}
}

func testDataset() *models.Dataset {
	return &models.Dataset{Name: "housing.csv", Schema: map[string]models.ColumnType{"price": models.ColumnNumeric}}
}

// scenario 1: explicit single agent.
func TestForward_ExplicitSingleAgent(t *testing.T) {
	sys := New(testRegistry(), llm.NewStaticAdapter(), &fakeUsage{})
	result, err := sys.Forward(context.Background(), "u7", "plot price vs sqft", "data_viz_agent", testDataset(), retriever.Set{}, llm.Config{})
	require.NoError(t, err)
	require.Contains(t, result, "data_viz_agent")
	out := result["data_viz_agent"]
	assert.NotEmpty(t, out.Code)
	assert.NotEmpty(t, out.Summary)
	assert.Len(t, result, 1)
}

// scenario 2: explicit multi-agent, core agents untouched by usage tracking.
func TestForward_ExplicitMultiAgent(t *testing.T) {
	usage := &fakeUsage{}
	sys := New(testRegistry(), llm.NewStaticAdapter(), usage)
	result, err := sys.Forward(context.Background(), "u7", "clean and plot", "preprocessing_agent,data_viz_agent", testDataset(), retriever.Set{}, llm.Config{})
	require.NoError(t, err)
	assert.Contains(t, result, "preprocessing_agent")
	assert.Contains(t, result, "data_viz_agent")
	assert.Empty(t, usage.incremented)
}

func TestForward_NonCoreAgentIncrementsUsage(t *testing.T) {
	usage := &fakeUsage{}
	sys := New(testRegistry(), llm.NewStaticAdapter(), usage)
	_, err := sys.Forward(context.Background(), "u7", "goal", "premium_agent", testDataset(), retriever.Set{}, llm.Config{})
	require.NoError(t, err)
	assert.Equal(t, []string{"premium_agent"}, usage.incremented)
}

func TestForward_NoDataset(t *testing.T) {
	sys := New(testRegistry(), llm.NewStaticAdapter(), &fakeUsage{})
	_, err := sys.Forward(context.Background(), "u7", "goal", "data_viz_agent", nil, retriever.Set{}, llm.Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNoDataset)
}

func TestForward_UnknownAgent(t *testing.T) {
	sys := New(testRegistry(), llm.NewStaticAdapter(), &fakeUsage{})
	_, err := sys.Forward(context.Background(), "u7", "goal", "not_an_agent", testDataset(), retriever.Set{}, llm.Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrUnknownAgent)
}

func TestForward_EmptyAgentSpec(t *testing.T) {
	sys := New(testRegistry(), llm.NewStaticAdapter(), &fakeUsage{})
	_, err := sys.Forward(context.Background(), "u7", "goal", "  , ,", testDataset(), retriever.Set{}, llm.Config{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidationError(err))
}
