package deepanalysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orchestrator/pkg/config"
	"orchestrator/pkg/llm"
	"orchestrator/pkg/models"
	"orchestrator/pkg/planner"
	"orchestrator/pkg/retriever"
	"orchestrator/pkg/usage"
)

type fakeRegistry struct {
	sigs map[string]models.Signature
}

func (f *fakeRegistry) Signature(ctx context.Context, name string) (models.Signature, bool) {
	sig, ok := f.sigs[name]
	return sig, ok
}

type fakeUsageRecorder struct {
	incremented []string
}

func (f *fakeUsageRecorder) IncrementUsage(ctx context.Context, userID, templateName string, at time.Time) error {
	f.incremented = append(f.incremented, templateName)
	return nil
}

type fakeReports struct {
	rows []models.DeepAnalysisReport
}

func (f *fakeReports) Create(ctx context.Context, r models.DeepAnalysisReport) error {
	f.rows = append(f.rows, r)
	return nil
}

func (f *fakeReports) UpdateStage(ctx context.Context, r models.DeepAnalysisReport) error {
	f.rows = append(f.rows, r)
	return nil
}

func (f *fakeReports) last() models.DeepAnalysisReport {
	return f.rows[len(f.rows)-1]
}

func testRegistry() *fakeRegistry {
	return &fakeRegistry{sigs: map[string]models.Signature{
		"data_viz_agent": {
			AgentName: "data_viz_agent",
			Inputs:    []models.FieldName{models.FieldGoal, models.FieldDataset},
			Outputs:   []models.FieldName{models.FieldCode, models.FieldSummary},
		},
	}}
}

func drainDeep(events <-chan models.DeepAnalysisEvent) []models.DeepAnalysisEvent {
	var out []models.DeepAnalysisEvent
	for e := range events {
		out = append(out, e)
	}
	return out
}

func TestStream_HappyPathStagesInOrderWithExactProgress(t *testing.T) {
	reports := &fakeReports{}
	a := New(llm.NewStaticAdapter(), testRegistry(), planner.New(llm.NewStaticAdapter()), reports, &fakeUsageRecorder{}, usage.New(nil), "u1", []string{"data_viz_agent"}, &models.Dataset{Name: "housing.csv"}, retriever.Set{}, llm.Config{})

	events, err := a.Stream(context.Background(), "plot price vs sqft")
	require.NoError(t, err)

	all := drainDeep(events)
	require.NotEmpty(t, all)

	var steps []string
	var progresses []int
	for _, e := range all {
		steps = append(steps, e.Step)
		progresses = append(progresses, e.Progress)
	}

	assert.Equal(t, "initialization", steps[0])
	assert.Equal(t, 5, progresses[0])
	assert.Equal(t, "questions", steps[1])
	assert.Equal(t, 20, progresses[1])
	assert.Equal(t, "planning", steps[2])
	assert.Equal(t, 40, progresses[2])

	last := all[len(all)-1]
	assert.Equal(t, "report", last.Step)
	assert.Equal(t, 100, last.Progress)
	require.NotNil(t, last.FinalResult)
	assert.Equal(t, config.ReportCompleted, last.FinalResult.Status)
	assert.NotNil(t, last.FinalResult.EndTime)
	assert.Greater(t, last.FinalResult.DurationSeconds(), -1.0)

	finalRow := reports.last()
	assert.Equal(t, config.ReportCompleted, finalRow.Status)
	assert.Equal(t, 100, finalRow.ProgressPercentage)
}

func TestStream_ProgressIsMonotonic(t *testing.T) {
	reports := &fakeReports{}
	a := New(llm.NewStaticAdapter(), testRegistry(), planner.New(llm.NewStaticAdapter()), reports, &fakeUsageRecorder{}, usage.New(nil), "u1", []string{"data_viz_agent"}, &models.Dataset{Name: "housing.csv"}, retriever.Set{}, llm.Config{})

	events, err := a.Stream(context.Background(), "plot price vs sqft")
	require.NoError(t, err)

	last := -1
	for e := range events {
		assert.GreaterOrEqual(t, e.Progress, last)
		last = e.Progress
	}
}

func TestStream_CancellationPersistsTerminalFailedRow(t *testing.T) {
	reports := &fakeReports{}
	ctx, cancel := context.WithCancel(context.Background())

	adapter := llm.NewStaticAdapter()
	adapter.Respond["deep_questions"] = func(inputs map[models.FieldName]string) (llm.Result, error) {
		cancel()
		return llm.Result{Outputs: map[models.FieldName]string{models.FieldQuestions: "q1?"}}, nil
	}

	a := New(adapter, testRegistry(), planner.New(adapter), reports, &fakeUsageRecorder{}, usage.New(nil), "u1", []string{"data_viz_agent"}, &models.Dataset{Name: "housing.csv"}, retriever.Set{}, llm.Config{})

	events, err := a.Stream(ctx, "plot price vs sqft")
	require.NoError(t, err)

	all := drainDeep(events)
	last := all[len(all)-1]
	assert.Equal(t, "error", last.Step)
	assert.Equal(t, "cancelled", last.Message)

	finalRow := reports.last()
	assert.Equal(t, config.ReportFailed, finalRow.Status)
	assert.Equal(t, "cancelled", finalRow.ErrorMessage)
	assert.NotNil(t, finalRow.EndTime)
}

func TestStream_AdapterErrorMidRunPersistsFailedRowBeforeClosing(t *testing.T) {
	reports := &fakeReports{}
	adapter := llm.NewStaticAdapter()
	adapter.Respond["deep_questions"] = func(inputs map[models.FieldName]string) (llm.Result, error) {
		return llm.Result{}, assertErr
	}

	a := New(adapter, testRegistry(), planner.New(adapter), reports, &fakeUsageRecorder{}, usage.New(nil), "u1", []string{"data_viz_agent"}, &models.Dataset{Name: "housing.csv"}, retriever.Set{}, llm.Config{})

	events, err := a.Stream(context.Background(), "plot price vs sqft")
	require.NoError(t, err)

	all := drainDeep(events)
	last := all[len(all)-1]
	assert.Equal(t, "error", last.Step)

	finalRow := reports.last()
	assert.Equal(t, config.ReportFailed, finalRow.Status)
	assert.NotEmpty(t, finalRow.ErrorMessage)
}

var assertErr = context.DeadlineExceeded
