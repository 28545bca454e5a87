// Package deepanalysis implements the Deep Analyzer: a seven-stage,
// persistent, streaming workflow that turns a goal into a full
// narrative report, per spec §4.7.
package deepanalysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"orchestrator/pkg/config"
	"orchestrator/pkg/llm"
	"orchestrator/pkg/models"
	"orchestrator/pkg/planner"
	"orchestrator/pkg/retriever"
	"orchestrator/pkg/usage"
)

// SignatureResolver looks up a single agent's derived signature by
// name, used during the analysis stage.
type SignatureResolver interface {
	Signature(ctx context.Context, name string) (models.Signature, bool)
}

// UsageRecorder increments a (user, template) usage counter after a
// non-core agent runs during the analysis stage.
type UsageRecorder interface {
	IncrementUsage(ctx context.Context, userID, templateName string, at time.Time) error
}

// ReportPersister is the subset of pkg/store.ReportStore the Deep
// Analyzer needs; a narrow interface so tests can supply an in-memory
// fake with no database.
type ReportPersister interface {
	Create(ctx context.Context, r models.DeepAnalysisReport) error
	UpdateStage(ctx context.Context, r models.DeepAnalysisReport) error
}

// questionsSignature, synthesisSignature, conclusionSignature are the
// degenerate single-field signatures used for the narrative stages;
// grounded on planner.classifierSignature's pattern of a signature
// with no stored template, used purely to shape an adapter call.
var questionsSignature = models.Signature{
	AgentName: "deep_questions",
	Inputs:    []models.FieldName{models.FieldGoal, models.FieldDataset},
	Outputs:   []models.FieldName{models.FieldQuestions},
}

var synthesisSignature = models.Signature{
	AgentName: "deep_synthesis",
	Inputs:    []models.FieldName{models.FieldGoal, models.FieldSummary},
	Outputs:   []models.FieldName{models.FieldSynthesis},
}

var conclusionSignature = models.Signature{
	AgentName: "deep_conclusion",
	Inputs:    []models.FieldName{models.FieldGoal, models.FieldSynthesis},
	Outputs:   []models.FieldName{models.FieldConclusion},
}

// Analyzer is one bound deep-analysis capability: a fixed user, a
// fixed set of enabled agents (already resolved by the caller, with
// the documented core-agent fallback applied), and a fixed dataset
// context. pkg/session.Manager builds one per (session, user) pair via
// a DeepAnalyzerFactory closure and caches it until the user changes.
type Analyzer struct {
	Adapter  llm.Adapter
	Registry SignatureResolver
	Planner  *planner.Planner
	Reports  ReportPersister
	Usage    UsageRecorder
	Credits  *usage.Tracker

	UserID        string
	EnabledAgents []string

	Dataset     *models.Dataset
	Retrievers  retriever.Set
	ModelConfig llm.Config
}

// New builds an Analyzer bound to one user/session context.
func New(adapter llm.Adapter, registry SignatureResolver, p *planner.Planner, reports ReportPersister, usageRecorder UsageRecorder, credits *usage.Tracker, userID string, enabledAgents []string, dataset *models.Dataset, retrievers retriever.Set, cfg llm.Config) *Analyzer {
	return &Analyzer{
		Adapter:       adapter,
		Registry:      registry,
		Planner:       p,
		Reports:       reports,
		Usage:         usageRecorder,
		Credits:       credits,
		UserID:        userID,
		EnabledAgents: enabledAgents,
		Dataset:       dataset,
		Retrievers:    retrievers,
		ModelConfig:   cfg,
	}
}

// Stream runs the full seven-stage pipeline for goal, emitting one
// event per stage transition (and one per analysis step within the
// analysis stage) on the returned channel. The channel closes when the
// run reaches a terminal state; mid-run failures are persisted as a
// terminal failed row before the channel closes (errors are
// *persisted*, not contained, per §7).
func (a *Analyzer) Stream(ctx context.Context, goal string) (<-chan models.DeepAnalysisEvent, error) {
	reportUUID := uuid.New().String()
	report := models.DeepAnalysisReport{
		ReportUUID: reportUUID,
		UserID:     a.UserID,
		Goal:       goal,
		Status:     config.ReportPending,
		StartTime:  time.Now(),
	}
	if err := a.Reports.Create(ctx, report); err != nil {
		return nil, fmt.Errorf("creating deep analysis report: %w", err)
	}

	events := make(chan models.DeepAnalysisEvent)
	go a.run(ctx, report, events)
	return events, nil
}

func (a *Analyzer) run(ctx context.Context, report models.DeepAnalysisReport, events chan<- models.DeepAnalysisEvent) {
	defer close(events)

	datasetText := ""
	if a.Dataset != nil {
		datasetText = a.Dataset.Descriptor()
	}

	report.Status = config.ReportRunning
	report.ProgressPercentage = 5
	if a.fail(ctx, &report, events, a.persist(ctx, report)) {
		return
	}
	events <- models.DeepAnalysisEvent{Step: "initialization", Status: config.FrameSuccess, Progress: 5}
	if a.cancelled(ctx, &report, events) {
		return
	}

	// questions
	qRes, err := a.Adapter.Invoke(ctx, questionsSignature, map[models.FieldName]string{
		models.FieldGoal:    report.Goal,
		models.FieldDataset: datasetText,
	}, a.ModelConfig)
	if a.fail(ctx, &report, events, err) {
		return
	}
	report.DeepQuestions = qRes.Outputs[models.FieldQuestions]
	report.ProgressPercentage = 20
	if a.fail(ctx, &report, events, a.persist(ctx, report)) {
		return
	}
	events <- models.DeepAnalysisEvent{Step: "questions", Status: config.FrameSuccess, Progress: 20, Content: report.DeepQuestions}
	if a.cancelled(ctx, &report, events) {
		return
	}

	// planning
	agentDesc := formatAgentDesc(a.EnabledAgents)
	plan, err := a.Planner.Plan(ctx, report.Goal, datasetText, agentDesc)
	if a.fail(ctx, &report, events, err) {
		return
	}
	report.DeepPlan = strings.Join(plan.Steps, " -> ")
	report.ProgressPercentage = 40
	if a.fail(ctx, &report, events, a.persist(ctx, report)) {
		return
	}
	events <- models.DeepAnalysisEvent{Step: "planning", Status: config.FrameSuccess, Progress: 40, Content: report.DeepPlan}
	if a.cancelled(ctx, &report, events) {
		return
	}

	// analysis
	if plan.IsSentinel() {
		report.Summaries = "no agents available for deep analysis"
		report.ProgressPercentage = 85
	} else {
		a.runAnalysisSteps(ctx, &report, plan, events)
	}
	if a.fail(ctx, &report, events, a.persist(ctx, report)) {
		return
	}
	if a.cancelled(ctx, &report, events) {
		return
	}

	// synthesis
	synRes, err := a.Adapter.Invoke(ctx, synthesisSignature, map[models.FieldName]string{
		models.FieldGoal:    report.Goal,
		models.FieldSummary: report.Summaries,
	}, a.ModelConfig)
	if a.fail(ctx, &report, events, err) {
		return
	}
	report.Synthesis = synRes.Outputs[models.FieldSynthesis]
	report.ProgressPercentage = 90
	if a.fail(ctx, &report, events, a.persist(ctx, report)) {
		return
	}
	events <- models.DeepAnalysisEvent{Step: "synthesis", Status: config.FrameSuccess, Progress: 90, Content: report.Synthesis}
	if a.cancelled(ctx, &report, events) {
		return
	}

	// conclusion
	conRes, err := a.Adapter.Invoke(ctx, conclusionSignature, map[models.FieldName]string{
		models.FieldGoal:      report.Goal,
		models.FieldSynthesis: report.Synthesis,
	}, a.ModelConfig)
	if a.fail(ctx, &report, events, err) {
		return
	}
	report.FinalConclusion = conRes.Outputs[models.FieldConclusion]
	report.ReportSummary = models.SummarizeConclusion(report.FinalConclusion)
	report.ProgressPercentage = 95
	if a.fail(ctx, &report, events, a.persist(ctx, report)) {
		return
	}
	events <- models.DeepAnalysisEvent{Step: "conclusion", Status: config.FrameSuccess, Progress: 95, Content: report.FinalConclusion}
	if a.cancelled(ctx, &report, events) {
		return
	}

	// report
	report.HTMLReport = renderHTML(report)
	report.Status = config.ReportCompleted
	report.ProgressPercentage = 100
	end := time.Now()
	report.EndTime = &end
	if a.fail(ctx, &report, events, a.persist(ctx, report)) {
		return
	}
	final := report
	events <- models.DeepAnalysisEvent{Step: "report", Status: config.FrameSuccess, Progress: 100, FinalResult: &final}
}

// runAnalysisSteps drives the analysis stage: each plan step is
// invoked sequentially (the core's strictly-sequential execution
// model, §5), accumulating summaries, code, and figures; progress is
// spread evenly across 70-85 per §4.7's table.
func (a *Analyzer) runAnalysisSteps(ctx context.Context, report *models.DeepAnalysisReport, plan models.Plan, events chan<- models.DeepAnalysisEvent) {
	var summaries []string
	var codeBlocks []string
	var figures []models.FigureJSON

	n := len(plan.Steps)
	for i, step := range plan.Steps {
		if ctx.Err() != nil {
			return
		}

		sig, ok := a.Registry.Signature(ctx, step)
		if !ok {
			summaries = append(summaries, fmt.Sprintf("%s: unknown agent", step))
			continue
		}

		inputs, err := assembleInputs(ctx, sig, report.Goal, report, a.Retrievers)
		if err != nil {
			summaries = append(summaries, fmt.Sprintf("%s: %v", step, err))
			continue
		}

		res, err := a.Adapter.Invoke(ctx, sig, inputs, a.ModelConfig)
		if err != nil {
			summaries = append(summaries, fmt.Sprintf("%s: %v", step, err))
			continue
		}

		if code := res.Outputs[models.FieldCode]; code != "" {
			codeBlocks = append(codeBlocks, code)
		}
		if summary := res.Outputs[models.FieldSummary]; summary != "" {
			summaries = append(summaries, fmt.Sprintf("%s: %s", step, summary))
		}
		if models.IsVisualizationName(step) {
			figures = append(figures, models.FigureJSON{
				AgentName: step,
				JSON:      fmt.Sprintf(`{"agent":%q,"goal":%q}`, step, report.Goal),
			})
		}

		if !config.IsCoreAgent(step) && a.Usage != nil {
			_ = a.Usage.IncrementUsage(ctx, report.UserID, step, time.Now())
		}
		if a.Credits != nil {
			report.CreditsConsumed += a.Credits.Credits(a.ModelConfig.Model)
		}
		report.StepsCompleted++

		progress := 70
		if n > 0 {
			progress = 70 + (15*(i+1))/n
		}
		events <- models.DeepAnalysisEvent{
			Step:     "analysis",
			Status:   config.FrameSuccess,
			Progress: progress,
			Content:  fmt.Sprintf("completed %s", step),
		}
	}

	report.Summaries = strings.Join(summaries, "\n")
	report.AnalysisCode = strings.Join(codeBlocks, "\n\n")
	if len(figures) > 0 {
		report.PlotlyFigures = append(report.PlotlyFigures, figures)
	}
	report.ProgressPercentage = 85
}

// persist writes a full snapshot of report, enforcing the
// already-centralized monotonicity rule (pkg/store.ReportStore.UpdateStage).
func (a *Analyzer) persist(ctx context.Context, report models.DeepAnalysisReport) error {
	return a.Reports.UpdateStage(ctx, report)
}

// fail handles a non-nil err by marking the report failed, persisting
// it (best-effort; a persistence failure here is discarded rather
// than compounding the original error), and emitting a terminal error
// event. Returns true if the caller should stop.
func (a *Analyzer) fail(ctx context.Context, report *models.DeepAnalysisReport, events chan<- models.DeepAnalysisEvent, err error) bool {
	if err == nil {
		return false
	}
	report.Status = config.ReportFailed
	report.ErrorMessage = err.Error()
	end := time.Now()
	report.EndTime = &end
	_ = a.Reports.UpdateStage(ctx, *report)
	events <- models.DeepAnalysisEvent{Step: "error", Status: config.FrameError, Progress: report.ProgressPercentage, Message: err.Error()}
	return true
}

// cancelled checks ctx for cancellation and, if cancelled, persists a
// terminal failed row with error_message="cancelled" (§4.7,
// "Cancellation / timeout").
func (a *Analyzer) cancelled(ctx context.Context, report *models.DeepAnalysisReport, events chan<- models.DeepAnalysisEvent) bool {
	if ctx.Err() == nil {
		return false
	}
	report.Status = config.ReportFailed
	report.ErrorMessage = "cancelled"
	end := time.Now()
	report.EndTime = &end
	_ = a.Reports.UpdateStage(context.Background(), *report)
	events <- models.DeepAnalysisEvent{Step: "error", Status: config.FrameError, Progress: report.ProgressPercentage, Message: "cancelled"}
	return true
}

func formatAgentDesc(names []string) map[string]string {
	out := make(map[string]string, len(names))
	for _, n := range names {
		out[n] = n
	}
	return out
}

// assembleInputs mirrors pkg/individual and pkg/planned's input
// assembly rules for the analysis-stage agents.
func assembleInputs(ctx context.Context, sig models.Signature, goal string, report *models.DeepAnalysisReport, retrievers retriever.Set) (map[models.FieldName]string, error) {
	inputs := make(map[models.FieldName]string, len(sig.Inputs))
	for _, field := range sig.Inputs {
		switch field {
		case models.FieldGoal:
			inputs[field] = goal
		case models.FieldDataset:
			text, err := retriever.Top1(ctx, retrievers.Dataset, goal)
			if err != nil {
				return nil, err
			}
			inputs[field] = text
		case models.FieldStylingIndex:
			text, err := retriever.Top1(ctx, retrievers.Style, goal)
			if err != nil {
				return nil, err
			}
			inputs[field] = text
		case models.FieldPlanInstructions:
			inputs[field] = report.DeepPlan
		default:
			inputs[field] = ""
		}
	}
	return inputs, nil
}

// renderHTML produces the completion-stage HTML report. The real
// renderer (grounded on the original source's plotly/Jinja pipeline)
// is an external concern; this builds a minimal, self-contained
// document so the pipeline's `html_report` contract is satisfiable
// without that dependency.
func renderHTML(r models.DeepAnalysisReport) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	fmt.Fprintf(&b, "<h1>Deep Analysis: %s</h1>", r.Goal)
	fmt.Fprintf(&b, "<h2>Conclusion</h2><p>%s</p>", r.FinalConclusion)
	fmt.Fprintf(&b, "<h2>Synthesis</h2><p>%s</p>", r.Synthesis)
	for _, group := range r.PlotlyFigures {
		for _, fig := range group {
			fmt.Fprintf(&b, "<div data-agent=%q>%s</div>", fig.AgentName, fig.JSON)
		}
	}
	b.WriteString("</body></html>")
	return b.String()
}
