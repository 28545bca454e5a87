package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"orchestrator/pkg/apperrors"
	"orchestrator/pkg/config"
	"orchestrator/pkg/models"
)

// ReportStore persists deep-analysis reports, keyed by report UUID.
// Every write after Create goes through UpdateStage so progress_percentage can
// never regress (monotonicity is enforced here, not left to callers).
type ReportStore struct {
	pool *pgxpool.Pool
}

func NewReportStore(pool *pgxpool.Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

const reportColumns = `report_uuid, user_id, goal, status, progress_percentage, start_time, end_time,
	deep_questions, deep_plan, summaries, analysis_code, plotly_figures, synthesis,
	final_conclusion, report_summary, html_report, credits_consumed, total_tokens_used,
	estimated_cost, steps_completed, error_message`

func scanReport(row pgx.Row) (models.DeepAnalysisReport, error) {
	var r models.DeepAnalysisReport
	var status string
	var figuresJSON []byte
	err := row.Scan(
		&r.ReportUUID, &r.UserID, &r.Goal, &status, &r.ProgressPercentage, &r.StartTime, &r.EndTime,
		&r.DeepQuestions, &r.DeepPlan, &r.Summaries, &r.AnalysisCode, &figuresJSON, &r.Synthesis,
		&r.FinalConclusion, &r.ReportSummary, &r.HTMLReport, &r.CreditsConsumed, &r.TotalTokensUsed,
		&r.EstimatedCost, &r.StepsCompleted, &r.ErrorMessage,
	)
	r.Status = config.ReportStatus(status)
	if err == nil && len(figuresJSON) > 0 {
		_ = json.Unmarshal(figuresJSON, &r.PlotlyFigures)
	}
	return r, err
}

// Create inserts the initial pending row for a new deep-analysis run.
func (s *ReportStore) Create(ctx context.Context, r models.DeepAnalysisReport) error {
	figuresJSON, err := json.Marshal(r.PlotlyFigures)
	if err != nil {
		return fmt.Errorf("marshaling figures: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO deep_analysis_reports (`+reportColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)
	`, r.ReportUUID, r.UserID, r.Goal, string(r.Status), r.ProgressPercentage, r.StartTime, r.EndTime,
		r.DeepQuestions, r.DeepPlan, r.Summaries, r.AnalysisCode, figuresJSON, r.Synthesis,
		r.FinalConclusion, r.ReportSummary, r.HTMLReport, r.CreditsConsumed, r.TotalTokensUsed,
		r.EstimatedCost, r.StepsCompleted, r.ErrorMessage)
	if err != nil {
		return fmt.Errorf("creating report %q: %w", r.ReportUUID, err)
	}
	return nil
}

// Get returns the full report row.
func (s *ReportStore) Get(ctx context.Context, reportUUID string) (models.DeepAnalysisReport, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+reportColumns+` FROM deep_analysis_reports WHERE report_uuid = $1`, reportUUID)
	r, err := scanReport(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.DeepAnalysisReport{}, apperrors.ErrNotFound
	}
	if err != nil {
		return models.DeepAnalysisReport{}, fmt.Errorf("loading report %q: %w", reportUUID, err)
	}
	return r, nil
}

// UpdateStage persists a full snapshot of r, enforcing that
// progress_percentage cannot regress below the currently-stored value
// (the monotonicity invariant from §3/§8 lives here, in the one place
// every stage write passes through).
func (s *ReportStore) UpdateStage(ctx context.Context, r models.DeepAnalysisReport) error {
	existing, err := s.Get(ctx, r.ReportUUID)
	if err != nil {
		return err
	}
	if r.ProgressPercentage < existing.ProgressPercentage {
		return fmt.Errorf("refusing to regress progress_percentage for report %q: %d -> %d",
			r.ReportUUID, existing.ProgressPercentage, r.ProgressPercentage)
	}

	figuresJSON, err := json.Marshal(r.PlotlyFigures)
	if err != nil {
		return fmt.Errorf("marshaling figures: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		UPDATE deep_analysis_reports SET
			status = $2, progress_percentage = $3, end_time = $4,
			deep_questions = $5, deep_plan = $6, summaries = $7, analysis_code = $8,
			plotly_figures = $9, synthesis = $10, final_conclusion = $11, report_summary = $12,
			html_report = $13, credits_consumed = $14, total_tokens_used = $15,
			estimated_cost = $16, steps_completed = $17, error_message = $18
		WHERE report_uuid = $1
	`, r.ReportUUID, string(r.Status), r.ProgressPercentage, r.EndTime,
		r.DeepQuestions, r.DeepPlan, r.Summaries, r.AnalysisCode, figuresJSON, r.Synthesis,
		r.FinalConclusion, r.ReportSummary, r.HTMLReport, r.CreditsConsumed, r.TotalTokensUsed,
		r.EstimatedCost, r.StepsCompleted, r.ErrorMessage)
	if err != nil {
		return fmt.Errorf("updating report %q: %w", r.ReportUUID, err)
	}
	return nil
}
