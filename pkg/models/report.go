package models

import (
	"strings"
	"time"

	"orchestrator/pkg/config"
)

// DeepAnalysisEvent is one streamed frame of a deep-analysis run,
// matching §6's `{step, status, message?, progress, content?,
// final_result?}` wire contract.
type DeepAnalysisEvent struct {
	Step        string       `json:"step"`
	Status      config.FrameStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	Progress    int          `json:"progress"`
	Content     string       `json:"content,omitempty"`
	FinalResult *DeepAnalysisReport `json:"final_result,omitempty"`
}

// FigureJSON is the serialized transport form of one visualization
// produced during a deep analysis run (§4.7, "Figure serialization").
// The nested-list shape (one sub-list per analysis agent) follows the
// original source's plotly_figs: list[list[Figure]]; it is kept
// intact because the HTML renderer groups figures by producing agent.
type FigureJSON struct {
	AgentName string `json:"agent_name"`
	JSON      string `json:"json"`
}

// DeepAnalysisReport is the persistent record for one deep-analysis
// run, keyed by ReportUUID. Status advances monotonically
// pending -> running -> {completed, failed}; terminal states set
// EndTime and DurationSeconds.
type DeepAnalysisReport struct {
	ReportUUID string
	UserID     string
	Goal       string
	Status     config.ReportStatus

	ProgressPercentage int

	StartTime time.Time
	EndTime   *time.Time

	DeepQuestions   string
	DeepPlan        string
	Summaries       string
	AnalysisCode    string
	PlotlyFigures   [][]FigureJSON
	Synthesis       string
	FinalConclusion string
	// ReportSummary is final_conclusion truncated to 200 chars with
	// the literal "**Conclusion**" marker stripped, for list views
	// (supplemented from the original source's update_report_in_db).
	ReportSummary string
	HTMLReport    string

	CreditsConsumed  int
	TotalTokensUsed  int
	EstimatedCost    float64
	StepsCompleted   int
	ErrorMessage     string
}

// DurationSeconds returns end_time - start_time once the report has
// reached a terminal state, or 0 before then.
func (r *DeepAnalysisReport) DurationSeconds() float64 {
	if r.EndTime == nil {
		return 0
	}
	return r.EndTime.Sub(r.StartTime).Seconds()
}

// SummarizeConclusion derives ReportSummary from FinalConclusion per
// the original source's truncation rule: strip a leading
// "**Conclusion**" marker, then cap at 200 characters.
func SummarizeConclusion(conclusion string) string {
	const marker = "**Conclusion**"
	s := strings.TrimPrefix(conclusion, marker)
	s = strings.TrimLeft(s, " \n\t\r")
	if runes := []rune(s); len(runes) > 200 {
		s = string(runes[:200])
	}
	return s
}
