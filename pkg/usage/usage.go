// Package usage implements the Usage Tracker: per-invocation token
// estimation and cost computation against the model/tier table, per
// spec §4.8. Per-template usage counters are kept by
// pkg/store.PreferenceStore.IncrementUsage, not by this package.
package usage

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"time"

	"orchestrator/pkg/config"
	"orchestrator/pkg/models"
)

// Recorder persists a usage record; pkg/store.UsageStore satisfies
// this.
type Recorder interface {
	Insert(ctx context.Context, r models.UsageRecord) (int64, error)
}

// Tracker computes cost/credits and persists usage records.
type Tracker struct {
	store Recorder
	log   *slog.Logger
}

// New builds a Tracker over store.
func New(store Recorder) *Tracker {
	return &Tracker{store: store, log: slog.Default()}
}

// EstimateTokens estimates token count from word count when the
// adapter does not report exact counts: ceil(word_count * 1.5).
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	return int(math.Ceil(float64(words) * 1.5))
}

// Cost computes (input_tokens/1000)*input_rate + (output_tokens/1000)*output_rate
// using the model-rate table. Models absent from the table cost zero
// and emit a warning.
func (t *Tracker) Cost(model string, inputTokens, outputTokens int) float64 {
	rate, ok := config.RateFor(model)
	if !ok {
		t.log.Warn("model not present in cost table, treating as free", "model", model)
		return 0
	}
	return float64(inputTokens)/1000*rate.Input + float64(outputTokens)/1000*rate.Output
}

// Credits returns the credit cost of invoking model, for deep
// analysis's credits_consumed accounting.
func (t *Tracker) Credits(model string) int {
	return config.CreditsFor(model)
}

// Record estimates missing token counts, computes cost, and persists
// a usage row. Writes are at-least-once (§5); callers should not
// retry on a timeout that may have already succeeded server-side.
func (t *Tracker) Record(ctx context.Context, r models.UsageRecord, queryText, responseText string) (models.UsageRecord, error) {
	if r.PromptTokens == 0 {
		r.PromptTokens = EstimateTokens(queryText)
	}
	if r.CompletionTokens == 0 {
		r.CompletionTokens = EstimateTokens(responseText)
	}
	r.TotalTokens = r.PromptTokens + r.CompletionTokens
	r.QuerySize = len(queryText)
	r.ResponseSize = len(responseText)
	r.Cost = t.Cost(r.Model, r.PromptTokens, r.CompletionTokens)
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}

	id, err := t.store.Insert(ctx, r)
	if err != nil {
		return r, err
	}
	r.ID = id
	return r, nil
}
